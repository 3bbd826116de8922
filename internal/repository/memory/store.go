// Package memory - хранилище в памяти процесса для STORAGE_DRIVER=memory и тестов.
// Мутации синхронизируются мьютексами отдельных записей, общей блокировки
// на пути записи нет. Запись двух сущностей берёт блокировки в порядке
// инцидент -> единица.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

type incidentRecord struct {
	mu          sync.Mutex
	incident    *models.Incident
	assignments []*models.Assignment
}

type resourceRecord struct {
	mu       sync.Mutex
	resource *models.Resource
}

// Store - общий набор таблиц, из которого выдаются репозитории
type Store struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]*incidentRecord
	resources map[uuid.UUID]*resourceRecord
}

func NewStore() *Store {
	return &Store{
		incidents: make(map[uuid.UUID]*incidentRecord),
		resources: make(map[uuid.UUID]*resourceRecord),
	}
}

func (s *Store) Incidents() *IncidentRepository {
	return &IncidentRepository{store: s}
}

func (s *Store) Resources() *ResourceRepository {
	return &ResourceRepository{store: s}
}

func (s *Store) Dispatch() *DispatchRepository {
	return &DispatchRepository{store: s}
}

func (s *Store) incident(id uuid.UUID) (*incidentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.incidents[id]
	return rec, ok
}

func (s *Store) resource(id uuid.UUID) (*resourceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.resources[id]
	return rec, ok
}

func (s *Store) incidentRecords() []*incidentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*incidentRecord, 0, len(s.incidents))
	for _, rec := range s.incidents {
		out = append(out, rec)
	}
	return out
}

func (s *Store) resourceRecords() []*resourceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*resourceRecord, 0, len(s.resources))
	for _, rec := range s.resources {
		out = append(out, rec)
	}
	return out
}
