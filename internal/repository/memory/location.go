package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// LocationStore - последняя точка каждой единицы в памяти
type LocationStore struct {
	mu      sync.RWMutex
	samples map[uuid.UUID]models.LocationSample
}

func NewLocationStore() *LocationStore {
	return &LocationStore{samples: make(map[uuid.UUID]models.LocationSample)}
}

// Upsert сохраняет точку, только если она строго новее текущей
func (s *LocationStore) Upsert(_ context.Context, sample models.LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.samples[sample.UnitID]; ok && !sample.ObservedAt.After(cur.ObservedAt) {
		return fmt.Errorf("%w: unit %s already has a newer sample", models.ErrStaleUpdate, sample.UnitID)
	}
	s.samples[sample.UnitID] = sample
	return nil
}

func (s *LocationStore) Get(_ context.Context, unitID uuid.UUID) (*models.LocationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.samples[unitID]
	if !ok {
		return nil, fmt.Errorf("%w: no location for unit %s", models.ErrNotFound, unitID)
	}
	return &sample, nil
}

func (s *LocationStore) List(_ context.Context) ([]*models.LocationSample, error) {
	s.mu.RLock()
	out := make([]*models.LocationSample, 0, len(s.samples))
	for _, sample := range s.samples {
		out = append(out, &sample)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID.String() < out[j].UnitID.String() })
	return out, nil
}
