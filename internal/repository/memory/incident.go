package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

type IncidentRepository struct {
	store *Store
}

func (r *IncidentRepository) Create(_ context.Context, incident *models.Incident) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.incidents[incident.ID]; exists {
		return fmt.Errorf("%w: incident %s already exists", models.ErrConflict, incident.ID)
	}
	r.store.incidents[incident.ID] = &incidentRecord{incident: incident.Clone()}
	return nil
}

func (r *IncidentRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	rec, ok := r.store.incident(id)
	if !ok {
		return nil, fmt.Errorf("%w: incident %s", models.ErrNotFound, id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.incident.Clone(), nil
}

func (r *IncidentRepository) UpdateStatus(_ context.Context, id uuid.UUID, status models.IncidentStatus, expectedVersion int64, at time.Time) (*models.Incident, error) {
	rec, ok := r.store.incident(id)
	if !ok {
		return nil, fmt.Errorf("%w: incident %s", models.ErrNotFound, id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.incident.Version != expectedVersion {
		return nil, fmt.Errorf("%w: incident %s was modified concurrently", models.ErrConflict, id)
	}
	next := rec.incident.Clone()
	next.Status = status
	next.UpdatedAt = at
	next.Version++
	rec.incident = next
	return next.Clone(), nil
}

// List - новые сначала, затем страница filter.Page размером filter.PageSize
func (r *IncidentRepository) List(_ context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	matched := make([]*models.Incident, 0)
	for _, rec := range r.store.incidentRecords() {
		rec.mu.Lock()
		if filter.Match(rec.incident) {
			matched = append(matched, rec.incident.Clone())
		}
		rec.mu.Unlock()
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if filter.PageSize <= 0 {
		return matched, nil
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * filter.PageSize
	if start >= len(matched) {
		return []*models.Incident{}, nil
	}
	end := min(start+filter.PageSize, len(matched))
	return matched[start:end], nil
}

func (r *IncidentRepository) CountByStatus(_ context.Context) (map[models.IncidentStatus]int, error) {
	counts := make(map[models.IncidentStatus]int)
	for _, rec := range r.store.incidentRecords() {
		rec.mu.Lock()
		counts[rec.incident.Status]++
		rec.mu.Unlock()
	}
	return counts, nil
}
