package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

type ResourceRepository struct {
	store *Store
}

func (r *ResourceRepository) Create(_ context.Context, resource *models.Resource) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.resources[resource.ID]; exists {
		return fmt.Errorf("%w: resource %s already exists", models.ErrConflict, resource.ID)
	}
	r.store.resources[resource.ID] = &resourceRecord{resource: resource.Clone()}
	return nil
}

func (r *ResourceRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Resource, error) {
	rec, ok := r.store.resource(id)
	if !ok {
		return nil, fmt.Errorf("%w: resource %s", models.ErrNotFound, id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.resource.Clone(), nil
}

func (r *ResourceRepository) SetStatus(_ context.Context, id uuid.UUID, status models.ResourceStatus, expectedVersion int64, at time.Time) (*models.Resource, error) {
	rec, ok := r.store.resource(id)
	if !ok {
		return nil, fmt.Errorf("%w: resource %s", models.ErrNotFound, id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.resource.Version != expectedVersion || rec.resource.Status == models.ResourceAssigned {
		return nil, fmt.Errorf("%w: resource %s was modified concurrently", models.ErrConflict, id)
	}
	next := rec.resource.Clone()
	next.Status = status
	next.UpdatedAt = at
	next.Version++
	rec.resource = next
	return next.Clone(), nil
}

func (r *ResourceRepository) List(_ context.Context, status models.ResourceStatus, resourceType string) ([]*models.Resource, error) {
	out := make([]*models.Resource, 0)
	for _, rec := range r.store.resourceRecords() {
		rec.mu.Lock()
		if (status == "" || rec.resource.Status == status) && (resourceType == "" || rec.resource.Type == resourceType) {
			out = append(out, rec.resource.Clone())
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
