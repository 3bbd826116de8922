package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

type DispatchRepository struct {
	store *Store
}

// Bind проверяет обе версии под блокировками инцидента и единицы и только
// затем применяет изменения: промах любой проверки ничего не меняет.
func (r *DispatchRepository) Bind(_ context.Context, b models.Binding) (*models.Incident, *models.Resource, error) {
	irec, ok := r.store.incident(b.IncidentID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: incident %s", models.ErrNotFound, b.IncidentID)
	}
	rrec, ok := r.store.resource(b.ResourceID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: resource %s", models.ErrNotFound, b.ResourceID)
	}

	irec.mu.Lock()
	defer irec.mu.Unlock()
	rrec.mu.Lock()
	defer rrec.mu.Unlock()

	if irec.incident.Version != b.IncidentVersion || irec.incident.Status != models.StatusReported {
		return nil, nil, fmt.Errorf("%w: incident %s was modified concurrently", models.ErrConflict, b.IncidentID)
	}
	if rrec.resource.Version != b.ResourceVersion || rrec.resource.Status != models.ResourceAvailable {
		return nil, nil, fmt.Errorf("%w: resource %s was modified concurrently", models.ErrConflict, b.ResourceID)
	}

	incident := irec.incident.Clone()
	incident.Status = models.StatusDispatched
	resourceID := b.ResourceID
	incident.AssignedResource = &resourceID
	incident.UpdatedAt = b.At
	incident.Version++

	resource := rrec.resource.Clone()
	resource.Status = models.ResourceAssigned
	resource.UpdatedAt = b.At
	resource.Version++

	irec.incident = incident
	irec.assignments = append(irec.assignments, b.Assignment.Clone())
	rrec.resource = resource
	return incident.Clone(), resource.Clone(), nil
}

// Unbind меняет статус инцидента, закрывает открытое назначение и
// освобождает единицу одной операцией
func (r *DispatchRepository) Unbind(_ context.Context, u models.Unbinding) (*models.Incident, *models.Resource, error) {
	irec, ok := r.store.incident(u.IncidentID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: incident %s", models.ErrNotFound, u.IncidentID)
	}
	var rrec *resourceRecord
	if u.ResourceID != uuid.Nil {
		if rrec, ok = r.store.resource(u.ResourceID); !ok {
			return nil, nil, fmt.Errorf("%w: resource %s", models.ErrNotFound, u.ResourceID)
		}
	}

	irec.mu.Lock()
	defer irec.mu.Unlock()
	if rrec != nil {
		rrec.mu.Lock()
		defer rrec.mu.Unlock()
	}

	if irec.incident.Version != u.IncidentVersion {
		return nil, nil, fmt.Errorf("%w: incident %s was modified concurrently", models.ErrConflict, u.IncidentID)
	}
	open := -1
	if rrec != nil {
		if rrec.resource.Version != u.ResourceVersion || rrec.resource.Status != models.ResourceAssigned {
			return nil, nil, fmt.Errorf("%w: resource %s was modified concurrently", models.ErrConflict, u.ResourceID)
		}
		for i, a := range irec.assignments {
			if a.Open() && a.ResourceID == u.ResourceID {
				open = i
			}
		}
		if open < 0 {
			return nil, nil, fmt.Errorf("%w: no open assignment for incident %s", models.ErrConflict, u.IncidentID)
		}
	}

	incident := irec.incident.Clone()
	incident.Status = u.NewStatus
	incident.AssignedResource = nil
	incident.UpdatedAt = u.At
	incident.Version++
	irec.incident = incident

	if rrec == nil {
		return incident.Clone(), nil, nil
	}

	closed := irec.assignments[open].Clone()
	at := u.At
	closed.CompletedAt = &at
	irec.assignments[open] = closed

	resource := rrec.resource.Clone()
	resource.Status = models.ResourceAvailable
	resource.UpdatedAt = u.At
	resource.Version++
	rrec.resource = resource
	return incident.Clone(), resource.Clone(), nil
}

func (r *DispatchRepository) ListAssignments(_ context.Context, incidentID uuid.UUID) ([]*models.Assignment, error) {
	irec, ok := r.store.incident(incidentID)
	if !ok {
		return nil, fmt.Errorf("%w: incident %s", models.ErrNotFound, incidentID)
	}
	irec.mu.Lock()
	defer irec.mu.Unlock()
	out := make([]*models.Assignment, 0, len(irec.assignments))
	for _, a := range irec.assignments {
		out = append(out, a.Clone())
	}
	return out, nil
}
