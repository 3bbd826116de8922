package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) (*models.Incident, *models.Resource) {
	t.Helper()
	incident := &models.Incident{
		ID:        uuid.New(),
		Title:     "Warehouse fire",
		Severity:  models.SeverityHigh,
		Status:    models.StatusReported,
		Latitude:  55.75,
		Longitude: 37.61,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
		Version:   1,
	}
	resource := &models.Resource{
		ID:        uuid.New(),
		Name:      "Engine 7",
		Type:      "engine",
		Status:    models.ResourceAvailable,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
		Version:   1,
	}
	require.NoError(t, s.Incidents().Create(context.Background(), incident))
	require.NoError(t, s.Resources().Create(context.Background(), resource))
	return incident, resource
}

func binding(incident *models.Incident, resource *models.Resource) models.Binding {
	at := baseTime.Add(time.Minute)
	return models.Binding{
		IncidentID:      incident.ID,
		IncidentVersion: incident.Version,
		ResourceID:      resource.ID,
		ResourceVersion: resource.Version,
		Assignment: models.Assignment{
			ID:         uuid.New(),
			IncidentID: incident.ID,
			ResourceID: resource.ID,
			AssignedBy: "dispatcher-1",
			AssignedAt: at,
		},
		At: at,
	}
}

func TestIncidentRepository_CreateDuplicate(t *testing.T) {
	s := NewStore()
	incident, _ := seed(t, s)

	err := s.Incidents().Create(context.Background(), incident)
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestIncidentRepository_ReturnsCopies(t *testing.T) {
	s := NewStore()
	incident, _ := seed(t, s)

	// Изменение исходного объекта и полученной копии не трогает хранилище
	incident.Title = "changed by caller"
	got, err := s.Incidents().GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, "Warehouse fire", got.Title)

	got.Status = models.StatusResolved
	again, err := s.Incidents().GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, again.Status)
}

func TestIncidentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	incident, _ := seed(t, s)

	updated, err := s.Incidents().UpdateStatus(ctx, incident.ID, models.StatusCancelled, 1, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	_, err = s.Incidents().UpdateStatus(ctx, incident.ID, models.StatusResolved, 1, baseTime.Add(time.Hour))
	assert.True(t, errors.Is(err, models.ErrConflict))

	_, err = s.Incidents().UpdateStatus(ctx, uuid.New(), models.StatusResolved, 1, baseTime)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestIncidentRepository_ListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Incidents()

	ids := make([]uuid.UUID, 0, 5)
	for i := range 5 {
		incident := &models.Incident{
			ID:        uuid.New(),
			Title:     "incident",
			Severity:  models.SeverityLow,
			Status:    models.StatusReported,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
			Version:   1,
		}
		if i == 4 {
			incident.Severity = models.SeverityCritical
		}
		require.NoError(t, repo.Create(ctx, incident))
		ids = append(ids, incident.ID)
	}

	all, err := repo.List(ctx, models.IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	// Новые сначала
	assert.Equal(t, ids[4], all[0].ID)
	assert.Equal(t, ids[0], all[4].ID)

	page2, err := repo.List(ctx, models.IncidentFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, ids[2], page2[0].ID)
	assert.Equal(t, ids[1], page2[1].ID)

	beyond, err := repo.List(ctx, models.IncidentFilter{Page: 4, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	critical, err := repo.List(ctx, models.IncidentFilter{Severity: models.SeverityCritical})
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, ids[4], critical[0].ID)

	window, err := repo.List(ctx, models.IncidentFilter{From: baseTime.Add(time.Minute), To: baseTime.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, window, 3)
}

func TestDispatchRepository_Bind(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	incident, resource := seed(t, s)

	gotIncident, gotResource, err := s.Dispatch().Bind(ctx, binding(incident, resource))
	require.NoError(t, err)

	assert.Equal(t, models.StatusDispatched, gotIncident.Status)
	assert.Equal(t, int64(2), gotIncident.Version)
	require.NotNil(t, gotIncident.AssignedResource)
	assert.Equal(t, resource.ID, *gotIncident.AssignedResource)
	assert.Equal(t, models.ResourceAssigned, gotResource.Status)
	assert.Equal(t, int64(2), gotResource.Version)

	assignments, err := s.Dispatch().ListAssignments(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.True(t, assignments[0].Open())
}

func TestDispatchRepository_BindConflictLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *models.Binding)
		before func(t *testing.T, s *Store, incident *models.Incident, resource *models.Resource)
	}{
		{
			name:   "stale resource version",
			mutate: func(b *models.Binding) { b.ResourceVersion = 7 },
		},
		{
			name:   "stale incident version",
			mutate: func(b *models.Binding) { b.IncidentVersion = 7 },
		},
		{
			name: "resource in maintenance",
			before: func(t *testing.T, s *Store, _ *models.Incident, resource *models.Resource) {
				updated, err := s.Resources().SetStatus(context.Background(), resource.ID, models.ResourceMaintenance, 1, baseTime)
				require.NoError(t, err)
				resource.Version = updated.Version
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Подготовка
			ctx := context.Background()
			s := NewStore()
			incident, resource := seed(t, s)
			if tt.before != nil {
				tt.before(t, s, incident, resource)
			}
			b := binding(incident, resource)
			if tt.mutate != nil {
				tt.mutate(&b)
			}
			incidentBefore, err := s.Incidents().GetByID(ctx, incident.ID)
			require.NoError(t, err)
			resourceBefore, err := s.Resources().GetByID(ctx, resource.ID)
			require.NoError(t, err)

			// Действие
			_, _, err = s.Dispatch().Bind(ctx, b)

			// Проверки
			assert.True(t, errors.Is(err, models.ErrConflict))
			incidentAfter, err := s.Incidents().GetByID(ctx, incident.ID)
			require.NoError(t, err)
			resourceAfter, err := s.Resources().GetByID(ctx, resource.ID)
			require.NoError(t, err)
			assert.Equal(t, incidentBefore, incidentAfter)
			assert.Equal(t, resourceBefore, resourceAfter)

			assignments, err := s.Dispatch().ListAssignments(ctx, incident.ID)
			require.NoError(t, err)
			assert.Empty(t, assignments)
		})
	}
}

func TestDispatchRepository_BindNotFound(t *testing.T) {
	s := NewStore()
	incident, resource := seed(t, s)

	b := binding(incident, resource)
	b.ResourceID = uuid.New()
	_, _, err := s.Dispatch().Bind(context.Background(), b)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDispatchRepository_Unbind(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	incident, resource := seed(t, s)
	boundIncident, boundResource, err := s.Dispatch().Bind(ctx, binding(incident, resource))
	require.NoError(t, err)

	at := baseTime.Add(time.Hour)
	gotIncident, gotResource, err := s.Dispatch().Unbind(ctx, models.Unbinding{
		IncidentID:      incident.ID,
		IncidentVersion: boundIncident.Version,
		NewStatus:       models.StatusResolved,
		ResourceID:      resource.ID,
		ResourceVersion: boundResource.Version,
		At:              at,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusResolved, gotIncident.Status)
	assert.Nil(t, gotIncident.AssignedResource)
	assert.Equal(t, int64(3), gotIncident.Version)
	assert.Equal(t, models.ResourceAvailable, gotResource.Status)
	assert.Equal(t, int64(3), gotResource.Version)

	assignments, err := s.Dispatch().ListAssignments(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.NotNil(t, assignments[0].CompletedAt)
	assert.True(t, assignments[0].CompletedAt.Equal(at))
}

func TestDispatchRepository_UnbindWithoutResource(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	incident, resource := seed(t, s)

	gotIncident, gotResource, err := s.Dispatch().Unbind(ctx, models.Unbinding{
		IncidentID:      incident.ID,
		IncidentVersion: incident.Version,
		NewStatus:       models.StatusCancelled,
		At:              baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Nil(t, gotResource)
	assert.Equal(t, models.StatusCancelled, gotIncident.Status)

	// Незадействованная единица не меняется
	unchanged, err := s.Resources().GetByID(ctx, resource.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unchanged.Version)
}

func TestDispatchRepository_UnbindRequiresAssignedResource(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	incident, resource := seed(t, s)

	// Единица свободна, открытого назначения нет
	_, _, err := s.Dispatch().Unbind(ctx, models.Unbinding{
		IncidentID:      incident.ID,
		IncidentVersion: incident.Version,
		NewStatus:       models.StatusResolved,
		ResourceID:      resource.ID,
		ResourceVersion: resource.Version,
		At:              baseTime,
	})
	assert.True(t, errors.Is(err, models.ErrConflict))

	got, err := s.Incidents().GetByID(ctx, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestLocationStore_Upsert(t *testing.T) {
	ctx := context.Background()
	store := NewLocationStore()
	unit := uuid.New()

	first := models.LocationSample{UnitID: unit, Latitude: 55.7, Longitude: 37.6, ObservedAt: baseTime}
	require.NoError(t, store.Upsert(ctx, first))

	// Та же или более ранняя отметка отклоняется
	err := store.Upsert(ctx, models.LocationSample{UnitID: unit, Latitude: 1, Longitude: 1, ObservedAt: baseTime})
	assert.True(t, errors.Is(err, models.ErrStaleUpdate))
	err = store.Upsert(ctx, models.LocationSample{UnitID: unit, Latitude: 1, Longitude: 1, ObservedAt: baseTime.Add(-time.Second)})
	assert.True(t, errors.Is(err, models.ErrStaleUpdate))

	got, err := store.Get(ctx, unit)
	require.NoError(t, err)
	assert.Equal(t, first, *got)

	newer := models.LocationSample{UnitID: unit, Latitude: 55.8, Longitude: 37.7, ObservedAt: baseTime.Add(time.Second)}
	require.NoError(t, store.Upsert(ctx, newer))
	got, err = store.Get(ctx, unit)
	require.NoError(t, err)
	assert.Equal(t, newer, *got)
}

func TestLocationStore_GetAndList(t *testing.T) {
	ctx := context.Background()
	store := NewLocationStore()

	_, err := store.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, models.ErrNotFound))

	for range 3 {
		require.NoError(t, store.Upsert(ctx, models.LocationSample{UnitID: uuid.New(), ObservedAt: baseTime}))
	}
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].UnitID.String(), list[i].UnitID.String())
	}
}
