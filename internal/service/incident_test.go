package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/service/mocks"
)

var (
	dispatcher = models.Actor{ID: "dispatcher-1", Role: models.RoleDispatcher}
	reporter   = models.Actor{ID: "citizen-7", Role: models.RoleReporter}
	fixedNow   = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return logger
}

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, *mocks.MockIncidentRepository, *mocks.MockEventPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	publisherMock := mocks.NewMockEventPublisher(ctrl)

	service := NewIncidentService(repoMock, publisherMock, newTestLogger(), metrics.New(false, ""))
	s := service.(*incidentService)
	s.now = func() time.Time { return fixedNow }
	return s, repoMock, publisherMock
}

func TestCreateIncident_Success(t *testing.T) {
	// Подготовка
	service, repoMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	report := models.IncidentReport{
		Title:     "  House fire  ",
		Severity:  models.SeverityHigh,
		Latitude:  6.9271,
		Longitude: 79.8612,
	}

	// Ожидания
	repoMock.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			assert.Equal(t, "House fire", incident.Title)
			assert.Equal(t, models.StatusReported, incident.Status)
			assert.Equal(t, int64(1), incident.Version)
			assert.Equal(t, reporter.ID, incident.ReportedBy)
			return nil
		}).
		Times(1)
	publisherMock.EXPECT().
		Publish(gomock.Any(), models.TopicIncident, gomock.Any(), int64(1), gomock.Any()).
		Return(nil).
		Times(1)

	// Действие
	incident, err := service.CreateIncident(ctx, reporter, report)

	// Проверки
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, incident.ID)
	assert.Equal(t, fixedNow, incident.CreatedAt)
	assert.Nil(t, incident.AssignedResource)
}

func TestCreateIncident_ValidationError(t *testing.T) {
	service, _, _ := newTestIncidentService(t)

	_, err := service.CreateIncident(context.Background(), reporter, models.IncidentReport{
		Title:     "Smoke",
		Severity:  models.SeverityLow,
		Latitude:  91,
		Longitude: 0,
	})

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateIncident_PublishFailureIsNotReturned(t *testing.T) {
	service, repoMock, publisherMock := newTestIncidentService(t)

	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	publisherMock.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("log unavailable"))

	incident, err := service.CreateIncident(context.Background(), reporter, models.IncidentReport{
		Title: "Grass fire", Severity: models.SeverityMedium,
	})

	require.NoError(t, err)
	assert.NotNil(t, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Ожидания
	repoMock.EXPECT().
		GetByID(ctx, incidentID).
		Return(nil, models.ErrNotFound).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListIncidents_DefaultPagination(t *testing.T) {
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{{ID: uuid.New()}}

	repoMock.EXPECT().
		List(ctx, models.IncidentFilter{Status: models.StatusReported, Page: 1, PageSize: 20}).
		Return(expected, nil).
		Times(1)

	incidents, err := service.ListIncidents(ctx, models.IncidentFilter{Status: models.StatusReported, PageSize: 500})

	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestListIncidents_InvalidFilter(t *testing.T) {
	service, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	_, err := service.ListIncidents(ctx, models.IncidentFilter{Status: "burning"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = service.ListIncidents(ctx, models.IncidentFilter{From: fixedNow, To: fixedNow.Add(-time.Hour)})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateStatus_Success(t *testing.T) {
	// Подготовка
	service, repoMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	unit := uuid.New()
	current := &models.Incident{ID: uuid.New(), Status: models.StatusDispatched, AssignedResource: &unit, Version: 2}
	updated := current.Clone()
	updated.Status = models.StatusEnRoute
	updated.Version = 3

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, current.ID).Return(current, nil)
	repoMock.EXPECT().
		UpdateStatus(gomock.Any(), current.ID, models.StatusEnRoute, int64(2), fixedNow).
		Return(updated, nil)
	publisherMock.EXPECT().
		Publish(gomock.Any(), models.TopicIncident, current.ID, int64(3), updated).
		Return(nil)

	// Действие
	result, err := service.UpdateStatus(ctx, dispatcher, current.ID, models.StatusEnRoute, 2)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnRoute, result.Status)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	unit := uuid.New()
	fieldUnit := models.Actor{ID: unit.String(), Role: models.RoleFieldUnit}
	otherUnit := models.Actor{ID: uuid.NewString(), Role: models.RoleFieldUnit}

	tests := []struct {
		name     string
		current  models.Incident
		actor    models.Actor
		status   models.IncidentStatus
		version  int64
		expected error
	}{
		{
			name:     "version mismatch",
			current:  models.Incident{Status: models.StatusReported, Version: 3},
			actor:    dispatcher,
			status:   models.StatusCancelled,
			version:  2,
			expected: models.ErrConflict,
		},
		{
			name:     "edge outside the graph",
			current:  models.Incident{Status: models.StatusReported, Version: 1},
			actor:    dispatcher,
			status:   models.StatusArrived,
			version:  1,
			expected: models.ErrInvalidTransition,
		},
		{
			name:     "terminal incident",
			current:  models.Incident{Status: models.StatusResolved, Version: 7},
			actor:    dispatcher,
			status:   models.StatusCancelled,
			version:  7,
			expected: models.ErrInvalidTransition,
		},
		{
			name:     "dispatched only through assign",
			current:  models.Incident{Status: models.StatusReported, Version: 1},
			actor:    dispatcher,
			status:   models.StatusDispatched,
			version:  1,
			expected: models.ErrValidation,
		},
		{
			name:     "dispatched from a later state",
			current:  models.Incident{Status: models.StatusEnRoute, AssignedResource: &unit, Version: 3},
			actor:    dispatcher,
			status:   models.StatusDispatched,
			version:  3,
			expected: models.ErrInvalidTransition,
		},
		{
			name:     "reporter cannot move incidents",
			current:  models.Incident{Status: models.StatusReported, Version: 1},
			actor:    reporter,
			status:   models.StatusCancelled,
			version:  1,
			expected: models.ErrForbidden,
		},
		{
			name:     "field unit cannot cancel",
			current:  models.Incident{Status: models.StatusReported, Version: 1},
			actor:    fieldUnit,
			status:   models.StatusCancelled,
			version:  1,
			expected: models.ErrForbidden,
		},
		{
			name:     "field unit of another incident",
			current:  models.Incident{Status: models.StatusDispatched, AssignedResource: &unit, Version: 2},
			actor:    otherUnit,
			status:   models.StatusEnRoute,
			version:  2,
			expected: models.ErrForbidden,
		},
		{
			name:     "bound incident is closed by the coordinator",
			current:  models.Incident{Status: models.StatusDispatched, AssignedResource: &unit, Version: 2},
			actor:    dispatcher,
			status:   models.StatusCancelled,
			version:  2,
			expected: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repoMock, _ := newTestIncidentService(t)
			ctx := context.Background()
			current := tt.current
			current.ID = uuid.New()

			repoMock.EXPECT().GetByID(ctx, current.ID).Return(&current, nil)

			_, err := service.UpdateStatus(ctx, tt.actor, current.ID, tt.status, tt.version)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestUpdateStatus_FieldUnitMovesOwnIncident(t *testing.T) {
	service, repoMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	unit := uuid.New()
	current := &models.Incident{ID: uuid.New(), Status: models.StatusEnRoute, AssignedResource: &unit, Version: 3}
	updated := current.Clone()
	updated.Status = models.StatusArrived
	updated.Version = 4

	repoMock.EXPECT().GetByID(ctx, current.ID).Return(current, nil)
	repoMock.EXPECT().UpdateStatus(gomock.Any(), current.ID, models.StatusArrived, int64(3), fixedNow).Return(updated, nil)
	publisherMock.EXPECT().Publish(gomock.Any(), models.TopicIncident, current.ID, int64(4), updated).Return(nil)

	result, err := service.UpdateStatus(ctx, models.Actor{ID: unit.String(), Role: models.RoleFieldUnit}, current.ID, models.StatusArrived, 3)

	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Version)
}

func TestUpdateStatus_ConcurrentWriteSurfacesConflict(t *testing.T) {
	service, repoMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	current := &models.Incident{ID: uuid.New(), Status: models.StatusReported, Version: 1}

	repoMock.EXPECT().GetByID(ctx, current.ID).Return(current, nil)
	repoMock.EXPECT().
		UpdateStatus(gomock.Any(), current.ID, models.StatusCancelled, int64(1), fixedNow).
		Return(nil, models.ErrConflict)

	_, err := service.UpdateStatus(ctx, dispatcher, current.ID, models.StatusCancelled, 1)

	assert.ErrorIs(t, err, models.ErrConflict)
}
