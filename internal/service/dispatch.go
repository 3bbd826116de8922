package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

//go:generate mockgen -source=dispatch.go -destination=mocks/dispatch.go -package=mocks

// DispatchRepository выполняет запись, затрагивающую инцидент и единицу сразу.
// Обе проверки версий и запись журнала назначений проходят атомарно:
// при несовпадении любой версии возвращается ErrConflict без изменений.
type DispatchRepository interface {
	Bind(ctx context.Context, b models.Binding) (*models.Incident, *models.Resource, error)
	Unbind(ctx context.Context, u models.Unbinding) (*models.Incident, *models.Resource, error)
	ListAssignments(ctx context.Context, incidentID uuid.UUID) ([]*models.Assignment, error)
}

// DispatchService определяет контракт координатора назначений
type DispatchService interface {
	AssignResource(ctx context.Context, actor models.Actor, incidentID, resourceID uuid.UUID) (*models.Incident, *models.Resource, error)
	Release(ctx context.Context, actor models.Actor, incidentID uuid.UUID) (*models.Incident, *models.Resource, error)
	UpdateIncidentStatus(ctx context.Context, actor models.Actor, incidentID uuid.UUID, status models.IncidentStatus, expectedVersion int64) (*models.Incident, error)
	ListAssignments(ctx context.Context, incidentID uuid.UUID) ([]*models.Assignment, error)
	GetStats(ctx context.Context) (*models.IncidentStats, error)
}

type dispatchService struct {
	incidents    IncidentRepository
	resources    ResourceRepository
	repo         DispatchRepository
	incidentsSvc IncidentService
	publisher    EventPublisher
	logger       *logrus.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewDispatchService(
	incidents IncidentRepository,
	resources ResourceRepository,
	repo DispatchRepository,
	incidentsSvc IncidentService,
	publisher EventPublisher,
	logger *logrus.Logger,
	m *metrics.Metrics,
) DispatchService {
	return &dispatchService{
		incidents:    incidents,
		resources:    resources,
		repo:         repo,
		incidentsSvc: incidentsSvc,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

// AssignResource назначает свободную единицу на инцидент в статусе reported.
// Из двух одновременных назначений одной единицы успешно только одно,
// второе получает ErrConflict.
func (s *dispatchService) AssignResource(ctx context.Context, actor models.Actor, incidentID, resourceID uuid.UUID) (*models.Incident, *models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "AssignResource",
		"incident_id": incidentID,
		"resource_id": resourceID,
		"actor":       actor.String(),
	})
	log.Info("Attempting to assign resource")

	incident, resource, err := s.assign(ctx, actor, incidentID, resourceID)
	s.metrics.Operation("assign", outcome(err))
	if err != nil {
		if isConflict(err) {
			s.metrics.Conflict("assign")
		}
		log.WithError(err).Warn("Resource assignment rejected")
		return nil, nil, fmt.Errorf("service: could not assign resource: %w", err)
	}

	publish(ctx, s.publisher, log, models.TopicIncident, incident.ID, incident.Version, incident)
	publish(ctx, s.publisher, log, models.TopicResource, resource.ID, resource.Version, resource)
	log.Info("Resource assigned successfully")
	return incident, resource, nil
}

func (s *dispatchService) assign(ctx context.Context, actor models.Actor, incidentID, resourceID uuid.UUID) (*models.Incident, *models.Resource, error) {
	if !actor.Can(models.RoleDispatcher) {
		return nil, nil, fmt.Errorf("%w: %s may not assign resources", models.ErrForbidden, actor.Role)
	}

	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, nil, err
	}
	resource, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, nil, err
	}
	if incident.Status != models.StatusReported {
		return nil, nil, fmt.Errorf("%w: incident is %s, only reported incidents can be assigned", models.ErrValidation, incident.Status)
	}
	if !resource.IsAvailable() {
		return nil, nil, fmt.Errorf("%w: resource is %s", models.ErrValidation, resource.Status)
	}

	at := s.now().UTC()
	return s.repo.Bind(context.WithoutCancel(ctx), models.Binding{
		IncidentID:      incident.ID,
		IncidentVersion: incident.Version,
		ResourceID:      resource.ID,
		ResourceVersion: resource.Version,
		Assignment: models.Assignment{
			ID:         uuid.New(),
			IncidentID: incident.ID,
			ResourceID: resource.ID,
			AssignedBy: actor.ID,
			AssignedAt: at,
		},
		At: at,
	})
}

// Release освобождает единицу, пока она ещё не прибыла на место: инцидент
// возвращается в reported без привязки и ждёт нового назначения.
func (s *dispatchService) Release(ctx context.Context, actor models.Actor, incidentID uuid.UUID) (*models.Incident, *models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "dispatch",
		"method":      "Release",
		"incident_id": incidentID,
		"actor":       actor.String(),
	})
	log.Info("Attempting to release resource")

	incident, resource, err := s.release(ctx, actor, incidentID)
	s.metrics.Operation("release", outcome(err))
	if err != nil {
		if isConflict(err) {
			s.metrics.Conflict("release")
		}
		log.WithError(err).Warn("Resource release rejected")
		return nil, nil, fmt.Errorf("service: could not release resource: %w", err)
	}

	s.publishUnbound(ctx, log, incident, resource)
	log.WithField("resource_id", resource.ID).Info("Resource released successfully")
	return incident, resource, nil
}

func (s *dispatchService) release(ctx context.Context, actor models.Actor, incidentID uuid.UUID) (*models.Incident, *models.Resource, error) {
	if !actor.Can(models.RoleDispatcher) {
		return nil, nil, fmt.Errorf("%w: %s may not release resources", models.ErrForbidden, actor.Role)
	}

	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, nil, err
	}
	if incident.AssignedResource == nil {
		return nil, nil, fmt.Errorf("%w: incident has no open assignment", models.ErrValidation)
	}
	switch incident.Status {
	case models.StatusDispatched, models.StatusEnRoute:
	default:
		return nil, nil, fmt.Errorf("%w: cannot release a resource from a %s incident", models.ErrInvalidTransition, incident.Status)
	}

	return s.unbind(ctx, incident, models.StatusReported)
}

// unbind закрывает назначение и переводит инцидент в status одной записью
func (s *dispatchService) unbind(ctx context.Context, incident *models.Incident, status models.IncidentStatus) (*models.Incident, *models.Resource, error) {
	resource, err := s.resources.GetByID(ctx, *incident.AssignedResource)
	if err != nil {
		return nil, nil, err
	}
	return s.repo.Unbind(context.WithoutCancel(ctx), models.Unbinding{
		IncidentID:      incident.ID,
		IncidentVersion: incident.Version,
		NewStatus:       status,
		ResourceID:      resource.ID,
		ResourceVersion: resource.Version,
		At:              s.now().UTC(),
	})
}

func (s *dispatchService) publishUnbound(ctx context.Context, log *logrus.Entry, incident *models.Incident, resource *models.Resource) {
	publish(ctx, s.publisher, log, models.TopicIncident, incident.ID, incident.Version, incident)
	if resource != nil {
		publish(ctx, s.publisher, log, models.TopicResource, resource.ID, resource.Version, resource)
	}
}

// UpdateIncidentStatus маршрутизирует смену статуса: завершение инцидента с
// назначенной единицей освобождает её в той же записи, остальные переходы
// выполняет реестр инцидентов.
func (s *dispatchService) UpdateIncidentStatus(ctx context.Context, actor models.Actor, incidentID uuid.UUID, status models.IncidentStatus, expectedVersion int64) (*models.Incident, error) {
	if !status.Terminal() {
		return s.incidentsSvc.UpdateStatus(ctx, actor, incidentID, status, expectedVersion)
	}

	current, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}
	if current.AssignedResource == nil {
		return s.incidentsSvc.UpdateStatus(ctx, actor, incidentID, status, expectedVersion)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":          "dispatch",
		"method":           "UpdateIncidentStatus",
		"incident_id":      incidentID,
		"status":           status,
		"expected_version": expectedVersion,
		"actor":            actor.String(),
	})
	log.Info("Attempting to close incident and release its resource")

	incident, resource, err := s.closeBound(ctx, actor, current, status, expectedVersion)
	s.metrics.Operation("update_status", outcome(err))
	if err != nil {
		if isConflict(err) {
			s.metrics.Conflict("update_status")
		}
		log.WithError(err).Warn("Incident status update rejected")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}

	s.publishUnbound(ctx, log, incident, resource)
	log.WithField("version", incident.Version).Info("Incident closed and resource released")
	return incident, nil
}

func (s *dispatchService) closeBound(ctx context.Context, actor models.Actor, current *models.Incident, status models.IncidentStatus, expectedVersion int64) (*models.Incident, *models.Resource, error) {
	if current.Version != expectedVersion {
		return nil, nil, fmt.Errorf("%w: incident is at version %d, expected %d", models.ErrConflict, current.Version, expectedVersion)
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, current.Status, status)
	}
	if !actor.Can(models.RoleDispatcher) {
		return nil, nil, fmt.Errorf("%w: %s may not move incident to %s", models.ErrForbidden, actor.Role, status)
	}
	return s.unbind(ctx, current, status)
}

// ListAssignments - журнал назначений инцидента в порядке создания
func (s *dispatchService) ListAssignments(ctx context.Context, incidentID uuid.UUID) ([]*models.Assignment, error) {
	if _, err := s.incidents.GetByID(ctx, incidentID); err != nil {
		return nil, fmt.Errorf("service: could not list assignments: %w", err)
	}
	assignments, err := s.repo.ListAssignments(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("service: could not list assignments: %w", err)
	}
	return assignments, nil
}

// GetStats собирает сводку для панели диспетчера
func (s *dispatchService) GetStats(ctx context.Context) (*models.IncidentStats, error) {
	var (
		byStatus  map[models.IncidentStatus]int
		available []*models.Resource
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if byStatus, err = s.incidents.CountByStatus(gctx); err != nil {
			return fmt.Errorf("service: could not count incidents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if available, err = s.resources.List(gctx, models.ResourceAvailable, ""); err != nil {
			return fmt.Errorf("service: could not count available resources: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &models.IncidentStats{ByStatus: make(map[models.IncidentStatus]int, len(models.AllIncidentStatuses))}
	for _, st := range models.AllIncidentStatuses {
		stats.ByStatus[st] = byStatus[st]
		stats.Total += byStatus[st]
	}
	stats.AvailableUnits = len(available)
	return stats, nil
}
