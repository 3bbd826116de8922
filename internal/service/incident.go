package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

//go:generate mockgen -source=incident.go -destination=mocks/incident.go -package=mocks

// IncidentRepository определяет контракт хранилища инцидентов.
// UpdateStatus - compare-and-swap по версии, при несовпадении ErrConflict.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus, expectedVersion int64, at time.Time) (*models.Incident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	CountByStatus(ctx context.Context) (map[models.IncidentStatus]int, error)
}

// EventPublisher принимает изменения сущностей для журнала событий
type EventPublisher interface {
	Publish(ctx context.Context, topic models.Topic, entityID uuid.UUID, version int64, payload any) error
}

// IncidentService определяет контракт реестра инцидентов
type IncidentService interface {
	CreateIncident(ctx context.Context, actor models.Actor, report models.IncidentReport) (*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id uuid.UUID, status models.IncidentStatus, expectedVersion int64) (*models.Incident, error)
}

type incidentService struct {
	repo      IncidentRepository
	publisher EventPublisher
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewIncidentService(repo IncidentRepository, publisher EventPublisher, logger *logrus.Logger, m *metrics.Metrics) IncidentService {
	return &incidentService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// CreateIncident регистрирует сообщение о происшествии в статусе reported
func (s *incidentService) CreateIncident(ctx context.Context, actor models.Actor, report models.IncidentReport) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateIncident",
		"actor":   actor.String(),
		"title":   report.Title,
	})
	log.Info("Attempting to create a new incident")

	incident, err := models.NewIncident(report)
	if err != nil {
		log.WithError(err).Warn("Incident report rejected")
		s.metrics.Operation("create_incident", outcome(err))
		return nil, fmt.Errorf("service: invalid incident report: %w", err)
	}
	incident.ID = uuid.New()
	incident.ReportedBy = actor.ID
	incident.CreatedAt = s.now().UTC()
	incident.UpdatedAt = incident.CreatedAt

	if err := s.repo.Create(context.WithoutCancel(ctx), incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		s.metrics.Operation("create_incident", outcome(err))
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	publish(ctx, s.publisher, log, models.TopicIncident, incident.ID, incident.Version, incident)
	s.metrics.Operation("create_incident", "ok")
	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return incident, nil
}

// GetIncident получает инцидент по ID
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service":     "incident",
			"method":      "GetIncident",
			"incident_id": id,
		}).WithError(err).Debug("Failed to get incident in repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает отфильтрованный список, новые сначала
func (s *incidentService) ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("service: %w: unknown status %q", models.ErrValidation, filter.Status)
	}
	if filter.Severity != "" && !filter.Severity.Valid() {
		return nil, fmt.Errorf("service: %w: unknown severity %q", models.ErrValidation, filter.Severity)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("service: %w: time range end is before start", models.ErrValidation)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})

	incidents, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Debug("Incidents listed successfully")
	return incidents, nil
}

// UpdateStatus переводит инцидент по ребру графа статусов. Переходы, меняющие
// привязку ресурса (dispatched, завершение с назначенной единицей), здесь
// отклоняются: их выполняет координатор одной атомарной записью.
func (s *incidentService) UpdateStatus(ctx context.Context, actor models.Actor, id uuid.UUID, status models.IncidentStatus, expectedVersion int64) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":          "incident",
		"method":           "UpdateStatus",
		"incident_id":      id,
		"status":           status,
		"expected_version": expectedVersion,
		"actor":            actor.String(),
	})
	log.Info("Attempting to update incident status")

	updated, err := s.updateStatus(ctx, actor, id, status, expectedVersion)
	s.metrics.Operation("update_status", outcome(err))
	if err != nil {
		if isConflict(err) {
			s.metrics.Conflict("update_status")
		}
		log.WithError(err).Warn("Incident status update rejected")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}

	publish(ctx, s.publisher, log, models.TopicIncident, updated.ID, updated.Version, updated)
	log.WithField("version", updated.Version).Info("Incident status updated successfully")
	return updated, nil
}

func (s *incidentService) updateStatus(ctx context.Context, actor models.Actor, id uuid.UUID, status models.IncidentStatus, expectedVersion int64) (*models.Incident, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: incident is at version %d, expected %d", models.ErrConflict, current.Version, expectedVersion)
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, current.Status, status)
	}
	if status == models.StatusDispatched {
		return nil, fmt.Errorf("%w: dispatch happens by assigning a resource", models.ErrValidation)
	}
	if status.Terminal() && current.AssignedResource != nil {
		return nil, fmt.Errorf("%w: incident holds resource %s, it must be released together with the status change", models.ErrValidation, *current.AssignedResource)
	}
	if err := authorizeStatusPush(actor, current, status); err != nil {
		return nil, err
	}

	// Запись CAS не отменяется вместе с запросом: либо применяется целиком, либо явно падает
	return s.repo.UpdateStatus(context.WithoutCancel(ctx), id, status, expectedVersion, s.now().UTC())
}

// authorizeStatusPush: диспетчер двигает любой статус, выездная единица -
// только en_route/arrived по инциденту, назначенному ей самой.
func authorizeStatusPush(actor models.Actor, incident *models.Incident, status models.IncidentStatus) error {
	if actor.Can(models.RoleDispatcher) {
		return nil
	}
	if actor.Role == models.RoleFieldUnit &&
		(status == models.StatusEnRoute || status == models.StatusArrived) &&
		incident.AssignedResource != nil &&
		incident.AssignedResource.String() == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: %s may not move incident to %s", models.ErrForbidden, actor.Role, status)
}
