package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

//go:generate mockgen -source=resource.go -destination=mocks/resource.go -package=mocks

// ResourceRepository определяет контракт хранилища выездных единиц
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ResourceStatus, expectedVersion int64, at time.Time) (*models.Resource, error)
	List(ctx context.Context, status models.ResourceStatus, resourceType string) ([]*models.Resource, error)
}

// ResourceService определяет контракт реестра единиц
type ResourceService interface {
	RegisterResource(ctx context.Context, actor models.Actor, name, resourceType string) (*models.Resource, error)
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	ListResources(ctx context.Context, status models.ResourceStatus, resourceType string) ([]*models.Resource, error)
	ListAvailable(ctx context.Context, resourceType string) ([]*models.Resource, error)
	SetAvailability(ctx context.Context, actor models.Actor, id uuid.UUID, status models.ResourceStatus, expectedVersion int64) (*models.Resource, error)
}

type resourceService struct {
	repo      ResourceRepository
	publisher EventPublisher
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewResourceService(repo ResourceRepository, publisher EventPublisher, logger *logrus.Logger, m *metrics.Metrics) ResourceService {
	return &resourceService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// RegisterResource добавляет единицу в статусе available
func (s *resourceService) RegisterResource(ctx context.Context, actor models.Actor, name, resourceType string) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "resource",
		"method":  "RegisterResource",
		"actor":   actor.String(),
		"name":    name,
		"type":    resourceType,
	})

	if !actor.Can(models.RoleDispatcher) {
		return nil, fmt.Errorf("service: %w: %s may not register resources", models.ErrForbidden, actor.Role)
	}
	name, resourceType = strings.TrimSpace(name), strings.TrimSpace(resourceType)
	if name == "" || resourceType == "" {
		return nil, fmt.Errorf("service: %w: name and type are required", models.ErrValidation)
	}

	now := s.now().UTC()
	resource := &models.Resource{
		ID:        uuid.New(),
		Name:      name,
		Type:      resourceType,
		Status:    models.ResourceAvailable,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), resource); err != nil {
		log.WithError(err).Error("Failed to create resource in repository")
		return nil, fmt.Errorf("service: could not register resource: %w", err)
	}

	publish(ctx, s.publisher, log, models.TopicResource, resource.ID, resource.Version, resource)
	s.metrics.Operation("register_resource", "ok")
	log.WithField("resource_id", resource.ID).Info("Resource registered successfully")
	return resource, nil
}

func (s *resourceService) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	resource, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get resource: %w", err)
	}
	return resource, nil
}

func (s *resourceService) ListResources(ctx context.Context, status models.ResourceStatus, resourceType string) ([]*models.Resource, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("service: %w: unknown resource status %q", models.ErrValidation, status)
	}
	resources, err := s.repo.List(ctx, status, strings.TrimSpace(resourceType))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service": "resource",
			"method":  "ListResources",
		}).WithError(err).Error("Failed to list resources from repository")
		return nil, fmt.Errorf("service: could not list resources: %w", err)
	}
	return resources, nil
}

// ListAvailable - свободные единицы; пустой тип означает все типы
func (s *resourceService) ListAvailable(ctx context.Context, resourceType string) ([]*models.Resource, error) {
	return s.ListResources(ctx, models.ResourceAvailable, resourceType)
}

// SetAvailability переключает единицу между available и maintenance.
// Статус assigned управляется только координатором назначений.
func (s *resourceService) SetAvailability(ctx context.Context, actor models.Actor, id uuid.UUID, status models.ResourceStatus, expectedVersion int64) (*models.Resource, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":          "resource",
		"method":           "SetAvailability",
		"resource_id":      id,
		"status":           status,
		"expected_version": expectedVersion,
		"actor":            actor.String(),
	})
	log.Info("Attempting to change resource availability")

	updated, err := s.setAvailability(ctx, actor, id, status, expectedVersion)
	s.metrics.Operation("set_availability", outcome(err))
	if err != nil {
		if isConflict(err) {
			s.metrics.Conflict("set_availability")
		}
		log.WithError(err).Warn("Resource availability change rejected")
		return nil, fmt.Errorf("service: could not set availability: %w", err)
	}

	publish(ctx, s.publisher, log, models.TopicResource, updated.ID, updated.Version, updated)
	log.WithField("version", updated.Version).Info("Resource availability changed successfully")
	return updated, nil
}

func (s *resourceService) setAvailability(ctx context.Context, actor models.Actor, id uuid.UUID, status models.ResourceStatus, expectedVersion int64) (*models.Resource, error) {
	if !actor.Can(models.RoleDispatcher) {
		return nil, fmt.Errorf("%w: %s may not change availability", models.ErrForbidden, actor.Role)
	}
	if status != models.ResourceAvailable && status != models.ResourceMaintenance {
		return nil, fmt.Errorf("%w: availability must be available or maintenance", models.ErrValidation)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: resource is at version %d, expected %d", models.ErrConflict, current.Version, expectedVersion)
	}
	if current.Status == models.ResourceAssigned {
		return nil, fmt.Errorf("%w: resource is assigned to an incident", models.ErrInvalidTransition)
	}

	return s.repo.SetStatus(context.WithoutCancel(ctx), id, status, expectedVersion, s.now().UTC())
}
