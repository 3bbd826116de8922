package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

//go:generate mockgen -source=location.go -destination=mocks/location.go -package=mocks

const (
	DefaultLocationMinInterval = 5 * time.Second
	DefaultLocationStaleAfter  = 60 * time.Second
)

// LocationStore хранит последнюю точку каждой единицы. Upsert - compare-and-set
// по observed_at: точка не новее сохранённой отклоняется с ErrStaleUpdate.
type LocationStore interface {
	Upsert(ctx context.Context, sample models.LocationSample) error
	Get(ctx context.Context, unitID uuid.UUID) (*models.LocationSample, error)
	List(ctx context.Context) ([]*models.LocationSample, error)
}

// LocationPublisher публикует обновления и знает последнюю выпущенную версию
type LocationPublisher interface {
	EventPublisher
	LastVersion(ctx context.Context, topic models.Topic, entityID uuid.UUID) (int64, error)
}

// LocationService определяет контракт трекера местоположений
type LocationService interface {
	Ingest(ctx context.Context, actor models.Actor, sample models.LocationSample) (*models.IngestResult, error)
	GetLive(ctx context.Context, unitID uuid.UUID) (*models.LiveLocation, error)
	ListLive(ctx context.Context) ([]*models.LiveLocation, error)
	FlushPending(ctx context.Context, now time.Time) int
}

// unitState - состояние выпуска событий по одной единице
type unitState struct {
	mu        sync.Mutex
	loaded    bool
	version   int64
	emittedAt time.Time
	pending   bool
}

type locationService struct {
	store       LocationStore
	publisher   LocationPublisher
	logger      *logrus.Logger
	metrics     *metrics.Metrics
	minInterval time.Duration
	staleAfter  time.Duration
	now         func() time.Time

	mu    sync.Mutex
	units map[uuid.UUID]*unitState
}

func NewLocationService(store LocationStore, publisher LocationPublisher, logger *logrus.Logger, m *metrics.Metrics, minInterval, staleAfter time.Duration) LocationService {
	if minInterval < 0 {
		minInterval = DefaultLocationMinInterval
	}
	if staleAfter <= 0 {
		staleAfter = DefaultLocationStaleAfter
	}
	return &locationService{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		metrics:     m,
		minInterval: minInterval,
		staleAfter:  staleAfter,
		now:         time.Now,
		units:       make(map[uuid.UUID]*unitState),
	}
}

func (s *locationService) unit(id uuid.UUID) *unitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.units[id]
	if !ok {
		st = &unitState{}
		s.units[id] = st
	}
	return st
}

// load подтягивает номер последней выпущенной версии после рестарта. Вызывается под st.mu.
func (s *locationService) load(ctx context.Context, id uuid.UUID, st *unitState) error {
	if st.loaded {
		return nil
	}
	version, err := s.publisher.LastVersion(ctx, models.TopicLocation, id)
	if err != nil {
		return err
	}
	st.version, st.loaded = version, true
	return nil
}

// Ingest принимает точку местоположения. Порядок прихода точек не важен:
// в хранилище остаётся точка с наибольшим observed_at.
func (s *locationService) Ingest(ctx context.Context, actor models.Actor, sample models.LocationSample) (*models.IngestResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "location",
		"method":      "Ingest",
		"unit_id":     sample.UnitID,
		"observed_at": sample.ObservedAt,
	})

	if err := validateSample(actor, sample); err != nil {
		s.metrics.Operation("ingest_location", outcome(err))
		return nil, fmt.Errorf("service: invalid location sample: %w", err)
	}
	sample.ObservedAt = sample.ObservedAt.UTC()

	st := s.unit(sample.UnitID)
	st.mu.Lock()
	defer st.mu.Unlock()

	// Версия читается до записи точки: при ошибке хранилище не меняется
	if err := s.load(ctx, sample.UnitID, st); err != nil {
		s.metrics.Operation("ingest_location", outcome(err))
		log.WithError(err).Error("Failed to load last location version")
		return nil, fmt.Errorf("service: could not load location version: %w", err)
	}

	if err := s.store.Upsert(context.WithoutCancel(ctx), sample); err != nil {
		s.metrics.Operation("ingest_location", outcome(err))
		if errors.Is(err, models.ErrStaleUpdate) {
			s.metrics.StaleUpdate()
			log.Debug("Stale location sample ignored")
			return nil, fmt.Errorf("service: location not newer than stored: %w", err)
		}
		log.WithError(err).Error("Failed to store location sample")
		return nil, fmt.Errorf("service: could not store location: %w", err)
	}
	s.metrics.Operation("ingest_location", "ok")

	if st.version > 0 && !st.emittedAt.IsZero() && sample.ObservedAt.Sub(st.emittedAt) < s.minInterval {
		st.pending = true
		s.metrics.Coalesced()
		log.Debug("Location sample coalesced")
		return &models.IngestResult{Location: s.live(sample, st.version), Emitted: false}, nil
	}

	live := s.emit(ctx, log, st, sample)
	return &models.IngestResult{Location: live, Emitted: true}, nil
}

// emit выпускает событие с очередной версией. Вызывается под st.mu.
func (s *locationService) emit(ctx context.Context, log *logrus.Entry, st *unitState, sample models.LocationSample) models.LiveLocation {
	st.version++
	st.emittedAt = sample.ObservedAt
	st.pending = false
	live := s.live(sample, st.version)
	publish(ctx, s.publisher, log, models.TopicLocation, sample.UnitID, st.version, live)
	return live
}

// FlushPending выпускает отложенные точки единиц, у которых истекло окно
// с момента последнего события. Возвращает число выпущенных событий.
func (s *locationService) FlushPending(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	pending := make(map[uuid.UUID]*unitState, len(s.units))
	for id, st := range s.units {
		pending[id] = st
	}
	s.mu.Unlock()

	flushed := 0
	for id, st := range pending {
		st.mu.Lock()
		if st.pending && now.Sub(st.emittedAt) >= s.minInterval {
			log := s.logger.WithFields(logrus.Fields{
				"service": "location",
				"method":  "FlushPending",
				"unit_id": id,
			})
			sample, err := s.store.Get(ctx, id)
			if err != nil {
				log.WithError(err).Error("Failed to read pending location")
			} else {
				s.emit(ctx, log, st, *sample)
				flushed++
			}
		}
		st.mu.Unlock()
	}
	return flushed
}

// GetLive - последняя точка единицы с признаком устаревания
func (s *locationService) GetLive(ctx context.Context, unitID uuid.UUID) (*models.LiveLocation, error) {
	sample, err := s.store.Get(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("service: could not get location: %w", err)
	}
	version, err := s.version(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("service: could not get location: %w", err)
	}
	live := s.live(*sample, version)
	return &live, nil
}

// ListLive возвращает точки всех известных единиц; устаревшие не удаляются
func (s *locationService) ListLive(ctx context.Context) ([]*models.LiveLocation, error) {
	samples, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not list locations: %w", err)
	}
	result := make([]*models.LiveLocation, 0, len(samples))
	for _, sample := range samples {
		version, err := s.version(ctx, sample.UnitID)
		if err != nil {
			return nil, fmt.Errorf("service: could not list locations: %w", err)
		}
		live := s.live(*sample, version)
		result = append(result, &live)
	}
	return result, nil
}

func (s *locationService) version(ctx context.Context, unitID uuid.UUID) (int64, error) {
	st := s.unit(unitID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := s.load(ctx, unitID, st); err != nil {
		return 0, err
	}
	return st.version, nil
}

func (s *locationService) live(sample models.LocationSample, version int64) models.LiveLocation {
	return models.LiveLocation{
		LocationSample: sample,
		Version:        version,
		Stale:          s.now().Sub(sample.ObservedAt) > s.staleAfter,
	}
}

// validateSample: координаты как у инцидентов, время обязательно. Единица
// может сообщать только своё местоположение.
func validateSample(actor models.Actor, sample models.LocationSample) error {
	if sample.UnitID == uuid.Nil {
		return fmt.Errorf("%w: unit id is required", models.ErrValidation)
	}
	if sample.ObservedAt.IsZero() {
		return fmt.Errorf("%w: observed_at is required", models.ErrValidation)
	}
	if err := models.ValidateCoordinates(sample.Latitude, sample.Longitude); err != nil {
		return err
	}
	if actor.Can(models.RoleDispatcher) {
		return nil
	}
	if actor.Role == models.RoleFieldUnit && actor.ID == sample.UnitID.String() {
		return nil
	}
	return fmt.Errorf("%w: %s may not report location of unit %s", models.ErrForbidden, actor.Role, sample.UnitID)
}
