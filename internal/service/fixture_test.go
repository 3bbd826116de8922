package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/repository/memory"
)

// engine - сервисы поверх хранилища в памяти и настоящего брокера
type engine struct {
	store     *memory.Store
	broker    *events.Broker
	incidents IncidentService
	resources ResourceService
	dispatch  DispatchService
}

// newEngine собирает сервисы; wrap позволяет подменить запись назначений
func newEngine(t *testing.T, wrap func(DispatchRepository) DispatchRepository) *engine {
	t.Helper()
	logger := newTestLogger()
	m := metrics.New(false, "")
	store := memory.NewStore()
	broker := events.NewBroker(events.NewMemoryLog(1000), logger, m, 64)
	var bind DispatchRepository = store.Dispatch()
	if wrap != nil {
		bind = wrap(bind)
	}

	incidents := NewIncidentService(store.Incidents(), broker, logger, m)
	return &engine{
		store:     store,
		broker:    broker,
		incidents: incidents,
		resources: NewResourceService(store.Resources(), broker, logger, m),
		dispatch:  NewDispatchService(store.Incidents(), store.Resources(), bind, incidents, broker, logger, m),
	}
}

func (e *engine) report(t *testing.T, title string) *models.Incident {
	t.Helper()
	incident, err := e.incidents.CreateIncident(context.Background(), reporter, models.IncidentReport{
		Title:     title,
		Severity:  models.SeverityHigh,
		Latitude:  6.9271,
		Longitude: 79.8612,
	})
	require.NoError(t, err)
	return incident
}

func (e *engine) unit(t *testing.T, name string) *models.Resource {
	t.Helper()
	resource, err := e.resources.RegisterResource(context.Background(), dispatcher, name, "engine")
	require.NoError(t, err)
	return resource
}

// barrierBind задерживает запись, пока все участники гонки не прочитают
// свои версии: так оба назначения гарантированно проверяют одно и то же состояние.
type barrierBind struct {
	DispatchRepository
	arrived sync.WaitGroup
}

func withBarrier(parties int) func(DispatchRepository) DispatchRepository {
	return func(inner DispatchRepository) DispatchRepository {
		b := &barrierBind{DispatchRepository: inner}
		b.arrived.Add(parties)
		return b
	}
}

func (b *barrierBind) Bind(ctx context.Context, binding models.Binding) (*models.Incident, *models.Resource, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.DispatchRepository.Bind(ctx, binding)
}

func drain(t *testing.T, sub *events.Subscription, n int) []models.Event {
	t.Helper()
	got := make([]models.Event, 0, n)
	for len(got) < n {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "stream closed early: %v", sub.Err())
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout after %d of %d events", len(got), n)
		}
	}
	return got
}

func versionsOf(evs []models.Event, topic models.Topic, id uuid.UUID) []int64 {
	var out []int64
	for _, ev := range evs {
		if ev.Topic == topic && ev.EntityID == id {
			out = append(out, ev.Version)
		}
	}
	return out
}
