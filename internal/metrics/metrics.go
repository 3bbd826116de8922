package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - Prometheus-метрики диспетчерского ядра. Нулевой указатель и
// выключенный экземпляр работают как no-op, чтобы тесты и сервисы не
// проверяли наличие метрик.
type Metrics struct {
	enabled bool

	operations      *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	staleUpdates    prometheus.Counter
	coalesced       prometheus.Counter
	eventsPublished *prometheus.CounterVec
	droppedSubs     prometheus.Counter
	subscribers     prometheus.Gauge

	registry *prometheus.Registry
}

// New создает набор метрик на собственном реестре
func New(enabled bool, namespace string) *Metrics {
	if !enabled {
		return &Metrics{}
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		enabled:  true,
		registry: registry,

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of core operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cas_conflicts_total",
				Help:      "Total number of optimistic concurrency conflicts",
			},
			[]string{"operation"},
		),
		staleUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_stale_updates_total",
			Help:      "Location samples discarded as stale",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_coalesced_total",
			Help:      "Location samples stored without emitting an event",
		}),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events appended to the change log",
			},
			[]string{"topic"},
		),
		droppedSubs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribers_dropped_total",
			Help:      "Subscribers dropped on queue overflow",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Currently attached change stream subscribers",
		}),
	}

	registry.MustRegister(
		m.operations,
		m.conflicts,
		m.staleUpdates,
		m.coalesced,
		m.eventsPublished,
		m.droppedSubs,
		m.subscribers,
	)

	return m
}

func (m *Metrics) on() bool {
	return m != nil && m.enabled
}

// Operation учитывает результат операции ("ok" или класс ошибки)
func (m *Metrics) Operation(operation, outcome string) {
	if !m.on() {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Conflict(operation string) {
	if !m.on() {
		return
	}
	m.conflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) StaleUpdate() {
	if !m.on() {
		return
	}
	m.staleUpdates.Inc()
}

func (m *Metrics) Coalesced() {
	if !m.on() {
		return
	}
	m.coalesced.Inc()
}

func (m *Metrics) EventPublished(topic string) {
	if !m.on() {
		return
	}
	m.eventsPublished.WithLabelValues(topic).Inc()
}

func (m *Metrics) SubscriberDropped() {
	if !m.on() {
		return
	}
	m.droppedSubs.Inc()
}

func (m *Metrics) SubscriberAttached() {
	if !m.on() {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberDetached() {
	if !m.on() {
		return
	}
	m.subscribers.Dec()
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	if !m.on() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry нужен тестам для чтения значений
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
