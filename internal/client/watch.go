package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

const defaultReconnectDelay = time.Second

// EventHandler получает каждое событие потока вместе с итогом применения к реплике
type EventHandler func(ev models.Event, result events.ApplyResult)

// Watcher держит локальную реплику в актуальном состоянии: догоняет поток,
// дочитывает пропущенные версии снимком сущности и переподписывается с
// последнего курсора после обрыва.
type Watcher struct {
	client         *Client
	replica        *events.Replica
	topics         []models.Topic
	logger         *logrus.Logger
	onEvent        EventHandler
	reconnectDelay time.Duration

	// ctx текущего Run, нужен обработчику пропусков
	ctx context.Context
}

func NewWatcher(client *Client, topics []models.Topic, logger *logrus.Logger, onEvent EventHandler) *Watcher {
	if len(topics) == 0 {
		topics = models.AllTopics
	}
	w := &Watcher{
		client:         client,
		topics:         topics,
		logger:         logger,
		onEvent:        onEvent,
		reconnectDelay: defaultReconnectDelay,
	}
	w.replica = events.NewReplica(w.resyncEntity)
	return w
}

func (w *Watcher) Replica() *events.Replica {
	return w.replica
}

// Run следит за потоком до отмены ctx. С cursor=0 реплика строится с начала
// журнала, иначе только новые изменения.
func (w *Watcher) Run(ctx context.Context, cursor uint64) error {
	w.ctx = ctx
	log := w.logger.WithField("component", "watcher")

	for {
		err := w.stream(ctx, cursor)
		if c := w.replica.Cursor(); c > cursor {
			cursor = c
		}
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, events.ErrCursorExpired):
			log.WithField("cursor", cursor).Warn("Cursor expired, reloading snapshot")
			head, err := w.resyncAll(ctx)
			if err != nil {
				return fmt.Errorf("watcher: could not resync: %w", err)
			}
			cursor = head
		case errors.Is(err, events.ErrSubscriberDropped):
			log.WithField("cursor", cursor).Warn("Dropped by server, resubscribing")
		default:
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
				return fmt.Errorf("watcher: %w", err)
			}
			log.WithError(err).Warn("Stream interrupted, reconnecting")
			select {
			case <-time.After(w.reconnectDelay):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (w *Watcher) stream(ctx context.Context, cursor uint64) error {
	s, err := w.client.Subscribe(ctx, w.topics, cursor)
	if err != nil {
		return err
	}
	defer s.Close()

	// Закрываем соединение при отмене, чтобы разблокировать чтение
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-done:
		}
	}()

	for {
		ev, err := s.Next()
		if err != nil {
			return err
		}
		result := w.replica.Apply(ev)
		if w.onEvent != nil {
			w.onEvent(ev, result)
		}
	}
}

// resyncAll берёт голову журнала, затем снимки всех тем. События после головы
// придут подпиской, а уже учтённые снимком версии отбросятся как повторы.
func (w *Watcher) resyncAll(ctx context.Context) (uint64, error) {
	head, err := w.client.Head(ctx)
	if err != nil {
		return 0, err
	}
	for _, topic := range w.topics {
		entities, err := w.client.Snapshot(ctx, topic)
		if err != nil {
			return 0, fmt.Errorf("snapshot %s: %w", topic, err)
		}
		for _, e := range entities {
			w.replica.Seed(topic, e.ID, e.Version, e.Payload)
		}
	}
	return head, nil
}

func (w *Watcher) resyncEntity(topic models.Topic, id uuid.UUID) {
	log := w.logger.WithFields(logrus.Fields{"component": "watcher", "topic": topic, "entity_id": id})
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := w.client.Fetch(ctx, topic, id)
	if err != nil {
		log.WithError(err).Warn("Could not fetch entity after version gap")
		return
	}
	w.replica.Seed(topic, e.ID, e.Version, e.Payload)
	log.WithField("version", e.Version).Debug("Entity resynced from snapshot")
}
