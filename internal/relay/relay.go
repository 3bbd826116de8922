// Package relay пересылает события журнала во внешние системы (NATS, очередь
// вебхуков). Доставка "хотя бы один раз": курсор сдвигается только после
// успешной пересылки, при сбое получателя подписка возобновляется с него же.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

const defaultRetryDelay = time.Second

var errStreamClosed = errors.New("subscription closed")

// Source - журнал событий, из которого читает ретранслятор
type Source interface {
	Subscribe(ctx context.Context, topics []models.Topic, cursor uint64) (*events.Subscription, error)
	LastSeq(ctx context.Context) (uint64, error)
}

// Sink - внешний получатель событий
type Sink interface {
	Forward(ctx context.Context, ev models.Event) error
}

// CursorStore хранит позицию ретранслятора между перезапусками
type CursorStore interface {
	Load(ctx context.Context) (cursor uint64, ok bool, err error)
	Save(ctx context.Context, cursor uint64) error
}

type Relay struct {
	name       string
	source     Source
	sink       Sink
	cursors    CursorStore
	topics     []models.Topic
	logger     *logrus.Logger
	retryDelay time.Duration
}

// New создает ретранслятор. Пустой topics - все темы.
func New(name string, source Source, sink Sink, cursors CursorStore, topics []models.Topic, logger *logrus.Logger) *Relay {
	if cursors == nil {
		cursors = &MemoryCursor{}
	}
	return &Relay{
		name:       name,
		source:     source,
		sink:       sink,
		cursors:    cursors,
		topics:     topics,
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}
}

// Run пересылает события до отмены ctx. Без сохранённого курсора начинает с
// головы журнала, то есть история до запуска не пересылается.
func (r *Relay) Run(ctx context.Context) error {
	log := r.logger.WithFields(logrus.Fields{"component": "relay", "relay": r.name})

	cursor, err := r.startCursor(ctx)
	if err != nil {
		return err
	}
	log.WithField("cursor", cursor).Info("Relay started")

	for {
		cursor, err = r.pump(ctx, log, cursor)
		switch {
		case ctx.Err() != nil:
			log.WithField("cursor", cursor).Info("Relay stopped")
			return nil
		case errors.Is(err, events.ErrCursorExpired):
			head, headErr := r.source.LastSeq(ctx)
			if headErr != nil {
				return fmt.Errorf("relay %s: could not read log head: %w", r.name, headErr)
			}
			log.WithFields(logrus.Fields{"cursor": cursor, "head": head}).Error("Relay cursor expired, events skipped up to head")
			cursor = head
			r.save(ctx, log, cursor)
		default:
			log.WithError(err).Warn("Relay stream interrupted, resubscribing")
			if !sleep(ctx, r.retryDelay) {
				log.WithField("cursor", cursor).Info("Relay stopped")
				return nil
			}
		}
	}
}

func (r *Relay) startCursor(ctx context.Context) (uint64, error) {
	cursor, ok, err := r.cursors.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("relay %s: could not load cursor: %w", r.name, err)
	}
	if ok {
		return cursor, nil
	}
	head, err := r.source.LastSeq(ctx)
	if err != nil {
		return 0, fmt.Errorf("relay %s: could not read log head: %w", r.name, err)
	}
	return head, nil
}

// pump читает одну подписку до её закрытия и возвращает seq последнего пересланного события
func (r *Relay) pump(ctx context.Context, log *logrus.Entry, cursor uint64) (uint64, error) {
	sub, err := r.source.Subscribe(ctx, r.topics, cursor)
	if err != nil {
		return cursor, err
	}
	defer sub.Close()

	for ev := range sub.Events() {
		if err := r.sink.Forward(ctx, ev); err != nil {
			return cursor, fmt.Errorf("forward seq %d: %w", ev.Seq, err)
		}
		cursor = ev.Seq
		r.save(ctx, log, cursor)
	}
	if err := sub.Err(); err != nil {
		return cursor, err
	}
	return cursor, errStreamClosed
}

func (r *Relay) save(ctx context.Context, log *logrus.Entry, cursor uint64) {
	if err := r.cursors.Save(context.WithoutCancel(ctx), cursor); err != nil {
		log.WithError(err).WithField("cursor", cursor).Warn("Failed to save relay cursor")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
