package events

import (
	"context"
	"errors"
	"sync"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// ErrSubscriberDropped - очередь подписчика переполнилась, нужно
// переподписаться с последним полученным Seq.
var ErrSubscriberDropped = errors.New("subscriber dropped on queue overflow")

// Subscription - поток событий одного подписчика
type Subscription struct {
	id     uint64
	broker *Broker
	topics map[models.Topic]struct{}
	list   []models.Topic
	cursor uint64

	backlog []models.Event
	queue   chan models.Event
	out     chan models.Event
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func newSubscription(b *Broker, id uint64, topics []models.Topic, cursor uint64, backlog []models.Event, size int) *Subscription {
	set := make(map[models.Topic]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return &Subscription{
		id:      id,
		broker:  b,
		topics:  set,
		list:    topics,
		cursor:  cursor,
		backlog: backlog,
		queue:   make(chan models.Event, size),
		out:     make(chan models.Event),
		done:    make(chan struct{}),
	}
}

// Events возвращает канал событий. Канал закрывается при Close, отмене
// контекста подписки или отключении подписчика (тогда Err != nil).
func (s *Subscription) Events() <-chan models.Event {
	return s.out
}

// Err сообщает причину закрытия потока
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close отписывает подписчика и освобождает его очередь
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.broker.remove(s)
}

func (s *Subscription) wants(t models.Topic) bool {
	_, ok := s.topics[t]
	return ok
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.out)
	defer s.broker.remove(s)

	last := s.cursor
	for _, ev := range s.backlog {
		if !s.send(ctx, ev) {
			return
		}
		last = ev.Seq
	}
	s.backlog = nil

	// Догоняем журнал страницами вне блокировки брокера. Хотя бы одно чтение
	// идет после регистрации, поэтому событие, записанное до нее, не теряется,
	// а попавшее и в журнал, и в очередь отбрасывается по Seq ниже.
	for {
		page, err := s.broker.log.ReadFrom(ctx, s.list, last, catchUpPage)
		if err != nil {
			if ctx.Err() == nil {
				s.setErr(err)
				s.broker.logger.WithError(err).WithField("subscription", s.id).Warn("Catch-up read failed, subscriber closed")
			}
			return
		}
		for _, ev := range page {
			if !s.send(ctx, ev) {
				return
			}
			last = ev.Seq
		}
		if len(page) < catchUpPage {
			break
		}
	}

	for {
		select {
		case ev, ok := <-s.queue:
			if !ok {
				return
			}
			if ev.Seq <= last {
				continue
			}
			if !s.send(ctx, ev) {
				return
			}
			last = ev.Seq
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Subscription) send(ctx context.Context, ev models.Event) bool {
	select {
	case s.out <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}
