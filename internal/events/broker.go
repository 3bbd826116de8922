package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/metrics"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

const (
	defaultQueueSize = 256
	// catchUpPage - размер страницы догоняющего чтения журнала
	catchUpPage = 500
)

type entityKey struct {
	topic models.Topic
	id    uuid.UUID
}

// Broker записывает события в журнал и раздает их подписчикам.
//
// События одной сущности попадают в журнал строго в порядке версий: если
// версия v+1 пришла раньше v, она ждет в буфере, повторы отбрасываются.
// Публикация никогда не ждет подписчиков: очередь подписчика ограничена,
// при переполнении подписчик отключается и должен догнать журнал по курсору.
type Broker struct {
	log       Log
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	queueSize int
	now       func() time.Time

	mu      sync.Mutex
	last    map[entityKey]int64
	pending map[entityKey]map[int64]models.Event
	subs    map[uint64]*Subscription
	nextSub uint64
}

func NewBroker(log Log, logger *logrus.Logger, m *metrics.Metrics, queueSize int) *Broker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Broker{
		log:       log,
		logger:    logger,
		metrics:   m,
		queueSize: queueSize,
		now:       time.Now,
		last:      make(map[entityKey]int64),
		pending:   make(map[entityKey]map[int64]models.Event),
		subs:      make(map[uint64]*Subscription),
	}
}

// Publish добавляет изменение сущности в журнал темы
func (b *Broker) Publish(ctx context.Context, topic models.Topic, entityID uuid.UUID, version int64, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: could not marshal payload: %w", err)
	}

	ev := models.Event{
		Topic:      topic,
		EntityID:   entityID,
		Version:    version,
		Payload:    raw,
		OccurredAt: b.now().UTC(),
	}
	key := entityKey{topic: topic, id: entityID}
	log := b.logger.WithFields(logrus.Fields{
		"component": "broker",
		"topic":     topic,
		"entity_id": entityID,
		"version":   version,
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	last, seen := b.last[key]
	if !seen {
		// Сущность еще не встречалась в этом процессе: продолжаем с версии из журнала
		last, err = b.log.LastVersion(ctx, topic, entityID)
		if err != nil {
			// Как и при ошибке записи, версия считается пройденной: следующие
			// версии пойдут в журнал, а потребители увидят пропуск.
			b.last[key] = version
			log.WithError(err).Error("Could not read last version, event skipped")
			return fmt.Errorf("events: could not read last version: %w", err)
		}
		b.last[key] = last
	}

	switch {
	case version <= last:
		log.Debug("Duplicate event discarded")
		return nil
	case version > last+1:
		if b.pending[key] == nil {
			b.pending[key] = make(map[int64]models.Event)
		}
		b.pending[key][version] = ev
		log.WithField("last_version", last).Debug("Event held until preceding versions arrive")
		return nil
	}

	firstErr := b.appendLocked(ctx, key, ev)

	// Выпускаем удержанные версии, которые теперь идут подряд. Ошибка записи
	// одной версии не останавливает остальные.
	for {
		held, ok := b.pending[key][b.last[key]+1]
		if !ok {
			break
		}
		delete(b.pending[key], held.Version)
		if err := b.appendLocked(ctx, key, held); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if len(b.pending[key]) == 0 {
		delete(b.pending, key)
	}
	return firstErr
}

func (b *Broker) appendLocked(ctx context.Context, key entityKey, ev models.Event) error {
	// Версия считается пройденной даже при ошибке записи, иначе следующие
	// версии сущности навсегда останутся в буфере. Потребители увидят пропуск
	// и запросят снимок.
	b.last[key] = ev.Version
	if err := b.log.Append(ctx, &ev); err != nil {
		return fmt.Errorf("events: could not append event: %w", err)
	}
	b.metrics.EventPublished(string(ev.Topic))

	for id, sub := range b.subs {
		if !sub.wants(ev.Topic) {
			continue
		}
		select {
		case sub.queue <- ev:
		default:
			delete(b.subs, id)
			sub.setErr(ErrSubscriberDropped)
			close(sub.queue)
			b.metrics.SubscriberDropped()
			b.metrics.SubscriberDetached()
			b.logger.WithFields(logrus.Fields{
				"component":      "broker",
				"subscription":   id,
				"dropped_at_seq": ev.Seq,
			}).Warn("Subscriber queue overflow, subscriber dropped")
		}
	}
	return nil
}

// Subscribe возвращает поток событий по темам начиная после cursor: сначала
// догоняющее чтение из журнала, затем живой хвост. Пустой список тем - все темы.
func (b *Broker) Subscribe(ctx context.Context, topics []models.Topic, cursor uint64) (*Subscription, error) {
	if len(topics) == 0 {
		topics = models.AllTopics
	}
	for _, t := range topics {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown topic %q", models.ErrValidation, t)
		}
	}

	// Первая страница читается до регистрации и без блокировки: устаревший
	// курсор возвращается ошибкой сразу, а публикации не ждут журнал.
	// Остаток журнала pump дочитывает страницами уже после регистрации.
	backlog, err := b.log.ReadFrom(ctx, topics, cursor, catchUpPage)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.nextSub++
	sub := newSubscription(b, b.nextSub, topics, cursor, backlog, b.queueSize)
	b.subs[sub.id] = sub
	b.mu.Unlock()

	b.metrics.SubscriberAttached()
	b.logger.WithFields(logrus.Fields{
		"component":    "broker",
		"subscription": sub.id,
		"topics":       topics,
		"cursor":       cursor,
		"backlog":      len(backlog),
	}).Info("Subscriber attached")

	go sub.pump(ctx)
	return sub, nil
}

// Read - догоняющее чтение журнала без подписки (pull)
func (b *Broker) Read(ctx context.Context, topics []models.Topic, cursor uint64, limit int) ([]models.Event, error) {
	if len(topics) == 0 {
		topics = models.AllTopics
	}
	for _, t := range topics {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown topic %q", models.ErrValidation, t)
		}
	}
	return b.log.ReadFrom(ctx, topics, cursor, limit)
}

// LastVersion - последняя опубликованная версия сущности
func (b *Broker) LastVersion(ctx context.Context, topic models.Topic, entityID uuid.UUID) (int64, error) {
	b.mu.Lock()
	last, seen := b.last[entityKey{topic: topic, id: entityID}]
	b.mu.Unlock()
	if seen {
		return last, nil
	}
	return b.log.LastVersion(ctx, topic, entityID)
}

// LastSeq - текущая голова журнала; подписка с этим курсором получит только новые события
func (b *Broker) LastSeq(ctx context.Context) (uint64, error) {
	return b.log.LastSeq(ctx)
}

// SubscriberCount - число подключенных подписчиков
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.queue)
	b.metrics.SubscriberDetached()
}
