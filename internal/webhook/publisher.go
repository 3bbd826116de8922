package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

const (
	webhookQueueKey      = "webhook_events"
	webhookDeadLetterKey = "webhook_events:dead"
)

// WebhookEvent - тело вебхука: одно версионированное изменение сущности
type WebhookEvent struct {
	Seq        uint64          `json:"seq"`
	Topic      models.Topic    `json:"topic"`
	EntityID   uuid.UUID       `json:"entity_id"`
	Version    int64           `json:"version"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewWebhookEvent(ev models.Event) WebhookEvent {
	return WebhookEvent{
		Seq:        ev.Seq,
		Topic:      ev.Topic,
		EntityID:   ev.EntityID,
		Version:    ev.Version,
		Payload:    ev.Payload,
		OccurredAt: ev.OccurredAt,
	}
}

// WebhookPublisher - интерфейс для публикации вебхуков
type WebhookPublisher interface {
	Publish(ctx context.Context, event WebhookEvent) error
}

// RedisWebhookPublisher - реализация WebhookPublisher, использующая Redis
type RedisWebhookPublisher struct {
	redisClient *redis.Client
}

// NewRedisWebhookPublisher создает новый RedisWebhookPublisher
func NewRedisWebhookPublisher(client *redis.Client) *RedisWebhookPublisher {
	return &RedisWebhookPublisher{
		redisClient: client,
	}
}

// Publish публикует событие вебхука в очередь Redis
func (p *RedisWebhookPublisher) Publish(ctx context.Context, event WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}

// Forward ставит событие журнала в очередь; используется ретранслятором
func (p *RedisWebhookPublisher) Forward(ctx context.Context, ev models.Event) error {
	return p.Publish(ctx, NewWebhookEvent(ev))
}
