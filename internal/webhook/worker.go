package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/config"
)

var errPermanent = errors.New("webhook rejected permanently")

// WebhookWorker - структура для обработки и отправки вебхуков
type WebhookWorker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
}

// NewWebhookWorker создает новый WebhookWorker
func NewWebhookWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config) *WebhookWorker {
	return &WebhookWorker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
	}
}

// Start запускает горутину для обработки очереди вебхуков
func (w *WebhookWorker) Start(ctx context.Context) {
	w.logger.Info("Starting webhook worker...")
	go func() {
		for {
			// BRPOP - блокирующее извлечение из правой части списка (очереди)
			// 0 означает бесконечное ожидание
			result, err := w.redisClient.BRPop(ctx, 0, webhookQueueKey).Result()
			if err != nil {
				if ctx.Err() != nil {
					w.logger.Info("Stopping webhook worker.")
					return
				}
				w.logger.WithError(err).Error("Failed to pop webhook event from Redis")
				if !sleepCtx(ctx, w.cfg.WebhookTimeout) { // Ждем перед повторной попыткой
					return
				}
				continue
			}

			// result[0] - ключ, result[1] - значение
			payload := result[1]
			var event WebhookEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				w.logger.WithError(err).Error("Failed to unmarshal webhook event from Redis")
				continue
			}

			if err := w.deliver(ctx, event, payload); err != nil && ctx.Err() == nil {
				// Недоставленное событие сохраняем для ручного разбора
				if dlErr := w.redisClient.LPush(context.WithoutCancel(ctx), webhookDeadLetterKey, payload).Err(); dlErr != nil {
					w.logger.WithError(dlErr).Error("Failed to store undelivered webhook event")
				}
			}
		}
	}()
}

// deliver отправляет событие с экспоненциальной задержкой между попытками.
// Ответы 4xx, кроме 408 и 429, считаются окончательным отказом.
func (w *WebhookWorker) deliver(ctx context.Context, event WebhookEvent, rawPayload string) error {
	log := w.logger.WithFields(logrus.Fields{
		"event_seq":       event.Seq,
		"event_topic":     event.Topic,
		"event_entity_id": event.EntityID,
		"event_version":   event.Version,
	})
	log.Debug("Processing webhook event...")

	if w.cfg.WebhookURL == "" {
		log.Warn("Webhook URL is not configured. Skipping webhook delivery.")
		return nil
	}

	maxRetries := max(w.cfg.WebhookMaxRetries, 1)
	delay := w.cfg.WebhookRetryDelay

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			log.WithError(lastErr).Warnf("Webhook delivery failed. Retrying in %v. Retries left: %d", delay, maxRetries-i)
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
			delay *= 2 // Экспоненциальная задержка
		}

		lastErr = w.send(ctx, event, rawPayload)
		if lastErr == nil {
			log.Info("Webhook delivered successfully.")
			return nil
		}
		if errors.Is(lastErr, errPermanent) {
			break
		}
	}

	log.WithError(lastErr).Errorf("Failed to deliver webhook event after %d attempts.", maxRetries)
	return lastErr
}

func (w *WebhookWorker) send(ctx context.Context, event WebhookEvent, rawPayload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewBufferString(rawPayload))
	if err != nil {
		return fmt.Errorf("%w: could not build request: %v", errPermanent, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Topic", string(event.Topic))
	req.Header.Set("X-Event-Seq", strconv.FormatUint(event.Seq, 10))

	// Добавляем HMAC подпись, если WEBHOOK_SECRET задан
	if w.cfg.WebhookSecret != "" {
		req.Header.Set("X-Webhook-Signature", generateHMACSHA256(rawPayload, w.cfg.WebhookSecret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: endpoint returned %d", errPermanent, resp.StatusCode)
	}
	return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
}

// generateHMACSHA256 генерирует HMAC-SHA256 подпись для данных
func generateHMACSHA256(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
