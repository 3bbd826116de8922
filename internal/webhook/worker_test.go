package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shenikar/fireguard_dispatch/internal/config"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

func newTestWorker(url string) *WebhookWorker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	cfg := &config.Config{
		WebhookURL:        url,
		WebhookSecret:     "s3cret",
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookRetryDelay: time.Millisecond,
	}
	return NewWebhookWorker(nil, logger, cfg)
}

func testEvent(t *testing.T) (WebhookEvent, string) {
	t.Helper()
	event := NewWebhookEvent(models.Event{
		Seq:        7,
		Topic:      models.TopicIncident,
		EntityID:   uuid.New(),
		Version:    2,
		Payload:    json.RawMessage(`{"status":"dispatched"}`),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return event, string(raw)
}

func TestDeliver_SignedRequest(t *testing.T) {
	// Подготовка
	var received atomic.Int32
	event, payload := testEvent(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, payload, string(body))
		assert.Equal(t, generateHMACSHA256(payload, "s3cret"), r.Header.Get("X-Webhook-Signature"))
		assert.Equal(t, "incident", r.Header.Get("X-Event-Topic"))
		assert.Equal(t, "7", r.Header.Get("X-Event-Seq"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	// Действие
	err := newTestWorker(srv.URL).deliver(context.Background(), event, payload)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int32(1), received.Load())
}

func TestDeliver_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	event, payload := testEvent(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestWorker(srv.URL).deliver(context.Background(), event, payload)

	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDeliver_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	event, payload := testEvent(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestWorker(srv.URL).deliver(context.Background(), event, payload)

	assert.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDeliver_ClientErrorIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	event, payload := testEvent(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestWorker(srv.URL).deliver(context.Background(), event, payload)

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDeliver_NoURLConfigured(t *testing.T) {
	event, payload := testEvent(t)
	assert.NoError(t, newTestWorker("").deliver(context.Background(), event, payload))
}

func TestGenerateHMACSHA256(t *testing.T) {
	// Известное значение HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		generateHMACSHA256("The quick brown fox jumps over the lazy dog", "key"))
}
