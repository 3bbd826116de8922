package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// publish отправляет изменение в журнал событий. Мутация к этому моменту уже
// зафиксирована, поэтому ошибка только логируется: подписчики обнаружат
// пропуск версии и запросят снимок.
func publish(ctx context.Context, p EventPublisher, log *logrus.Entry, topic models.Topic, id uuid.UUID, version int64, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), topic, id, version, payload); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"topic":   topic,
			"version": version,
		}).Error("Failed to publish change event")
	}
}

// outcome - метка результата операции для метрик
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrStaleUpdate):
		return "stale"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	}
	return "error"
}

func isConflict(err error) bool {
	return errors.Is(err, models.ErrConflict)
}
