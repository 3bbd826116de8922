package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// EventLog - долговременный журнал событий в таблице events; seq служит курсором
type EventLog struct {
	db *pgxpool.Pool
}

func NewEventLog(db *pgxpool.Pool) events.Log {
	return &EventLog{db: db}
}

// Append записывает событие и проставляет присвоенный бд seq
func (l *EventLog) Append(ctx context.Context, ev *models.Event) error {
	query := `
		INSERT INTO events (topic, entity_id, version, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING seq;
	`
	var seq int64
	err := l.db.QueryRow(ctx, query, ev.Topic, ev.EntityID, ev.Version, []byte(ev.Payload), ev.OccurredAt).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	ev.Seq = uint64(seq)
	return nil
}

// ReadFrom возвращает до limit событий выбранных тем с seq > cursor
func (l *EventLog) ReadFrom(ctx context.Context, topics []models.Topic, cursor uint64, limit int) ([]models.Event, error) {
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, string(t))
	}
	query := `
		SELECT seq, topic, entity_id, version, payload, occurred_at
		FROM events
		WHERE seq > $1 AND topic = ANY($2)
		ORDER BY seq
	`
	args := []any{int64(cursor), names}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	result := make([]models.Event, 0)
	for rows.Next() {
		var (
			ev      models.Event
			seq     int64
			payload []byte
		)
		if err := rows.Scan(&seq, &ev.Topic, &ev.EntityID, &ev.Version, &payload, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.Seq = uint64(seq)
		ev.Payload = payload
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error event iteration: %w", err)
	}
	return result, nil
}

// LastVersion возвращает наибольшую записанную версию сущности
func (l *EventLog) LastVersion(ctx context.Context, topic models.Topic, entityID uuid.UUID) (int64, error) {
	var version int64
	query := `SELECT COALESCE(MAX(version), 0) FROM events WHERE topic = $1 AND entity_id = $2;`
	if err := l.db.QueryRow(ctx, query, topic, entityID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get last event version: %w", err)
	}
	return version, nil
}

// LastSeq возвращает наибольший присвоенный seq
func (l *EventLog) LastSeq(ctx context.Context) (uint64, error) {
	var seq int64
	if err := l.db.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events;`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to get last event seq: %w", err)
	}
	return uint64(seq), nil
}
