package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// uniqueViolation - код ошибки postgres при нарушении уникального индекса
const uniqueViolation = "23505"

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// casMiss различает отсутствие строки и несовпадение версии после
// неудачного UPDATE ... WHERE id = $1 AND version = $2
func casMiss(ctx context.Context, q querier, table string, id uuid.UUID) error {
	var exists bool
	err := q.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1);`, table), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, table, id)
	}
	return fmt.Errorf("%w: %s %s was modified concurrently", models.ErrConflict, table, id)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
