package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/service"
)

const assignmentColumns = `id, incident_id, resource_id, assigned_by, assigned_at, completed_at`

type DispatchRepository struct {
	db *pgxpool.Pool
}

func NewDispatchRepository(db *pgxpool.Pool) service.DispatchRepository {
	return &DispatchRepository{db: db}
}

// Bind в одной транзакции переводит инцидент в dispatched, единицу в assigned
// и открывает назначение. Любой промах CAS откатывает всю транзакцию.
func (r *DispatchRepository) Bind(ctx context.Context, b models.Binding) (*models.Incident, *models.Resource, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin bind transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	incident, err := scanIncident(tx.QueryRow(ctx, `
		UPDATE incidents SET
			status = 'dispatched',
			assigned_resource = $3,
			updated_at = $4,
			version = version + 1
		WHERE id = $1 AND version = $2 AND status = 'reported'
		RETURNING `+incidentColumns+`;
	`, b.IncidentID, b.IncidentVersion, b.ResourceID, b.At))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, casMiss(ctx, tx, "incidents", b.IncidentID)
		}
		return nil, nil, fmt.Errorf("failed to bind incident: %w", err)
	}

	resource, err := scanResource(tx.QueryRow(ctx, `
		UPDATE resources SET
			status = 'assigned',
			updated_at = $3,
			version = version + 1
		WHERE id = $1 AND version = $2 AND status = 'available'
		RETURNING `+resourceColumns+`;
	`, b.ResourceID, b.ResourceVersion, b.At))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, casMiss(ctx, tx, "resources", b.ResourceID)
		}
		return nil, nil, fmt.Errorf("failed to bind resource: %w", err)
	}

	a := b.Assignment
	_, err = tx.Exec(ctx, `
		INSERT INTO assignments (id, incident_id, resource_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5);
	`, a.ID, a.IncidentID, a.ResourceID, a.AssignedBy, a.AssignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, fmt.Errorf("%w: open assignment already exists", models.ErrConflict)
		}
		return nil, nil, fmt.Errorf("failed to insert assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit bind transaction: %w", err)
	}
	return incident, resource, nil
}

// Unbind переводит инцидент в новый статус, закрывает открытое назначение
// и возвращает единицу в available. Без привязанной единицы меняется только инцидент.
func (r *DispatchRepository) Unbind(ctx context.Context, u models.Unbinding) (*models.Incident, *models.Resource, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin unbind transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	incident, err := scanIncident(tx.QueryRow(ctx, `
		UPDATE incidents SET
			status = $3,
			assigned_resource = NULL,
			updated_at = $4,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING `+incidentColumns+`;
	`, u.IncidentID, u.IncidentVersion, u.NewStatus, u.At))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, casMiss(ctx, tx, "incidents", u.IncidentID)
		}
		return nil, nil, fmt.Errorf("failed to unbind incident: %w", err)
	}

	var resource *models.Resource
	if u.ResourceID != uuid.Nil {
		resource, err = scanResource(tx.QueryRow(ctx, `
			UPDATE resources SET
				status = 'available',
				updated_at = $3,
				version = version + 1
			WHERE id = $1 AND version = $2 AND status = 'assigned'
			RETURNING `+resourceColumns+`;
		`, u.ResourceID, u.ResourceVersion, u.At))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, casMiss(ctx, tx, "resources", u.ResourceID)
			}
			return nil, nil, fmt.Errorf("failed to unbind resource: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE assignments SET completed_at = $3
			WHERE incident_id = $1 AND resource_id = $2 AND completed_at IS NULL;
		`, u.IncidentID, u.ResourceID, u.At)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to close assignment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, nil, fmt.Errorf("%w: no open assignment for incident %s", models.ErrConflict, u.IncidentID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit unbind transaction: %w", err)
	}
	return incident, resource, nil
}

// ListAssignments возвращает журнал назначений инцидента
func (r *DispatchRepository) ListAssignments(ctx context.Context, incidentID uuid.UUID) ([]*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE incident_id = $1 ORDER BY assigned_at, id;`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*models.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return assignments, nil
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	a := &models.Assignment{}
	if err := row.Scan(&a.ID, &a.IncidentID, &a.ResourceID, &a.AssignedBy, &a.AssignedAt, &a.CompletedAt); err != nil {
		return nil, err
	}
	return a, nil
}
