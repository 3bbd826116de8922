package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/service"
)

const resourceColumns = `id, name, type, status, created_at, updated_at, version`

type ResourceRepository struct {
	db *pgxpool.Pool
}

func NewResourceRepository(db *pgxpool.Pool) service.ResourceRepository {
	return &ResourceRepository{db: db}
}

// Create сохраняет новую выездную единицу
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	query := `
		INSERT INTO resources (id, name, type, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db.Exec(ctx, query,
		resource.ID,
		resource.Name,
		resource.Type,
		resource.Status,
		resource.CreatedAt,
		resource.UpdatedAt,
		resource.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1;`
	resource, err := scanResource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: resource %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get resource by id: %w", err)
	}
	return resource, nil
}

// SetStatus меняет доступность единицы. Назначенную единицу строка
// не трогает: её освобождает только координатор.
func (r *ResourceRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.ResourceStatus, expectedVersion int64, at time.Time) (*models.Resource, error) {
	query := `
		UPDATE resources SET
			status = $3,
			updated_at = $4,
			version = version + 1
		WHERE id = $1 AND version = $2 AND status <> 'assigned'
		RETURNING ` + resourceColumns + `;
	`
	resource, err := scanResource(r.db.QueryRow(ctx, query, id, expectedVersion, status, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, casMiss(ctx, r.db, "resources", id)
		}
		return nil, fmt.Errorf("failed to update resource status: %w", err)
	}
	return resource, nil
}

// List возвращает единицы по статусу и типу; пустые значения не фильтруют
func (r *ResourceRepository) List(ctx context.Context, status models.ResourceStatus, resourceType string) ([]*models.Resource, error) {
	var (
		conds []string
		args  []any
	)
	if status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if resourceType != "" {
		args = append(args, resourceType)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	query := `SELECT ` + resourceColumns + ` FROM resources`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY name, id;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources := make([]*models.Resource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource row: %w", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return resources, nil
}

func scanResource(row pgx.Row) (*models.Resource, error) {
	resource := &models.Resource{}
	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Type,
		&resource.Status,
		&resource.CreatedAt,
		&resource.UpdatedAt,
		&resource.Version,
	)
	if err != nil {
		return nil, err
	}
	return resource, nil
}
