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

const incidentColumns = `
	id,
	title,
	description,
	severity,
	status,
	latitude,
	longitude,
	photo_url,
	reported_by,
	assigned_resource,
	created_at,
	updated_at,
	version`

type IncidentRepository struct {
	db *pgxpool.Pool
}

func NewIncidentRepository(db *pgxpool.Pool) service.IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (id, title, description, severity, status, latitude, longitude,
			photo_url, reported_by, assigned_resource, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.db.Exec(ctx, query,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.Status,
		incident.Latitude,
		incident.Longitude,
		incident.PhotoURL,
		incident.ReportedBy,
		incident.AssignedResource,
		incident.CreatedAt,
		incident.UpdatedAt,
		incident.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: incident %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// UpdateStatus меняет статус, если версия в бд совпадает с ожидаемой
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus, expectedVersion int64, at time.Time) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			status = $3,
			updated_at = $4,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, expectedVersion, status, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, casMiss(ctx, r.db, "incidents", id)
		}
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}
	return incident, nil
}

// List возвращает список инцидентов по фильтру с пагинацией, новые сначала
func (r *IncidentRepository) List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	where, args := incidentWhere(filter)
	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)

	query := fmt.Sprintf(`SELECT %s FROM incidents %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d;`,
		incidentColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// CountByStatus возвращает число инцидентов по каждому статусу
func (r *IncidentRepository) CountByStatus(ctx context.Context) (map[models.IncidentStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM incidents GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.IncidentStatus]int)
	for rows.Next() {
		var (
			status models.IncidentStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan incident count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error count iteration: %w", err)
	}
	return counts, nil
}

func incidentWhere(filter models.IncidentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Severity != "" {
		add("severity = $%d", filter.Severity)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Severity,
		&incident.Status,
		&incident.Latitude,
		&incident.Longitude,
		&incident.PhotoURL,
		&incident.ReportedBy,
		&incident.AssignedResource,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.Version,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}
