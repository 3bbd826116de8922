package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateIncidentRequest DTO для сообщения о происшествии
// @Description DTO для сообщения о происшествии
type CreateIncidentRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description,omitempty" validate:"max=4000"`
	Severity    string   `json:"severity" validate:"required,oneof=low medium high critical"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	PhotoURL    string   `json:"photo_url,omitempty" validate:"omitempty,url"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Severity         string     `json:"severity"`
	Status           string     `json:"status"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	PhotoURL         string     `json:"photo_url,omitempty"`
	ReportedBy       string     `json:"reported_by,omitempty"`
	AssignedResource *uuid.UUID `json:"assigned_resource,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Version          int64      `json:"version"`
}

// AssignRequest DTO для назначения единицы
// @Description DTO для назначения единицы на инцидент
type AssignRequest struct {
	ResourceID uuid.UUID `json:"resource_id" validate:"required"`
}

// UpdateStatusRequest DTO для смены статуса инцидента
// @Description DTO для смены статуса инцидента
type UpdateStatusRequest struct {
	Status          string `json:"status" validate:"required,oneof=reported dispatched en_route arrived resolved cancelled"`
	ExpectedVersion int64  `json:"expected_version" validate:"required,gt=0"`
}

// DispatchResponse DTO с обеими сущностями после назначения или освобождения
// @Description DTO с инцидентом и единицей после изменения привязки
type DispatchResponse struct {
	Incident *IncidentResponse `json:"incident"`
	Resource *ResourceResponse `json:"resource,omitempty"`
}

// AssignmentResponse DTO записи журнала назначений
type AssignmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	IncidentID  uuid.UUID  `json:"incident_id"`
	ResourceID  uuid.UUID  `json:"resource_id"`
	AssignedBy  string     `json:"assigned_by,omitempty"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для сводки диспетчерской панели
type StatsResponse struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	AvailableUnits int            `json:"available_units"`
}

// CreateResourceRequest DTO для регистрации единицы
// @Description DTO для регистрации выездной единицы
type CreateResourceRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Type string `json:"type" validate:"required,max=64"`
}

// AvailabilityRequest DTO для смены доступности единицы
type AvailabilityRequest struct {
	Status          string `json:"status" validate:"required,oneof=available maintenance assigned"`
	ExpectedVersion int64  `json:"expected_version" validate:"required,gt=0"`
}

// ResourceResponse DTO для ответа с информацией о единице
// @Description DTO для ответа с информацией о выездной единице
type ResourceResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// LocationRequest DTO точки местоположения единицы
// @Description DTO точки местоположения единицы
type LocationRequest struct {
	UnitID     uuid.UUID `json:"unit_id" validate:"required"`
	Latitude   *float64  `json:"latitude" validate:"required,latitude"`
	Longitude  *float64  `json:"longitude" validate:"required,longitude"`
	ObservedAt time.Time `json:"observed_at" validate:"required"`
}

// LocationResponse DTO последней точки единицы
// @Description DTO последней точки единицы
type LocationResponse struct {
	UnitID     uuid.UUID `json:"unit_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
	Version    int64     `json:"version"`
	Stale      bool      `json:"stale"`
}

// IngestResponse DTO результата приёма точки
type IngestResponse struct {
	Location *LocationResponse `json:"location,omitempty"`
	Emitted  bool              `json:"emitted"`
	Stale    bool              `json:"stale"`
}

// EventResponse DTO события журнала
// @Description DTO события журнала изменений
type EventResponse struct {
	Seq        uint64    `json:"seq"`
	Topic      string    `json:"topic"`
	EntityID   uuid.UUID `json:"entity_id"`
	Version    int64     `json:"version"`
	Payload    any       `json:"payload" swaggertype:"object"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventsPage DTO страницы журнала; Cursor - позиция для следующего запроса
type EventsPage struct {
	Events []*EventResponse `json:"events"`
	Cursor uint64           `json:"cursor"`
}
