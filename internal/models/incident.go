package models

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid сообщает, входит ли значение в перечисление
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type IncidentStatus string

const (
	StatusReported   IncidentStatus = "reported"
	StatusDispatched IncidentStatus = "dispatched"
	StatusEnRoute    IncidentStatus = "en_route"
	StatusArrived    IncidentStatus = "arrived"
	StatusResolved   IncidentStatus = "resolved"
	StatusCancelled  IncidentStatus = "cancelled"
)

// AllIncidentStatuses перечисляет статусы в порядке жизненного цикла
var AllIncidentStatuses = []IncidentStatus{
	StatusReported, StatusDispatched, StatusEnRoute, StatusArrived, StatusResolved, StatusCancelled,
}

// transitions - граф допустимых переходов статуса инцидента
var transitions = map[IncidentStatus][]IncidentStatus{
	StatusReported:   {StatusDispatched, StatusCancelled},
	StatusDispatched: {StatusEnRoute, StatusCancelled},
	StatusEnRoute:    {StatusArrived, StatusCancelled},
	StatusArrived:    {StatusResolved},
}

func (s IncidentStatus) Valid() bool {
	for _, st := range AllIncidentStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransitionTo проверяет, является ли пара (s, next) ребром графа
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal - resolved и cancelled
func (s IncidentStatus) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// HoldsResource - статусы, в которых к инциденту привязан ресурс
func (s IncidentStatus) HoldsResource() bool {
	return s == StatusDispatched || s == StatusEnRoute || s == StatusArrived
}

type Incident struct {
	ID               uuid.UUID      `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Severity         Severity       `json:"severity"`
	Status           IncidentStatus `json:"status"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	PhotoURL         string         `json:"photo_url,omitempty"`
	ReportedBy       string         `json:"reported_by,omitempty"`
	AssignedResource *uuid.UUID     `json:"assigned_resource,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          int64          `json:"version"`
}

// Clone возвращает копию, не разделяющую указатели с оригиналом
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	cloned := *i
	if i.AssignedResource != nil {
		id := *i.AssignedResource
		cloned.AssignedResource = &id
	}
	return &cloned
}

// IncidentReport - данные сообщения о происшествии от заявителя
type IncidentReport struct {
	Title       string
	Description string
	Severity    Severity
	Latitude    float64
	Longitude   float64
	PhotoURL    string
}

// NewIncident собирает и валидирует новый инцидент в статусе reported
func NewIncident(r IncidentReport) (*Incident, error) {
	title := strings.TrimSpace(r.Title)
	severity, lat, lon, photoURL := r.Severity, r.Latitude, r.Longitude, strings.TrimSpace(r.PhotoURL)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrValidation, severity)
	}
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if photoURL != "" {
		u, err := url.Parse(photoURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: photo_url must be an absolute http(s) URL", ErrValidation)
		}
	}

	return &Incident{
		Title:       title,
		Description: strings.TrimSpace(r.Description),
		Severity:    severity,
		Status:      StatusReported,
		Latitude:    lat,
		Longitude:   lon,
		PhotoURL:    photoURL,
		Version:     1,
	}, nil
}

// ValidateCoordinates проверяет диапазоны широты и долготы
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrValidation, lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrValidation, lon)
	}
	return nil
}

// IncidentFilter - параметры выборки списка инцидентов
type IncidentFilter struct {
	Status   IncidentStatus
	Severity Severity
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// Match применяет фильтр к инциденту (без пагинации)
func (f IncidentFilter) Match(i *Incident) bool {
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if f.Severity != "" && i.Severity != f.Severity {
		return false
	}
	if !f.From.IsZero() && i.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && i.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// IncidentStats - сводка для панели диспетчера
type IncidentStats struct {
	Total          int                    `json:"total"`
	ByStatus       map[IncidentStatus]int `json:"by_status"`
	AvailableUnits int                    `json:"available_units"`
}
