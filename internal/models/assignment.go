package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment - запись журнала назначений. Журнал только дополняется,
// закрытие проставляет CompletedAt.
type Assignment struct {
	ID          uuid.UUID  `json:"id"`
	IncidentID  uuid.UUID  `json:"incident_id"`
	ResourceID  uuid.UUID  `json:"resource_id"`
	AssignedBy  string     `json:"assigned_by,omitempty"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (a *Assignment) Open() bool {
	return a.CompletedAt == nil
}

func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	cloned := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		cloned.CompletedAt = &t
	}
	return &cloned
}

// Binding описывает атомарную запись назначения: оба CAS должны пройти.
type Binding struct {
	IncidentID      uuid.UUID
	IncidentVersion int64
	ResourceID      uuid.UUID
	ResourceVersion int64
	Assignment      Assignment
	At              time.Time
}

// Unbinding описывает атомарное освобождение ресурса вместе со сменой статуса
// инцидента (resolved, cancelled или возврат в reported для переназначения).
// ResourceID равен uuid.Nil, если ресурс к инциденту не привязан.
type Unbinding struct {
	IncidentID      uuid.UUID
	IncidentVersion int64
	NewStatus       IncidentStatus
	ResourceID      uuid.UUID
	ResourceVersion int64
	At              time.Time
}
