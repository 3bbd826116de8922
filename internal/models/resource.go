package models

import (
	"time"

	"github.com/google/uuid"
)

type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "available"
	ResourceAssigned    ResourceStatus = "assigned"
	ResourceMaintenance ResourceStatus = "maintenance"
)

func (s ResourceStatus) Valid() bool {
	return s == ResourceAvailable || s == ResourceAssigned || s == ResourceMaintenance
}

// Resource - выездная единица (пожарный расчёт, машина)
type Resource struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Status    ResourceStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   int64          `json:"version"`
}

func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	cloned := *r
	return &cloned
}

// IsAvailable сообщает, можно ли назначить единицу на инцидент
func (r *Resource) IsAvailable() bool {
	return r.Status == ResourceAvailable
}
