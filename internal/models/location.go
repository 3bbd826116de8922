package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationSample - точка местоположения единицы в момент наблюдения
type LocationSample struct {
	UnitID     uuid.UUID `json:"unit_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
}

// LiveLocation - последняя точка единицы с признаком устаревания
type LiveLocation struct {
	LocationSample
	Version int64 `json:"version"`
	Stale   bool  `json:"stale"`
}

// IngestResult - итог приёма точки: Emitted=false означает, что точка сохранена,
// но событие отложено до следующего выпуска.
type IngestResult struct {
	Location LiveLocation `json:"location"`
	Emitted  bool         `json:"emitted"`
}
