package v1

import (
	"encoding/json"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// DTOToIncidentReport преобразует DTO сообщения в доменную модель
func DTOToIncidentReport(dto CreateIncidentRequest) models.IncidentReport {
	report := models.IncidentReport{
		Title:       dto.Title,
		Description: dto.Description,
		Severity:    models.Severity(dto.Severity),
		PhotoURL:    dto.PhotoURL,
	}
	if dto.Latitude != nil {
		report.Latitude = *dto.Latitude
	}
	if dto.Longitude != nil {
		report.Longitude = *dto.Longitude
	}
	return report
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:               model.ID,
		Title:            model.Title,
		Description:      model.Description,
		Severity:         string(model.Severity),
		Status:           string(model.Status),
		Latitude:         model.Latitude,
		Longitude:        model.Longitude,
		PhotoURL:         model.PhotoURL,
		ReportedBy:       model.ReportedBy,
		AssignedResource: model.AssignedResource,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
		Version:          model.Version,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(incidents []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(incidents))
	for i, model := range incidents {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func ModelToResourceResponse(model *models.Resource) *ResourceResponse {
	if model == nil {
		return nil
	}
	return &ResourceResponse{
		ID:        model.ID,
		Name:      model.Name,
		Type:      model.Type,
		Status:    string(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		Version:   model.Version,
	}
}

func ModelsToResourceResponses(resources []*models.Resource) []*ResourceResponse {
	responses := make([]*ResourceResponse, len(resources))
	for i, model := range resources {
		responses[i] = ModelToResourceResponse(model)
	}
	return responses
}

func ModelsToAssignmentResponses(assignments []*models.Assignment) []*AssignmentResponse {
	responses := make([]*AssignmentResponse, len(assignments))
	for i, a := range assignments {
		responses[i] = &AssignmentResponse{
			ID:          a.ID,
			IncidentID:  a.IncidentID,
			ResourceID:  a.ResourceID,
			AssignedBy:  a.AssignedBy,
			AssignedAt:  a.AssignedAt,
			CompletedAt: a.CompletedAt,
		}
	}
	return responses
}

func ModelToStatsResponse(stats *models.IncidentStats) *StatsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return &StatsResponse{
		Total:          stats.Total,
		ByStatus:       byStatus,
		AvailableUnits: stats.AvailableUnits,
	}
}

// DTOToLocationSample - точка из запроса
func DTOToLocationSample(dto LocationRequest) models.LocationSample {
	sample := models.LocationSample{UnitID: dto.UnitID, ObservedAt: dto.ObservedAt}
	if dto.Latitude != nil {
		sample.Latitude = *dto.Latitude
	}
	if dto.Longitude != nil {
		sample.Longitude = *dto.Longitude
	}
	return sample
}

func ModelToLocationResponse(model *models.LiveLocation) *LocationResponse {
	return &LocationResponse{
		UnitID:     model.UnitID,
		Latitude:   model.Latitude,
		Longitude:  model.Longitude,
		ObservedAt: model.ObservedAt,
		Version:    model.Version,
		Stale:      model.Stale,
	}
}

func ModelsToLocationResponses(locations []*models.LiveLocation) []*LocationResponse {
	responses := make([]*LocationResponse, len(locations))
	for i, model := range locations {
		responses[i] = ModelToLocationResponse(model)
	}
	return responses
}

func ModelToEventResponse(ev models.Event) *EventResponse {
	return &EventResponse{
		Seq:        ev.Seq,
		Topic:      string(ev.Topic),
		EntityID:   ev.EntityID,
		Version:    ev.Version,
		Payload:    json.RawMessage(ev.Payload),
		OccurredAt: ev.OccurredAt,
	}
}
