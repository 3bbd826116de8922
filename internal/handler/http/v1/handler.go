package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/config"
	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/service"
)

type Handler struct {
	incidentService service.IncidentService
	resourceService service.ResourceService
	dispatchService service.DispatchService
	locationService service.LocationService
	stream          EventStream
	logger          *logrus.Logger
	validate        *validator.Validate
	upgrader        websocket.Upgrader
	cfg             *config.Config
}

func NewHandler(
	incidentService service.IncidentService,
	resourceService service.ResourceService,
	dispatchService service.DispatchService,
	locationService service.LocationService,
	stream EventStream,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService: incidentService,
		resourceService: resourceService,
		dispatchService: dispatchService,
		locationService: locationService,
		stream:          stream,
		logger:          logger,
		validate:        validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		cfg: cfg,
	}
}

// bindJSON разбирает и валидирует тело запроса, при ошибке отвечает 400
func (h *Handler) bindJSON(c *gin.Context, log *logrus.Entry, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// @Summary Report a new incident
// @Description Register an incident report. The incident starts in the reported status.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incident body CreateIncidentRequest true "Incident report"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.logger.WithField("method", "createIncident")
	if !h.bindJSON(c, log, &input) {
		return
	}

	incident, err := h.incidentService.CreateIncident(c.Request.Context(), actorFrom(c), DTOToIncidentReport(input))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Get a list of incidents
// @Description Get a filtered, paginated list of incidents, newest first.
// @Tags Incidents
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Status filter"
// @Param severity query string false "Severity filter"
// @Param from query string false "Created at or after (RFC3339)"
// @Param to query string false "Created at or before (RFC3339)"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid filter"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	filter := models.IncidentFilter{
		Status:   models.IncidentStatus(c.Query("status")),
		Severity: models.Severity(c.Query("severity")),
		Page:     page,
		PageSize: pageSize,
	}
	for param, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		if raw := c.Query(param); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param + " time, expected RFC3339"})
				return
			}
			*dst = t
		}
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Tags Incidents
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, ok := parseID(c, "id", "incident")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Assign a resource to an incident
// @Description Bind an available unit to a reported incident. Concurrent assignments of one unit yield 409 for all but one caller.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param assignment body AssignRequest true "Resource to assign"
// @Success 200 {object} DispatchResponse
// @Failure 400 {object} map[string]string "Incident or resource not assignable"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Concurrent modification, refresh and try again"
// @Router /incidents/{id}/assign [post]
func (h *Handler) assignResource(c *gin.Context) {
	id, ok := parseID(c, "id", "incident")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "assignResource").WithField("id", id)

	var input AssignRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	incident, resource, err := h.dispatchService.AssignResource(c.Request.Context(), actorFrom(c), id, input.ResourceID)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, DispatchResponse{Incident: ModelToIncidentResponse(incident), Resource: ModelToResourceResponse(resource)})
}

// @Summary Release the resource of an incident
// @Description Free the bound unit before it arrives. The incident returns to reported for reassignment.
// @Tags Dispatch
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} DispatchResponse
// @Failure 400 {object} map[string]string "No open assignment"
// @Failure 409 {object} map[string]string "Concurrent modification"
// @Failure 422 {object} map[string]string "Unit already on scene"
// @Router /incidents/{id}/release [post]
func (h *Handler) releaseResource(c *gin.Context) {
	id, ok := parseID(c, "id", "incident")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "releaseResource").WithField("id", id)

	incident, resource, err := h.dispatchService.Release(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, DispatchResponse{Incident: ModelToIncidentResponse(incident), Resource: ModelToResourceResponse(resource)})
}

// @Summary Change incident status
// @Description Move the incident along the lifecycle. Resolving or cancelling releases the bound unit atomically.
// @Tags Dispatch
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param status body UpdateStatusRequest true "Target status and expected version"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Version mismatch"
// @Failure 422 {object} map[string]string "Transition not allowed"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateIncidentStatus(c *gin.Context) {
	id, ok := parseID(c, "id", "incident")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "updateIncidentStatus").WithField("id", id)

	var input UpdateStatusRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	incident, err := h.dispatchService.UpdateIncidentStatus(c.Request.Context(), actorFrom(c), id, models.IncidentStatus(input.Status), input.ExpectedVersion)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Assignment history of an incident
// @Tags Dispatch
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {array} AssignmentResponse
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id}/assignments [get]
func (h *Handler) listAssignments(c *gin.Context) {
	id, ok := parseID(c, "id", "incident")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "listAssignments").WithField("id", id)

	assignments, err := h.dispatchService.ListAssignments(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToAssignmentResponses(assignments))
}

// @Summary Dispatch dashboard statistics
// @Description Incident counts per status and the number of available units.
// @Tags Incidents
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.dispatchService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToStatsResponse(stats))
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
