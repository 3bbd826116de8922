package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// @Summary Register a resource
// @Tags Resources
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param resource body CreateResourceRequest true "Resource"
// @Success 201 {object} ResourceResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /resources [post]
func (h *Handler) createResource(c *gin.Context) {
	var input CreateResourceRequest
	log := h.logger.WithField("method", "createResource")
	if !h.bindJSON(c, log, &input) {
		return
	}

	resource, err := h.resourceService.RegisterResource(c.Request.Context(), actorFrom(c), input.Name, input.Type)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToResourceResponse(resource))
}

// @Summary List resources
// @Tags Resources
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Status filter"
// @Param type query string false "Type filter"
// @Success 200 {array} ResourceResponse
// @Router /resources [get]
func (h *Handler) listResources(c *gin.Context) {
	log := h.logger.WithField("method", "listResources")

	resources, err := h.resourceService.ListResources(c.Request.Context(), models.ResourceStatus(c.Query("status")), c.Query("type"))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToResourceResponses(resources))
}

// @Summary List available resources
// @Tags Resources
// @Produce json
// @Security ApiKeyAuth
// @Param type query string false "Type filter, empty for all types"
// @Success 200 {array} ResourceResponse
// @Router /resources/available [get]
func (h *Handler) listAvailableResources(c *gin.Context) {
	log := h.logger.WithField("method", "listAvailableResources")

	resources, err := h.resourceService.ListAvailable(c.Request.Context(), c.Query("type"))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToResourceResponses(resources))
}

// @Summary Get resource by ID
// @Tags Resources
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Resource ID"
// @Success 200 {object} ResourceResponse
// @Failure 404 {object} map[string]string "Resource not found"
// @Router /resources/{id} [get]
func (h *Handler) getResource(c *gin.Context) {
	id, ok := parseID(c, "id", "resource")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getResource").WithField("id", id)

	resource, err := h.resourceService.GetResource(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToResourceResponse(resource))
}

// @Summary Change resource availability
// @Description Toggle a unit between available and maintenance. Assigned units cannot be changed here.
// @Tags Resources
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Resource ID"
// @Param availability body AvailabilityRequest true "Target availability and expected version"
// @Success 200 {object} ResourceResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Version mismatch"
// @Failure 422 {object} map[string]string "Unit is assigned"
// @Router /resources/{id}/availability [patch]
func (h *Handler) setAvailability(c *gin.Context) {
	id, ok := parseID(c, "id", "resource")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "setAvailability").WithField("id", id)

	var input AvailabilityRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	resource, err := h.resourceService.SetAvailability(c.Request.Context(), actorFrom(c), id, models.ResourceStatus(input.Status), input.ExpectedVersion)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToResourceResponse(resource))
}
