package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// @Summary Ingest a unit location
// @Description Accept a location sample. Samples not newer than the stored one are acknowledged with 202 and stale=true.
// @Tags Locations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param location body LocationRequest true "Location sample"
// @Success 200 {object} IngestResponse
// @Success 202 {object} IngestResponse "Stale sample ignored"
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Unit may only report its own location"
// @Router /locations [post]
func (h *Handler) ingestLocation(c *gin.Context) {
	var input LocationRequest
	log := h.logger.WithField("method", "ingestLocation")
	if !h.bindJSON(c, log, &input) {
		return
	}

	result, err := h.locationService.Ingest(c.Request.Context(), actorFrom(c), DTOToLocationSample(input))
	if err != nil {
		if errors.Is(err, models.ErrStaleUpdate) {
			c.JSON(http.StatusAccepted, IngestResponse{Stale: true})
			return
		}
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, IngestResponse{Location: ModelToLocationResponse(&result.Location), Emitted: result.Emitted})
}

// @Summary Live locations of all units
// @Tags Locations
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} LocationResponse
// @Router /locations [get]
func (h *Handler) listLocations(c *gin.Context) {
	log := h.logger.WithField("method", "listLocations")

	locations, err := h.locationService.ListLive(c.Request.Context())
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToLocationResponses(locations))
}

// @Summary Live location of a unit
// @Tags Locations
// @Produce json
// @Security ApiKeyAuth
// @Param unitId path string true "Unit ID"
// @Success 200 {object} LocationResponse
// @Failure 404 {object} map[string]string "No location reported"
// @Router /locations/{unitId} [get]
func (h *Handler) getLocation(c *gin.Context) {
	id, ok := parseID(c, "unitId", "unit")
	if !ok {
		return
	}
	log := h.logger.WithField("method", "getLocation").WithField("unit_id", id)

	location, err := h.locationService.GetLive(c.Request.Context(), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToLocationResponse(location))
}
