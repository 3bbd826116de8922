package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)

	protected := api.Group("", APIKeyAuthMiddleware(h.cfg.APIKeys, h.logger), ActorMiddleware(h.logger))

	incidents := protected.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/assign", h.assignResource)
		incidents.POST("/:id/release", h.releaseResource)
		incidents.PATCH("/:id/status", h.updateIncidentStatus)
		incidents.GET("/:id/assignments", h.listAssignments)
	}

	resources := protected.Group("/resources")
	{
		resources.POST("", h.createResource)
		resources.GET("", h.listResources)
		resources.GET("/available", h.listAvailableResources)
		resources.GET("/:id", h.getResource)
		resources.PATCH("/:id/availability", h.setAvailability)
	}

	locations := protected.Group("/locations")
	{
		locations.POST("", h.ingestLocation)
		locations.GET("", h.listLocations)
		locations.GET("/:unitId", h.getLocation)
	}

	// Журнал изменений: чтение и подписка
	protected.GET("/events", h.readEvents)
	protected.GET("/events/head", h.eventsHead)
	protected.GET("/events/ws", h.streamEvents)
}
