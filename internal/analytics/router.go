package analytics

import (
	"ticketry/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the analytics surface, admin only.
func RegisterRoutes(rg *gin.RouterGroup, controller *Controller) {
	reports := rg.Group("/events")
	reports.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		reports.GET("/:id/analytics", controller.EventReport)
	}
}
