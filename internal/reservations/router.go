package reservations

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the reservation endpoints. Reserving is public
// so guest checkouts work; the principal, when present, is still
// captured by the optional auth middleware installed upstream.
func RegisterRoutes(rg *gin.RouterGroup, controller *Controller) {
	rg.POST("/events/:id/reserve", controller.Reserve)

	reservations := rg.Group("/reservations")
	{
		reservations.GET("/:reservationId", controller.Get)
		reservations.DELETE("/:reservationId", controller.Release)
	}
}
