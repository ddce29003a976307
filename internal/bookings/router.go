package bookings

import (
	"ticketry/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts booking confirmation plus lookup, cancel and
// check-in. Check-in is a venue-staff action and requires the admin
// role; the rest stay public for guest checkouts.
func RegisterRoutes(rg *gin.RouterGroup, controller *Controller) {
	rg.POST("/events/:id/confirm-booking", controller.Confirm)
	rg.GET("/events/:id/bookings", controller.ListByEvent)

	bookings := rg.Group("/bookings")
	{
		bookings.GET("", controller.ListByEmail)
		bookings.GET("/:bookingId", controller.Get)
		bookings.POST("/:bookingId/cancel", controller.Cancel)
	}

	staff := rg.Group("/bookings")
	staff.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		staff.POST("/:bookingId/check-in", controller.CheckIn)
	}
}
