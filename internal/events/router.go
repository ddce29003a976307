package events

import (
	"ticketry/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the event catalogue and admin surfaces.
// Catalogue reads are public; every inventory mutation sits behind the
// admin role.
func RegisterRoutes(rg *gin.RouterGroup, controller *Controller) {
	events := rg.Group("/events")
	{
		events.GET("", controller.List)
		events.GET("/categories", controller.Categories)
		events.GET("/:id", controller.Get)
		events.POST("/:id/check-availability", controller.CheckAvailability)
		events.GET("/:id/seat-map", controller.SeatMap)
	}

	admin := rg.Group("/events")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.POST("", controller.Create)
		admin.PUT("/:id", controller.Update)
		admin.DELETE("/:id", controller.Delete)
		admin.PUT("/:id/publish", controller.Publish)
		admin.PUT("/:id/unpublish", controller.Unpublish)
		admin.POST("/:id/admin-reservations", controller.AddAdminHold)
		admin.POST("/:id/promo-codes", controller.AddPromoCode)
		admin.GET("/:id/available-promo-codes", controller.ListPromoCodes)
	}
}
