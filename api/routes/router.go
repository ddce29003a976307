package routes

import (
	"net/http"
	"time"

	"ticketry/internal/analytics"
	"ticketry/internal/bookings"
	"ticketry/internal/events"
	"ticketry/internal/notifications"
	"ticketry/internal/reservations"
	"ticketry/internal/shared/config"
	"ticketry/internal/shared/database"
	"ticketry/internal/shared/storage"
	"ticketry/pkg/cache"
	"ticketry/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router wires repositories, services and controllers and mounts them
// on the engine. It owns the background reaper so main can stop it on
// shutdown.
type Router struct {
	config   *config.Config
	db       *database.DB
	log      *logger.Logger
	notifier *notifications.Service

	reaper *reservations.Reaper
}

func NewRouter(cfg *config.Config, db *database.DB, notifier *notifications.Service, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		db:       db,
		log:      log,
		notifier: notifier,
	}
}

// SetupRoutes configures all application routes and returns the reaper
// ready to start.
func (r *Router) SetupRoutes(engine *gin.Engine) *reservations.Reaper {
	events.RegisterValidations()

	r.setupHealthRoutes(engine)
	engine.Static(r.config.Upload.BaseURL, r.config.Upload.Path)

	cacheService := cache.NewService(r.db.GetRedis(), r.log)

	// Repositories.
	eventRepo := events.NewRepository(r.db.GetPostgreSQL(), r.config.Ticketing.TxRetries)
	reservationRepo := reservations.NewRepository(r.db.GetPostgreSQL())
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())

	// Services.
	eventService := events.NewService(eventRepo, cacheService, r.log)
	reservationService := reservations.NewService(reservationRepo, eventRepo, eventService, r.config.Ticketing.ReservationTTL, r.log)
	bookingService := bookings.NewService(bookingRepo, reservationRepo, eventRepo, eventService, r.log)
	analyticsService := analytics.NewService(eventRepo, bookingRepo, cacheService)

	// Cross-package wiring done through setters to keep the package
	// dependency graph one-way.
	reservationService.SetBookingLookup(bookingRepo)
	if r.notifier != nil {
		bookingService.SetNotifier(r.notifier)
		reservationService.SetExpiryNotifier(r.notifier)
	}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		events.RegisterRoutes(api, events.NewController(eventService))
		reservations.RegisterRoutes(api, reservations.NewController(reservationService))
		bookings.RegisterRoutes(api, bookings.NewController(bookingService))
		analytics.RegisterRoutes(api, analytics.NewController(analyticsService))
		r.setupUploadRoutes(api)
	}

	r.reaper = reservations.NewReaper(
		reservationService,
		r.config.Ticketing.ReaperInterval,
		r.config.Ticketing.ReaperBatchSize,
		r.log,
	)
	return r.reaper
}

func (r *Router) setupUploadRoutes(rg *gin.RouterGroup) {
	uploader, err := storage.NewLocalUploader(r.config.Upload)
	if err != nil {
		r.log.Error("upload storage unavailable, upload routes disabled", "error", err.Error())
		return
	}
	storage.RegisterRoutes(rg, storage.NewController(uploader))
}

func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketry",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketry",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}
