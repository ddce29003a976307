package bookings

import (
	"net/http"

	"ticketry/internal/shared/apperr"
	"ticketry/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// POST /events/:id/confirm-booking
func (ctl *Controller) Confirm(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid event id", gin.H{"kind": apperr.KindValidation})
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	booking, err := ctl.service.Confirm(c.Request.Context(), eventID, req, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "Booking confirmed successfully", booking)
}

// GET /bookings/:bookingId
func (ctl *Controller) Get(c *gin.Context) {
	booking, err := ctl.service.Get(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Booking retrieved successfully", booking)
}

// GET /events/:id/bookings
func (ctl *Controller) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid event id", gin.H{"kind": apperr.KindValidation})
		return
	}

	list, err := ctl.service.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Bookings retrieved successfully", gin.H{
		"bookings": list,
		"count":    len(list),
	})
}

// GET /bookings?email=...
func (ctl *Controller) ListByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Fail(c, http.StatusBadRequest, "email query parameter is required", nil)
		return
	}

	list, err := ctl.service.ListByEmail(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Bookings retrieved successfully", gin.H{
		"bookings": list,
		"count":    len(list),
	})
}

// POST /bookings/:bookingId/cancel
func (ctl *Controller) Cancel(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	booking, err := ctl.service.Cancel(c.Request.Context(), c.Param("bookingId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Booking cancelled successfully", booking)
}

// POST /bookings/:bookingId/check-in
func (ctl *Controller) CheckIn(c *gin.Context) {
	actor := "staff"
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			actor = s
		}
	}

	booking, err := ctl.service.CheckIn(c.Request.Context(), c.Param("bookingId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Checked in successfully", booking)
}
