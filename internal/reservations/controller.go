package reservations

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

// POST /events/:id/reserve
func (ctl *Controller) Reserve(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid event id", gin.H{"kind": apperr.KindValidation})
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := ctl.service.Reserve(c.Request.Context(), eventID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "Tickets reserved successfully", result)
}

// GET /reservations/:reservationId
func (ctl *Controller) Get(c *gin.Context) {
	reservation, err := ctl.service.Get(c.Request.Context(), c.Param("reservationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Reservation retrieved successfully", reservation)
}

// DELETE /reservations/:reservationId
func (ctl *Controller) Release(c *gin.Context) {
	if err := ctl.service.Release(c.Request.Context(), c.Param("reservationId")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Reservation released successfully", nil)
}
