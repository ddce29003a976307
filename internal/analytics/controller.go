package analytics

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

// GET /events/:id/analytics
func (ctl *Controller) EventReport(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid event id", gin.H{"kind": apperr.KindValidation})
		return
	}

	report, err := ctl.service.EventReport(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Analytics retrieved successfully", report)
}
