package events

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

func eventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid event id", gin.H{"kind": apperr.KindValidation})
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "system"
}

// POST /events
func (ctl *Controller) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	event, err := ctl.service.Create(c.Request.Context(), req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	codes := make([]string, 0, len(event.PromoCodes))
	for i := range event.PromoCodes {
		codes = append(codes, event.PromoCodes[i].Code)
	}
	response.OK(c, http.StatusCreated, "Event created successfully", gin.H{
		"eventId":             event.ID.String(),
		"event":               event,
		"generatedPromoCodes": codes,
	})
}

// GET /events
func (ctl *Controller) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	resp, err := ctl.service.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Events retrieved successfully", resp)
}

// GET /events/categories
func (ctl *Controller) Categories(c *gin.Context) {
	categories, err := ctl.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Categories retrieved successfully", gin.H{"categories": categories})
}

// GET /events/:id
func (ctl *Controller) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, err := ctl.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Event retrieved successfully", event)
}

// PUT /events/:id
func (ctl *Controller) Update(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	event, err := ctl.service.Update(c.Request.Context(), id, req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Event updated successfully", event)
}

// DELETE /events/:id
func (ctl *Controller) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := ctl.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Event deleted successfully", nil)
}

// POST /events/:id/publish
func (ctl *Controller) Publish(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	result, err := ctl.service.Publish(c.Request.Context(), id)
	if err != nil {
		if result != nil && len(result.Errors) > 0 {
			response.Fail(c, http.StatusBadRequest, "event is not ready to publish", result.Errors)
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Event published successfully", result)
}

// POST /events/:id/unpublish
func (ctl *Controller) Unpublish(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := ctl.service.Unpublish(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Event unpublished successfully", nil)
}

// POST /events/:id/check-availability
func (ctl *Controller) CheckAvailability(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := ctl.service.CheckAvailability(c.Request.Context(), id, req)
	if err != nil {
		// The oracle answers "no" in the body rather than failing the
		// request, so clients get the reason with a 200.
		kind := apperr.KindOf(err)
		switch kind {
		case apperr.KindEventNotFound, apperr.KindInternal, apperr.KindContention:
			response.Error(c, err)
		default:
			response.OK(c, http.StatusOK, "Tickets are not available", AvailabilityResponse{
				Available:  false,
				Reason:     string(kind),
				TicketType: req.TicketType,
				Quantity:   req.Quantity,
			})
		}
		return
	}
	response.OK(c, http.StatusOK, "Tickets are available", result)
}

// GET /events/:id/seatmap
func (ctl *Controller) SeatMap(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	sm, err := ctl.service.GetSeatMap(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Seat map retrieved successfully", sm)
}

// POST /events/:id/holds
func (ctl *Controller) AddAdminHold(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req AddAdminHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	hold, err := ctl.service.AddAdminHold(c.Request.Context(), id, req, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "Seat held successfully", hold)
}

// POST /events/:id/promo-codes
func (ctl *Controller) AddPromoCode(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req AddPromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	promo, err := ctl.service.AddPromoCode(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "Promo code added successfully", promo)
}

// GET /events/:id/promo-codes
func (ctl *Controller) ListPromoCodes(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	resp, err := ctl.service.ListPromoCodes(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Promo codes retrieved successfully", resp)
}
