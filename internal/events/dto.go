package events

import (
	"time"
)

// CreateEventRequest carries the admin-facing event creation payload.
// Ticket types and seating are optional; defaults mirror a small demo
// venue when omitted.
type CreateEventRequest struct {
	Title            string  `json:"title" binding:"required,min=3,max=200"`
	ShortDescription string  `json:"shortDescription" binding:"max=300"`
	FullDescription  string  `json:"fullDescription"`
	Category         string  `json:"category" binding:"required"`
	EventType        string  `json:"eventType"`
	Mode             string  `json:"mode" binding:"omitempty,oneof=online offline hybrid"`
	Language         string  `json:"language"`
	VenueName        string  `json:"venueName"`
	Address          string  `json:"address"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	Country          string  `json:"country"`
	PinCode          string  `json:"pinCode"`
	Longitude        float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Latitude         float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`

	StartDate            time.Time  `json:"startDate" binding:"required"`
	EndDate              time.Time  `json:"endDate" binding:"required"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`

	BannerImage    string   `json:"bannerImage"`
	ThumbnailImage string   `json:"thumbnailImage"`
	GalleryImages  []string `json:"galleryImages"`

	SeatingConfig *SeatingConfig           `json:"seatingConfig"`
	TicketTypes   []CreateTicketTypeInput  `json:"ticketTypes" binding:"omitempty,dive"`
	PromoSettings *CreatePromoCodeSettings `json:"promoSettings"`
}

type CreateTicketTypeInput struct {
	Name              string     `json:"name" binding:"required"`
	Description       string     `json:"description"`
	Price             float64    `json:"price" binding:"min=0"`
	Currency          string     `json:"currency"`
	TotalQuantity     int        `json:"totalQuantity" binding:"required,min=1"`
	MaxPerUser        int        `json:"maxPerUser" binding:"omitempty,min=1"`
	SaleStartDate     *time.Time `json:"saleStartDate"`
	SaleEndDate       *time.Time `json:"saleEndDate"`
	Zone              Zone       `json:"seatType" binding:"omitempty,oneof=front middle back general"`
	RequiresPromoCode bool       `json:"requiresPromoCode"`
}

// CreatePromoCodeSettings controls the auto-generated code pool for
// promo-gated ticket types at creation time.
type CreatePromoCodeSettings struct {
	Count         int      `json:"count" binding:"omitempty,min=1,max=500"`
	DiscountType  string   `json:"discountType" binding:"omitempty,oneof=percentage fixed"`
	DiscountValue float64  `json:"discountValue" binding:"omitempty,min=0"`
	ValidDays     int      `json:"validDays" binding:"omitempty,min=1"`
	TicketTypes   []string `json:"ticketTypes"`
}

type UpdateEventRequest struct {
	Title            *string  `json:"title" binding:"omitempty,min=3,max=200"`
	ShortDescription *string  `json:"shortDescription" binding:"omitempty,max=300"`
	FullDescription  *string  `json:"fullDescription"`
	Category         *string  `json:"category"`
	EventType        *string  `json:"eventType"`
	Mode             *string  `json:"mode" binding:"omitempty,oneof=online offline hybrid"`
	Language         *string  `json:"language"`
	VenueName        *string  `json:"venueName"`
	Address          *string  `json:"address"`
	City             *string  `json:"city"`
	State            *string  `json:"state"`
	Country          *string  `json:"country"`
	PinCode          *string  `json:"pinCode"`
	Longitude        *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Latitude         *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`

	StartDate            *time.Time `json:"startDate"`
	EndDate              *time.Time `json:"endDate"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`

	BannerImage    *string  `json:"bannerImage"`
	ThumbnailImage *string  `json:"thumbnailImage"`
	GalleryImages  []string `json:"galleryImages"`

	IsFeatured *bool `json:"isFeatured"`
}

// ListQuery captures the public catalogue filters. Near is "lng,lat"
// paired with RadiusKm.
type ListQuery struct {
	Search    string     `form:"search"`
	City      string     `form:"city"`
	State     string     `form:"state"`
	Country   string     `form:"country"`
	Category  string     `form:"category"`
	EventType string     `form:"eventType"`
	Mode      string     `form:"mode"`
	Status    string     `form:"status"`
	DateFrom  *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo    *time.Time `form:"dateTo" time_format:"2006-01-02"`
	MinPrice  *float64   `form:"minPrice"`
	MaxPrice  *float64   `form:"maxPrice"`
	Near      string     `form:"near"`
	RadiusKm  float64    `form:"radius"`
	SortBy    string     `form:"sortBy"`
	SortOrder string     `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	Limit     int        `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.SortBy == "" {
		q.SortBy = "start_date"
	}
	if q.SortOrder == "" {
		q.SortOrder = "asc"
	}
}

type ListResponse struct {
	Events     []EventSummary `json:"events"`
	Pagination Pagination     `json:"pagination"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// EventSummary is the catalogue card: no promo pool, no holds.
type EventSummary struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	ShortDescription string      `json:"shortDescription"`
	Category         string      `json:"category"`
	EventType        string      `json:"eventType"`
	Mode             string      `json:"mode"`
	VenueName        string      `json:"venueName"`
	City             string      `json:"city"`
	Country          string      `json:"country"`
	StartDate        time.Time   `json:"startDate"`
	EndDate          time.Time   `json:"endDate"`
	ThumbnailImage   string      `json:"thumbnailImage"`
	Status           EventStatus `json:"status"`
	IsFeatured       bool        `json:"isFeatured"`
	IsSoldOut        bool        `json:"isSoldOut"`
	MinPrice         float64     `json:"minPrice"`
	MaxPrice         float64     `json:"maxPrice"`
	TotalViews       int64       `json:"totalViews"`
}

func summarize(e *Event) EventSummary {
	var minPrice, maxPrice float64
	for i, t := range e.TicketTypes {
		if i == 0 || t.Price < minPrice {
			minPrice = t.Price
		}
		if t.Price > maxPrice {
			maxPrice = t.Price
		}
	}
	return EventSummary{
		ID:               e.ID.String(),
		Title:            e.Title,
		ShortDescription: e.ShortDescription,
		Category:         e.Category,
		EventType:        e.EventType,
		Mode:             e.Mode,
		VenueName:        e.VenueName,
		City:             e.City,
		Country:          e.Country,
		StartDate:        e.StartDate,
		EndDate:          e.EndDate,
		ThumbnailImage:   e.ThumbnailImage,
		Status:           e.Status,
		IsFeatured:       e.IsFeatured,
		IsSoldOut:        e.IsSoldOut,
		MinPrice:         minPrice,
		MaxPrice:         maxPrice,
		TotalViews:       e.TotalViews,
	}
}

// PublicEvent is the detail view served to callers without the admin
// role. Promo codes and holds never leave the server; only aggregate
// promo stats are exposed.
type PublicEvent struct {
	Event
	PromoCodes PromoStats  `json:"promoCodes"`
	AdminHolds interface{} `json:"adminHolds,omitempty"`
}

type PromoStats struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Available int `json:"available"`
}

func (e *Event) PromoStats() PromoStats {
	used := 0
	for i := range e.PromoCodes {
		if e.PromoCodes[i].IsUsed {
			used++
		}
	}
	return PromoStats{
		Total:     len(e.PromoCodes),
		Used:      used,
		Available: len(e.PromoCodes) - used,
	}
}

// Sanitize strips sensitive collections for public consumption.
func (e *Event) Sanitize() PublicEvent {
	clone := *e
	clone.PromoCodes = nil
	clone.AdminHolds = nil
	return PublicEvent{
		Event:      clone,
		PromoCodes: e.PromoStats(),
	}
}

// AvailabilityRequest is the read-only oracle query.
type AvailabilityRequest struct {
	TicketType string `form:"ticketType" json:"ticketType" binding:"required"`
	Quantity   int    `form:"quantity" json:"quantity" binding:"required,min=1"`
	PromoCode  string `form:"promoCode" json:"promoCode" binding:"omitempty,promocode"`
}

type AvailabilityResponse struct {
	Available      bool     `json:"available"`
	Reason         string   `json:"reason,omitempty"`
	TicketType     string   `json:"ticketType"`
	Quantity       int      `json:"quantity"`
	ProjectedSeats []string `json:"projectedSeats,omitempty"`
	UnitPrice      float64  `json:"unitPrice"`
	Subtotal       float64  `json:"subtotal"`
	Discount       float64  `json:"discount"`
	Total          float64  `json:"total"`
}

type AddAdminHoldRequest struct {
	SeatNumber   string `json:"seatNumber" binding:"required"`
	TicketType   string `json:"ticketType"`
	ReservedFor  string `json:"reservedFor" binding:"required"`
	ContactEmail string `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone string `json:"contactPhone"`
	Notes        string `json:"notes"`
}

type AddPromoCodeRequest struct {
	Code                  string     `json:"code" binding:"required,min=4,max=20,promocode"`
	Description           string     `json:"description"`
	DiscountType          string     `json:"discountType" binding:"required,oneof=percentage fixed"`
	DiscountValue         float64    `json:"discountValue" binding:"min=0"`
	MaxUses               int        `json:"maxUses" binding:"omitempty,min=1"`
	ValidFrom             *time.Time `json:"validFrom"`
	ValidUntil            *time.Time `json:"validUntil"`
	ApplicableTicketTypes []string   `json:"applicableTicketTypes"`
}

type PromoCodeListResponse struct {
	AvailableCodes []PromoCode `json:"availableCodes"`
	UsedCodes      []PromoCode `json:"usedCodes"`
	Stats          PromoStats  `json:"stats"`
}

type PublishResult struct {
	Published bool     `json:"published"`
	Errors    []string `json:"errors,omitempty"`
}
