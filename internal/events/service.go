package events

import (
	"context"
	"fmt"
	"time"

	"ticketry/internal/shared/apperr"
	"ticketry/internal/shared/constants"
	"ticketry/pkg/cache"
	"ticketry/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	Create(ctx context.Context, req CreateEventRequest, createdBy string) (*Event, error)
	Get(ctx context.Context, id uuid.UUID) (*PublicEvent, error)
	GetRaw(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, q ListQuery) (*ListResponse, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest, updatedBy string) (*Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Publish(ctx context.Context, id uuid.UUID) (*PublishResult, error)
	Unpublish(ctx context.Context, id uuid.UUID) error

	CheckAvailability(ctx context.Context, id uuid.UUID, req AvailabilityRequest) (*AvailabilityResponse, error)
	GetSeatMap(ctx context.Context, id uuid.UUID) (*SeatMap, error)
	AddAdminHold(ctx context.Context, id uuid.UUID, req AddAdminHoldRequest, actor string) (*AdminHold, error)
	AddPromoCode(ctx context.Context, id uuid.UUID, req AddPromoCodeRequest) (*PromoCode, error)
	ListPromoCodes(ctx context.Context, id uuid.UUID) (*PromoCodeListResponse, error)

	// InvalidateCaches drops every cached projection of the event. The
	// reservation and booking flows call it after mutating inventory.
	InvalidateCaches(ctx context.Context, id uuid.UUID)
}

type service struct {
	repo  Repository
	cache cache.Service
	log   *logger.Logger
}

func NewService(repo Repository, cacheService cache.Service, log *logger.Logger) Service {
	return &service{repo: repo, cache: cacheService, log: log}
}

// Defaults applied when an event is created without explicit ticket
// types: a small paid tier up front and a promo-gated tier in the back,
// with one single-use full-discount code per gated ticket.
const (
	defaultPaidTicketName = "Paid Ticket"
	defaultCodeTicketName = "Code Ticket"
	defaultPaidQuantity   = 15
	defaultCodeQuantity   = 15
	defaultPaidPrice      = 500
	defaultMaxPerUser     = 5
)

func (s *service) Create(ctx context.Context, req CreateEventRequest, createdBy string) (*Event, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, apperr.New(apperr.KindValidation, "endDate must be after startDate")
	}

	now := time.Now().UTC()
	event := &Event{
		ID:                   uuid.New(),
		Title:                req.Title,
		ShortDescription:     req.ShortDescription,
		FullDescription:      req.FullDescription,
		Category:             req.Category,
		EventType:            req.EventType,
		Mode:                 req.Mode,
		Language:             req.Language,
		VenueName:            req.VenueName,
		Address:              req.Address,
		City:                 req.City,
		State:                req.State,
		Country:              req.Country,
		PinCode:              req.PinCode,
		Longitude:            req.Longitude,
		Latitude:             req.Latitude,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RegistrationDeadline: req.RegistrationDeadline,
		BannerImage:          req.BannerImage,
		ThumbnailImage:       req.ThumbnailImage,
		GalleryImages:        req.GalleryImages,
		Status:               StatusDraft,
		CreatedBy:            createdBy,
		UpdatedBy:            createdBy,
	}
	if req.Mode == "" {
		event.Mode = "offline"
	}

	if req.SeatingConfig != nil {
		event.SeatingConfig = *req.SeatingConfig
	} else {
		event.SeatingConfig = DefaultSeatingConfig()
	}
	if err := validateSeatingConfig(event.SeatingConfig); err != nil {
		return nil, err
	}

	if len(req.TicketTypes) > 0 {
		event.TicketTypes = make(TicketTypes, 0, len(req.TicketTypes))
		for _, in := range req.TicketTypes {
			if event.FindTicketType(in.Name) != nil {
				return nil, apperr.Newf(apperr.KindValidation, "duplicate ticket type %q", in.Name)
			}
			event.TicketTypes = append(event.TicketTypes, newTicketType(in))
		}
	} else {
		event.TicketTypes = defaultTicketTypes()
	}

	capacity := event.SeatingConfig.TotalRows * event.SeatingConfig.SeatsPerRow
	totalTickets := 0
	for i := range event.TicketTypes {
		totalTickets += event.TicketTypes[i].TotalQuantity
	}
	if totalTickets > capacity {
		return nil, apperr.Newf(apperr.KindValidation,
			"ticket quantities (%d) exceed venue capacity (%d)", totalTickets, capacity)
	}

	// One single-use code per gated ticket unless the caller asked for
	// a specific pool size.
	gated := gatedTicketTypes(event)
	if len(gated) > 0 {
		settings := CreatePromoCodeSettings{TicketTypes: gated}
		count := 0
		for i := range event.TicketTypes {
			if event.TicketTypes[i].RequiresPromoCode {
				count += event.TicketTypes[i].TotalQuantity
			}
		}
		if req.PromoSettings != nil {
			settings = *req.PromoSettings
			if len(settings.TicketTypes) == 0 {
				settings.TicketTypes = gated
			}
			if settings.Count > 0 {
				count = settings.Count
			}
		}
		codes, err := GeneratePromoCodes(event, count, settings, now)
		if err != nil {
			return nil, err
		}
		event.PromoCodes = codes
	}

	event.RecomputeDerived()
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.invalidateListings(ctx)
	s.log.InfoWithContext(ctx, "Event Created", map[string]interface{}{
		"event_id":    event.ID.String(),
		"title":       event.Title,
		"promo_codes": len(event.PromoCodes),
	})
	return event, nil
}

func newTicketType(in CreateTicketTypeInput) TicketType {
	t := TicketType{
		Name:              in.Name,
		Description:       in.Description,
		Price:             in.Price,
		Currency:          in.Currency,
		TotalQuantity:     in.TotalQuantity,
		MaxPerUser:        in.MaxPerUser,
		IsActive:          true,
		SaleStartDate:     in.SaleStartDate,
		SaleEndDate:       in.SaleEndDate,
		Zone:              in.Zone,
		RequiresPromoCode: in.RequiresPromoCode,
	}
	if t.Currency == "" {
		t.Currency = "INR"
	}
	if t.Zone == "" {
		t.Zone = ZoneGeneral
	}
	if t.MaxPerUser <= 0 {
		if t.RequiresPromoCode {
			t.MaxPerUser = 1
		} else {
			t.MaxPerUser = defaultMaxPerUser
		}
	}
	if t.RequiresPromoCode {
		t.Price = 0
	}
	t.Recompute()
	return t
}

func defaultTicketTypes() TicketTypes {
	paid := newTicketType(CreateTicketTypeInput{
		Name:          defaultPaidTicketName,
		Description:   "Standard paid admission",
		Price:         defaultPaidPrice,
		TotalQuantity: defaultPaidQuantity,
		Zone:          ZoneFront,
	})
	code := newTicketType(CreateTicketTypeInput{
		Name:              defaultCodeTicketName,
		Description:       "Complimentary admission, promo code required",
		TotalQuantity:     defaultCodeQuantity,
		Zone:              ZoneBack,
		RequiresPromoCode: true,
	})
	return TicketTypes{paid, code}
}

func gatedTicketTypes(e *Event) []string {
	var names []string
	for i := range e.TicketTypes {
		if e.TicketTypes[i].RequiresPromoCode {
			names = append(names, e.TicketTypes[i].Name)
		}
	}
	return names
}

func validateSeatingConfig(sc SeatingConfig) error {
	if sc.TotalRows < 1 || sc.SeatsPerRow < 1 {
		return apperr.New(apperr.KindValidation, "seating config must have at least one row and one seat per row")
	}
	if sc.TotalRows > 26 {
		return apperr.New(apperr.KindValidation, "seating config supports at most 26 rows")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PublicEvent, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// View counting is best effort and bypasses the cached copy.
	if err := s.repo.IncrementViews(ctx, id); err == nil {
		event.TotalViews++
	}

	view := event.Sanitize()
	return &view, nil
}

func (s *service) GetRaw(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) (*ListResponse, error) {
	q.Normalize()

	build := func() (*ListResponse, error) {
		events, total, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		summaries := make([]EventSummary, 0, len(events))
		for i := range events {
			summaries = append(summaries, summarize(&events[i]))
		}
		totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
		return &ListResponse{
			Events: summaries,
			Pagination: Pagination{
				Page:       q.Page,
				Limit:      q.Limit,
				Total:      total,
				TotalPages: totalPages,
			},
		}, nil
	}

	// Only unfiltered catalogue pages are cached; filtered queries have
	// too many key permutations to be worth it.
	if !cacheableListQuery(q) || s.cache == nil {
		return build()
	}

	key := constants.BuildEventListKey(q.Page, q.Limit, q.Status, q.City)
	var resp ListResponse
	err := s.cache.GetOrSet(ctx, key, constants.TTL_EVENT_LIST, func() (interface{}, error) {
		return build()
	}, &resp)
	if err != nil {
		return build()
	}
	return &resp, nil
}

func cacheableListQuery(q ListQuery) bool {
	return q.Search == "" && q.Category == "" && q.EventType == "" &&
		q.Mode == "" && q.DateFrom == nil && q.DateTo == nil &&
		q.MinPrice == nil && q.MaxPrice == nil && q.Near == "" &&
		q.State == "" && q.Country == ""
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest, updatedBy string) (*Event, error) {
	var updated *Event
	err := s.repo.Transact(ctx, id, func(event *Event) error {
		applyUpdate(event, req)
		event.UpdatedBy = updatedBy
		if !event.EndDate.After(event.StartDate) {
			return apperr.New(apperr.KindValidation, "endDate must be after startDate")
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateEvent(ctx, id)
	return updated, nil
}

func applyUpdate(e *Event, req UpdateEventRequest) {
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.ShortDescription != nil {
		e.ShortDescription = *req.ShortDescription
	}
	if req.FullDescription != nil {
		e.FullDescription = *req.FullDescription
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.EventType != nil {
		e.EventType = *req.EventType
	}
	if req.Mode != nil {
		e.Mode = *req.Mode
	}
	if req.Language != nil {
		e.Language = *req.Language
	}
	if req.VenueName != nil {
		e.VenueName = *req.VenueName
	}
	if req.Address != nil {
		e.Address = *req.Address
	}
	if req.City != nil {
		e.City = *req.City
	}
	if req.State != nil {
		e.State = *req.State
	}
	if req.Country != nil {
		e.Country = *req.Country
	}
	if req.PinCode != nil {
		e.PinCode = *req.PinCode
	}
	if req.Longitude != nil {
		e.Longitude = *req.Longitude
	}
	if req.Latitude != nil {
		e.Latitude = *req.Latitude
	}
	if req.StartDate != nil {
		e.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		e.EndDate = *req.EndDate
	}
	if req.RegistrationDeadline != nil {
		e.RegistrationDeadline = req.RegistrationDeadline
	}
	if req.BannerImage != nil {
		e.BannerImage = *req.BannerImage
	}
	if req.ThumbnailImage != nil {
		e.ThumbnailImage = *req.ThumbnailImage
	}
	if req.GalleryImages != nil {
		e.GalleryImages = req.GalleryImages
	}
	if req.IsFeatured != nil {
		e.IsFeatured = *req.IsFeatured
	}
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.TotalBookings > 0 {
		return apperr.New(apperr.KindValidation, "events with bookings cannot be deleted, cancel instead")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateEvent(ctx, id)
	return nil
}

func (s *service) Publish(ctx context.Context, id uuid.UUID) (*PublishResult, error) {
	var result PublishResult
	err := s.repo.Transact(ctx, id, func(event *Event) error {
		var problems []string
		if event.Title == "" {
			problems = append(problems, "title is required")
		}
		if len(event.TicketTypes) == 0 {
			problems = append(problems, "at least one ticket type is required")
		}
		if event.StartDate.Before(time.Now().UTC()) {
			problems = append(problems, "startDate must be in the future")
		}
		if event.Mode != "online" && event.VenueName == "" {
			problems = append(problems, "venueName is required for offline events")
		}
		if len(problems) > 0 {
			result = PublishResult{Published: false, Errors: problems}
			return apperr.New(apperr.KindValidation, "event is not ready to publish")
		}
		event.Status = StatusPublished
		event.IsPublished = true
		result = PublishResult{Published: true}
		return nil
	})
	if err != nil {
		if len(result.Errors) > 0 {
			return &result, err
		}
		return nil, err
	}
	s.invalidateEvent(ctx, id)
	return &result, nil
}

func (s *service) Unpublish(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Transact(ctx, id, func(event *Event) error {
		event.Status = StatusDraft
		event.IsPublished = false
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateEvent(ctx, id)
	return nil
}

func (s *service) CheckAvailability(ctx context.Context, id uuid.UUID, req AvailabilityRequest) (*AvailabilityResponse, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return CheckAvailability(event, req, time.Now().UTC())
}

func (s *service) GetSeatMap(ctx context.Context, id uuid.UUID) (*SeatMap, error) {
	build := func() (*SeatMap, error) {
		event, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return BuildSeatMap(event), nil
	}

	if s.cache == nil {
		return build()
	}
	var sm SeatMap
	key := constants.BuildEventSeatMapKey(id.String())
	err := s.cache.GetOrSet(ctx, key, constants.TTL_EVENT_SEATMAP, func() (interface{}, error) {
		return build()
	}, &sm)
	if err != nil {
		return build()
	}
	return &sm, nil
}

func (s *service) AddAdminHold(ctx context.Context, id uuid.UUID, req AddAdminHoldRequest, actor string) (*AdminHold, error) {
	var hold AdminHold
	err := s.repo.Transact(ctx, id, func(event *Event) error {
		if !validSeat(event.SeatingConfig, req.SeatNumber) {
			return apperr.Newf(apperr.KindValidation, "seat %q does not exist in this venue", req.SeatNumber)
		}
		if event.HoldOnSeat(req.SeatNumber) != nil {
			return apperr.Newf(apperr.KindSeatTaken, "seat %s is already held", req.SeatNumber)
		}
		hold = AdminHold{
			SeatNumber:   req.SeatNumber,
			TicketType:   req.TicketType,
			ReservedFor:  req.ReservedFor,
			ContactEmail: req.ContactEmail,
			ContactPhone: req.ContactPhone,
			Notes:        req.Notes,
			IsOccupied:   false,
			ReservedBy:   actor,
			ReservedAt:   time.Now().UTC(),
		}
		event.AdminHolds = append(event.AdminHolds, hold)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateEvent(ctx, id)
	return &hold, nil
}

func validSeat(sc SeatingConfig, seatNumber string) bool {
	for row := 1; row <= sc.TotalRows; row++ {
		for seat := 1; seat <= sc.SeatsPerRow; seat++ {
			if SeatID(row, seat) == seatNumber {
				return true
			}
		}
	}
	return false
}

func (s *service) AddPromoCode(ctx context.Context, id uuid.UUID, req AddPromoCodeRequest) (*PromoCode, error) {
	var promo PromoCode
	err := s.repo.Transact(ctx, id, func(event *Event) error {
		code := NormalizeCode(req.Code)
		if event.FindPromoCode(code) != nil {
			return apperr.Newf(apperr.KindDuplicatePromo, "promo code %s already exists", code)
		}

		now := time.Now().UTC()
		validFrom := now
		if req.ValidFrom != nil {
			validFrom = *req.ValidFrom
		}
		validUntil := now.AddDate(0, 0, promoDefaultDays)
		if req.ValidUntil != nil {
			validUntil = *req.ValidUntil
		}
		if !validUntil.After(validFrom) {
			return apperr.New(apperr.KindValidation, "validUntil must be after validFrom")
		}
		maxUses := req.MaxUses
		if maxUses <= 0 {
			maxUses = promoDefaultUses
		}

		promo = PromoCode{
			Code:                  code,
			Description:           req.Description,
			DiscountType:          req.DiscountType,
			DiscountValue:         req.DiscountValue,
			MaxUses:               maxUses,
			IsActive:              true,
			ValidFrom:             validFrom,
			ValidUntil:            validUntil,
			ApplicableTicketTypes: req.ApplicableTicketTypes,
		}
		event.PromoCodes = append(event.PromoCodes, promo)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateEvent(ctx, id)
	return &promo, nil
}

func (s *service) ListPromoCodes(ctx context.Context, id uuid.UUID) (*PromoCodeListResponse, error) {
	build := func() (*PromoCodeListResponse, error) {
		event, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		resp := &PromoCodeListResponse{
			AvailableCodes: []PromoCode{},
			UsedCodes:      []PromoCode{},
			Stats:          event.PromoStats(),
		}
		for i := range event.PromoCodes {
			if event.PromoCodes[i].IsUsed {
				resp.UsedCodes = append(resp.UsedCodes, event.PromoCodes[i])
			} else {
				resp.AvailableCodes = append(resp.AvailableCodes, event.PromoCodes[i])
			}
		}
		return resp, nil
	}

	if s.cache == nil {
		return build()
	}
	var resp PromoCodeListResponse
	key := constants.BuildEventPromosKey(id.String())
	err := s.cache.GetOrSet(ctx, key, constants.TTL_EVENT_PROMOS, func() (interface{}, error) {
		return build()
	}, &resp)
	if err != nil {
		return build()
	}
	return &resp, nil
}

// Cache invalidation after writes. Failures are logged and ignored;
// TTLs bound the staleness window anyway.

func (s *service) InvalidateCaches(ctx context.Context, id uuid.UUID) {
	s.invalidateEvent(ctx, id)
}

func (s *service) invalidateEvent(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	patterns := []string{
		constants.PATTERN_INVALIDATE_EVENT_DETAIL + id.String() + "*",
		constants.BuildEventSeatMapKey(id.String()),
		constants.BuildEventPromosKey(id.String()),
		constants.CACHE_KEY_EVENTS_LIST + "*",
		constants.BuildEventAnalyticsKey(id.String()),
	}
	for _, p := range patterns {
		if err := s.cache.DeletePattern(ctx, p); err != nil {
			s.log.Warn("cache invalidation failed", "pattern", p, "error", fmt.Sprint(err))
		}
	}
}

func (s *service) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, constants.CACHE_KEY_EVENTS_LIST+"*"); err != nil {
		s.log.Warn("cache invalidation failed", "pattern", constants.CACHE_KEY_EVENTS_LIST, "error", fmt.Sprint(err))
	}
}
