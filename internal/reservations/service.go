package reservations

import (
	"context"
	"time"

	"ticketry/internal/events"
	"ticketry/internal/shared/apperr"
	"ticketry/pkg/logger"

	"github.com/google/uuid"
)

// BookingLookup answers whether inventory artifacts are already owned
// by a confirmed booking. Implemented by the bookings repository and
// injected at wiring time to keep the dependency one-way.
type BookingLookup interface {
	ExistsForReservation(ctx context.Context, reservationID string) (bool, error)
	ExistsForPromoCode(ctx context.Context, eventID uuid.UUID, code string) (bool, error)
}

// ExpiryNotifier is told when the reaper releases a reservation, so the
// holder can be emailed. Implementations must not block.
type ExpiryNotifier interface {
	ReservationExpired(ctx context.Context, r *Reservation)
}

// CacheInvalidator drops cached event projections after an inventory
// mutation. Satisfied by the events service.
type CacheInvalidator interface {
	InvalidateCaches(ctx context.Context, id uuid.UUID)
}

type UserInfo struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	Phone  string `json:"phone"`
	UserID string `json:"userId"`
}

type ReserveRequest struct {
	TicketType string   `json:"ticketType" binding:"required"`
	Quantity   int      `json:"quantity" binding:"required,min=1"`
	PromoCode  string   `json:"promoCode" binding:"omitempty,promocode"`
	UserInfo   UserInfo `json:"userInfo" binding:"required"`
}

type ReserveResponse struct {
	Reservation *Reservation `json:"reservation"`
	// Seconds until expiry at response time, for client countdowns.
	ExpiresInSeconds int `json:"expiresInSeconds"`
}

type Service interface {
	Reserve(ctx context.Context, eventID uuid.UUID, req ReserveRequest) (*ReserveResponse, error)
	Get(ctx context.Context, reservationID string) (*Reservation, error)
	Release(ctx context.Context, reservationID string) error

	SetBookingLookup(lookup BookingLookup)
	SetExpiryNotifier(n ExpiryNotifier)
}

type service struct {
	repo        Repository
	eventRepo   events.Repository
	invalidator CacheInvalidator
	bookings    BookingLookup
	notifier    ExpiryNotifier
	ttl         time.Duration
	log         *logger.Logger
}

func NewService(repo Repository, eventRepo events.Repository, invalidator CacheInvalidator, ttl time.Duration, log *logger.Logger) Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		repo:        repo,
		eventRepo:   eventRepo,
		invalidator: invalidator,
		ttl:         ttl,
		log:         log,
	}
}

func (s *service) SetBookingLookup(lookup BookingLookup) {
	s.bookings = lookup
}

func (s *service) SetExpiryNotifier(n ExpiryNotifier) {
	s.notifier = n
}

// Reserve allocates seats and takes a timed hold on them. All inventory
// checks and mutations happen under the event row lock, so two callers
// racing for the last seat serialize and exactly one succeeds.
func (s *service) Reserve(ctx context.Context, eventID uuid.UUID, req ReserveRequest) (*ReserveResponse, error) {
	now := time.Now().UTC()
	reservationID := NewReservationID(now)

	var reservation *Reservation
	err := s.eventRepo.Transact(ctx, eventID, func(event *events.Event) error {
		if !event.IsPublished || event.Status != events.StatusPublished {
			return apperr.New(apperr.KindValidation, "event is not open for booking")
		}
		if event.RegistrationDeadline != nil && now.After(*event.RegistrationDeadline) {
			return apperr.New(apperr.KindValidation, "registration deadline has passed")
		}

		check, err := events.CheckAvailability(event, events.AvailabilityRequest{
			TicketType: req.TicketType,
			Quantity:   req.Quantity,
			PromoCode:  req.PromoCode,
		}, now)
		if err != nil {
			return err
		}

		tt := event.FindTicketType(req.TicketType)
		tt.ReservedQuantity += req.Quantity

		var boundCode *string
		if req.PromoCode != "" {
			promo := event.FindPromoCode(req.PromoCode)
			events.BindPromo(promo, reservationID, check.ProjectedSeats[0], now)
			boundCode = &promo.Code
		}

		reservation = &Reservation{
			ID:         reservationID,
			EventID:    eventID,
			TicketType: tt.Name,
			Quantity:   req.Quantity,
			Seats:      check.ProjectedSeats,
			Zone:       string(tt.Zone),
			PromoCode:  boundCode,
			UserName:   req.UserInfo.Name,
			UserEmail:  req.UserInfo.Email,
			UserPhone:  req.UserInfo.Phone,
			UserID:     req.UserInfo.UserID,
			UnitPrice:  check.UnitPrice,
			Subtotal:   check.Subtotal,
			Discount:   check.Discount,
			Total:      check.Total,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.ttl),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, reservation); err != nil {
		// Roll the hold back so the seats do not leak until the event
		// date. Best effort; counters self-heal only through this path.
		if rbErr := s.rollbackHold(ctx, reservation); rbErr != nil {
			s.log.ErrorWithContext(ctx, "failed to roll back orphaned hold", rbErr, map[string]interface{}{
				"reservation_id": reservation.ID,
				"event_id":       eventID.String(),
			})
		}
		return nil, err
	}

	s.invalidate(ctx, eventID)
	s.log.LogReservationCreated(ctx, reservation.ID, eventID.String(), reservation.TicketType, reservation.Quantity)

	return &ReserveResponse{
		Reservation:      reservation,
		ExpiresInSeconds: int(s.ttl.Seconds()),
	}, nil
}

func (s *service) Get(ctx context.Context, reservationID string) (*Reservation, error) {
	return s.repo.GetByID(ctx, reservationID)
}

// Release cancels a live reservation and returns its inventory. The
// reservation row delete is the idempotency guard: whoever wins the
// delete owns the rollback, so a racing reaper and an explicit cancel
// never double-release.
func (s *service) Release(ctx context.Context, reservationID string) error {
	reservation, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}

	won, err := s.repo.DeleteByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if !won {
		return apperr.New(apperr.KindReservationNotFound, "reservation not found")
	}

	if err := s.rollbackHold(ctx, reservation); err != nil {
		return err
	}

	s.invalidate(ctx, reservation.EventID)
	s.log.LogReservationReleased(ctx, reservation.ID, reservation.EventID.String(), "cancelled")
	return nil
}

// rollbackHold returns reserved quantity to the pool and un-binds the
// promo code, provided this reservation is still the binder and no
// booking has consumed the code.
func (s *service) rollbackHold(ctx context.Context, reservation *Reservation) error {
	return s.eventRepo.Transact(ctx, reservation.EventID, func(event *events.Event) error {
		if tt := event.FindTicketType(reservation.TicketType); tt != nil {
			tt.ReservedQuantity -= reservation.Quantity
			if tt.ReservedQuantity < 0 {
				tt.ReservedQuantity = 0
			}
		}

		if reservation.PromoCode == nil {
			return nil
		}
		promo := event.FindPromoCode(*reservation.PromoCode)
		if promo == nil {
			return nil
		}
		if s.bookings != nil {
			consumed, err := s.bookings.ExistsForPromoCode(ctx, reservation.EventID, promo.Code)
			if err != nil || consumed {
				return err
			}
		}
		events.UnbindPromo(promo, reservation.ID)
		return nil
	})
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateCaches(ctx, id)
	}
}
