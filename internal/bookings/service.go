package bookings

import (
	"context"
	"errors"
	"time"

	"ticketry/internal/events"
	"ticketry/internal/reservations"
	"ticketry/internal/shared/apperr"
	"ticketry/pkg/logger"

	"github.com/google/uuid"
)

const bookingIDAttempts = 5

// CacheInvalidator drops cached event projections after an inventory
// mutation. Satisfied by the events service.
type CacheInvalidator interface {
	InvalidateCaches(ctx context.Context, id uuid.UUID)
}

// Notifier receives booking lifecycle events. Implementations must not
// block; delivery failures never fail the booking itself.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking)
	BookingCancelled(ctx context.Context, b *Booking)
}

// ConfirmRequest finalizes a reservation. Older clients echo the whole
// reservation under reservationData; only its id is consulted, the
// server-side record is authoritative for seats and amounts.
type ConfirmRequest struct {
	ReservationID   string           `json:"reservationId"`
	ReservationData *ReservationData `json:"reservationData"`
	PaymentMethod   string           `json:"paymentMethod" binding:"omitempty,oneof=card upi netbanking wallet cash free"`
	PaymentStatus   string           `json:"paymentStatus" binding:"omitempty,oneof=paid pending failed free"`
	PaymentID       string           `json:"paymentId"`
	BookingSource   string           `json:"bookingSource"`
}

type ReservationData struct {
	ReservationID string `json:"reservationId"`
}

func (r *ConfirmRequest) reservationID() string {
	if r.ReservationID != "" {
		return r.ReservationID
	}
	if r.ReservationData != nil {
		return r.ReservationData.ReservationID
	}
	return ""
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type Service interface {
	Confirm(ctx context.Context, eventID uuid.UUID, req ConfirmRequest, clientIP string) (*Booking, error)
	Get(ctx context.Context, bookingID string) (*Booking, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error)
	ListByEmail(ctx context.Context, email string) ([]Booking, error)
	Cancel(ctx context.Context, bookingID string, req CancelRequest) (*Booking, error)
	CheckIn(ctx context.Context, bookingID string, actor string) (*Booking, error)

	SetNotifier(n Notifier)
}

type service struct {
	repo        Repository
	resRepo     reservations.Repository
	eventRepo   events.Repository
	invalidator CacheInvalidator
	notifier    Notifier
	log         *logger.Logger
}

func NewService(repo Repository, resRepo reservations.Repository, eventRepo events.Repository, invalidator CacheInvalidator, log *logger.Logger) Service {
	return &service{
		repo:        repo,
		resRepo:     resRepo,
		eventRepo:   eventRepo,
		invalidator: invalidator,
		log:         log,
	}
}

func (s *service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Confirm converts a live reservation into a booking: reserved counts
// become sold, the seats get occupied holds, and the durable booking
// row is written once the event mutation has committed. A replay with
// the same reservation id returns the existing booking.
func (s *service) Confirm(ctx context.Context, eventID uuid.UUID, req ConfirmRequest, clientIP string) (*Booking, error) {
	reservationID := req.reservationID()
	if reservationID == "" {
		return nil, apperr.New(apperr.KindValidation, "reservationId is required")
	}

	if existing, err := s.repo.GetByReservationID(ctx, reservationID); err == nil {
		return existing, nil
	} else if !apperr.IsKind(err, apperr.KindBookingNotFound) {
		return nil, err
	}

	reservation, err := s.resRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.EventID != eventID {
		return nil, apperr.New(apperr.KindReservationNotFound, "reservation does not belong to this event")
	}

	now := time.Now().UTC()
	if reservation.Expired(now) {
		return nil, apperr.New(apperr.KindReservationExpired, "reservation has expired, please reserve again")
	}

	err = s.eventRepo.Transact(ctx, eventID, func(event *events.Event) error {
		tt := event.FindTicketType(reservation.TicketType)
		if tt == nil {
			return apperr.Newf(apperr.KindUnknownTicketType, "ticket type %q no longer exists", reservation.TicketType)
		}

		// The event commit and the booking insert are separate writes. A
		// crash between them leaves the seats sold with no booking row, so
		// a replay that finds its own occupied holds skips the mutation and
		// goes straight to the insert.
		if confirmationApplied(event, reservation) {
			return nil
		}

		if reservation.PromoCode != nil {
			promo := event.FindPromoCode(*reservation.PromoCode)
			if promo == nil || !promo.IsUsed || promo.UsedBy == nil || *promo.UsedBy != reservation.ID {
				return apperr.New(apperr.KindPromoInvalidated, "promo code was released before confirmation")
			}
		}

		tt.ReservedQuantity -= reservation.Quantity
		tt.SoldQuantity += reservation.Quantity
		if tt.ReservedQuantity < 0 {
			return apperr.New(apperr.KindInventoryInconsistent, "reserved count fell below zero")
		}

		for _, seat := range reservation.Seats {
			if event.HoldOnSeat(seat) != nil {
				return apperr.Newf(apperr.KindInventoryInconsistent, "seat %s is already occupied", seat)
			}
			event.AdminHolds = append(event.AdminHolds, events.AdminHold{
				SeatNumber:    seat,
				TicketType:    tt.Name,
				ReservedFor:   reservation.UserName,
				ContactEmail:  reservation.UserEmail,
				ContactPhone:  reservation.UserPhone,
				IsOccupied:    true,
				PromoCode:     reservation.PromoCode,
				ReservationID: &reservation.ID,
				ReservedBy:    "system",
				ReservedAt:    now,
			})
		}

		event.TotalBookings++
		event.TotalRevenue += reservation.Total
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking := &Booking{
		ReservationID: reservation.ID,
		EventID:       eventID,
		UserName:      reservation.UserName,
		UserEmail:     reservation.UserEmail,
		UserPhone:     reservation.UserPhone,
		UserID:        reservation.UserID,
		TicketType:    reservation.TicketType,
		Quantity:      reservation.Quantity,
		Seats:         reservation.Seats,
		PromoCode:     reservation.PromoCode,
		Subtotal:      reservation.Subtotal,
		Discount:      reservation.Discount,
		AmountPaid:    reservation.Total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: paymentStatus(req, reservation.Total),
		PaymentID:     req.PaymentID,
		Status:        StatusConfirmed,
		BookingSource: bookingSource(req),
		IPAddress:     clientIP,
	}

	err = nil
	for attempt := 0; attempt < bookingIDAttempts; attempt++ {
		booking.BookingID = NewBookingID(now)
		err = s.repo.Create(ctx, booking)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateBookingID) {
			continue
		}
		if errors.Is(err, ErrDuplicateReservation) {
			return s.repo.GetByReservationID(ctx, reservationID)
		}
		return nil, err
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not allocate a unique booking id", err)
	}

	// Tombstone the reservation; the reaper has nothing left to do with
	// it and the unique reservation_id keeps replays idempotent.
	if _, err := s.resRepo.DeleteByID(ctx, reservation.ID); err != nil {
		s.log.ErrorWithContext(ctx, "failed to delete confirmed reservation", err, map[string]interface{}{
			"reservation_id": reservation.ID,
		})
	}

	s.invalidate(ctx, eventID)
	s.log.LogBookingConfirmed(ctx, booking.BookingID, eventID.String(), reservation.ID)
	if s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, booking)
	}
	return booking, nil
}

// confirmationApplied reports whether a prior attempt already moved the
// reservation's seats to occupied holds stamped with its id.
func confirmationApplied(e *events.Event, r *reservations.Reservation) bool {
	if len(r.Seats) == 0 {
		return false
	}
	for _, seat := range r.Seats {
		hold := e.HoldOnSeat(seat)
		if hold == nil || !hold.IsOccupied || hold.ReservationID == nil || *hold.ReservationID != r.ID {
			return false
		}
	}
	return true
}

// Payment capture is out of scope; the declared status is recorded as
// given, failed included. Zero-total bookings are marked free.
func paymentStatus(req ConfirmRequest, total float64) PaymentStatus {
	if total == 0 {
		return PaymentFree
	}
	if req.PaymentStatus != "" {
		return PaymentStatus(req.PaymentStatus)
	}
	return PaymentPaid
}

func bookingSource(req ConfirmRequest) string {
	if req.BookingSource != "" {
		return req.BookingSource
	}
	return "web"
}

func (s *service) Get(ctx context.Context, bookingID string) (*Booking, error) {
	return s.repo.GetByBookingID(ctx, bookingID)
}

func (s *service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *service) ListByEmail(ctx context.Context, email string) ([]Booking, error) {
	return s.repo.ListByEmail(ctx, email)
}

// Cancel releases a booking's seats and sold quantity. The promo code
// stays redeemed; single-use codes are spent by the booking they paid
// for. Already-cancelled bookings return unchanged.
func (s *service) Cancel(ctx context.Context, bookingID string, req CancelRequest) (*Booking, error) {
	booking, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == StatusCancelled {
		return booking, nil
	}
	if booking.CheckedIn {
		return nil, apperr.New(apperr.KindValidation, "checked-in bookings cannot be cancelled")
	}

	err = s.eventRepo.Transact(ctx, booking.EventID, func(event *events.Event) error {
		seats := make(map[string]bool, len(booking.Seats))
		for _, seat := range booking.Seats {
			seats[seat] = true
		}
		kept := event.AdminHolds[:0]
		for i := range event.AdminHolds {
			if !(seats[event.AdminHolds[i].SeatNumber] && event.AdminHolds[i].IsOccupied) {
				kept = append(kept, event.AdminHolds[i])
			}
		}
		event.AdminHolds = kept

		if tt := event.FindTicketType(booking.TicketType); tt != nil {
			tt.SoldQuantity -= booking.Quantity
			if tt.SoldQuantity < 0 {
				tt.SoldQuantity = 0
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	booking.Status = StatusCancelled
	booking.CancellationReason = req.Reason
	booking.CancelledAt = &now
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.invalidate(ctx, booking.EventID)
	s.log.LogBookingCancelled(ctx, booking.BookingID, booking.EventID.String())
	if s.notifier != nil {
		s.notifier.BookingCancelled(ctx, booking)
	}
	return booking, nil
}

func (s *service) CheckIn(ctx context.Context, bookingID string, actor string) (*Booking, error) {
	booking, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != StatusConfirmed {
		return nil, apperr.Newf(apperr.KindValidation, "only confirmed bookings can check in, current status is %s", booking.Status)
	}

	now := time.Now().UTC()
	booking.Status = StatusCheckedIn
	booking.CheckedIn = true
	booking.CheckInTime = &now
	booking.CheckInBy = actor
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateCaches(ctx, id)
	}
}
