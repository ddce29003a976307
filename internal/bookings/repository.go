package bookings

import (
	"context"
	"errors"
	"strings"

	"ticketry/internal/shared/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateBookingID signals a collision on the human-readable id;
// the service retries with a fresh one. ErrDuplicateReservation means
// another confirm won the race for the same reservation; the caller
// returns the existing booking instead.
var (
	ErrDuplicateBookingID   = errors.New("booking id already exists")
	ErrDuplicateReservation = errors.New("reservation already confirmed")
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByBookingID(ctx context.Context, bookingID string) (*Booking, error)
	GetByReservationID(ctx context.Context, reservationID string) (*Booking, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error)
	ListByEmail(ctx context.Context, email string) ([]Booking, error)
	Update(ctx context.Context, b *Booking) error

	ExistsForReservation(ctx context.Context, reservationID string) (bool, error)
	ExistsForPromoCode(ctx context.Context, eventID uuid.UUID, code string) (bool, error)
	StatsByEvent(ctx context.Context, eventID uuid.UUID) (*EventBookingStats, error)
}

// EventBookingStats is the per-event rollup consumed by analytics.
type EventBookingStats struct {
	Total     int64   `json:"total"`
	Confirmed int64   `json:"confirmed"`
	Cancelled int64   `json:"cancelled"`
	CheckedIn int64   `json:"checkedIn"`
	WithPromo int64   `json:"withPromo"`
	Revenue   float64 `json:"revenue"`
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, b *Booking) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "reservation") {
				return ErrDuplicateReservation
			}
			return ErrDuplicateBookingID
		}
		return apperr.Wrap(apperr.KindInternal, "failed to persist booking", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID string) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).First(&b, "booking_id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindBookingNotFound, "booking not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load booking", err)
	}
	return &b, nil
}

func (r *repository) GetByReservationID(ctx context.Context, reservationID string) (*Booking, error) {
	var b Booking
	err := r.db.WithContext(ctx).First(&b, "reservation_id = ?", reservationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindBookingNotFound, "booking not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load booking", err)
	}
	return &b, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error) {
	var list []Booking
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list bookings", err)
	}
	return list, nil
}

func (r *repository) ListByEmail(ctx context.Context, email string) ([]Booking, error) {
	var list []Booking
	err := r.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list bookings", err)
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, b *Booking) error {
	if err := r.db.WithContext(ctx).Save(b).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update booking", err)
	}
	return nil
}

func (r *repository) ExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("reservation_id = ?", reservationID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to check booking existence", err)
	}
	return count > 0, nil
}

func (r *repository) ExistsForPromoCode(ctx context.Context, eventID uuid.UUID, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("event_id = ? AND promo_code = ? AND status <> ?", eventID, code, StatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to check promo consumption", err)
	}
	return count > 0, nil
}

func (r *repository) StatsByEvent(ctx context.Context, eventID uuid.UUID) (*EventBookingStats, error) {
	var stats EventBookingStats
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Select(`
			count(*) as total,
			count(*) filter (where status = 'confirmed') as confirmed,
			count(*) filter (where status = 'cancelled') as cancelled,
			count(*) filter (where checked_in) as checked_in,
			count(*) filter (where promo_code is not null) as with_promo,
			coalesce(sum(amount_paid) filter (where status <> 'cancelled'), 0) as revenue`).
		Where("event_id = ?", eventID).
		Scan(&stats).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to aggregate booking stats", err)
	}
	return &stats, nil
}
