package bookings

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"ticketry/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCheckedIn BookingStatus = "checked_in"
	StatusNoShow    BookingStatus = "no_show"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
	PaymentFree    PaymentStatus = "free"
)

// Booking is the durable record of a finalized reservation. The unique
// reservation_id column makes confirmation replays idempotent: a second
// confirm for the same reservation finds this row instead of selling
// the seats twice.
type Booking struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID string    `gorm:"size:30;uniqueIndex;not null" json:"bookingId"`

	ReservationID string    `gorm:"size:40;uniqueIndex;not null" json:"reservationId"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;index" json:"eventId"`

	UserName  string `gorm:"size:100" json:"userName"`
	UserEmail string `gorm:"size:150;index" json:"userEmail"`
	UserPhone string `gorm:"size:20" json:"userPhone"`
	UserID    string `gorm:"size:100;index" json:"userId"`

	TicketType string             `gorm:"size:100;not null" json:"ticketType"`
	Quantity   int                `gorm:"not null" json:"quantity"`
	Seats      events.StringSlice `gorm:"type:jsonb" json:"seats"`
	PromoCode  *string            `gorm:"size:20;index" json:"promoCode,omitempty"`

	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	AmountPaid float64 `json:"amountPaid"`
	Currency   string  `gorm:"size:10;default:INR" json:"currency"`

	PaymentMethod string        `gorm:"size:30" json:"paymentMethod"`
	PaymentStatus PaymentStatus `gorm:"size:20" json:"paymentStatus"`
	PaymentID     string        `gorm:"size:100" json:"paymentId,omitempty"`

	Status BookingStatus `gorm:"size:20;default:confirmed;index" json:"status"`

	CheckedIn   bool       `gorm:"default:false" json:"checkedIn"`
	CheckInTime *time.Time `json:"checkInTime,omitempty"`
	CheckInBy   string     `gorm:"size:100" json:"checkInBy,omitempty"`

	CancellationReason string     `gorm:"size:300" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`

	BookingSource string `gorm:"size:30;default:web" json:"bookingSource"`
	IPAddress     string `gorm:"size:50" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// NewBookingID builds human-quotable ids like BOOK-689600-4821 from the
// last six digits of the epoch and a random suffix. Collisions are
// possible and handled by the unique index plus a retry at insert time.
func NewBookingID(now time.Time) string {
	epoch := now.Unix() % 1_000_000
	n, err := rand.Int(rand.Reader, big.NewInt(10_000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10_000)
	}
	return fmt.Sprintf("BOOK-%06d-%04d", epoch, n.Int64())
}
