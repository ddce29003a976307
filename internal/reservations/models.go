package reservations

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"ticketry/internal/events"

	"github.com/google/uuid"
)

// Reservation is a short-lived inventory hold persisted server side.
// The row is the source of truth for confirmation; client-echoed
// payloads are never trusted. Expired rows are swept by the reaper.
type Reservation struct {
	ID         string    `gorm:"primaryKey;size:40" json:"reservationId"`
	EventID    uuid.UUID `gorm:"type:uuid;not null;index" json:"eventId"`
	TicketType string    `gorm:"size:100;not null" json:"ticketType"`
	Quantity   int       `gorm:"not null" json:"quantity"`

	Seats     events.StringSlice `gorm:"type:jsonb" json:"seats"`
	Zone      string             `gorm:"size:20" json:"zone"`
	PromoCode *string            `gorm:"size:20" json:"promoCode,omitempty"`

	UserName  string `gorm:"size:100" json:"userName"`
	UserEmail string `gorm:"size:150;index" json:"userEmail"`
	UserPhone string `gorm:"size:20" json:"userPhone"`
	UserID    string `gorm:"size:100" json:"userId"`

	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
	Discount  float64 `json:"discount"`
	Total     float64 `json:"total"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// Expired uses an inclusive boundary: a reservation whose deadline is
// exactly now is already expired.
func (r *Reservation) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// NewReservationID builds ids like RES-1735689600000-483920175.
func NewReservationID(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; fall back to the clock.
		n = big.NewInt(now.UnixNano() % 1_000_000_000)
	}
	return fmt.Sprintf("RES-%d-%09d", now.UnixMilli(), n.Int64())
}
