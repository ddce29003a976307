package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeBookingConfirmed   NotificationType = "booking_confirmed"
	TypeBookingCancelled   NotificationType = "booking_cancelled"
	TypeReservationExpired NotificationType = "reservation_expired"
)

// Notification is the message shape carried over the Kafka topic. The
// producer writes it, the consumer workers turn it into an email.
type Notification struct {
	ID             uuid.UUID        `json:"id"`
	Type           NotificationType `json:"type"`
	RecipientEmail string           `json:"recipientEmail"`
	RecipientName  string           `json:"recipientName"`

	EventID       string `json:"eventId,omitempty"`
	BookingID     string `json:"bookingId,omitempty"`
	ReservationID string `json:"reservationId,omitempty"`

	Subject string                 `json:"subject"`
	Data    map[string]interface{} `json:"data,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func NewNotification(t NotificationType, email, name string) *Notification {
	return &Notification{
		ID:             uuid.New(),
		Type:           t,
		RecipientEmail: email,
		RecipientName:  name,
		Data:           make(map[string]interface{}),
		CreatedAt:      time.Now().UTC(),
	}
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

func FromJSON(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// PartitionKey routes all messages for one recipient to the same
// partition so their emails arrive in order.
func (n *Notification) PartitionKey() string {
	return n.RecipientEmail
}
