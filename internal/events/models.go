package events

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

func (s EventStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Zone string

const (
	ZoneFront   Zone = "front"
	ZoneMiddle  Zone = "middle"
	ZoneBack    Zone = "back"
	ZoneGeneral Zone = "general"
)

// SeatingConfig describes the rectangular seat grid and which physical
// rows belong to each zone. Row numbers are 1-based.
type SeatingConfig struct {
	TotalRows      int `json:"totalRows"`
	SeatsPerRow    int `json:"seatsPerRow"`
	FrontRowStart  int `json:"frontRowStart"`
	FrontRowEnd    int `json:"frontRowEnd"`
	MiddleRowStart int `json:"middleRowStart"`
	MiddleRowEnd   int `json:"middleRowEnd"`
	BackRowStart   int `json:"backRowStart"`
	BackRowEnd     int `json:"backRowEnd"`
}

// DefaultSeatingConfig is a 5x6 grid: rows 1-2 front, row 3 middle, rows 4-5 back.
func DefaultSeatingConfig() SeatingConfig {
	return SeatingConfig{
		TotalRows:      5,
		SeatsPerRow:    6,
		FrontRowStart:  1,
		FrontRowEnd:    2,
		MiddleRowStart: 3,
		MiddleRowEnd:   3,
		BackRowStart:   4,
		BackRowEnd:     5,
	}
}

// RowRange returns the inclusive physical row range for a zone.
// The general zone spans the whole grid.
func (sc SeatingConfig) RowRange(zone Zone) (int, int) {
	switch zone {
	case ZoneFront:
		return sc.FrontRowStart, sc.FrontRowEnd
	case ZoneMiddle:
		return sc.MiddleRowStart, sc.MiddleRowEnd
	case ZoneBack:
		return sc.BackRowStart, sc.BackRowEnd
	default:
		return 1, sc.TotalRows
	}
}

// ZoneOfRow classifies a physical row into its zone.
func (sc SeatingConfig) ZoneOfRow(row int) Zone {
	switch {
	case row >= sc.FrontRowStart && row <= sc.FrontRowEnd:
		return ZoneFront
	case row >= sc.MiddleRowStart && row <= sc.MiddleRowEnd:
		return ZoneMiddle
	case row >= sc.BackRowStart && row <= sc.BackRowEnd:
		return ZoneBack
	default:
		return ZoneGeneral
	}
}

// SeatID renders the canonical seat identifier, e.g. row 1 seat 3 -> "A-3".
func SeatID(row, seat int) string {
	return fmt.Sprintf("%c-%d", rune('A'+row-1), seat)
}

type TicketType struct {
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Price             float64    `json:"price"`
	Currency          string     `json:"currency"`
	TotalQuantity     int        `json:"totalQuantity"`
	AvailableQuantity int        `json:"availableQuantity"`
	ReservedQuantity  int        `json:"reservedQuantity"`
	SoldQuantity      int        `json:"soldQuantity"`
	MaxPerUser        int        `json:"maxPerUser"`
	IsActive          bool       `json:"isActive"`
	SaleStartDate     *time.Time `json:"saleStartDate,omitempty"`
	SaleEndDate       *time.Time `json:"saleEndDate,omitempty"`
	Zone              Zone       `json:"seatType"`
	RequiresPromoCode bool       `json:"requiresPromoCode"`
}

// Recompute refreshes the derived availability counter.
func (t *TicketType) Recompute() {
	t.AvailableQuantity = t.TotalQuantity - t.SoldQuantity - t.ReservedQuantity
	if t.AvailableQuantity < 0 {
		t.AvailableQuantity = 0
	}
}

// Consistent reports whether the counters satisfy
// 0 <= sold, 0 <= reserved and sold+reserved <= total.
func (t *TicketType) Consistent() bool {
	return t.SoldQuantity >= 0 && t.ReservedQuantity >= 0 &&
		t.SoldQuantity+t.ReservedQuantity <= t.TotalQuantity
}

type PromoCode struct {
	Code                  string     `json:"code"`
	Description           string     `json:"description,omitempty"`
	DiscountType          string     `json:"discountType"`
	DiscountValue         float64    `json:"discountValue"`
	MaxUses               int        `json:"maxUses"`
	UsedCount             int        `json:"usedCount"`
	IsUsed                bool       `json:"isUsed"`
	IsActive              bool       `json:"isActive"`
	ValidFrom             time.Time  `json:"validFrom"`
	ValidUntil            time.Time  `json:"validUntil"`
	ApplicableTicketTypes []string   `json:"applicableTicketTypes"`
	SeatNumber            *string    `json:"seatNumber,omitempty"`
	UsedBy                *string    `json:"usedBy,omitempty"`
	UsedAt                *time.Time `json:"usedAt,omitempty"`
}

// AppliesTo reports whether the code is valid for the named ticket type.
// An empty applicability list means the code works for any type.
func (p *PromoCode) AppliesTo(ticketType string) bool {
	if len(p.ApplicableTicketTypes) == 0 {
		return true
	}
	for _, t := range p.ApplicableTicketTypes {
		if t == ticketType {
			return true
		}
	}
	return false
}

// Redeemable reports whether the code can still be bound to a reservation.
func (p *PromoCode) Redeemable(now time.Time) bool {
	if !p.IsActive || p.IsUsed {
		return false
	}
	if p.UsedCount >= p.MaxUses {
		return false
	}
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return false
	}
	return true
}

// AdminHold marks a single seat as unavailable to the allocator. Holds
// are written both by admins blocking seats and by confirmed bookings
// occupying them.
type AdminHold struct {
	SeatNumber   string    `json:"seatNumber"`
	TicketType   string    `json:"ticketType,omitempty"`
	ReservedFor  string    `json:"reservedFor,omitempty"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	IsOccupied   bool      `json:"isOccupied"`
	Notes        string    `json:"notes,omitempty"`
	PromoCode    *string   `json:"promoCodeUsed,omitempty"`
	// ReservationID links holds written at confirmation back to the
	// reservation they finalized. Manual admin holds leave it nil.
	ReservationID *string   `json:"reservationId,omitempty"`
	ReservedBy    string    `json:"reservedBy"`
	ReservedAt    time.Time `json:"reservedAt"`
}

// JSONB column wrappers.

type TicketTypes []TicketType

func (t TicketTypes) Value() (driver.Value, error)  { return jsonbValue(t) }
func (t *TicketTypes) Scan(value interface{}) error { return jsonbScan(value, t) }

type PromoCodes []PromoCode

func (p PromoCodes) Value() (driver.Value, error)  { return jsonbValue(p) }
func (p *PromoCodes) Scan(value interface{}) error { return jsonbScan(value, p) }

type AdminHolds []AdminHold

func (a AdminHolds) Value() (driver.Value, error)  { return jsonbValue(a) }
func (a *AdminHolds) Scan(value interface{}) error { return jsonbScan(value, a) }

type StringSlice []string

func (s StringSlice) Value() (driver.Value, error)  { return jsonbValue(s) }
func (s *StringSlice) Scan(value interface{}) error { return jsonbScan(value, s) }

func (sc SeatingConfig) Value() (driver.Value, error)  { return jsonbValue(sc) }
func (sc *SeatingConfig) Scan(value interface{}) error { return jsonbScan(value, sc) }

func jsonbValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonbScan(value interface{}, dst interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// Event is the aggregate root. All inventory state for one event lives
// in this single row; mutations go through Repository.Transact which
// locks the row for the duration of the change.
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Title            string `gorm:"size:200;not null;index" json:"title"`
	ShortDescription string `gorm:"size:300" json:"shortDescription"`
	FullDescription  string `gorm:"type:text" json:"fullDescription"`
	Category         string `gorm:"size:100;index" json:"category"`
	EventType        string `gorm:"size:50" json:"eventType"`
	Mode             string `gorm:"size:20;default:offline" json:"mode"`
	Language         string `gorm:"size:50" json:"language"`

	VenueName string  `gorm:"size:200" json:"venueName"`
	Address   string  `gorm:"size:300" json:"address"`
	City      string  `gorm:"size:100;index" json:"city"`
	State     string  `gorm:"size:100" json:"state"`
	Country   string  `gorm:"size:100" json:"country"`
	PinCode   string  `gorm:"size:20" json:"pinCode"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`

	StartDate            time.Time  `gorm:"not null;index" json:"startDate"`
	EndDate              time.Time  `gorm:"not null" json:"endDate"`
	RegistrationDeadline *time.Time `json:"registrationDeadline,omitempty"`

	BannerImage    string      `gorm:"size:500" json:"bannerImage"`
	ThumbnailImage string      `gorm:"size:500" json:"thumbnailImage"`
	GalleryImages  StringSlice `gorm:"type:jsonb" json:"galleryImages"`

	Status      EventStatus `gorm:"size:20;default:draft;index" json:"status"`
	IsPublished bool        `gorm:"default:false;index" json:"isPublished"`
	IsFeatured  bool        `gorm:"default:false" json:"isFeatured"`
	IsSoldOut   bool        `gorm:"default:false" json:"isSoldOut"`

	SeatingConfig SeatingConfig `gorm:"type:jsonb" json:"seatingConfig"`
	TicketTypes   TicketTypes   `gorm:"type:jsonb" json:"ticketTypes"`
	PromoCodes    PromoCodes    `gorm:"type:jsonb" json:"promoCodes"`
	AdminHolds    AdminHolds    `gorm:"type:jsonb" json:"adminHolds"`

	TotalViews    int64   `gorm:"default:0" json:"totalViews"`
	TotalBookings int64   `gorm:"default:0" json:"totalBookings"`
	TotalRevenue  float64 `gorm:"default:0" json:"totalRevenue"`

	CreatedBy string    `gorm:"size:100" json:"createdBy"`
	UpdatedBy string    `gorm:"size:100" json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// FindTicketType returns a pointer into the TicketTypes slice so callers
// inside a Transact closure can mutate counters in place. Nil if absent.
func (e *Event) FindTicketType(name string) *TicketType {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].Name == name {
			return &e.TicketTypes[i]
		}
	}
	return nil
}

// FindPromoCode matches case-insensitively; stored codes are uppercase.
func (e *Event) FindPromoCode(code string) *PromoCode {
	code = NormalizeCode(code)
	for i := range e.PromoCodes {
		if e.PromoCodes[i].Code == code {
			return &e.PromoCodes[i]
		}
	}
	return nil
}

// HoldOnSeat returns the hold covering the given seat, if any.
func (e *Event) HoldOnSeat(seatNumber string) *AdminHold {
	for i := range e.AdminHolds {
		if e.AdminHolds[i].SeatNumber == seatNumber {
			return &e.AdminHolds[i]
		}
	}
	return nil
}

// HeldSeats returns the set of all seat ids carrying a hold, occupied
// or not. The allocator treats every hold as unavailable.
func (e *Event) HeldSeats() map[string]bool {
	held := make(map[string]bool, len(e.AdminHolds))
	for i := range e.AdminHolds {
		held[e.AdminHolds[i].SeatNumber] = true
	}
	return held
}

// RecomputeDerived refreshes availableQuantity on every ticket type and
// the aggregate isSoldOut flag. Call before persisting a mutated event.
func (e *Event) RecomputeDerived() {
	soldOut := len(e.TicketTypes) > 0
	for i := range e.TicketTypes {
		e.TicketTypes[i].Recompute()
		if e.TicketTypes[i].AvailableQuantity > 0 {
			soldOut = false
		}
	}
	e.IsSoldOut = soldOut
}

// CheckConsistency verifies counter invariants on every ticket type.
func (e *Event) CheckConsistency() error {
	for i := range e.TicketTypes {
		if !e.TicketTypes[i].Consistent() {
			return fmt.Errorf("ticket type %q counters out of range (total=%d sold=%d reserved=%d)",
				e.TicketTypes[i].Name,
				e.TicketTypes[i].TotalQuantity,
				e.TicketTypes[i].SoldQuantity,
				e.TicketTypes[i].ReservedQuantity)
		}
	}
	return nil
}

// NormalizeCode canonicalizes a promo code for comparison and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
