package analytics

import "ticketry/internal/bookings"

// EventReport is the per-event analytics rollup: aggregate counters off
// the event row joined with booking-table statistics.
type EventReport struct {
	EventID string `json:"eventId"`
	Title   string `json:"title"`

	Overview            Overview                   `json:"overview"`
	TicketAnalytics     []TicketTypeReport         `json:"ticketAnalytics"`
	SeatOccupancy       SeatOccupancy              `json:"seatOccupancy"`
	PromoCodeAnalytics  PromoCodeReport            `json:"promoCodeAnalytics"`
	BookingStats        bookings.EventBookingStats `json:"bookingStats"`
	RevenueByTicketType map[string]float64         `json:"revenueByTicketType"`
}

type Overview struct {
	TotalViews     int64   `json:"totalViews"`
	TotalBookings  int64   `json:"totalBookings"`
	TotalRevenue   float64 `json:"totalRevenue"`
	ConversionRate float64 `json:"conversionRate"`
}

type TicketTypeReport struct {
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	TotalQuantity     int     `json:"totalQuantity"`
	SoldQuantity      int     `json:"soldQuantity"`
	ReservedQuantity  int     `json:"reservedQuantity"`
	AvailableQuantity int     `json:"availableQuantity"`
	Revenue           float64 `json:"revenue"`
	SellThroughRate   float64 `json:"sellThroughRate"`
}

type SeatOccupancy struct {
	TotalSeats    int     `json:"totalSeats"`
	Occupied      int     `json:"occupied"`
	Blocked       int     `json:"blocked"`
	Available     int     `json:"available"`
	OccupancyRate float64 `json:"occupancyRate"`
}

type PromoCodeReport struct {
	Total     int     `json:"total"`
	Used      int     `json:"used"`
	Available int     `json:"available"`
	UsageRate float64 `json:"usageRate"`
}
