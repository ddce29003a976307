package analytics

import (
	"context"

	"ticketry/internal/bookings"
	"ticketry/internal/events"
	"ticketry/internal/shared/constants"
	"ticketry/pkg/cache"

	"github.com/google/uuid"
)

type Service interface {
	EventReport(ctx context.Context, eventID uuid.UUID) (*EventReport, error)
}

type service struct {
	eventRepo   events.Repository
	bookingRepo bookings.Repository
	cache       cache.Service
}

func NewService(eventRepo events.Repository, bookingRepo bookings.Repository, cacheService cache.Service) Service {
	return &service{
		eventRepo:   eventRepo,
		bookingRepo: bookingRepo,
		cache:       cacheService,
	}
}

func (s *service) EventReport(ctx context.Context, eventID uuid.UUID) (*EventReport, error) {
	build := func() (*EventReport, error) {
		event, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		stats, err := s.bookingRepo.StatsByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		return buildReport(event, stats), nil
	}

	if s.cache == nil {
		return build()
	}
	var report EventReport
	key := constants.BuildEventAnalyticsKey(eventID.String())
	err := s.cache.GetOrSet(ctx, key, constants.TTL_EVENT_ANALYTICS, func() (interface{}, error) {
		return build()
	}, &report)
	if err != nil {
		return build()
	}
	return &report, nil
}

func buildReport(event *events.Event, stats *bookings.EventBookingStats) *EventReport {
	report := &EventReport{
		EventID:             event.ID.String(),
		Title:               event.Title,
		BookingStats:        *stats,
		RevenueByTicketType: make(map[string]float64, len(event.TicketTypes)),
	}

	report.Overview = Overview{
		TotalViews:    event.TotalViews,
		TotalBookings: event.TotalBookings,
		TotalRevenue:  event.TotalRevenue,
	}
	if event.TotalViews > 0 {
		report.Overview.ConversionRate = round2(float64(event.TotalBookings) / float64(event.TotalViews) * 100)
	}

	for i := range event.TicketTypes {
		t := &event.TicketTypes[i]
		revenue := t.Price * float64(t.SoldQuantity)
		tr := TicketTypeReport{
			Name:              t.Name,
			Price:             t.Price,
			TotalQuantity:     t.TotalQuantity,
			SoldQuantity:      t.SoldQuantity,
			ReservedQuantity:  t.ReservedQuantity,
			AvailableQuantity: t.AvailableQuantity,
			Revenue:           revenue,
		}
		if t.TotalQuantity > 0 {
			tr.SellThroughRate = round2(float64(t.SoldQuantity) / float64(t.TotalQuantity) * 100)
		}
		report.TicketAnalytics = append(report.TicketAnalytics, tr)
		report.RevenueByTicketType[t.Name] = revenue
	}

	totalSeats := event.SeatingConfig.TotalRows * event.SeatingConfig.SeatsPerRow
	occupied, blocked := 0, 0
	for i := range event.AdminHolds {
		if event.AdminHolds[i].IsOccupied {
			occupied++
		} else {
			blocked++
		}
	}
	report.SeatOccupancy = SeatOccupancy{
		TotalSeats: totalSeats,
		Occupied:   occupied,
		Blocked:    blocked,
		Available:  totalSeats - occupied - blocked,
	}
	if totalSeats > 0 {
		report.SeatOccupancy.OccupancyRate = round2(float64(occupied) / float64(totalSeats) * 100)
	}

	promoStats := event.PromoStats()
	report.PromoCodeAnalytics = PromoCodeReport{
		Total:     promoStats.Total,
		Used:      promoStats.Used,
		Available: promoStats.Available,
	}
	if promoStats.Total > 0 {
		report.PromoCodeAnalytics.UsageRate = round2(float64(promoStats.Used) / float64(promoStats.Total) * 100)
	}

	return report
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
