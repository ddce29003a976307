package events

import (
	"time"

	"ticketry/internal/shared/apperr"
)

// CheckAvailability answers the reservation oracle without mutating any
// state. The checks run in the same order the reservation path applies
// them, so a passing answer describes exactly the seats a reservation
// placed at the same instant would receive.
func CheckAvailability(e *Event, req AvailabilityRequest, now time.Time) (*AvailabilityResponse, error) {
	tt := e.FindTicketType(req.TicketType)
	if tt == nil {
		return nil, apperr.Newf(apperr.KindUnknownTicketType, "ticket type %q does not exist", req.TicketType)
	}
	if !tt.IsActive {
		return nil, apperr.Newf(apperr.KindInactiveTicketType, "ticket type %q is not on sale", tt.Name)
	}
	if tt.SaleStartDate != nil && now.Before(*tt.SaleStartDate) {
		return nil, apperr.Newf(apperr.KindInactiveTicketType, "ticket type %q is not on sale yet", tt.Name)
	}
	if tt.SaleEndDate != nil && now.After(*tt.SaleEndDate) {
		return nil, apperr.Newf(apperr.KindInactiveTicketType, "sales for ticket type %q have ended", tt.Name)
	}

	if !tt.RequiresPromoCode && tt.MaxPerUser > 0 && req.Quantity > tt.MaxPerUser {
		return nil, apperr.Newf(apperr.KindValidation, "maximum %d tickets allowed per user", tt.MaxPerUser)
	}

	var promo *PromoCode
	if tt.RequiresPromoCode {
		if req.PromoCode == "" {
			return nil, apperr.Newf(apperr.KindPromoRequired, "ticket type %q requires a promo code", tt.Name)
		}
		var err error
		promo, err = ValidatePromoForReservation(e, req.PromoCode, tt, req.Quantity, now)
		if err != nil {
			return nil, err
		}
	} else if req.PromoCode != "" {
		var err error
		promo, err = ValidatePromoForReservation(e, req.PromoCode, tt, req.Quantity, now)
		if err != nil {
			return nil, err
		}
	}

	if tt.AvailableQuantity < req.Quantity {
		return nil, apperr.Newf(apperr.KindInsufficientInventory, "only %d %q tickets left", tt.AvailableQuantity, tt.Name)
	}

	seats := AllocateSeats(e, tt.Zone, req.Quantity)
	if len(seats) < req.Quantity {
		return nil, apperr.Newf(apperr.KindInsufficientSeatsInZone, "only %d free seats left in the %s zone", len(seats), tt.Zone)
	}

	subtotal := tt.Price * float64(req.Quantity)
	var discount float64
	if promo != nil {
		discount = promo.Discount(subtotal)
	}

	return &AvailabilityResponse{
		Available:      true,
		TicketType:     tt.Name,
		Quantity:       req.Quantity,
		ProjectedSeats: seats,
		UnitPrice:      tt.Price,
		Subtotal:       subtotal,
		Discount:       discount,
		Total:          subtotal - discount,
	}, nil
}
