package events

import (
	"crypto/rand"
	"math/big"
	"time"

	"ticketry/internal/shared/apperr"
)

const (
	promoAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	promoMaxAttempts  = 100
	promoDefaultDays  = 30
	promoDefaultUses  = 1
	promoDiscountFull = "percentage"
)

// randomPromoCode builds an XXX-XXX-XX code from the uppercase
// alphanumeric alphabet.
func randomPromoCode() (string, error) {
	raw := make([]byte, 0, 10)
	for i := 0; i < 8; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(promoAlphabet))))
		if err != nil {
			return "", err
		}
		raw = append(raw, promoAlphabet[idx.Int64()])
		if i == 2 || i == 5 {
			raw = append(raw, '-')
		}
	}
	return string(raw), nil
}

// GeneratePromoCodes creates count single-use codes, each unique within
// the event's existing pool. Generation retries on collision and gives
// up after a bounded number of attempts per code.
func GeneratePromoCodes(e *Event, count int, settings CreatePromoCodeSettings, now time.Time) ([]PromoCode, error) {
	existing := make(map[string]bool, len(e.PromoCodes)+count)
	for i := range e.PromoCodes {
		existing[e.PromoCodes[i].Code] = true
	}

	discountType := settings.DiscountType
	if discountType == "" {
		discountType = promoDiscountFull
	}
	discountValue := settings.DiscountValue
	if discountValue == 0 && discountType == promoDiscountFull {
		discountValue = 100
	}
	validDays := settings.ValidDays
	if validDays <= 0 {
		validDays = promoDefaultDays
	}

	codes := make([]PromoCode, 0, count)
	for i := 0; i < count; i++ {
		var code string
		found := false
		for attempt := 0; attempt < promoMaxAttempts; attempt++ {
			candidate, err := randomPromoCode()
			if err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "promo code generation failed", err)
			}
			if !existing[candidate] {
				code = candidate
				found = true
				break
			}
		}
		if !found {
			return nil, apperr.New(apperr.KindInternal, "could not generate a unique promo code")
		}
		existing[code] = true

		codes = append(codes, PromoCode{
			Code:                  code,
			DiscountType:          discountType,
			DiscountValue:         discountValue,
			MaxUses:               promoDefaultUses,
			IsActive:              true,
			ValidFrom:             now,
			ValidUntil:            now.AddDate(0, 0, validDays),
			ApplicableTicketTypes: settings.TicketTypes,
		})
	}
	return codes, nil
}

// Discount computes the price reduction the code grants on a subtotal.
// The result never exceeds the subtotal.
func (p *PromoCode) Discount(subtotal float64) float64 {
	var discount float64
	switch p.DiscountType {
	case "percentage":
		discount = subtotal * p.DiscountValue / 100
	case "fixed":
		discount = p.DiscountValue
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// ValidatePromoForReservation runs the full redemption ladder for a code
// against a ticket type and quantity. It returns the matched code so the
// caller can bind it inside the same locked transaction.
func ValidatePromoForReservation(e *Event, code string, tt *TicketType, quantity int, now time.Time) (*PromoCode, error) {
	promo := e.FindPromoCode(code)
	if promo == nil {
		return nil, apperr.New(apperr.KindInvalidPromo, "promo code not found")
	}
	if !promo.Redeemable(now) {
		return nil, apperr.New(apperr.KindInvalidPromo, "promo code is no longer redeemable")
	}
	if !promo.AppliesTo(tt.Name) {
		return nil, apperr.New(apperr.KindInvalidPromo, "promo code does not apply to this ticket type")
	}
	if tt.RequiresPromoCode && quantity > 1 {
		return nil, apperr.New(apperr.KindTooManyForPromo, "promo-gated tickets are limited to one per code")
	}
	return promo, nil
}

// BindPromo marks the code redeemed by a reservation. firstSeat records
// which seat the code is pinned to for later reporting.
func BindPromo(promo *PromoCode, usedBy string, firstSeat string, now time.Time) {
	promo.UsedCount++
	promo.IsUsed = true
	promo.UsedBy = &usedBy
	promo.UsedAt = &now
	if firstSeat != "" {
		promo.SeatNumber = &firstSeat
	}
}

// UnbindPromo reverses a binding made by BindPromo. Only the reservation
// that bound the code may release it, and never after a booking has
// consumed it.
func UnbindPromo(promo *PromoCode, usedBy string) bool {
	if promo.UsedBy == nil || *promo.UsedBy != usedBy {
		return false
	}
	if promo.UsedCount > 0 {
		promo.UsedCount--
	}
	promo.IsUsed = false
	promo.UsedBy = nil
	promo.UsedAt = nil
	promo.SeatNumber = nil
	return true
}
