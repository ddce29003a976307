package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error identifier returned to API
// clients alongside the human message.
type Kind string

const (
	KindEventNotFound           Kind = "event_not_found"
	KindUnknownTicketType       Kind = "unknown_ticket_type"
	KindInactiveTicketType      Kind = "inactive_ticket_type"
	KindPromoRequired           Kind = "promo_required"
	KindInvalidPromo            Kind = "invalid_promo"
	KindPromoInvalidated        Kind = "promo_invalidated"
	KindTooManyForPromo         Kind = "too_many_for_promo"
	KindInsufficientInventory   Kind = "insufficient_inventory"
	KindInsufficientSeatsInZone Kind = "insufficient_seats_in_zone"
	KindReservationExpired      Kind = "reservation_expired"
	KindReservationNotFound     Kind = "reservation_not_found"
	KindBookingNotFound         Kind = "booking_not_found"
	KindSeatTaken               Kind = "seat_taken"
	KindDuplicatePromo          Kind = "duplicate_promo"
	KindInventoryInconsistent   Kind = "inventory_inconsistent"
	KindContention              Kind = "contention"
	KindTimeout                 Kind = "timeout"
	KindValidation              Kind = "validation"
	KindUnauthorized            Kind = "unauthorized"
	KindForbidden               Kind = "forbidden"
	KindInternal                Kind = "internal_error"
)

// Error carries a Kind plus a human-readable message. It supports
// errors.Is/errors.As matching on the Kind via Is.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause while keeping the stable kind on the surface.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is treats two *Errors with the same Kind as equal, so callers can do
// errors.Is(err, apperr.New(apperr.KindSeatTaken, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from err, or KindInternal when err is not an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindEventNotFound, KindUnknownTicketType, KindReservationNotFound, KindBookingNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindContention:
		return http.StatusConflict
	case KindInternal, KindInventoryInconsistent:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
