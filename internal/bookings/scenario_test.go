package bookings

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ticketry/internal/reservations"
	"ticketry/internal/shared/apperr"
	"ticketry/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_ConcurrentLastSeat(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fx := newFixture(now)

	// Burn the front zone down to one remaining ticket.
	for i := 0; i < 11; i++ {
		res := fx.reserve(t, "Paid Ticket", 1, "")
		_, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
		require.NoError(t, err)
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := fx.resSvc.Reserve(ctx, fx.event.ID, reservations.ReserveRequest{
				TicketType: "Paid Ticket",
				Quantity:   1,
				UserInfo: reservations.UserInfo{
					Name:  fmt.Sprintf("Caller %d", n),
					Email: fmt.Sprintf("caller%d@example.com", n),
				},
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for err := range results {
		if err == nil {
			won++
		} else {
			require.True(t, apperr.IsKind(err, apperr.KindInsufficientInventory), "loser got %v", err)
			lost++
		}
	}
	assert.Equal(t, 1, won, "exactly one caller gets the last seat")
	assert.Equal(t, callers-1, lost)

	committed := fx.eventRepo.snapshot(fx.event.ID)
	tt := committed.FindTicketType("Paid Ticket")
	assert.Equal(t, 11, tt.SoldQuantity)
	assert.Equal(t, 1, tt.ReservedQuantity)
	assert.Equal(t, 0, tt.AvailableQuantity)
}

func TestScenario_ConcurrentSameCode(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := fx.resSvc.Reserve(ctx, fx.event.ID, reservations.ReserveRequest{
				TicketType: "Code Ticket",
				Quantity:   1,
				PromoCode:  "GAT-EDC-01",
				UserInfo: reservations.UserInfo{
					Name:  fmt.Sprintf("Caller %d", n),
					Email: fmt.Sprintf("caller%d@example.com", n),
				},
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
		} else {
			require.True(t, apperr.IsKind(err, apperr.KindInvalidPromo), "loser got %v", err)
		}
	}
	assert.Equal(t, 1, won, "a single-use code admits exactly one reservation")
}

func TestScenario_SellOutFillsSeatsInOrder(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())

	wantSeats := []string{
		"A-1", "A-2", "A-3", "A-4", "A-5", "A-6",
		"B-1", "B-2", "B-3", "B-4", "B-5", "B-6",
	}
	for i, want := range wantSeats {
		res := fx.reserve(t, "Paid Ticket", 1, "")
		require.Equal(t, []string{want}, []string(res.Seats), "seat %d", i)
		_, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
		require.NoError(t, err)
	}

	_, err := fx.resSvc.Reserve(ctx, fx.event.ID, reservations.ReserveRequest{
		TicketType: "Paid Ticket",
		Quantity:   1,
		UserInfo:   reservations.UserInfo{Name: "Late", Email: "late@example.com"},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientInventory))

	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 12, committed.FindTicketType("Paid Ticket").SoldQuantity)
}

func TestScenario_ReaperBeatsLateConfirm(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	reaper := reservations.NewReaper(fx.resSvc, 30*time.Second, 100, logger.GetDefault())

	res := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")
	fx.resRepo.rewind(res.ID, time.Hour)
	require.Equal(t, 1, reaper.Sweep(ctx))

	_, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound))

	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 0, committed.FindTicketType("Code Ticket").SoldQuantity)
	assert.False(t, committed.FindPromoCode("GAT-EDC-01").IsUsed)
}

func TestScenario_ReaperSkipsConfirmedReservation(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	reaper := reservations.NewReaper(fx.resSvc, 30*time.Second, 100, logger.GetDefault())

	res := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)

	// The reservation row is already gone, so a sweep finds nothing and
	// the sold seat and spent code are untouched.
	assert.Equal(t, 0, reaper.Sweep(ctx))

	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 1, committed.FindTicketType("Code Ticket").SoldQuantity)
	assert.True(t, committed.FindPromoCode("GAT-EDC-01").IsUsed)

	got, err := fx.svc.Get(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestScenario_CancelFreesSeatsForRebooking(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())

	res := fx.reserve(t, "Paid Ticket", 2, "")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"A-1", "A-2"}, []string(booking.Seats))

	_, err = fx.svc.Cancel(ctx, booking.BookingID, CancelRequest{Reason: "refund"})
	require.NoError(t, err)

	rebooked := fx.reserve(t, "Paid Ticket", 2, "")
	assert.Equal(t, []string{"A-1", "A-2"}, []string(rebooked.Seats), "cancelled seats return to the front of the allocation order")
}

func TestScenario_ExpiredGatedReservationFreesCodeForNextCaller(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	reaper := reservations.NewReaper(fx.resSvc, 30*time.Second, 100, logger.GetDefault())

	first := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")
	fx.resRepo.rewind(first.ID, time.Hour)
	require.Equal(t, 1, reaper.Sweep(ctx))

	second := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: second.ID}, "")
	require.NoError(t, err)

	promo := fx.eventRepo.snapshot(fx.event.ID).FindPromoCode("GAT-EDC-01")
	require.NotNil(t, promo.UsedBy)
	assert.Equal(t, second.ID, *promo.UsedBy)
	assert.Equal(t, PaymentFree, booking.PaymentStatus)
}

func TestScenario_MixedZonesDoNotInterfere(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())

	paid := fx.reserve(t, "Paid Ticket", 3, "")
	gated := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")

	assert.Equal(t, []string{"A-1", "A-2", "A-3"}, []string(paid.Seats))
	assert.Equal(t, []string{"D-1"}, []string(gated.Seats))

	_, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: paid.ID}, "")
	require.NoError(t, err)
	_, err = fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: gated.ID}, "")
	require.NoError(t, err)

	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 3, committed.FindTicketType("Paid Ticket").SoldQuantity)
	assert.Equal(t, 1, committed.FindTicketType("Code Ticket").SoldQuantity)
	assert.Len(t, committed.AdminHolds, 4)
	assert.Equal(t, int64(2), committed.TotalBookings)
}
