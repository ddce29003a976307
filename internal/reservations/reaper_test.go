package reservations

import (
	"context"
	"testing"
	"time"

	"ticketry/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperSweep_ReleasesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, resRepo, _ := newTestService(event)
	reaper := NewReaper(svc, 30*time.Second, 100, logger.GetDefault())

	stale, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 2, UserInfo: testUser(),
	})
	require.NoError(t, err)
	fresh, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 3, UserInfo: testUser(),
	})
	require.NoError(t, err)

	resRepo.rewind(stale.Reservation.ID, time.Hour)

	released := reaper.Sweep(ctx)

	assert.Equal(t, 1, released)
	_, err = resRepo.GetByID(ctx, stale.Reservation.ID)
	assert.Error(t, err)
	_, err = resRepo.GetByID(ctx, fresh.Reservation.ID)
	assert.NoError(t, err)

	committed := eventRepo.snapshot(event.ID)
	assert.Equal(t, 3, committed.FindTicketType("Paid Ticket").ReservedQuantity)
}

func TestReaperSweep_Idempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, resRepo, _ := newTestService(event)
	reaper := NewReaper(svc, 30*time.Second, 100, logger.GetDefault())

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 4, UserInfo: testUser(),
	})
	require.NoError(t, err)
	resRepo.rewind(resp.Reservation.ID, time.Hour)

	assert.Equal(t, 1, reaper.Sweep(ctx))
	assert.Equal(t, 0, reaper.Sweep(ctx))

	assert.Equal(t, 0, eventRepo.snapshot(event.ID).FindTicketType("Paid Ticket").ReservedQuantity)
}

func TestReaperSweep_UnbindsExpiredPromo(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, resRepo, _ := newTestService(event)
	notifier := &fakeExpiryNotifier{}
	svc.SetExpiryNotifier(notifier)
	reaper := NewReaper(svc, 30*time.Second, 100, logger.GetDefault())

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	require.NoError(t, err)
	resRepo.rewind(resp.Reservation.ID, time.Hour)

	require.Equal(t, 1, reaper.Sweep(ctx))

	promo := eventRepo.snapshot(event.ID).FindPromoCode("GAT-EDC-01")
	assert.False(t, promo.IsUsed, "the code must return to the pool for another caller")
	assert.Nil(t, promo.UsedBy)
	assert.Equal(t, []string{resp.Reservation.ID}, notifier.expired)

	// The freed code is immediately reusable.
	_, err = svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	assert.NoError(t, err)
}

func TestReaperSweep_KeepsConsumedPromo(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, resRepo, _ := newTestService(event)
	svc.SetBookingLookup(&fakeBookingLookup{consumedCodes: map[string]bool{"GAT-EDC-01": true}})
	reaper := NewReaper(svc, 30*time.Second, 100, logger.GetDefault())

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	require.NoError(t, err)
	resRepo.rewind(resp.Reservation.ID, time.Hour)

	require.Equal(t, 1, reaper.Sweep(ctx))

	assert.True(t, eventRepo.snapshot(event.ID).FindPromoCode("GAT-EDC-01").IsUsed)
}

func TestReaperSweep_HonorsBatchSize(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, _, resRepo, _ := newTestService(event)
	reaper := NewReaper(svc, 30*time.Second, 2, logger.GetDefault())

	for i := 0; i < 3; i++ {
		resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
			TicketType: "Paid Ticket", Quantity: 1, UserInfo: testUser(),
		})
		require.NoError(t, err)
		resRepo.rewind(resp.Reservation.ID, time.Hour)
	}

	assert.Equal(t, 2, reaper.Sweep(ctx))
	assert.Equal(t, 1, reaper.Sweep(ctx))
}

func TestNewReaperDefaults(t *testing.T) {
	svc, _, _, _ := newTestService(bookableEvent(time.Now().UTC()))

	r := NewReaper(svc, 0, 0, logger.GetDefault())
	assert.Equal(t, 30*time.Second, r.interval)
	assert.Equal(t, 100, r.batchSize)

	r = NewReaper(svc, 5*time.Minute, 10, logger.GetDefault())
	assert.Equal(t, 30*time.Second, r.interval, "intervals above a minute fall back to the default")
}

func TestReaperStartStop(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, _, resRepo, _ := newTestService(event)

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 1, UserInfo: testUser(),
	})
	require.NoError(t, err)
	resRepo.rewind(resp.Reservation.ID, time.Hour)

	reaper := NewReaper(svc, 30*time.Second, 100, logger.GetDefault())
	reaper.Start(ctx)
	reaper.Stop()

	// The startup sweep must have run before Stop returned.
	_, err = resRepo.GetByID(ctx, resp.Reservation.ID)
	assert.Error(t, err)
}
