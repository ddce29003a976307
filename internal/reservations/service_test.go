package reservations

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"ticketry/internal/events"
	"ticketry/internal/shared/apperr"
	"ticketry/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventRepo is an in-memory events.Repository. Transact mirrors the
// real semantics: the closure runs against a copy, derived counters are
// recomputed, consistency is checked, and only a clean run is kept.
type fakeEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*events.Event
}

func newFakeEventRepo(evts ...*events.Event) *fakeEventRepo {
	f := &fakeEventRepo{events: make(map[uuid.UUID]*events.Event)}
	for _, e := range evts {
		f.events[e.ID] = e
	}
	return f
}

func cloneEvent(e *events.Event) *events.Event {
	raw, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	var c events.Event
	if err := json.Unmarshal(raw, &c); err != nil {
		panic(err)
	}
	return &c
}

func (f *fakeEventRepo) Create(ctx context.Context, e *events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = cloneEvent(e)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, apperr.New(apperr.KindEventNotFound, "event not found")
	}
	return cloneEvent(e), nil
}

func (f *fakeEventRepo) Save(ctx context.Context, e *events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = cloneEvent(e)
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) List(ctx context.Context, q events.ListQuery) ([]events.Event, int64, error) {
	return nil, 0, nil
}

func (f *fakeEventRepo) ListCategories(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeEventRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeEventRepo) Transact(ctx context.Context, id uuid.UUID, fn func(event *events.Event) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return apperr.New(apperr.KindEventNotFound, "event not found")
	}
	work := cloneEvent(e)
	if err := fn(work); err != nil {
		return err
	}
	work.RecomputeDerived()
	if err := work.CheckConsistency(); err != nil {
		return apperr.Wrap(apperr.KindInventoryInconsistent, "event inventory is inconsistent", err)
	}
	f.events[id] = work
	return nil
}

// snapshot returns the committed state of an event for assertions.
func (f *fakeEventRepo) snapshot(id uuid.UUID) *events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneEvent(f.events[id])
}

type fakeResRepo struct {
	mu        sync.Mutex
	rows      map[string]*Reservation
	createErr error
}

func newFakeResRepo() *fakeResRepo {
	return &fakeResRepo{rows: make(map[string]*Reservation)}
}

func (f *fakeResRepo) Create(ctx context.Context, r *Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeResRepo) GetByID(ctx context.Context, id string) (*Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, apperr.New(apperr.KindReservationNotFound, "reservation not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

func (f *fakeResRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired []Reservation
	for _, r := range f.rows {
		if r.Expired(now) {
			expired = append(expired, *r)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// rewind force-expires a stored reservation.
func (f *fakeResRepo) rewind(id string, by time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[id]; ok {
		r.ExpiresAt = r.ExpiresAt.Add(-by)
	}
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (f *fakeInvalidator) InvalidateCaches(ctx context.Context, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeBookingLookup struct {
	consumedCodes map[string]bool
	reservations  map[string]bool
}

func (f *fakeBookingLookup) ExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	return f.reservations[reservationID], nil
}

func (f *fakeBookingLookup) ExistsForPromoCode(ctx context.Context, eventID uuid.UUID, code string) (bool, error) {
	return f.consumedCodes[code], nil
}

type fakeExpiryNotifier struct {
	mu      sync.Mutex
	expired []string
}

func (f *fakeExpiryNotifier) ReservationExpired(ctx context.Context, r *Reservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, r.ID)
}

func bookableEvent(now time.Time) *events.Event {
	return &events.Event{
		ID:            uuid.New(),
		Title:         "Launch Night",
		Status:        events.StatusPublished,
		IsPublished:   true,
		StartDate:     now.Add(30 * 24 * time.Hour),
		EndDate:       now.Add(30*24*time.Hour + 4*time.Hour),
		SeatingConfig: events.DefaultSeatingConfig(),
		TicketTypes: events.TicketTypes{
			{
				Name: "Paid Ticket", Price: 500, Currency: "INR",
				TotalQuantity: 12, AvailableQuantity: 12,
				MaxPerUser: 5, IsActive: true, Zone: events.ZoneFront,
			},
			{
				Name: "Code Ticket", Price: 0, Currency: "INR",
				TotalQuantity: 12, AvailableQuantity: 12,
				MaxPerUser: 1, IsActive: true, Zone: events.ZoneBack,
				RequiresPromoCode: true,
			},
		},
		PromoCodes: events.PromoCodes{{
			Code: "GAT-EDC-01", DiscountType: "percentage", DiscountValue: 100,
			MaxUses: 1, IsActive: true,
			ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(24 * time.Hour),
		}},
	}
}

func testUser() UserInfo {
	return UserInfo{Name: "Asha", Email: "asha@example.com", Phone: "9999999999"}
}

func newTestService(e *events.Event) (Service, *fakeEventRepo, *fakeResRepo, *fakeInvalidator) {
	eventRepo := newFakeEventRepo(e)
	resRepo := newFakeResRepo()
	inv := &fakeInvalidator{}
	svc := NewService(resRepo, eventRepo, inv, 15*time.Minute, logger.GetDefault())
	return svc, eventRepo, resRepo, inv
}

func TestReserve_PaidTicket(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, resRepo, inv := newTestService(event)

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 2, UserInfo: testUser(),
	})

	require.NoError(t, err)
	res := resp.Reservation
	assert.Equal(t, []string{"A-1", "A-2"}, []string(res.Seats))
	assert.Equal(t, "front", res.Zone)
	assert.Equal(t, float64(1000), res.Total)
	assert.Equal(t, 900, resp.ExpiresInSeconds)
	assert.False(t, res.Expired(now.Add(14*time.Minute)))
	assert.True(t, res.Expired(now.Add(16*time.Minute)))

	stored, err := resRepo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, stored.ID)

	committed := eventRepo.snapshot(event.ID)
	tt := committed.FindTicketType("Paid Ticket")
	assert.Equal(t, 2, tt.ReservedQuantity)
	assert.Equal(t, 10, tt.AvailableQuantity)
	assert.Equal(t, 1, inv.count())
}

func TestReserve_UnpublishedEvent(t *testing.T) {
	now := time.Now().UTC()
	event := bookableEvent(now)
	event.IsPublished = false
	event.Status = events.StatusDraft
	svc, _, _, _ := newTestService(event)

	_, err := svc.Reserve(context.Background(), event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 1, UserInfo: testUser(),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestReserve_PastRegistrationDeadline(t *testing.T) {
	now := time.Now().UTC()
	event := bookableEvent(now)
	deadline := now.Add(-time.Minute)
	event.RegistrationDeadline = &deadline
	svc, _, _, _ := newTestService(event)

	_, err := svc.Reserve(context.Background(), event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 1, UserInfo: testUser(),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestReserve_UnknownEvent(t *testing.T) {
	svc, _, _, _ := newTestService(bookableEvent(time.Now().UTC()))

	_, err := svc.Reserve(context.Background(), uuid.New(), ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 1, UserInfo: testUser(),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindEventNotFound))
}

func TestReserve_GatedTicketBindsPromo(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, _, _ := newTestService(event)

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "gat-edc-01", UserInfo: testUser(),
	})

	require.NoError(t, err)
	res := resp.Reservation
	require.NotNil(t, res.PromoCode)
	assert.Equal(t, "GAT-EDC-01", *res.PromoCode)
	assert.Equal(t, []string{"D-1"}, []string(res.Seats))
	assert.Equal(t, float64(0), res.Total)

	promo := eventRepo.snapshot(event.ID).FindPromoCode("GAT-EDC-01")
	require.NotNil(t, promo)
	assert.True(t, promo.IsUsed)
	require.NotNil(t, promo.UsedBy)
	assert.Equal(t, res.ID, *promo.UsedBy)
	require.NotNil(t, promo.SeatNumber)
	assert.Equal(t, "D-1", *promo.SeatNumber)
}

func TestReserve_GatedTicketWithoutCode(t *testing.T) {
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, _, _, _ := newTestService(event)

	_, err := svc.Reserve(context.Background(), event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, UserInfo: testUser(),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindPromoRequired))
}

func TestReserve_SameCodeTwice(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, _, _, _ := newTestService(event)

	_, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidPromo))
}

func TestReserve_InsufficientInventory(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, _, _, _ := newTestService(event)

	for i := 0; i < 2; i++ {
		_, err := svc.Reserve(ctx, event.ID, ReserveRequest{
			TicketType: "Paid Ticket", Quantity: 5, UserInfo: testUser(),
		})
		require.NoError(t, err)
	}

	_, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 5, UserInfo: testUser(),
	})
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientInventory))
}

func TestReserve_RowFailureRollsBackHold(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	eventRepo := newFakeEventRepo(event)
	resRepo := newFakeResRepo()
	resRepo.createErr = apperr.New(apperr.KindInternal, "insert failed")
	svc := NewService(resRepo, eventRepo, &fakeInvalidator{}, 15*time.Minute, logger.GetDefault())

	_, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	require.Error(t, err)

	committed := eventRepo.snapshot(event.ID)
	assert.Equal(t, 0, committed.FindTicketType("Code Ticket").ReservedQuantity)
	assert.False(t, committed.FindPromoCode("GAT-EDC-01").IsUsed, "promo must be released when the row insert fails")
}

func TestRelease_ReturnsInventoryAndPromo(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, resRepo, _ := newTestService(event)

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, resp.Reservation.ID))

	committed := eventRepo.snapshot(event.ID)
	assert.Equal(t, 0, committed.FindTicketType("Code Ticket").ReservedQuantity)
	promo := committed.FindPromoCode("GAT-EDC-01")
	assert.False(t, promo.IsUsed)
	assert.Nil(t, promo.UsedBy)

	_, err = resRepo.GetByID(ctx, resp.Reservation.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound))
}

func TestRelease_Idempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, _, _ := newTestService(event)

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 3, UserInfo: testUser(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, resp.Reservation.ID))
	err = svc.Release(ctx, resp.Reservation.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound))

	// The second attempt must not double-return inventory.
	assert.Equal(t, 0, eventRepo.snapshot(event.ID).FindTicketType("Paid Ticket").ReservedQuantity)
}

func TestRelease_KeepsPromoConsumedByBooking(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, eventRepo, _, _ := newTestService(event)
	svc.SetBookingLookup(&fakeBookingLookup{consumedCodes: map[string]bool{"GAT-EDC-01": true}})

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Code Ticket", Quantity: 1, PromoCode: "GAT-EDC-01", UserInfo: testUser(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, resp.Reservation.ID))

	committed := eventRepo.snapshot(event.ID)
	assert.Equal(t, 0, committed.FindTicketType("Code Ticket").ReservedQuantity)
	assert.True(t, committed.FindPromoCode("GAT-EDC-01").IsUsed, "a consumed code must stay redeemed")
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	event := bookableEvent(now)
	svc, _, _, _ := newTestService(event)

	resp, err := svc.Reserve(ctx, event.ID, ReserveRequest{
		TicketType: "Paid Ticket", Quantity: 1, UserInfo: testUser(),
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, resp.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Reservation.ID, got.ID)

	_, err = svc.Get(ctx, "RES-0-000000000")
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound))
}

func TestNewReservationIDFormat(t *testing.T) {
	now := time.Now().UTC()
	id := NewReservationID(now)
	assert.Regexp(t, `^RES-\d+-\d{9}$`, id)
	assert.NotEqual(t, id, NewReservationID(now))
}
