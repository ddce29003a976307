package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"ticketry/internal/events"
	"ticketry/internal/reservations"
	"ticketry/internal/shared/apperr"
	"ticketry/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventRepo is an in-memory events.Repository with the real Transact
// semantics: the closure runs on a copy, counters are recomputed and
// checked, and only a clean run replaces the stored event.
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

func (f *fakeEventRepo) snapshot(id uuid.UUID) *events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneEvent(f.events[id])
}

type fakeResRepo struct {
	mu   sync.Mutex
	rows map[string]*reservations.Reservation
}

func newFakeResRepo() *fakeResRepo {
	return &fakeResRepo{rows: make(map[string]*reservations.Reservation)}
}

func (f *fakeResRepo) Create(ctx context.Context, r *reservations.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeResRepo) GetByID(ctx context.Context, id string) (*reservations.Reservation, error) {
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

func (f *fakeResRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]reservations.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired []reservations.Reservation
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

func (f *fakeResRepo) rewind(id string, by time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[id]; ok {
		r.ExpiresAt = r.ExpiresAt.Add(-by)
	}
}

// fakeBookingRepo enforces the two unique indexes the real table has, so
// the idempotent-replay and id-collision paths behave as in production.
// createErr fails the next Create once, like a transient outage.
type fakeBookingRepo struct {
	mu        sync.Mutex
	rows      []*Booking
	createErr error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{}
}

func (f *fakeBookingRepo) Create(ctx context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	for _, row := range f.rows {
		if row.ReservationID == b.ReservationID {
			return ErrDuplicateReservation
		}
		if row.BookingID == b.BookingID {
			return ErrDuplicateBookingID
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()
	cp := *b
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeBookingRepo) GetByBookingID(ctx context.Context, bookingID string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.BookingID == bookingID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindBookingNotFound, "booking not found")
}

func (f *fakeBookingRepo) GetByReservationID(ctx context.Context, reservationID string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ReservationID == reservationID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindBookingNotFound, "booking not found")
}

func (f *fakeBookingRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, row := range f.rows {
		if row.EventID == eventID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) ListByEmail(ctx context.Context, email string) ([]Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, row := range f.rows {
		if strings.EqualFold(row.UserEmail, email) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) Update(ctx context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range f.rows {
		if row.ID == b.ID {
			cp := *b
			f.rows[i] = &cp
			return nil
		}
	}
	return apperr.New(apperr.KindBookingNotFound, "booking not found")
}

func (f *fakeBookingRepo) ExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ReservationID == reservationID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingRepo) ExistsForPromoCode(ctx context.Context, eventID uuid.UUID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.EventID == eventID && row.Status != StatusCancelled &&
			row.PromoCode != nil && *row.PromoCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingRepo) StatsByEvent(ctx context.Context, eventID uuid.UUID) (*EventBookingStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &EventBookingStats{}
	for _, row := range f.rows {
		if row.EventID != eventID {
			continue
		}
		stats.Total++
		switch row.Status {
		case StatusCancelled:
			stats.Cancelled++
		case StatusCheckedIn:
			stats.Confirmed++
			stats.CheckedIn++
		default:
			stats.Confirmed++
		}
		if row.PromoCode != nil {
			stats.WithPromo++
		}
		if row.Status != StatusCancelled {
			stats.Revenue += row.AmountPaid
		}
	}
	return stats, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (f *fakeNotifier) BookingConfirmed(ctx context.Context, b *Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, b.BookingID)
}

func (f *fakeNotifier) BookingCancelled(ctx context.Context, b *Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, b.BookingID)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateCaches(ctx context.Context, id uuid.UUID) {}

type fixture struct {
	event       *events.Event
	eventRepo   *fakeEventRepo
	resRepo     *fakeResRepo
	bookingRepo *fakeBookingRepo
	resSvc      reservations.Service
	svc         Service
	notifier    *fakeNotifier
}

func newFixture(now time.Time) *fixture {
	event := &events.Event{
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

	eventRepo := newFakeEventRepo(event)
	resRepo := newFakeResRepo()
	bookingRepo := newFakeBookingRepo()
	notifier := &fakeNotifier{}

	resSvc := reservations.NewService(resRepo, eventRepo, noopInvalidator{}, 15*time.Minute, logger.GetDefault())
	resSvc.SetBookingLookup(bookingRepo)

	svc := NewService(bookingRepo, resRepo, eventRepo, noopInvalidator{}, logger.GetDefault())
	svc.SetNotifier(notifier)

	return &fixture{
		event:       event,
		eventRepo:   eventRepo,
		resRepo:     resRepo,
		bookingRepo: bookingRepo,
		resSvc:      resSvc,
		svc:         svc,
		notifier:    notifier,
	}
}

func (fx *fixture) reserve(t *testing.T, ticketType string, qty int, promo string) *reservations.Reservation {
	t.Helper()
	resp, err := fx.resSvc.Reserve(context.Background(), fx.event.ID, reservations.ReserveRequest{
		TicketType: ticketType,
		Quantity:   qty,
		PromoCode:  promo,
		UserInfo:   reservations.UserInfo{Name: "Asha", Email: "asha@example.com", Phone: "9999999999"},
	})
	require.NoError(t, err)
	return resp.Reservation
}

func TestConfirm_PaidBooking(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fx := newFixture(now)
	res := fx.reserve(t, "Paid Ticket", 2, "")

	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{
		ReservationID: res.ID,
		PaymentMethod: "upi",
		PaymentStatus: "paid",
		PaymentID:     "pay_123",
	}, "10.0.0.1")

	require.NoError(t, err)
	assert.Regexp(t, `^BOOK-\d{6}-\d{4}$`, booking.BookingID)
	assert.Equal(t, res.ID, booking.ReservationID)
	assert.Equal(t, []string{"A-1", "A-2"}, []string(booking.Seats))
	assert.Equal(t, float64(1000), booking.AmountPaid)
	assert.Equal(t, PaymentPaid, booking.PaymentStatus)
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Equal(t, "10.0.0.1", booking.IPAddress)

	committed := fx.eventRepo.snapshot(fx.event.ID)
	tt := committed.FindTicketType("Paid Ticket")
	assert.Equal(t, 0, tt.ReservedQuantity)
	assert.Equal(t, 2, tt.SoldQuantity)
	assert.Equal(t, 10, tt.AvailableQuantity)
	assert.Equal(t, int64(1), committed.TotalBookings)
	assert.Equal(t, float64(1000), committed.TotalRevenue)

	hold := committed.HoldOnSeat("A-1")
	require.NotNil(t, hold)
	assert.True(t, hold.IsOccupied)
	assert.Equal(t, "system", hold.ReservedBy)
	assert.Equal(t, "Asha", hold.ReservedFor)

	_, err = fx.resRepo.GetByID(ctx, res.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound), "confirmed reservation must be tombstoned")

	assert.Equal(t, []string{booking.BookingID}, fx.notifier.confirmed)
}

func TestConfirm_ReplayReturnsExistingBooking(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 2, "")

	first, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)

	second, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, first.BookingID, second.BookingID)

	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 2, committed.FindTicketType("Paid Ticket").SoldQuantity, "replay must not sell seats twice")
	assert.Equal(t, int64(1), committed.TotalBookings)
}

func TestConfirm_ReplayRecoversFromFailedBookingInsert(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 2, "")

	// First attempt: the event mutation commits, then the insert dies.
	fx.bookingRepo.createErr = errors.New("connection reset by peer")
	_, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.Error(t, err)

	mid := fx.eventRepo.snapshot(fx.event.ID)
	require.Equal(t, 2, mid.FindTicketType("Paid Ticket").SoldQuantity, "seats were sold before the insert failed")
	_, err = fx.bookingRepo.GetByReservationID(ctx, res.ID)
	require.True(t, apperr.IsKind(err, apperr.KindBookingNotFound))

	// The replay finds its own occupied holds, skips the mutation and
	// writes the missing booking row.
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "A-2"}, []string(booking.Seats))
	assert.Equal(t, float64(1000), booking.AmountPaid)

	committed := fx.eventRepo.snapshot(fx.event.ID)
	tt := committed.FindTicketType("Paid Ticket")
	assert.Equal(t, 2, tt.SoldQuantity, "the replay must not sell the seats again")
	assert.Equal(t, 0, tt.ReservedQuantity)
	assert.Equal(t, int64(1), committed.TotalBookings)
	assert.Len(t, committed.AdminHolds, 2)

	_, err = fx.resRepo.GetByID(ctx, res.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound), "the recovered reservation is tombstoned")
}

func TestConfirm_LegacyReservationDataBody(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 1, "")

	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{
		ReservationData: &ReservationData{ReservationID: res.ID},
	}, "")

	require.NoError(t, err)
	assert.Equal(t, res.ID, booking.ReservationID)
}

func TestConfirm_MissingReservationID(t *testing.T) {
	fx := newFixture(time.Now().UTC())

	_, err := fx.svc.Confirm(context.Background(), fx.event.ID, ConfirmRequest{}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestConfirm_UnknownReservation(t *testing.T) {
	fx := newFixture(time.Now().UTC())

	_, err := fx.svc.Confirm(context.Background(), fx.event.ID, ConfirmRequest{ReservationID: "RES-0-000000000"}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound))
}

func TestConfirm_WrongEvent(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fx := newFixture(now)
	other := newFixture(now)
	res := fx.reserve(t, "Paid Ticket", 1, "")

	// The other fixture shares no storage, so register the reservation
	// there under a foreign event id.
	require.NoError(t, other.resRepo.Create(ctx, res))

	_, err := other.svc.Confirm(ctx, other.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound))
}

func TestConfirm_ExpiredReservation(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 2, "")
	fx.resRepo.rewind(res.ID, time.Hour)

	_, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindReservationExpired))

	// Nothing was sold; the reaper owns the cleanup of the stale hold.
	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 0, committed.FindTicketType("Paid Ticket").SoldQuantity)
	assert.Equal(t, 2, committed.FindTicketType("Paid Ticket").ReservedQuantity)
}

func TestConfirm_FreeGatedBooking(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")

	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")

	require.NoError(t, err)
	assert.Equal(t, PaymentFree, booking.PaymentStatus)
	assert.Equal(t, float64(0), booking.AmountPaid)
	require.NotNil(t, booking.PromoCode)
	assert.Equal(t, "GAT-EDC-01", *booking.PromoCode)

	committed := fx.eventRepo.snapshot(fx.event.ID)
	hold := committed.HoldOnSeat("D-1")
	require.NotNil(t, hold)
	require.NotNil(t, hold.PromoCode)
	assert.Equal(t, "GAT-EDC-01", *hold.PromoCode)
	assert.True(t, committed.FindPromoCode("GAT-EDC-01").IsUsed, "the code stays spent after confirmation")
}

func TestConfirm_PromoReleasedBeforeConfirmation(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")

	// Simulate the reaper releasing the code between reserve and confirm.
	err := fx.eventRepo.Transact(ctx, fx.event.ID, func(event *events.Event) error {
		events.UnbindPromo(event.FindPromoCode("GAT-EDC-01"), res.ID)
		if tt := event.FindTicketType("Code Ticket"); tt != nil {
			tt.ReservedQuantity--
		}
		return nil
	})
	require.NoError(t, err)

	_, err = fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindPromoInvalidated))

	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 0, committed.FindTicketType("Code Ticket").SoldQuantity)
	assert.Empty(t, committed.AdminHolds)
}

func TestConfirm_FailedPaymentStatusIsRecorded(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 1, "")

	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{
		ReservationID: res.ID,
		PaymentStatus: "failed",
	}, "")

	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, booking.PaymentStatus)
	assert.Equal(t, StatusConfirmed, booking.Status)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 2, "")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)

	cancelled, err := fx.svc.Cancel(ctx, booking.BookingID, CancelRequest{Reason: "plans changed"})

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "plans changed", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)

	committed := fx.eventRepo.snapshot(fx.event.ID)
	assert.Equal(t, 0, committed.FindTicketType("Paid Ticket").SoldQuantity)
	assert.Nil(t, committed.HoldOnSeat("A-1"))
	assert.Nil(t, committed.HoldOnSeat("A-2"))
	assert.Equal(t, []string{booking.BookingID}, fx.notifier.cancelled)
}

func TestCancel_Idempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 1, "")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)

	_, err = fx.svc.Cancel(ctx, booking.BookingID, CancelRequest{})
	require.NoError(t, err)
	again, err := fx.svc.Cancel(ctx, booking.BookingID, CancelRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)

	assert.Len(t, fx.notifier.cancelled, 1, "the second cancel must not notify again")
}

func TestCancel_CheckedInBookingRejected(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 1, "")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)
	_, err = fx.svc.CheckIn(ctx, booking.BookingID, "gate-1")
	require.NoError(t, err)

	_, err = fx.svc.Cancel(ctx, booking.BookingID, CancelRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCancel_KeepsPromoSpent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Code Ticket", 1, "GAT-EDC-01")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)

	_, err = fx.svc.Cancel(ctx, booking.BookingID, CancelRequest{})
	require.NoError(t, err)

	assert.True(t, fx.eventRepo.snapshot(fx.event.ID).FindPromoCode("GAT-EDC-01").IsUsed)
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 1, "")
	booking, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)

	checked, err := fx.svc.CheckIn(ctx, booking.BookingID, "gate-1")

	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, checked.Status)
	assert.True(t, checked.CheckedIn)
	require.NotNil(t, checked.CheckInTime)
	assert.Equal(t, "gate-1", checked.CheckInBy)

	_, err = fx.svc.CheckIn(ctx, booking.BookingID, "gate-2")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "a second check-in is rejected")
}

func TestListByEmail(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(time.Now().UTC())
	res := fx.reserve(t, "Paid Ticket", 1, "")
	_, err := fx.svc.Confirm(ctx, fx.event.ID, ConfirmRequest{ReservationID: res.ID}, "")
	require.NoError(t, err)

	got, err := fx.svc.ListByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = fx.svc.ListByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewBookingIDFormat(t *testing.T) {
	id := NewBookingID(time.Now().UTC())
	assert.Regexp(t, `^BOOK-\d{6}-\d{4}$`, id)
}
