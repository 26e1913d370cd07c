package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resavox/internal/availability"
	"resavox/internal/database"
	"resavox/internal/models"
	"resavox/internal/waitlist"
)

type fakeNotifier struct {
	confirmed []int64
	cancelled []int64
	fail      error
}

func (f *fakeNotifier) ReservationConfirmed(_ context.Context, _ *models.Restaurant, r *models.Reservation) error {
	f.confirmed = append(f.confirmed, r.ID)
	return f.fail
}

func (f *fakeNotifier) ReservationCancelled(_ context.Context, _ *models.Restaurant, r *models.Reservation) error {
	f.cancelled = append(f.cancelled, r.ID)
	return f.fail
}

type fakeAttempts struct {
	counts map[string]int
}

func (f *fakeAttempts) RecordFailure(_ context.Context, callID string) (int, error) {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[callID]++
	return f.counts[callID], nil
}

type fixture struct {
	db       *database.DB
	handlers *Handlers
	notifier *fakeNotifier
	attempts *fakeAttempts
	rest     *models.Restaurant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dinner := &models.TimeRange{Start: "19:00", End: "22:30"}
	lunch := &models.TimeRange{Start: "12:00", End: "14:30"}
	rest := &models.Restaurant{
		Name:        "Chez Margot",
		Phone:       "+33123456789",
		MaxCapacity: 60,
		OpeningHours: models.WeekSchedule{
			models.Monday:    {Dinner: dinner},
			models.Tuesday:   {Lunch: lunch, Dinner: dinner},
			models.Wednesday: {Lunch: lunch, Dinner: dinner},
			models.Thursday:  {Lunch: lunch, Dinner: dinner},
			models.Friday:    {Lunch: lunch, Dinner: dinner},
		},
		ClosedDates: models.ClosedDates{"2025-12-25"},
		SMSEnabled:  true,
	}
	require.NoError(t, db.CreateRestaurant(context.Background(), rest))

	notifier := &fakeNotifier{}
	attempts := &fakeAttempts{}
	logger := zerolog.Nop()
	resolver := availability.NewResolver(db)
	wl := waitlist.NewService(db, logger)

	h := NewHandlers(db, resolver, wl, notifier, attempts, DefaultPolicy(), logger)
	h.Now = func() time.Time { return time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC) }
	tokens := 0
	h.NewToken = func() string {
		tokens++
		return fmt.Sprintf("tok-%d", tokens)
	}
	return &fixture{db: db, handlers: h, notifier: notifier, attempts: attempts, rest: rest}
}

func createReq(f *fixture) CreateRequest {
	return CreateRequest{
		RestaurantID:  f.rest.ID,
		CustomerName:  "Jean Dupont",
		CustomerPhone: "+33 6 12 34 56 78",
		Date:          "2026-03-02", // a Monday
		Time:          "19:30",
		Guests:        4,
	}
}

func TestCreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out := f.handlers.Create(ctx, createReq(f))
	require.Equal(t, KindSuccess, out.Kind, out.Message)
	require.NotNil(t, out.Reservation)
	assert.Contains(t, out.Message, "Réservation n°")

	got, err := f.db.GetReservation(ctx, out.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", got.CustomerName)
	assert.Equal(t, "+33612345678", got.CustomerPhone, "phone is normalized")
	assert.Equal(t, "2026-03-02", got.Date)
	assert.Equal(t, "19:30", got.Time)
	assert.Equal(t, 4, got.Guests)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, models.SourcePhone, got.Source)
	assert.Equal(t, "tok-1", got.CancellationToken)
	assert.False(t, got.NeedsConfirmation)

	assert.Equal(t, []int64{got.ID}, f.notifier.confirmed)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	req := createReq(f)
	req.CustomerPhone = ""
	req.Guests = 0
	req.CallExternalID = "call-1"

	out := f.handlers.Create(context.Background(), req)
	assert.Equal(t, KindValidation, out.Kind)
	assert.ElementsMatch(t, []string{"customer_phone", "number_of_guests"}, out.MissingFields)
	assert.Contains(t, out.Message, "numéro de téléphone")
}

func TestCreateLargePartyShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := createReq(f)
	req.Guests = 15
	// Even on an exceptionally closed date: availability is never consulted.
	req.Date = "2025-12-25"

	out := f.handlers.Create(ctx, req)
	assert.Equal(t, KindCallback, out.Kind)
	assert.True(t, out.RequiresCallback)
	assert.Nil(t, out.Reservation)

	// No booking row was persisted.
	found, err := f.db.FindActiveByName(ctx, f.rest.ID, "Dupont", "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCreateDuplicateConflictAndForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.handlers.Create(ctx, createReq(f))
	require.Equal(t, KindSuccess, first.Kind)

	// Same phone, same date, different time: flagged as the same visit.
	req := createReq(f)
	req.Time = "20:30"
	out := f.handlers.Create(ctx, req)
	assert.Equal(t, KindConflict, out.Kind)
	require.NotNil(t, out.Reservation)
	assert.Equal(t, first.Reservation.ID, out.Reservation.ID)

	// force_create always bypasses the detector.
	req.ForceCreate = true
	out = f.handlers.Create(ctx, req)
	assert.Equal(t, KindSuccess, out.Kind, out.Message)
	assert.NotEqual(t, first.Reservation.ID, out.Reservation.ID)
}

func TestCreateCapacityRefusalCapturesWaitlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Existing dinner bookings sum to 58 of the 60 seats.
	for i, guests := range []int{30, 28} {
		require.NoError(t, f.db.CreateReservation(ctx, &models.Reservation{
			RestaurantID:  f.rest.ID,
			CustomerName:  "Table Existante",
			CustomerPhone: fmt.Sprintf("+3360000000%d", i),
			Date:          "2026-03-02",
			Time:          "19:00",
			Guests:        guests,
			Status:        models.StatusConfirmed,
			Source:        models.SourceManual,
		}))
	}

	req := createReq(f)
	req.CallExternalID = "call-9"
	out := f.handlers.Create(ctx, req)
	assert.Equal(t, KindUnavailable, out.Kind)
	assert.Contains(t, out.Message, "2 places")
	assert.NotEmpty(t, out.Alternatives, "refusal proposes nearby slots")

	// A 2-guest request still fits.
	small := createReq(f)
	small.CustomerPhone = "+33600000002"
	small.Guests = 2
	assert.Equal(t, KindSuccess, f.handlers.Create(ctx, small).Kind)
}

func TestCreateClosedDate(t *testing.T) {
	f := newFixture(t)

	req := createReq(f)
	req.Date = "2025-12-25"
	out := f.handlers.Create(context.Background(), req)
	assert.Equal(t, KindUnavailable, out.Kind)
	assert.Contains(t, out.Message, "exceptionnellement fermé")
}

func TestCancelByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.handlers.Create(ctx, createReq(f))
	require.Equal(t, KindSuccess, created.Kind)

	out := f.handlers.CancelByID(ctx, f.rest.ID, created.Reservation.ID, "")
	assert.Equal(t, KindSuccess, out.Kind)

	got, err := f.db.GetReservation(ctx, created.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	// Cancelling again is not rejected on the agent path.
	out = f.handlers.CancelByID(ctx, f.rest.ID, created.Reservation.ID, "")
	assert.Equal(t, KindSuccess, out.Kind)

	out = f.handlers.CancelByID(ctx, f.rest.ID, 9999, "")
	assert.Equal(t, KindNotFound, out.Kind)
}

func TestFindAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.handlers.Create(ctx, createReq(f))
	require.Equal(t, KindSuccess, created.Kind)

	out := f.handlers.FindAndCancel(ctx, f.rest.ID, "dupont", "", "")
	assert.Equal(t, KindSuccess, out.Kind)
	assert.Contains(t, out.Message, "annulée")

	out = f.handlers.FindAndCancel(ctx, f.rest.ID, "dupont", "", "")
	assert.Equal(t, KindNotFound, out.Kind, "cancelled rows leave the active set")

	out = f.handlers.FindAndCancel(ctx, f.rest.ID, "", "", "")
	assert.Equal(t, KindValidation, out.Kind)
}

func TestFindAndUpdateReverifiesAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.handlers.Create(ctx, createReq(f))
	require.Equal(t, KindSuccess, created.Kind)

	// Moving to a closed date is rejected and the original row is untouched.
	out := f.handlers.FindAndUpdate(ctx, UpdateRequest{
		RestaurantID: f.rest.ID,
		Name:         "Dupont",
		NewDate:      "2025-12-25",
	})
	assert.Equal(t, KindUnavailable, out.Kind)

	got, err := f.db.GetReservation(ctx, created.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", got.Date)
	assert.Equal(t, "19:30", got.Time)
	assert.Equal(t, 4, got.Guests)

	// A valid move commits.
	out = f.handlers.FindAndUpdate(ctx, UpdateRequest{
		RestaurantID: f.rest.ID,
		Name:         "Dupont",
		NewDate:      "2026-03-03",
		NewTime:      "12:30",
		NewGuests:    6,
	})
	require.Equal(t, KindSuccess, out.Kind, out.Message)

	got, err = f.db.GetReservation(ctx, created.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", got.Date)
	assert.Equal(t, "12:30", got.Time)
	assert.Equal(t, 6, got.Guests)

	// Changing nothing is a degenerate but valid success.
	out = f.handlers.FindAndUpdate(ctx, UpdateRequest{
		RestaurantID: f.rest.ID,
		Name:         "Dupont",
	})
	assert.Equal(t, KindSuccess, out.Kind)
}

func TestFindAndUpdateShrinkAtFullService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.handlers.Create(ctx, createReq(f))
	require.Equal(t, KindSuccess, created.Kind)

	// Fill the remaining 56 of the 60 dinner seats.
	require.NoError(t, f.db.CreateReservation(ctx, &models.Reservation{
		RestaurantID:  f.rest.ID,
		CustomerName:  "Grande Tablée",
		CustomerPhone: "+33600000099",
		Date:          "2026-03-02",
		Time:          "19:00",
		Guests:        56,
		Status:        models.StatusConfirmed,
		Source:        models.SourceManual,
	}))

	// Shrinking the party must not count its own current seats against
	// the slot: 56 + 2 fits even though 56 + 4 + 2 would not.
	out := f.handlers.FindAndUpdate(ctx, UpdateRequest{
		RestaurantID: f.rest.ID,
		Name:         "Dupont",
		NewGuests:    2,
	})
	require.Equal(t, KindSuccess, out.Kind, out.Message)

	got, err := f.db.GetReservation(ctx, created.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Guests)

	// Growing past what the service can absorb is still refused.
	out = f.handlers.FindAndUpdate(ctx, UpdateRequest{
		RestaurantID: f.rest.ID,
		Name:         "Dupont",
		NewGuests:    6,
	})
	assert.Equal(t, KindUnavailable, out.Kind)
}

func TestCreateSucceedsWhenNotifierFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = fmt.Errorf("sms gateway: connection refused")

	out := f.handlers.Create(context.Background(), createReq(f))
	require.Equal(t, KindSuccess, out.Kind, "notification is best-effort")
	require.NotNil(t, out.Reservation)
	assert.Equal(t, []int64{out.Reservation.ID}, f.notifier.confirmed)
}

func TestRepeatedFailuresSuggestTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := CreateRequest{RestaurantID: f.rest.ID, CallExternalID: "call-7"}
	for i := 0; i < 2; i++ {
		out := f.handlers.Create(ctx, bad)
		assert.Equal(t, KindValidation, out.Kind)
		assert.False(t, out.SuggestTransfer)
	}

	out := f.handlers.Create(ctx, bad)
	assert.Equal(t, KindValidation, out.Kind)
	assert.True(t, out.SuggestTransfer, "third failure crosses the threshold")
}

func TestCurrentDateFacts(t *testing.T) {
	f := newFixture(t)

	facts := f.handlers.CurrentDate()
	assert.Equal(t, "2026-02-27", facts.Today)
	assert.Equal(t, "2026-02-28", facts.Tomorrow)
	assert.Equal(t, "2026-03-06", facts.NextWeek)
	assert.Equal(t, "vendredi", facts.Weekday)
	assert.Equal(t, 5, facts.WeekdayIndex)
	assert.Contains(t, facts.Summary, "vendredi 27 février 2026")
}

func TestConfidenceScore(t *testing.T) {
	assert.Equal(t, 1.0, ConfidenceScore("Jean Dupont", "+33612345678", ""))

	low := ConfidenceScore("Jean", "pas de numéro", "euh je crois")
	assert.Less(t, low, needsConfirmationThreshold)

	assert.GreaterOrEqual(t, ConfidenceScore("", "", ""), 0.0)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+33612345678", NormalizePhone("+33 6 12 34 56 78"))
	assert.Equal(t, "0612345678", NormalizePhone("06.12.34.56.78"))
	assert.True(t, ValidPhone("+33 6 12 34 56 78"))
	assert.False(t, ValidPhone("12"))
	assert.False(t, ValidPhone("pas de numéro"))
}
