package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resavox/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedRestaurant(t *testing.T, db *DB) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{
		Name:        "Chez Margot",
		Phone:       "+33123456789",
		MaxCapacity: 60,
		OpeningHours: models.WeekSchedule{
			models.Monday:  {Dinner: &models.TimeRange{Start: "19:00", End: "22:30"}},
			models.Tuesday: {Lunch: &models.TimeRange{Start: "12:00", End: "14:30"}, Dinner: &models.TimeRange{Start: "19:00", End: "22:30"}},
		},
		ClosedDates: models.ClosedDates{"2025-12-25"},
		SMSEnabled:  true,
	}
	require.NoError(t, db.CreateRestaurant(context.Background(), r))
	return r
}

func TestRestaurantRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := seedRestaurant(t, db)

	got, err := db.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chez Margot", got.Name)
	assert.Equal(t, 60, got.MaxCapacity)
	assert.True(t, got.SMSEnabled)
	require.NotNil(t, got.OpeningHours[models.Tuesday])
	assert.Equal(t, "12:00", got.OpeningHours[models.Tuesday].Lunch.Start)
	assert.True(t, got.ClosedDates.Contains("2025-12-25"))

	_, err = db.GetRestaurant(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := seedRestaurant(t, db)

	res := &models.Reservation{
		RestaurantID:      r.ID,
		CustomerName:      "Jean Dupont",
		CustomerPhone:     "+33612345678",
		Date:              "2026-03-02",
		Time:              "19:30",
		Guests:            4,
		Status:            models.StatusPending,
		Source:            models.SourcePhone,
		ConfidenceScore:   0.9,
		CancellationToken: "tok-1",
	}
	require.NoError(t, db.CreateReservation(ctx, res))
	require.NotZero(t, res.ID)

	got, err := db.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", got.CustomerName)
	assert.Equal(t, "2026-03-02", got.Date)
	assert.Equal(t, "19:30", got.Time)
	assert.Equal(t, 4, got.Guests)

	byToken, err := db.GetReservationByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, res.ID, byToken.ID)

	require.NoError(t, db.SetReservationStatus(ctx, res.ID, models.StatusCancelled))
	got, err = db.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	assert.ErrorIs(t, db.SetReservationStatus(ctx, 9999, models.StatusCancelled), ErrNotFound)
}

func TestActiveByPhoneAndDate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := seedRestaurant(t, db)

	first := &models.Reservation{
		RestaurantID: r.ID, CustomerName: "Marie Leclerc", CustomerPhone: "+33699999999",
		Date: "2026-03-02", Time: "19:00", Guests: 2,
		Status: models.StatusConfirmed, Source: models.SourcePhone,
	}
	require.NoError(t, db.CreateReservation(ctx, first))

	// Same phone, same date, different time: still found.
	got, err := db.ActiveByPhoneAndDate(ctx, r.ID, "+33699999999", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	// Different date: not found.
	_, err = db.ActiveByPhoneAndDate(ctx, r.ID, "+33699999999", "2026-03-03")
	assert.ErrorIs(t, err, ErrNotFound)

	// Cancelled rows do not count.
	require.NoError(t, db.SetReservationStatus(ctx, first.ID, models.StatusCancelled))
	_, err = db.ActiveByPhoneAndDate(ctx, r.ID, "+33699999999", "2026-03-02")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindActiveByName(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := seedRestaurant(t, db)

	mk := func(name, phone, date, clock string) *models.Reservation {
		res := &models.Reservation{
			RestaurantID: r.ID, CustomerName: name, CustomerPhone: phone,
			Date: date, Time: clock, Guests: 2,
			Status: models.StatusPending, Source: models.SourcePhone,
		}
		require.NoError(t, db.CreateReservation(ctx, res))
		return res
	}

	later := mk("Pierre Martin", "+33611111111", "2026-03-10", "20:00")
	sooner := mk("Paul Martin", "+33622222222", "2026-03-05", "12:30")

	// Substring match is case-insensitive, ordered soonest first.
	found, err := db.FindActiveByName(ctx, r.ID, "martin", "")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, sooner.ID, found[0].ID)
	assert.Equal(t, later.ID, found[1].ID)

	// Exact phone narrows common names.
	found, err = db.FindActiveByName(ctx, r.ID, "martin", "+33611111111")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, later.ID, found[0].ID)

	found, err = db.FindActiveByName(ctx, r.ID, "durand", "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindActiveByNameFoldsAccents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := seedRestaurant(t, db)

	res := &models.Reservation{
		RestaurantID: r.ID, CustomerName: "Éric Dubois", CustomerPhone: "+33633333333",
		Date: "2026-03-05", Time: "20:00", Guests: 2,
		Status: models.StatusConfirmed, Source: models.SourcePhone,
	}
	require.NoError(t, db.CreateReservation(ctx, res))

	found, err := db.FindActiveByName(ctx, r.ID, "éric", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, res.ID, found[0].ID)

	found, err = db.FindActiveByName(ctx, r.ID, "ÉRIC", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestTokenlessReservationsCoexist(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := seedRestaurant(t, db)

	// Web/manual rows carry no cancellation token; two of them must not
	// collide on the unique column.
	mk := func(name, source string) *models.Reservation {
		res := &models.Reservation{
			RestaurantID: r.ID, CustomerName: name, CustomerPhone: "+33655555555",
			Date: "2026-03-03", Time: "12:30", Guests: 2,
			Status: models.StatusConfirmed, Source: source,
		}
		require.NoError(t, db.CreateReservation(ctx, res))
		return res
	}

	first := mk("Anne Petit", models.SourceWeb)
	second := mk("Luc Moreau", models.SourceManual)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := db.GetReservation(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CancellationToken)
}

func TestWaitlistRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := seedRestaurant(t, db)

	e := &models.WaitlistEntry{
		ID:             "wl-1",
		RestaurantID:   r.ID,
		CustomerName:   "Luc Bernard",
		CustomerPhone:  "+33633333333",
		DesiredDate:    "2026-03-07",
		DesiredTime:    "20:00",
		DesiredService: models.ServiceDinner,
		PartySize:      5,
		Status:         models.WaitlistWaiting,
	}
	require.NoError(t, db.CreateWaitlistEntry(ctx, e))

	got, err := db.GetWaitlistEntry(ctx, "wl-1")
	require.NoError(t, err)
	assert.Equal(t, models.ServiceDinner, got.DesiredService)
	assert.Nil(t, got.ReservationID)

	res := &models.Reservation{
		RestaurantID: r.ID, CustomerName: "Luc Bernard", CustomerPhone: "+33633333333",
		Date: "2026-03-07", Time: "20:00", Guests: 5,
		Status: models.StatusPending, Source: models.SourcePhone,
	}
	require.NoError(t, db.CreateReservation(ctx, res))
	require.NoError(t, db.SetWaitlistStatus(ctx, "wl-1", models.WaitlistConverted, &res.ID))

	got, err = db.GetWaitlistEntry(ctx, "wl-1")
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistConverted, got.Status)
	require.NotNil(t, got.ReservationID)
	assert.Equal(t, res.ID, *got.ReservationID)
}

func TestCallUpsertAndLookup(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	c := &models.Call{ExternalID: "call-abc", Phone: "+33644444444", Status: "in-progress"}
	require.NoError(t, db.UpsertCall(ctx, c))
	require.NotZero(t, c.ID)

	got, err := db.GetCallByExternalID(ctx, "call-abc")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "+33644444444", got.Phone)

	// Another call lands in between, so a stale last-insert rowid on the
	// conflict path would point at the wrong row.
	require.NoError(t, db.UpsertCall(ctx, &models.Call{ExternalID: "call-def", Status: "in-progress"}))

	// Second webhook for the same call updates in place and reports the
	// existing row's id.
	c2 := &models.Call{ExternalID: "call-abc", Status: "ended"}
	require.NoError(t, db.UpsertCall(ctx, c2))
	assert.Equal(t, c.ID, c2.ID)
	got, err = db.GetCallByExternalID(ctx, "call-abc")
	require.NoError(t, err)
	assert.Equal(t, "ended", got.Status)

	_, err = db.GetCallByExternalID(ctx, "call-unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}
