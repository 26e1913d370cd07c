package waitlist

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resavox/internal/models"
)

type fakeStore struct {
	created     []*models.WaitlistEntry
	statusID    string
	status      string
	reservation *int64
}

func (f *fakeStore) CreateWaitlistEntry(_ context.Context, e *models.WaitlistEntry) error {
	f.created = append(f.created, e)
	return nil
}

func (f *fakeStore) SetWaitlistStatus(_ context.Context, id, status string, reservationID *int64) error {
	f.statusID = id
	f.status = status
	f.reservation = reservationID
	return nil
}

func TestCaptureDerivesService(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store, zerolog.Nop())

	entry, err := s.Capture(context.Background(), CaptureRequest{
		RestaurantID:  1,
		CustomerName:  "Jean Dupont",
		CustomerPhone: "+33612345678",
		DesiredDate:   "2026-03-02",
		DesiredTime:   "12:30",
		PartySize:     4,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.ServiceLunch, entry.DesiredService)
	assert.Equal(t, models.WaitlistWaiting, entry.Status)
	require.Len(t, store.created, 1)
}

func TestCaptureWithoutTimeLeavesServiceOpen(t *testing.T) {
	s := NewService(&fakeStore{}, zerolog.Nop())

	entry, err := s.Capture(context.Background(), CaptureRequest{
		RestaurantID: 1,
		CustomerName: "Jean Dupont",
		DesiredDate:  "2026-03-02",
		PartySize:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ServiceAny, entry.DesiredService)
}

func TestCaptureLargePartyNeedsManagerCall(t *testing.T) {
	s := NewService(&fakeStore{}, zerolog.Nop())

	entry, err := s.Capture(context.Background(), CaptureRequest{
		RestaurantID:     1,
		CustomerName:     "Jean Dupont",
		DesiredDate:      "2026-03-02",
		DesiredTime:      "20:00",
		PartySize:        15,
		NeedsManagerCall: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.WaitlistNeedsManagerCall, entry.Status)
}

func TestConvert(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store, zerolog.Nop())

	require.NoError(t, s.Convert(context.Background(), "entry-1", 42))
	assert.Equal(t, "entry-1", store.statusID)
	assert.Equal(t, models.WaitlistConverted, store.status)
	require.NotNil(t, store.reservation)
	assert.Equal(t, int64(42), *store.reservation)
}
