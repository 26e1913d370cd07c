package attempts

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testTracker(t *testing.T) *Tracker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTracker(client)
}

func TestRecordFailureCounts(t *testing.T) {
	tr := testTracker(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := tr.RecordFailure(ctx, "call-abc")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	// separate call, separate counter
	got, err := tr.RecordFailure(ctx, "call-xyz")
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestResetClearsCounter(t *testing.T) {
	tr := testTracker(t)
	ctx := context.Background()

	_, err := tr.RecordFailure(ctx, "call-abc")
	require.NoError(t, err)
	require.NoError(t, tr.Reset(ctx, "call-abc"))

	got, err := tr.RecordFailure(ctx, "call-abc")
	require.NoError(t, err)
	require.Equal(t, 1, got)
}
