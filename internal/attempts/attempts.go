// Package attempts counts failed tool calls per phone call so the agent
// can offer a human handoff after repeated misses. Counters live in Redis
// with a TTL slightly longer than any realistic call.
package attempts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Minute

// Tracker increments per-call failure counters in Redis.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{client: client, ttl: defaultTTL}
}

func key(callExternalID string) string {
	return "resavox:failures:" + callExternalID
}

// RecordFailure bumps the counter for the call and returns the new total.
func (t *Tracker) RecordFailure(ctx context.Context, callExternalID string) (int, error) {
	k := key(callExternalID)
	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record failure for call %s: %w", callExternalID, err)
	}
	return int(incr.Val()), nil
}

// Reset clears the counter, typically after a successful operation.
func (t *Tracker) Reset(ctx context.Context, callExternalID string) error {
	if err := t.client.Del(ctx, key(callExternalID)).Err(); err != nil {
		return fmt.Errorf("reset failures for call %s: %w", callExternalID, err)
	}
	return nil
}
