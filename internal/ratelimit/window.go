// Package ratelimit throttles login attempts per register with a sliding
// window kept in Redis.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of recording one attempt.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Window counts attempts per key over the trailing Size. Each attempt is a
// member of a sorted set scored by its timestamp; members older than Size are
// trimmed before counting.
type Window struct {
	Client *redis.Client
	Prefix string
	Size   time.Duration
	Max    int

	now func() time.Time
}

func (w Window) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

func (w Window) key(k string) string {
	return w.Prefix + ":" + k
}

// Hit records an attempt for k. A window without a client or with a
// non-positive Size or Max lets everything through.
func (w Window) Hit(ctx context.Context, k string) (Decision, error) {
	now := w.clock()
	d := Decision{Allowed: true, Limit: w.Max, Remaining: w.Max, ResetAt: now.Add(w.Size)}
	if w.Client == nil || w.Max <= 0 || w.Size <= 0 {
		return d, nil
	}

	key := w.key(k)
	oldest := strconv.FormatInt(now.Add(-w.Size).UnixNano(), 10)
	pipe := w.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+oldest)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, w.Size)
	if _, err := pipe.Exec(ctx); err != nil {
		return d, err
	}

	seen := int(count.Val())
	d.Allowed = seen <= w.Max
	d.Remaining = max(w.Max-seen, 0)
	return d, nil
}

// Reset forgets every attempt recorded for k.
func (w Window) Reset(ctx context.Context, k string) error {
	if w.Client == nil {
		return nil
	}
	return w.Client.Del(ctx, w.key(k)).Err()
}
