// Package lock provides a Redis mutex so that several workers sharing one
// receipt printer never interleave their byte streams.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when a lease was lost to expiry before release.
var ErrNotHeld = errors.New("lock: lease no longer held")

const (
	defaultTTL  = 30 * time.Second
	defaultPoll = 50 * time.Millisecond
)

// compare-and-delete / compare-and-pexpire keyed on the lease token.
var (
	releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) end return 0`)
	extendScript  = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("pexpire", KEYS[1], ARGV[2]) end return 0`)
)

// PrinterKey is the lock key guarding the printer reachable at target.
func PrinterKey(target string) string {
	if target = strings.TrimSpace(target); target == "" {
		target = "default"
	}
	return "lock:printer:" + target
}

// Locker hands out leases on Redis keys. Poll is how often a waiting caller
// retries a held key.
type Locker struct {
	Client *redis.Client
	Poll   time.Duration
}

// Lease is a held lock. It lapses after its TTL unless extended.
type Lease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// Acquire blocks until key is free or ctx is done.
func (l Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l.Client == nil {
		return nil, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	poll := l.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	lease := &Lease{client: l.Client, key: key, token: uuid.NewString(), ttl: ttl}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		ok, err := l.Client.SetNX(ctx, key, lease.token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return lease, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Extend pushes the lease expiry out by its TTL again.
func (ls *Lease) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, ls.client, []string{ls.key}, ls.token, ls.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Release frees the key if this lease still owns it.
func (ls *Lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, ls.client, []string{ls.key}, ls.token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// WithLock runs fn while holding key. A print that outlives ttl keeps its
// lease by extending it every ttl/2. The lease is released when fn returns.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	lease, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() { _ = lease.Release(context.Background()) }()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(max(lease.ttl/2, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if lease.Extend(context.Background()) != nil {
					return
				}
			}
		}
	}()
	return fn(ctx)
}
