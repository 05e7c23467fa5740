package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

var ErrLockNotAcquired = apperr.New(apperr.ErrConflict, "slot is being booked by another request, retry")

// SlotKey names the contended (doctor, date, start) booking slot.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     timeslot.Date
	Start    timeslot.TimeOfDay
}

func (k SlotKey) String() string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", k.DoctorID, k.Date, k.Start)
}

// Locker is used by the booking engine to serialise writers per slot
type Locker interface {
	WithSlotLock(ctx context.Context, key SlotKey, fn func(ctx context.Context) error) error
}

// NoopLocker runs fn directly. Used when Redis is not configured; the store
// constraints still prevent double booking.
type NoopLocker struct{}

func (NoopLocker) WithSlotLock(ctx context.Context, _ SlotKey, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisSlotLocker creates a locker that uses a per slot Redis key. A busy
// key is retried until wait has elapsed.
func NewRedisSlotLocker(client *redis.Client, ttl, wait time.Duration) Locker {
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
	}
}

func (l *redisSlotLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire slot lock: %w", err)
		}
		if ok {
			return nil
		}
		if !time.Now().Add(l.retry).Before(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *redisSlotLocker) WithSlotLock(ctx context.Context, key SlotKey, fn func(ctx context.Context) error) error {
	k := key.String()
	token := uuid.NewString()

	if err := l.acquire(ctx, k, token); err != nil {
		return err
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = l.release(releaseCtx, k, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
