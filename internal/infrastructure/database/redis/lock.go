package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// releaseScript deletes the lock only when the caller still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Mutex is a single-instance distributed lock used to serialize migration
// runs against the same target file.
type Mutex struct {
	client *Client
	logger logging.Logger
	name   string
	token  string
	ttl    time.Duration
}

// NewMutex creates a lock named name with the given TTL (30s when zero).
func NewMutex(client *Client, log logging.Logger, name string, ttl time.Duration) *Mutex {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Mutex{
		client: client,
		logger: log,
		name:   "datamigrate:lock:" + name,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts a single non-blocking acquisition.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.name, m.token, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed").WithDetail(m.name)
	}
	return ok, nil
}

// Lock blocks until the lock is acquired or ctx is done, retrying every
// 100ms.
func (m *Mutex) Lock(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLockNotAcquired.WithCause(ctx.Err())
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock if this mutex still owns it.
func (m *Mutex) Unlock(ctx context.Context) error {
	res, err := m.client.Eval(ctx, releaseScript, []string{m.name}, m.token).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed").WithDetail(m.name)
	}
	if n, ok := res.(int64); !ok || n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Idempotency
// ─────────────────────────────────────────────────────────────────────────────

// Idempotency claims one-shot keys so replayed kafka jobs are executed at
// most once within the claim TTL.
type Idempotency struct {
	client *Client
	ttl    time.Duration
}

// NewIdempotency uses a 24h default claim TTL when ttl is zero.
func NewIdempotency(client *Client, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{client: client, ttl: ttl}
}

// Claim returns true when the key was not claimed before.
func (i *Idempotency) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := i.client.SetNX(ctx, "datamigrate:idem:"+key, time.Now().UTC().Format(time.RFC3339), i.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "idempotency claim failed").WithDetail(key)
	}
	return ok, nil
}

// Release frees a claim, allowing the job to be retried after a failure.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	if err := i.client.Del(ctx, "datamigrate:idem:"+key).Err(); err != nil && err != redis.Nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "idempotency release failed").WithDetail(key)
	}
	return nil
}
