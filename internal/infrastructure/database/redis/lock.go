package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medimatch/medimatch/pkg/errors"
)

const lockKeyPrefix = "medimatch:lock:"

// unlockScript deletes the lock only if the caller still owns it.
var unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

// extendScript refreshes the TTL only if the caller still owns the lock.
var extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held")

// Mutex is a best-effort distributed lock. The OCR worker takes one per
// prescription ID so a redelivered Kafka message is not processed twice
// concurrently.
type Mutex struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewMutex creates a mutex for name with the given TTL. The TTL bounds how
// long a crashed holder can block other workers.
func NewMutex(client *Client, name string, ttl time.Duration) *Mutex {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Mutex{
		client: client,
		key:    lockKeyPrefix + name,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts to acquire the lock without blocking.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	if m.client.isClosed() {
		return false, ErrClientClosed
	}
	ok, err := m.client.rdb.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed")
	}
	return ok, nil
}

// Lock blocks until the lock is acquired, the retry interval polling Redis,
// or ctx is done.
func (m *Mutex) Lock(ctx context.Context, retry time.Duration) error {
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}
	ticker := time.NewTicker(retry)
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
			return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "lock wait canceled")
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock if this mutex still owns it.
func (m *Mutex) Unlock(ctx context.Context) error {
	if m.client.isClosed() {
		return ErrClientClosed
	}
	n, err := m.client.rdb.Eval(ctx, unlockScript, []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend refreshes the lock TTL for long-running work.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) error {
	if m.client.isClosed() {
		return ErrClientClosed
	}
	if ttl <= 0 {
		ttl = m.ttl
	}
	n, err := m.client.rdb.Eval(ctx, extendScript, []string{m.key}, m.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock extend failed")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
