// Package lock provides the per-source import lock. Two imports of the same
// source never run at once; imports of different sources may.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// Release gives a held lock back.
type Release func(ctx context.Context) error

// Locker hands out named, expiring locks.
type Locker interface {
	// Acquire returns domain.ErrImportInProgress when key is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// ── Redis ─────────────────────────────────────────────────────────────────────

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker coordinates imports across processes.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisLocker returns a Locker whose keys are namespaced by prefix.
func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

// Connect dials addr and verifies the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("lock.Connect: %w", err)
	}
	return rdb, nil
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	k := l.prefix + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock.Acquire: %w", err)
	}
	if !ok {
		return nil, domain.ErrImportInProgress
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{k}, token).Err(); err != nil {
			return fmt.Errorf("lock.Release: %w", err)
		}
		return nil
	}, nil
}

// ── In-process ────────────────────────────────────────────────────────────────

// LocalLocker serialises imports inside one process. It is used when no
// Redis address is configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time // key → expiry
	now  func() time.Time
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]time.Time{}, now: time.Now}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, domain.ErrImportInProgress
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].Equal(exp) {
			delete(l.held, key)
		}
		return nil
	}, nil
}
