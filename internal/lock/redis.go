// Package lock provides a Redis-backed engine.Locker for several workers
// sharing one record store.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	keySeparator  = ":"
	lockPrefix    = "lock"
	recordSegment = "record"

	// DefaultTTL bounds how long a crashed holder blocks a record. A live
	// holder keeps extending it, see RedisLocker.Refresh.
	DefaultTTL = 5 * time.Minute

	// DefaultRetry is the polling interval while the lock is held elsewhere.
	DefaultRetry = 50 * time.Millisecond
)

// ErrLockFailed wraps Redis errors raised while acquiring a lock.
var ErrLockFailed = errors.New("failed to acquire record lock in redis")

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// refreshScript extends the key's TTL only if it still holds our token.
const refreshScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`

// Client is the subset of *redis.Client the locker uses.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker serializes operations on a record across processes with
// SET NX PX. Each acquisition writes a random token; release only deletes
// the key while it still carries that token.
//
// While held, the key's TTL is extended every Refresh so a strategy may
// run longer than TTL. TTL only matters once the holder is gone.
type RedisLocker struct {
	client    Client
	Namespace string
	TTL       time.Duration
	Retry     time.Duration

	// Refresh is the TTL extension interval; zero means TTL/3.
	Refresh time.Duration
}

// NewRedisLocker creates a locker. Keys look like {namespace}:lock:record:{id}.
func NewRedisLocker(client Client, namespace string) *RedisLocker {
	return &RedisLocker{
		client:    client,
		Namespace: namespace,
		TTL:       DefaultTTL,
		Retry:     DefaultRetry,
	}
}

// NewRedisClient connects to the Redis server at addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Lock blocks until the record lock is held or ctx is done. The returned
// unlock stops the TTL refresh and releases the key; it may be called
// more than once.
func (l *RedisLocker) Lock(ctx context.Context, recordID string) (func(), error) {
	key := l.Key(recordID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLockFailed, err)
		}
		if ok {
			return l.hold(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Retry):
		}
	}
}

// hold starts the refresh loop for an acquired key and returns its unlock.
func (l *RedisLocker) hold(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.refresh(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(key, token)
		})
	}
}

// refresh extends the key's TTL until stop is closed or the key no longer
// carries token.
func (l *RedisLocker) refresh(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.Refresh
	if interval <= 0 {
		interval = l.TTL / 3
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := l.client.Eval(ctx, refreshScript, []string{key}, token, l.TTL.Milliseconds()).Int64()
		cancel()
		if err == nil && n == 0 {
			return
		}
	}
}

// release runs on a fresh context so a cancelled caller still frees the key.
func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
}

// Key returns the Redis key guarding recordID.
func (l *RedisLocker) Key(recordID string) string {
	parts := []string{lockPrefix, recordSegment, recordID}
	if l.Namespace != "" {
		parts = append([]string{l.Namespace}, parts...)
	}
	return strings.Join(parts, keySeparator)
}
