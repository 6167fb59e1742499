package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	checkoutLockPrefix = "checkout:lock:"
	lockRetryInterval  = 20 * time.Millisecond
)

// releaseLockScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another request is never released by us.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker serializes checkouts of the same basket across processes.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func lockKey(basketID int64) string {
	return checkoutLockPrefix + strconv.FormatInt(basketID, 10)
}

func (r *RedisLocker) Lock(ctx context.Context, basketID int64) (func(), error) {
	key := lockKey(basketID)
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("setnx %s: %w", key, err)
		}
		if ok {
			return func() { r.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RedisLocker) release(key, token string) {
	// the request context may already be cancelled by now
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseLockScript.Run(ctx, r.client, []string{key}, token)
}

// LocalLocker is the in-process stand-in used when no Redis is configured.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[int64]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, basketID int64) (func(), error) {
	for {
		l.mu.Lock()
		held, busy := l.locks[basketID]
		if !busy {
			ch := make(chan struct{})
			l.locks[basketID] = ch
			l.mu.Unlock()
			return func() { l.unlock(basketID, ch) }, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-held:
		}
	}
}

func (l *LocalLocker) unlock(basketID int64, ch chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[basketID] == ch {
		delete(l.locks, basketID)
		close(ch)
	}
}
