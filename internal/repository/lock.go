package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

const lockKeyPrefix = "lock:series:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ReleaseFunc - gives a held lock back.
type ReleaseFunc func(ctx context.Context) error

type SessionLocker interface {
	Acquire(ctx context.Context, id string) (ReleaseFunc, error)
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionLocker - one request per session at a time. A crashed holder frees the lock after ttl.
func NewSessionLocker(client *redis.Client, ttl time.Duration) SessionLocker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
	}
}

// Acquire - takes the lock for id or fails fast with apperror.ErrSessionBusy.
func (that *redisLocker) Acquire(ctx context.Context, id string) (ReleaseFunc, error) {
	key := lockKeyPrefix + id
	token := uuid.NewString()

	ok, err := that.client.SetNX(ctx, key, token, that.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}

	if !ok {
		return nil, apperror.ErrSessionBusy
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, that.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release session lock: %w", err)
		}
		return nil
	}, nil
}
