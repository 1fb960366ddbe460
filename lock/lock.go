// Package lock provides a short-lived redis lease so only one request at a
// time drives a ticket through confirmation.
package lock

import (
	"context"
	"errors"
	"eventers-ticketing-backend/logger"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrHeld = errors.New("lock is held by another request")
	// ErrLost means the lease expired before it was released.
	ErrLost = errors.New("lock expired before release")
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lease for name. The returned func releases it.
func (l *Locker) Acquire(ctx context.Context, name string) (func(), error) {
	key := Key(name)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire: %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return func() {
		if err := l.release(context.Background(), key, token); err != nil {
			logger.Errorf(ctx, "lock: %+v", err)
		}
	}, nil
}

func (l *Locker) release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("release: %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("release: %s: %w", key, ErrLost)
	}
	return nil
}

func Key(name string) string {
	return fmt.Sprintf("lock:confirm:%s", name)
}
