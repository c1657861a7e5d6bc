package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by Acquire when another owner holds the key
var ErrLockHeld = errors.New("lock held by another owner")

// only the owner that set the token may release the key
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-key mutual exclusion lock shared across processes
type Locker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewLocker creates a lock on key. The TTL bounds how long a crashed owner
// can keep others out.
func NewLocker(c *redis.Client, key string, ttl time.Duration) *Locker {
	return &Locker{client: c, key: key, ttl: ttl}
}

// Acquire takes the lock and returns a release func. ErrLockHeld means the
// key is owned by someone else.
func (l *Locker) Acquire(ctx context.Context) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("redis client not initialized")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, nil
}
