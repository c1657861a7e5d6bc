package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var pingClient = func(ctx context.Context, c *redis.Client) error {
	return c.Ping(ctx).Err()
}

// NewClient parses url, applies password when set and pings the server.
// The caller owns the returned client and closes it on shutdown.
func NewClient(url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	if password != "" {
		opts.Password = password
	}

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pingClient(ctx, c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// KeyStore exposes the plain key operations the idempotency middleware needs
type KeyStore struct {
	client *redis.Client
}

func NewKeyStore(c *redis.Client) *KeyStore {
	return &KeyStore{client: c}
}

// Set stores a key-value pair with expiration
func (s *KeyStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key
func (s *KeyStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

// Del removes a key
func (s *KeyStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// SetNX sets a key only if it does not exist
func (s *KeyStore) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, expiration).Result()
}
