// Package redis keeps the session username under a Redis key with a TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"rentledger/pkg/domain"
)

var _ domain.SessionStore = (*Store)(nil)

// DefaultKey is the key holding the username.
const DefaultKey = "rentledger:session:user"

// Client is the subset of the go-redis client the store uses.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// Store implements domain.SessionStore on Redis.
type Store struct {
	client Client
	key    string
	ttl    time.Duration
}

// Options configures Dial.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, opts Options) (*Store, *goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return New(client, opts.Key, opts.TTL), client, nil
}

// New wraps an existing client. An empty key uses DefaultKey; a zero ttl
// keeps the session until logout.
func New(client Client, key string, ttl time.Duration) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key, ttl: ttl}
}

// Load implements domain.SessionStore.
func (s *Store) Load(ctx context.Context) (string, bool, error) {
	username, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", s.key, err)
	}
	return username, username != "", nil
}

// Save implements domain.SessionStore.
func (s *Store) Save(ctx context.Context, username string) error {
	if err := s.client.Set(ctx, s.key, username, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

// Clear implements domain.SessionStore.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", s.key, err)
	}
	return nil
}
