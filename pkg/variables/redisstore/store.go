// Package redisstore backs the global variable scope with Redis so values
// survive across executions and engine instances.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "stepflow:variables:"

// Store implements variables.GlobalStore on a Redis client.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewStore creates a Redis-backed global variable store. A zero ttl means the
// keys never expire.
func NewStore(client redis.UniversalClient, logger *slog.Logger, ttl time.Duration) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
		logger:    logger.With("module", "redisstore"),
	}
}

// NewStoreFromURL connects using a redis:// URL.
func NewStoreFromURL(url string, logger *slog.Logger, ttl time.Duration) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return NewStore(redis.NewClient(options), logger, ttl), nil
}

// Get fetches a global variable. The second return reports whether the key
// exists at all.
func (s *Store) Get(ctx context.Context, name string) (any, bool, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to read global variable %q: %w", name, err)
	}

	var value any

	err = json.Unmarshal([]byte(payload), &value)
	if err != nil {
		// Pre-JSON writers may have stored raw strings; hand them back as-is.
		return payload, true, nil
	}

	return value, true, nil
}

// Set stores a global variable as JSON.
func (s *Store) Set(ctx context.Context, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode global variable %q: %w", name, err)
	}

	err = s.client.Set(ctx, s.keyPrefix+name, payload, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to write global variable %q: %w", name, err)
	}

	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
