package redisstore

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient fakes the two commands the store issues; everything else panics
// through the embedded nil interface.
type stubClient struct {
	redis.UniversalClient

	values map[string]string
	ttls   map[string]time.Duration
}

func newStubClient() *stubClient {
	return &stubClient{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (c *stubClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)

	value, ok := c.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)

		return cmd
	}

	cmd.SetVal(value)

	return cmd
}

func (c *stubClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)

	payload, ok := value.([]byte)
	if !ok {
		cmd.SetErr(redis.Nil)

		return cmd
	}

	c.values[key] = string(payload)
	c.ttls[key] = expiration
	cmd.SetVal("OK")

	return cmd
}

func (c *stubClient) Close() error { return nil }

func newTestStore(ttl time.Duration) (*Store, *stubClient) {
	client := newStubClient()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return NewStore(client, logger, ttl), client
}

func TestStore_RoundTrip(t *testing.T) {
	store, client := newTestStore(0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "count", float64(3)))

	value, found, err := store.Get(ctx, "count")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 3.0, value, 1e-9)

	assert.Contains(t, client.values, "stepflow:variables:count")
}

func TestStore_MissingKey(t *testing.T) {
	store, _ := newTestStore(0)

	value, found, err := store.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestStore_LegacyRawStringFallsBack(t *testing.T) {
	store, client := newTestStore(0)
	client.values["stepflow:variables:greeting"] = "hello"

	value, found, err := store.Get(context.Background(), "greeting")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", value)
}

func TestStore_AppliesTTL(t *testing.T) {
	store, client := newTestStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "count", float64(1)))
	assert.Equal(t, time.Minute, client.ttls["stepflow:variables:count"])
}
