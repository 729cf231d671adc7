package data

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/mangaread/pkg/utils"
)

// Runs against a real server: MANGAS_TEST_REDIS_URL=redis://localhost:6379/15
func newTestRedisStore(t *testing.T, quota int64) *RedisStore {
	t.Helper()

	url := os.Getenv("MANGAS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MANGAS_TEST_REDIS_URL not set")
	}
	store, err := NewRedisStore(url, quota, utils.Discard())
	require.NoError(t, err)

	keys, err := store.Keys("")
	require.NoError(t, err)
	require.NoError(t, store.Remove(keys...))
	require.NoError(t, store.client.Del(t.Context(), redisUsageKey).Err())

	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newTestRedisStore(t, 0)

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("reader_slug", "solo-leveling"))
	v, ok, err := store.Get("reader_slug")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "solo-leveling", v)

	require.NoError(t, store.Remove("reader_slug"))
	_, ok, err = store.Get("reader_slug")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreQuota(t *testing.T) {
	store := newTestRedisStore(t, 10)

	require.NoError(t, store.Set("a", "123456789"))
	assert.ErrorIs(t, store.Set("b", "1"), ErrQuotaExceeded)

	// overwriting only charges the difference
	require.NoError(t, store.Set("a", "12345678"))

	require.NoError(t, store.Remove("a"))
	assert.NoError(t, store.Set("b", "1"))
}

func TestRedisStoreKeysEscapesPrefix(t *testing.T) {
	store := newTestRedisStore(t, 0)

	require.NoError(t, store.Set("reader_scroll_position_a*_h1", "1"))
	require.NoError(t, store.Set("reader_scroll_position_ab_h2", "2"))

	keys, err := store.Keys("reader_scroll_position_a*_")
	require.NoError(t, err)
	assert.Equal(t, []string{"reader_scroll_position_a*_h1"}, keys)
}
