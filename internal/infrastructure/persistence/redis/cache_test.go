package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "cache.internal"
	cfg.Port = 6380
	cfg.DB = 3

	opts := cfg.options()
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 4*time.Second, opts.PoolTimeout)
}

func TestEncode(t *testing.T) {
	_, err := encode("", 1)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)

	_, err = encode("leaderboard:top", make(chan int))
	assert.ErrorIs(t, err, ErrCacheSerialization)

	data, err := encode("lock:daily", "token")
	require.NoError(t, err)
	assert.Equal(t, `"token"`, string(data))
}
