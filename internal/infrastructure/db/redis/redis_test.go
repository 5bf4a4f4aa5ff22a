package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigOptions(t *testing.T) {
	t.Run("address", func(t *testing.T) {
		opts, err := Config{Addr: "cache:6379", DB: 2}.options()
		require.NoError(t, err)
		assert.Equal(t, "cache:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, defaultTimeout, opts.ReadTimeout)
	})

	t.Run("url wins", func(t *testing.T) {
		opts, err := Config{URL: "redis://:s3cret@cache.internal:6380/4", Addr: "ignored:1", Timeout: time.Second}.options()
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, "s3cret", opts.Password)
		assert.Equal(t, 4, opts.DB)
		assert.Equal(t, time.Second, opts.DialTimeout)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := Config{URL: "http://nope"}.options()
		assert.Error(t, err)
	})
}
