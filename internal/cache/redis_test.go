package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *Cache) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })

	return mr, c
}

func TestHashKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{name: "single part", parts: []string{"test"}},
		{name: "multiple parts", parts: []string{"payments", "summary", "v1"}},
		{name: "empty parts", parts: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed1 := HashKey(tt.parts...)
			hashed2 := HashKey(tt.parts...)

			if hashed1 != hashed2 {
				t.Errorf("HashKey() should be consistent, got %s and %s", hashed1, hashed2)
			}
			if len(hashed1) != 32 {
				t.Errorf("HashKey() should return 32 character hex string, got length %d", len(hashed1))
			}
		})
	}

	assert.NotEqual(t, HashKey("a", "bc"), HashKey("ab", "c"))
}

func TestCache_NamespaceKey(t *testing.T) {
	cache := &Cache{}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{name: "simple key", key: "test", expected: "birthday-payments:test"},
		{name: "key with colon", key: "payments:summary", expected: "birthday-payments:payments:summary"},
		{name: "empty key", key: "", expected: "birthday-payments:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := cache.namespaceKey(tt.key); result != tt.expected {
				t.Errorf("namespaceKey() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDisabledCache(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.ErrorIs(t, c.Set(ctx, "k", "v", time.Minute), ErrCacheDisabled)
	assert.ErrorIs(t, c.SetJSON(ctx, "k", 1, time.Minute), ErrCacheDisabled)
	assert.ErrorIs(t, c.GetJSON(ctx, "k", new(int)), ErrCacheDisabled)
	_, err := c.Incr(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	_, err = c.GetInt64(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.ErrorIs(t, c.Health(ctx), ErrCacheDisabled)
	_, err = c.HitWindow(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.NoError(t, c.Close())
}

func TestJSONRoundTrip(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()

	type overview struct {
		TotalPayments int64   `json:"totalPayments"`
		TotalAmount   float64 `json:"totalAmount"`
	}

	require.NoError(t, c.SetJSON(ctx, "payments:summary", overview{TotalPayments: 2, TotalAmount: 75.5}, time.Minute))
	assert.True(t, mr.Exists("birthday-payments:payments:summary"))

	var got overview
	require.NoError(t, c.GetJSON(ctx, "payments:summary", &got))
	assert.Equal(t, overview{TotalPayments: 2, TotalAmount: 75.5}, got)

	assert.ErrorIs(t, c.GetJSON(ctx, "payments:unknown", &got), ErrCacheMiss)
}

func TestCounter(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()

	_, err := c.GetInt64(ctx, "payments:summary:generation")
	assert.ErrorIs(t, err, ErrCacheMiss)

	for i := int64(1); i <= 3; i++ {
		n, err := c.Incr(ctx, "payments:summary:generation")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err := c.GetInt64(ctx, "payments:summary:generation")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := mr.Get("birthday-payments:payments:summary:generation")
	require.NoError(t, err)
	assert.Equal(t, "3", got)

	require.NoError(t, c.Set(ctx, "not-a-number", "abc", time.Minute))
	_, err = c.GetInt64(ctx, "not-a-number")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSetExpires(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestHitWindow(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		res, err := c.HitWindow(ctx, "ratelimit:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, res.Count)
		assert.True(t, res.ResetIn > 0 && res.ResetIn <= time.Minute, "reset in %s", res.ResetIn)
	}

	mr.FastForward(time.Minute + time.Second)

	res, err := c.HitWindow(ctx, "ratelimit:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)
}
