package cache

import (
	"context"
	"time"
)

// WindowResult reports the state of a fixed rate-limit window after a hit
type WindowResult struct {
	Count   int64
	ResetIn time.Duration
}

// HitWindow counts one hit against key inside a fixed window. The window
// starts with the first hit and expires after window.
func (c *Cache) HitWindow(ctx context.Context, key string, window time.Duration) (WindowResult, error) {
	if !c.Enabled() {
		return WindowResult{}, ErrCacheDisabled
	}

	nsKey := c.namespaceKey(key)

	count, err := c.client.Incr(ctx, nsKey).Result()
	if err != nil {
		return WindowResult{}, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, nsKey, window).Err(); err != nil {
			return WindowResult{}, err
		}
	}

	ttl, err := c.client.PTTL(ctx, nsKey).Result()
	if err != nil {
		return WindowResult{}, err
	}
	if ttl < 0 {
		// a previous hit died between INCR and EXPIRE
		if err := c.client.Expire(ctx, nsKey, window).Err(); err != nil {
			return WindowResult{}, err
		}
		ttl = window
	}

	return WindowResult{Count: count, ResetIn: ttl}, nil
}
