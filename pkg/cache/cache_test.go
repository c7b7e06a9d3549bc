package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := NewCache(mr.Addr(), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestMarkPaymentDeliveryOnlyOnce(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	first, err := c.MarkPaymentDelivery(ctx, "123", "approved", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := c.MarkPaymentDelivery(ctx, "123", "approved", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	other, err := c.MarkPaymentDelivery(ctx, "123", "refunded", time.Hour)
	require.NoError(t, err)
	assert.True(t, other, "a new status is a new delivery")
}

func TestForgetPaymentDeliveryAllowsRetry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, err := c.MarkPaymentDelivery(ctx, "9", "pending", time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.ForgetPaymentDelivery(ctx, "9", "pending"))

	again, err := c.MarkPaymentDelivery(ctx, "9", "pending", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestMarkerExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.MarkPaymentDelivery(ctx, "7", "approved", time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	first, err := c.MarkPaymentDelivery(ctx, "7", "approved", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestDisabledCacheAlwaysStores(t *testing.T) {
	c, err := NewCache("", false)
	require.NoError(t, err)

	stored, err := c.SetIfAbsent(context.Background(), "k", "v", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	var dest string
	assert.Error(t, c.Get(context.Background(), "k", &dest))
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestCache(t)

	var dest string
	assert.ErrorIs(t, c.Get(context.Background(), "missing", &dest), ErrCacheMiss)
}
