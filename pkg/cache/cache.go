package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout is the timeout for individual Redis operations
	defaultOperationTimeout = 5 * time.Second
)

var ErrCacheMiss = errors.New("key not found")

type Cache struct {
	client  *redis.Client
	enabled bool
}

func NewCache(addr string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:  client,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache is backed by Redis.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// operationContext bounds a Redis call by the caller's context and the default timeout.
func (c *Cache) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, defaultOperationTimeout)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.Enabled() {
		return fmt.Errorf("cache disabled")
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrCacheMiss
	} else if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// SetIfAbsent stores value under key only when the key does not exist yet.
// It reports whether the value was stored. A disabled cache always stores.
func (c *Cache) SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, key, jsonData, expiration).Result()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// PaymentRecordKey identifies a cached provider view of a payment.
func PaymentRecordKey(paymentID string) string {
	return fmt.Sprintf("payment:record:%s", paymentID)
}

// PaymentDeliveryKey identifies one observed state of a payment.
func PaymentDeliveryKey(paymentID, status string) string {
	return fmt.Sprintf("webhook:payment:%s:%s", paymentID, status)
}

// MarkPaymentDelivery records that paymentID was reconciled with status.
// It returns false when the same pair was already recorded.
func (c *Cache) MarkPaymentDelivery(ctx context.Context, paymentID, status string, ttl time.Duration) (bool, error) {
	return c.SetIfAbsent(ctx, PaymentDeliveryKey(paymentID, status), time.Now().UTC(), ttl)
}

// ForgetPaymentDelivery removes the marker so a redelivery is processed again.
func (c *Cache) ForgetPaymentDelivery(ctx context.Context, paymentID, status string) error {
	return c.Delete(ctx, PaymentDeliveryKey(paymentID, status))
}
