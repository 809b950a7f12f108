// Package redisx holds the redis-backed order status cache and the
// idempotency store for order creation.
package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/modelshop/internal/models"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

type statusEntry struct {
	Status    models.OrderStatus `json:"status"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// StatusCache keeps the latest known status of recent orders.
type StatusCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStatusCache(rdb redis.Cmdable) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: TTLStatusCache}
}

func (c *StatusCache) Set(ctx context.Context, orderID string, status models.OrderStatus) error {
	b, err := json.Marshal(statusEntry{Status: status, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, statusKey(orderID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache status %s: %w", orderID, err)
	}
	return nil
}

// Get reports ok=false on a cache miss.
func (c *StatusCache) Get(ctx context.Context, orderID string) (models.OrderStatus, bool, error) {
	b, err := c.rdb.Get(ctx, statusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cached status %s: %w", orderID, err)
	}
	var e statusEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return "", false, fmt.Errorf("decode cached status %s: %w", orderID, err)
	}
	return e.Status, true, nil
}

func (c *StatusCache) Delete(ctx context.Context, orderID string) error {
	return c.rdb.Del(ctx, statusKey(orderID)).Err()
}

// Idempotency maps a client supplied Idempotency-Key to the order it created.
type Idempotency struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewIdempotency(rdb redis.Cmdable) *Idempotency {
	return &Idempotency{rdb: rdb, ttl: TTLIdempotency}
}

func (i *Idempotency) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	id, err := i.rdb.Get(ctx, idemKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return id, true, nil
}

// Remember stores the mapping unless the key is already taken.
func (i *Idempotency) Remember(ctx context.Context, userID, key, orderID string) error {
	if err := i.rdb.SetNX(ctx, idemKey(userID, key), orderID, i.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}
