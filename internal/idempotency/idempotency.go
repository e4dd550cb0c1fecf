// Package idempotency guards checkout against double submission using the
// Idempotency-Key header and Redis.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const Header = "Idempotency-Key"

// keyCheckout: idem:checkout:{user_id}:{idempotency_key} -> "inflight" | order_id
const keyCheckout = "idem:checkout:%s:%s"

const inflight = "inflight"

var ErrInProgress = errors.New("request with this idempotency key is still in progress")

func CheckoutKey(userID, key string) string {
	return fmt.Sprintf(keyCheckout, userID, strings.TrimSpace(key))
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// Begin claims key. It returns the order id recorded by an earlier completed
// request, ErrInProgress while another request holds the key, or "" once the
// caller owns it.
func (g *RedisGuard) Begin(ctx context.Context, key string) (string, error) {
	ok, err := g.rdb.SetNX(ctx, key, inflight, g.ttl).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return "", nil
	}
	v, err := g.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = g.rdb.SetNX(ctx, key, inflight, g.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return "", nil
		}
		return "", ErrInProgress
	}
	if err != nil {
		return "", err
	}
	if v == inflight {
		return "", ErrInProgress
	}
	return v, nil
}

func (g *RedisGuard) Complete(ctx context.Context, key, orderID string) error {
	return g.rdb.Set(ctx, key, orderID, g.ttl).Err()
}

func (g *RedisGuard) Abort(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, key).Err()
}

// Off is a guard that never remembers anything.
type Off struct{}

func (Off) Begin(context.Context, string) (string, error)   { return "", nil }
func (Off) Complete(context.Context, string, string) error { return nil }
func (Off) Abort(context.Context, string) error            { return nil }
