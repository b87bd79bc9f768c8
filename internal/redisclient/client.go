package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

//go:embed scripts/store_response.lua
var storeResponseScript string

const (
	lockRetryInterval = 25 * time.Millisecond
	pendingPrefix     = "pending:"
)

// ErrLockTimeout is returned when a lock could not be acquired in time
var ErrLockTimeout = errors.New("timed out waiting for lock")

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	storeScript   *redis.Script
	lockTTL       time.Duration
	lockWait      time.Duration
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int, lockTTL, lockWait time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		storeScript:   redis.NewScript(storeResponseScript),
		lockTTL:       lockTTL,
		lockWait:      lockWait,
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireLock tries once to take lockKey, returning the owner token on success
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// ReleaseLock deletes the lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// Lock blocks until lockKey is held, the context ends, or the wait budget runs out.
// The returned func releases the lock.
func (c *Client) Lock(ctx context.Context, lockKey string) (func(), error) {
	deadline := time.Now().Add(c.lockWait)

	for {
		token, ok, err := c.AcquireLock(ctx, lockKey, c.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = c.ReleaseLock(releaseCtx, lockKey, token)
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%s: %w", lockKey, ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// ReserveIdempotencyKey marks key as in flight. It returns false when the key
// already exists, either pending or completed.
func (c *Client) ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	marker := pendingPrefix + uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", key), marker, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return marker, ok, nil
}

// StoreIdempotentResponse publishes the final response for a reserved key
func (c *Client) StoreIdempotentResponse(ctx context.Context, key, marker string, response []byte, ttl time.Duration) error {
	_, err := c.storeScript.Run(ctx, c.rdb,
		[]string{fmt.Sprintf("idempotency:%s", key)},
		marker, response, int(ttl.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("store response script failed: %w", err)
	}
	return nil
}

// ReleaseIdempotencyKey drops a reservation whose request failed
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key, marker string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("idempotency:%s", key)}, marker).Result()
	return err
}

// GetIdempotentResponse returns the stored response for key. pending is true
// while the original request is still running.
func (c *Client) GetIdempotentResponse(ctx context.Context, key string) (response []byte, pending bool, err error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(val) >= len(pendingPrefix) && string(val[:len(pendingPrefix)]) == pendingPrefix {
		return nil, true, nil
	}
	return val, false, nil
}
