package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hay5612/scorebot/internal/domain/types"
)

const (
	redisPrefix      = "scorebot:predict:"
	redisDialTimeout = 2 * time.Second
)

// Redis stores results as JSON values with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to url and verifies the connection with PING.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = redisDialTimeout
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Redis{client: client, prefix: redisPrefix, ttl: ttl}, nil
}

func (c *Redis) prefixKey(key string) string {
	return c.prefix + key
}

// Get implements Cache.
func (c *Redis) Get(ctx context.Context, key string) (types.PredictionResult, bool, error) {
	var r types.PredictionResult
	val, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	if err := json.Unmarshal(val, &r); err != nil {
		return r, false, fmt.Errorf("decode cached result: %w", err)
	}
	return r, true, nil
}

// Set implements Cache.
func (c *Redis) Set(ctx context.Context, key string, r types.PredictionResult) error {
	val, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefixKey(key), val, c.ttl).Err()
}

// Close implements Cache.
func (c *Redis) Close() error {
	return c.client.Close()
}
