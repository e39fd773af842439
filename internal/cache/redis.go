package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enriqueman/articlecrew/internal/logger"
)

const (
	codeCacheConnect = "001"
	codeCacheRead    = "002"
	codeCacheWrite   = "003"
)

// RedisCache stores entries as JSON under KeyPrefix with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the server at url (redis://...) and verifies it
// answers a PING.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, cacheError(codeCacheConnect, fmt.Sprintf("Invalid Redis URL '%s'", url), err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, cacheError(codeCacheConnect, fmt.Sprintf("Cannot reach Redis at %s", opts.Addr), err)
	}

	logger.Op.WithFields(map[string]interface{}{
		"addr": opts.Addr,
		"ttl":  ttl.String(),
	}).Debug("Redis result cache connected")

	return NewRedisCacheFromClient(client, ttl), nil
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, cacheError(codeCacheRead, "Failed to read cached output", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}).Warn("Discarding corrupt cache entry")
		return "", false, nil
	}
	return e.Value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	data, err := json.Marshal(entry{Value: value, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, KeyPrefix+key, data, c.ttl).Err(); err != nil {
		return cacheError(codeCacheWrite, "Failed to write cached output", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
