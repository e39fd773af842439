// Package cache stores task outputs keyed by task identity and the hashes of
// their upstream outputs, so an unchanged task is never sent to the model twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/logger"
)

// KeyPrefix namespaces cache entries in shared stores.
const KeyPrefix = "articlecrew:task:"

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Cache is a task output cache.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// KeyInput identifies one task execution.
type KeyInput struct {
	TaskID         string
	Agent          string
	Model          string
	Description    string
	ExpectedOutput string
	// Upstream holds predecessor outputs in dependency order.
	Upstream []string
}

// Key returns the hex SHA-256 of the input. Upstream outputs contribute only
// their own hashes, in order.
func Key(in KeyInput) string {
	upstream := make([]string, len(in.Upstream))
	for i, out := range in.Upstream {
		sum := sha256.Sum256([]byte(out))
		upstream[i] = hex.EncodeToString(sum[:])
	}

	data, _ := json.Marshal(struct {
		TaskID         string   `json:"task_id"`
		Agent          string   `json:"agent"`
		Model          string   `json:"model"`
		Description    string   `json:"description"`
		ExpectedOutput string   `json:"expected_output"`
		Upstream       []string `json:"upstream"`
	}{in.TaskID, in.Agent, in.Model, in.Description, in.ExpectedOutput, upstream})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Options selects and tunes a cache backend.
type Options struct {
	RedisURL string
	TTL      time.Duration
}

// New returns a Redis cache when a URL is configured and an in-process cache
// otherwise.
func New(ctx context.Context, opts Options) (Cache, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if opts.RedisURL == "" {
		logger.Op.Debug("Using in-memory result cache")
		return NewMemoryCache(ttl), nil
	}
	return NewRedisCache(ctx, opts.RedisURL, ttl)
}

type entry struct {
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

func cacheError(code, message string, err error) error {
	return apperrors.NewPipelineError(apperrors.ErrorCategoryCache, code, message, "Result cache").
		WithOriginalError(err).
		WithTroubleshooting(
			"Check that the Redis server in --redis-url is reachable",
			"Run without --redis-url to use the in-memory cache",
		)
}
