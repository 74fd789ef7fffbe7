// Package cache stores pipeline results in Redis so identical transcripts
// sent to the same model are answered without a second inference call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	commonerrors "clinqo-prescriber/internal/common/errors"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rx:"

type ResultCache struct {
	client redis.Cmdable
	model  string
	ttl    time.Duration
	logger logger.Logger
}

func NewResultCache(client redis.Cmdable, model string, ttl time.Duration, log logger.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		model:  model,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "result-cache"}),
	}
}

// Key derives the cache key. The model is part of the key so switching
// models never serves stale answers.
func (c *ResultCache) Key(transcript string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + transcript))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *ResultCache) Get(ctx context.Context, transcript string) (*models.PrescriptionResult, bool, error) {
	data, err := c.client.Get(ctx, c.Key(transcript)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, commonerrors.NewCacheUnavailableError(err)
	}

	var result models.PrescriptionResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"error": err.Error()})
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores successful results only. Fallback results are never cached.
func (c *ResultCache) Set(ctx context.Context, transcript string, result *models.PrescriptionResult) error {
	if result == nil || result.Status != models.StatusSuccess {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.Key(transcript), data, c.ttl).Err(); err != nil {
		return commonerrors.NewCacheUnavailableError(err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
