package prescription

import (
	"context"
	"time"

	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/common/metrics"
	"clinqo-prescriber/internal/models"
)

// ResultStore caches successful results keyed by transcript.
type ResultStore interface {
	Get(ctx context.Context, transcript string) (*models.PrescriptionResult, bool, error)
	Set(ctx context.Context, transcript string, result *models.PrescriptionResult) error
}

// CachedGenerator serves repeated transcripts from a ResultStore. Cache
// errors never fail a request; they only cost a model call.
type CachedGenerator struct {
	inner  Pipeline
	store  ResultStore
	logger logger.Logger
	now    func() time.Time
}

type CachedOption func(*CachedGenerator)

// WithCacheClock sets the clock used to stamp results served from the store.
func WithCacheClock(now func() time.Time) CachedOption {
	return func(c *CachedGenerator) { c.now = now }
}

func NewCachedGenerator(inner Pipeline, store ResultStore, log logger.Logger, opts ...CachedOption) *CachedGenerator {
	c := &CachedGenerator{
		inner:  inner,
		store:  store,
		logger: log.With(map[string]interface{}{"component": "prescription-cache"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedGenerator) Generate(ctx context.Context, transcript string) (*models.PrescriptionResult, error) {
	cached, found, err := c.store.Get(ctx, transcript)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache lookup failed", map[string]interface{}{"error": err.Error()})
	case found:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		hit := *cached
		hit.Timestamp = formatTimestamp(c.now())
		return &hit, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	result, err := c.inner.Generate(ctx, transcript)
	if err != nil {
		return nil, err
	}

	if result.Status == models.StatusSuccess {
		if err := c.store.Set(ctx, transcript, result); err != nil {
			c.logger.Warn("cache store failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return result, nil
}
