package prescription

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinqo-prescriber/internal/common/cache"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	entries map[string]*models.PrescriptionResult
	getErr  error
	setErr  error
	sets    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]*models.PrescriptionResult{}}
}

func (m *memoryStore) Get(_ context.Context, transcript string) (*models.PrescriptionResult, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.entries[transcript]
	return r, ok, nil
}

func (m *memoryStore) Set(_ context.Context, transcript string, result *models.PrescriptionResult) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[transcript] = result
	return nil
}

func TestCachedGenerator_HitSkipsModel(t *testing.T) {
	completer := &fakeCompleter{content: validPayload}
	store := newMemoryStore()
	cached := NewCachedGenerator(newTestGenerator(t, createTestConfig(), completer), store, logger.NewTestLogger(t),
		WithCacheClock(func() time.Time { return fixedNow }))

	first, err := cached.Generate(context.Background(), "headache")
	require.NoError(t, err)
	second, err := cached.Generate(context.Background(), "headache")
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, first, second)
}

func TestCachedGenerator_HitIsStampedNow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := start
	clock := func() time.Time { return current }

	completer := &fakeCompleter{content: validPayload}
	gen := newTestGenerator(t, createTestConfig(), completer, WithClock(clock))
	store := cache.NewResultCache(client, "test/model", time.Hour, logger.NewNoOpLogger())
	cached := NewCachedGenerator(gen, store, logger.NewTestLogger(t), WithCacheClock(clock))

	first, err := cached.Generate(context.Background(), "headache")
	require.NoError(t, err)

	current = start.Add(5 * time.Minute)
	second, err := cached.Generate(context.Background(), "headache")
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, "2026-01-01T00:00:00Z", first.Timestamp)
	assert.Equal(t, "2026-01-01T00:05:00Z", second.Timestamp)
	assert.Equal(t, first.Prescription, second.Prescription)
	assert.Equal(t, first.ModelUsed, second.ModelUsed)
}

func TestCachedGenerator_HitDoesNotMutateStoredResult(t *testing.T) {
	store := newMemoryStore()
	stored := &models.PrescriptionResult{Status: models.StatusSuccess, Timestamp: "2020-01-01T00:00:00Z", ModelUsed: "test/model"}
	store.entries["cough"] = stored
	cached := NewCachedGenerator(newTestGenerator(t, createTestConfig(), &fakeCompleter{}), store, logger.NewNoOpLogger(),
		WithCacheClock(func() time.Time { return fixedNow }))

	result, err := cached.Generate(context.Background(), "cough")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-04T03:06:07Z", result.Timestamp)
	assert.Equal(t, "2020-01-01T00:00:00Z", stored.Timestamp)
}

func TestCachedGenerator_FallbackNotStored(t *testing.T) {
	completer := &fakeCompleter{content: "no json here"}
	store := newMemoryStore()
	cached := NewCachedGenerator(newTestGenerator(t, createTestConfig(), completer), store, logger.NewNoOpLogger())

	result, err := cached.Generate(context.Background(), "headache")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFallback, result.Status)
	assert.Zero(t, store.sets)
}

func TestCachedGenerator_StoreErrorsIgnored(t *testing.T) {
	completer := &fakeCompleter{content: validPayload}
	store := newMemoryStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	cached := NewCachedGenerator(newTestGenerator(t, createTestConfig(), completer), store, logger.NewNoOpLogger())

	result, err := cached.Generate(context.Background(), "headache")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, 1, completer.calls)
}

func TestCachedGenerator_ConfigErrorPassesThrough(t *testing.T) {
	cfg := createTestConfig()
	cfg.APIKey = ""
	cached := NewCachedGenerator(newTestGenerator(t, cfg, &fakeCompleter{}), newMemoryStore(), logger.NewNoOpLogger())

	_, err := cached.Generate(context.Background(), "headache")
	assert.Error(t, err)
}
