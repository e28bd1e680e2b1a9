package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService fronts aggregate reads with an optional cache. Writes that change
// results must call Invalidate before returning so reads never serve stale data.
// Cached keys carry the namespace generation read before the load; Invalidate
// bumps it, so a load that raced a write is stored under a key nobody reads.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate retires cached values for the provided pattern by bumping its
// generation, then removes the old entries.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.repo.Incr(ctx, generationKey(pattern)); err != nil {
		s.logger.Error("cache generation bump failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return nil
}

// versioned appends the pattern's current generation to key. ok is false when
// the generation cannot be read and the cache should be bypassed.
func (s *CacheService) versioned(ctx context.Context, pattern, key string) (string, bool) {
	var generation int64
	err := s.repo.Get(ctx, generationKey(pattern), &generation)
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache generation read failed", zap.String("pattern", pattern), zap.Error(err))
		return "", false
	}
	return key + "@g" + strconv.FormatInt(generation, 10), true
}

func generationKey(pattern string) string {
	return "generation:" + strings.TrimSuffix(pattern, "*")
}

// cached serves key from the cache or computes it with load and stores it.
// Cache failures degrade to a direct load.
func cached[T any](ctx context.Context, s *CacheService, key string, load func() (T, error)) (T, bool, error) {
	var value T
	if !s.Enabled() {
		value, err := load()
		return value, false, err
	}
	key, ok := s.versioned(ctx, analyticsPattern, key)
	if !ok {
		value, err := load()
		return value, false, err
	}
	if hit, err := s.Get(ctx, key, &value); err == nil && hit {
		return value, true, nil
	}
	value, err := load()
	if err != nil {
		return value, false, err
	}
	_ = s.Set(ctx, key, value, 0)
	return value, false, nil
}

// analyticsKey joins non-empty parts under the analytics namespace.
func analyticsKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
