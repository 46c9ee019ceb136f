package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type snapshotCacheStore interface {
	GetActive(ctx context.Context, kind models.SnapshotKind) (*models.SnapshotDetail, error)
	SetActive(ctx context.Context, detail *models.SnapshotDetail, ttl time.Duration) error
	DeleteActive(ctx context.Context, kinds ...models.SnapshotKind) error
}

// SnapshotCache serves the active snapshot of each kind ahead of PostgreSQL. Redis
// failures degrade to a miss and are never returned to callers.
type SnapshotCache struct {
	store   snapshotCacheStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewSnapshotCache constructs a SnapshotCache.
func NewSnapshotCache(store snapshotCacheStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *SnapshotCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{store: store, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (c *SnapshotCache) Enabled() bool {
	return c != nil && c.enabled && c.store != nil
}

// Active returns the cached active snapshot of kind.
func (c *SnapshotCache) Active(ctx context.Context, kind models.SnapshotKind) (*models.SnapshotDetail, bool) {
	if !c.Enabled() {
		return nil, false
	}
	start := time.Now()
	detail, err := c.store.GetActive(ctx, kind)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("snapshot cache read failed", zap.String("kind", string(kind)), zap.Error(err))
		}
		return nil, false
	}
	return detail, true
}

// Remember caches detail as the active snapshot of its kind.
func (c *SnapshotCache) Remember(ctx context.Context, detail *models.SnapshotDetail) {
	if !c.Enabled() || detail == nil {
		return
	}
	start := time.Now()
	err := c.store.SetActive(ctx, detail, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("snapshot cache write failed",
			zap.String("kind", string(detail.Kind)),
			zap.String("snapshot_id", detail.ID),
			zap.Error(err),
		)
	}
}

// Forget evicts the cached active snapshot of kind.
func (c *SnapshotCache) Forget(ctx context.Context, kind models.SnapshotKind) {
	if !c.Enabled() {
		return
	}
	if err := c.store.DeleteActive(ctx, kind); err != nil {
		c.logger.Warn("snapshot cache eviction failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
