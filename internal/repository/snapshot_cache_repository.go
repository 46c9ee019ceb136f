package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const activeSnapshotKeyPrefix = "timetable:snapshot:active:"

// ActiveSnapshotKey is the Redis key holding the decoded active snapshot of a kind.
func ActiveSnapshotKey(kind models.SnapshotKind) string {
	return activeSnapshotKeyPrefix + string(kind)
}

// SnapshotCacheRepository keeps one decoded active snapshot per kind in Redis.
type SnapshotCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSnapshotCacheRepository constructs the repository. A nil client disables it.
func NewSnapshotCacheRepository(client *redis.Client, logger *zap.Logger) *SnapshotCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCacheRepository{client: client, logger: logger}
}

// Enabled reports whether a Redis client is attached.
func (r *SnapshotCacheRepository) Enabled() bool {
	return r != nil && r.client != nil
}

// GetActive returns the cached active snapshot of kind or ErrCacheMiss. A payload that
// no longer describes an active snapshot of that kind counts as a miss.
func (r *SnapshotCacheRepository) GetActive(ctx context.Context, kind models.SnapshotKind) (*models.SnapshotDetail, error) {
	if !r.Enabled() {
		return nil, appErrors.ErrCacheMiss
	}

	key := ActiveSnapshotKey(kind)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var detail models.SnapshotDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("decode cached snapshot %s: %w", key, err)
	}
	if detail.Kind != kind || !detail.IsActive {
		r.logger.Debug("stale snapshot cache entry", zap.String("key", key), zap.String("snapshot_id", detail.ID))
		return nil, appErrors.ErrCacheMiss
	}
	return &detail, nil
}

// SetActive stores detail under its kind's key. The raw data column is not cached.
func (r *SnapshotCacheRepository) SetActive(ctx context.Context, detail *models.SnapshotDetail, ttl time.Duration) error {
	if !r.Enabled() || detail == nil {
		return nil
	}
	if !detail.IsActive {
		return fmt.Errorf("snapshot %s is not active", detail.ID)
	}

	key := ActiveSnapshotKey(detail.Kind)
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", detail.ID, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteActive evicts the cached snapshots of the given kinds, or of every kind when
// none is given.
func (r *SnapshotCacheRepository) DeleteActive(ctx context.Context, kinds ...models.SnapshotKind) error {
	if !r.Enabled() {
		return nil
	}
	if len(kinds) == 0 {
		kinds = []models.SnapshotKind{models.SnapshotTimetable, models.SnapshotExam}
	}

	keys := make([]string, len(kinds))
	for i, kind := range kinds {
		keys[i] = ActiveSnapshotKey(kind)
	}
	removed, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("redis delete %v: %w", keys, err)
	}
	r.logger.Debug("snapshot cache evicted", zap.Strings("keys", keys), zap.Int64("removed", removed))
	return nil
}

// Close releases the Redis connection if present.
func (r *SnapshotCacheRepository) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
