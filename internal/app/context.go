package app

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/cache"
)

// AppContext holds shared dependencies (DB, Redis, Logger).
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
}

// New creates a new AppContext. rdb may be nil; cache operations then no-op.
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
	}
}

// InvalidateUnread drops cached unread counters after a committed write.
// Failures are logged; the cache self-heals through its TTL.
func (a *AppContext) InvalidateUnread(ctx context.Context, userIDs ...uint64) {
	if a.RedisCache == nil {
		return
	}
	if err := a.RedisCache.InvalidateUnread(ctx, userIDs...); err != nil {
		a.Logger.Warn("failed to invalidate unread cache", "users", userIDs, "error", err)
	}
}
