package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const achievementCacheTTL = 24 * time.Hour

type achievementFinder interface {
	FindID(ctx context.Context, track model.Track, name, content string) (string, error)
}

// CachedAchievementCatalog 成就目录 ID 缓存：进程内存 + 可选 Redis，只缓存命中结果
type CachedAchievementCatalog struct {
	finder achievementFinder
	rdb    *redis.Client

	mu  sync.RWMutex
	mem map[string]string
}

func NewCachedAchievementCatalog(finder achievementFinder, rdb *redis.Client) *CachedAchievementCatalog {
	return &CachedAchievementCatalog{
		finder: finder,
		rdb:    rdb,
		mem:    make(map[string]string),
	}
}

func achievementCacheKey(track model.Track, name, content string) string {
	return fmt.Sprintf("achievement:%t:%s:%s", bool(track), name, content)
}

func (c *CachedAchievementCatalog) FindID(ctx context.Context, track model.Track, name, content string) (string, error) {
	key := achievementCacheKey(track, name, content)

	c.mu.RLock()
	id, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	if c.rdb != nil {
		id, err := c.rdb.Get(ctx, key).Result()
		if err == nil && id != "" {
			c.remember(key, id)
			return id, nil
		}
		if err != nil && err != redis.Nil {
			logger.Log.Warn("Achievement cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	id, err := c.finder.FindID(ctx, track, name, content)
	if err != nil {
		return "", err
	}

	c.remember(key, id)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, id, achievementCacheTTL).Err(); err != nil {
			logger.Log.Warn("Achievement cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return id, nil
}

func (c *CachedAchievementCatalog) remember(key, id string) {
	c.mu.Lock()
	c.mem[key] = id
	c.mu.Unlock()
}

// Invalidate 清空进程内缓存，成就目录重新导入后调用
func (c *CachedAchievementCatalog) Invalidate() {
	c.mu.Lock()
	c.mem = make(map[string]string)
	c.mu.Unlock()
}
