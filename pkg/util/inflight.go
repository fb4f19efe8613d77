package util

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InflightLock 基于 Redis SETNX 的互斥标记，保证同一个 key 同时只有一个处理者
// 多副本部署时用来拦截同一表单的重复提交
type InflightLock struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewInflightLock(rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *InflightLock {
	return &InflightLock{
		rdb:    rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: logger,
	}
}

func (l *InflightLock) key(id string) string {
	return fmt.Sprintf("%s:%s", l.prefix, id)
}

// releaseScript 只删除仍由本次持有的标记，避免误删过期后被他人重新获取的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire reports whether the caller now owns id, with the token to pass to
// Release. Redis 不可用时不阻止处理，返回空 token 和 true
func (l *InflightLock) Acquire(ctx context.Context, id string) (string, bool) {
	key := l.key(id)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.logger.Warn("Redis in-flight check failed, allowing processing",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", true
	}

	if !ok {
		l.logger.Info("Rejected concurrent processing", zap.String("key", key))
		return "", false
	}
	return token, true
}

// Release drops the marker for id if it still holds token.
func (l *InflightLock) Release(ctx context.Context, id, token string) {
	if token == "" {
		return
	}
	key := l.key(id)
	deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
	if err != nil {
		l.logger.Warn("Failed to release in-flight marker",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	if deleted == 0 {
		l.logger.Warn("In-flight marker expired before release", zap.String("key", key))
	}
}
