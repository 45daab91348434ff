package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jzonefm/db"
	"jzonefm/logger"

	"github.com/redis/go-redis/v9"
)

// 签名URL提前30秒过期，避免下发即将失效的链接
const signedURLMargin = 30 * time.Second

func signedURLKey(objectKey string) string {
	return fmt.Sprintf("surl:%s", objectKey)
}

// GetSignedURL 查询缓存的签名URL，未命中或已进入过期边界时返回 false
func GetSignedURL(ctx context.Context, objectKey string) (string, bool) {
	if db.RedisClient == nil {
		return "", false
	}

	url, err := db.RedisClient.Get(ctx, signedURLKey(objectKey)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("[URLCache] 读取签名URL缓存失败",
				logger.String("key", objectKey),
				logger.ErrorField(err))
		}
		return "", false
	}
	return url, true
}

// SetSignedURL 缓存签名URL，TTL 扣除提前过期边界
func SetSignedURL(ctx context.Context, objectKey, url string, expiry time.Duration) {
	if db.RedisClient == nil {
		return
	}

	ttl := expiry - signedURLMargin
	if ttl <= 0 {
		return
	}

	if err := db.RedisClient.Set(ctx, signedURLKey(objectKey), url, ttl).Err(); err != nil {
		logger.Warn("[URLCache] 写入签名URL缓存失败",
			logger.String("key", objectKey),
			logger.ErrorField(err))
	}
}
