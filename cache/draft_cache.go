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

// 每个用户的上传草稿在 Redis 中占用三个键：audio、cover、meta
const (
	DraftSlotAudio = "audio"
	DraftSlotCover = "cover"
	DraftSlotMeta  = "meta"
)

// DraftBlob 草稿中的一个二进制文件及其来源信息
type DraftBlob struct {
	Filename    string
	ContentType string
	Data        []byte
}

func draftKey(userID int64, slot string) string {
	return fmt.Sprintf("draft:%d:%s", userID, slot)
}

// SaveDraftBlob 尽力持久化草稿文件，超过大小上限时静默跳过
// 失败只记日志，绝不打断上传流程
func SaveDraftBlob(ctx context.Context, userID int64, slot string, blob *DraftBlob, ttl time.Duration, maxBytes int64) {
	if db.RedisClient == nil {
		return
	}
	if int64(len(blob.Data)) > maxBytes {
		logger.Debug("[DraftCache] 文件超过持久化上限，跳过",
			logger.Int64("userId", userID),
			logger.String("slot", slot),
			logger.Int("size", len(blob.Data)))
		return
	}

	key := draftKey(userID, slot)
	err := db.RedisClient.HSet(ctx, key, map[string]interface{}{
		"filename":    blob.Filename,
		"contentType": blob.ContentType,
		"data":        blob.Data,
	}).Err()
	if err == nil {
		err = db.RedisClient.Expire(ctx, key, ttl).Err()
	}
	if err != nil {
		logger.Warn("[DraftCache] 保存草稿文件失败",
			logger.Int64("userId", userID),
			logger.String("slot", slot),
			logger.ErrorField(err))
	}
}

// GetDraftBlob 读取草稿文件，缓存未命中时返回 nil, nil
func GetDraftBlob(ctx context.Context, userID int64, slot string) (*DraftBlob, error) {
	if db.RedisClient == nil {
		return nil, nil
	}

	vals, err := db.RedisClient.HGetAll(ctx, draftKey(userID, slot)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get draft blob: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	return &DraftBlob{
		Filename:    vals["filename"],
		ContentType: vals["contentType"],
		Data:        []byte(vals["data"]),
	}, nil
}

// SaveDraftMeta 尽力持久化草稿元数据 JSON
func SaveDraftMeta(ctx context.Context, userID int64, metaJSON []byte, ttl time.Duration) {
	if db.RedisClient == nil {
		return
	}
	err := db.RedisClient.Set(ctx, draftKey(userID, DraftSlotMeta), metaJSON, ttl).Err()
	if err != nil {
		logger.Warn("[DraftCache] 保存草稿元数据失败",
			logger.Int64("userId", userID),
			logger.ErrorField(err))
	}
}

// GetDraftMeta 读取草稿元数据 JSON，未命中时返回 nil, nil
func GetDraftMeta(ctx context.Context, userID int64) ([]byte, error) {
	if db.RedisClient == nil {
		return nil, nil
	}

	data, err := db.RedisClient.Get(ctx, draftKey(userID, DraftSlotMeta)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get draft meta: %w", err)
	}
	return data, nil
}

// ClearDraft 删除用户草稿的全部三个键
func ClearDraft(ctx context.Context, userID int64) {
	if db.RedisClient == nil {
		return
	}
	keys := []string{
		draftKey(userID, DraftSlotAudio),
		draftKey(userID, DraftSlotCover),
		draftKey(userID, DraftSlotMeta),
	}
	if err := db.RedisClient.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("[DraftCache] 清除草稿失败",
			logger.Int64("userId", userID),
			logger.ErrorField(err))
	}
}
