package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"jzonefm/config"
	"jzonefm/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore 基于 MinIO 的对象存储后端
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore 初始化 MinIO 客户端并确保存储桶存在
// 连通性检查最多等待5秒，失败时降级为警告而不是中断启动
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	s := &MinioStore{client: client, bucket: cfg.MinioBucket}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, s.bucket)
	if err != nil {
		// 对象存储暂时不可达，签名URL请求会在之后重试
		logger.Warn("[Storage] MinIO 连通性检查失败",
			logger.String("endpoint", cfg.MinioEndpoint),
			logger.ErrorField(err))
		return s, nil
	}

	if !exists {
		if err = client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("[Storage] 成功创建存储桶", logger.String("bucket", s.bucket))
	}

	logger.Info("[Storage] MinIO 客户端初始化成功", logger.String("bucket", s.bucket))
	return s, nil
}

// Put uploads an object to the bucket.
func (s *MinioStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}
	return nil
}

// SignedURL returns a presigned GET URL for the object.
func (s *MinioStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成签名URL失败 %s: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes an object from the bucket.
func (s *MinioStore) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", key, err)
	}
	return nil
}

// Client exposes the underlying MinIO client for admin commands.
func (s *MinioStore) Client() *minio.Client {
	return s.client
}
