package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectInfo 存储桶中单个对象的概要
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ListObjects 列出存储桶中前缀匹配的对象及统计信息
func (s *MinioStore) ListObjects(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}

	return objects, stats, nil
}

// PrintStatus 打印存储桶状态报告
func (s *MinioStore) PrintStatus(ctx context.Context, prefix string) error {
	objects, stats, err := s.ListObjects(ctx, prefix, true)
	if err != nil {
		return err
	}

	fmt.Printf("\n存储桶状态报告: %s\n", s.bucket)
	if prefix != "" {
		fmt.Printf("前缀过滤: %s\n", prefix)
	}
	fmt.Printf("总文件数: %d\n", stats.TotalObjects)
	fmt.Printf("总存储大小: %s\n", formatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("最后更新时间: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	fmt.Println("\n文件列表:")
	for _, obj := range objects {
		fmt.Printf("  %s  %s  %s\n", obj.Key, formatSize(obj.Size),
			obj.LastModified.Format("2006-01-02 15:04:05"))
	}

	return nil
}

// DeleteDirectory 递归删除前缀下的所有对象
func (s *MinioStore) DeleteDirectory(ctx context.Context, prefix string) (int, error) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	objects, _, err := s.ListObjects(ctx, prefix, true)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, fmt.Errorf("目录 %s 为空或不存在", prefix)
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	go func() {
		defer close(objectsCh)
		for _, obj := range objects {
			objectsCh <- minio.ObjectInfo{Key: obj.Key}
		}
	}()

	for rmErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			return 0, fmt.Errorf("删除对象 %s 失败: %w", rmErr.ObjectName, rmErr.Err)
		}
	}

	return len(objects), nil
}

// formatSize 格式化文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
