// Package storage mirrors extracted subtitle artifacts to a MinIO bucket so
// that a fresh cache directory can be refilled without running ffmpeg.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediashelf/config"
	"mediashelf/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// MinioMirror 封装了 MinIO 客户端，对象键与本地缓存目录的相对路径一致
type MinioMirror struct {
	client *minio.Client
	bucket string
}

// NewMinioMirror 初始化 MinIO 客户端，存储桶不存在时自动创建
func NewMinioMirror(ctx context.Context, cfg *config.Config) (*MinioMirror, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("MinIO mirror ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return &MinioMirror{client: client, bucket: cfg.MinioBucket}, nil
}

// Fetch downloads key into dest. A missing object is reported as (false, nil).
func (m *MinioMirror) Fetch(ctx context.Context, key, dest string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, err
	}
	// FGetObject 先写 .part.minio 临时文件再重命名
	if err := m.client.FGetObject(ctx, m.bucket, key, dest, minio.GetObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("download %s: %w", key, err)
	}
	return true, nil
}

// Publish uploads the artifact at src under key.
func (m *MinioMirror) Publish(ctx context.Context, key, src string) error {
	_, err := m.client.FPutObject(ctx, m.bucket, key, src, minio.PutObjectOptions{
		ContentType: "text/vtt",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// List 列出前缀下的所有对象
func (m *MinioMirror) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	var objects []ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	return objects, summarize(objects), nil
}

// Bucket returns the bucket name.
func (m *MinioMirror) Bucket() string {
	return m.bucket
}

func summarize(objects []ObjectInfo) *BucketStats {
	stats := &BucketStats{}
	for _, o := range objects {
		stats.TotalObjects++
		stats.TotalSize += o.Size
		if o.LastModified.After(stats.LastModified) {
			stats.LastModified = o.LastModified
		}
	}
	return stats
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
