package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pog-gallery/internal/config"
	"pog-gallery/internal/model"
	"pog-gallery/pkg/log"
)

const (
	mediaPrefix     = "media/"
	thumbnailPrefix = "thumbnails/"
	// 原始文件名保存在对象的用户元数据中
	metaNameKey      = "Name"
	presignedLinkTTL = time.Hour
	// sniffHeaderLen 与 mimetype 默认读取的文件头长度一致
	sniffHeaderLen = 3072
)

// NewMinioClient 创建 MinIO 客户端并确保指定的存储桶存在。
func NewMinioClient(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	}
	return client, nil
}

// MinioStore 是基于 MinIO/S3 的 FileStore 实现。
// 媒体文件存放在 media/ 前缀下，缩略图存放在 thumbnails/ 前缀下，对象名即文件 ID。
// MinIO 不会生成预览图，因此 PreviewLink 始终为空。
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

func (s *MinioStore) List(ctx context.Context) ([]model.MediaFile, error) {
	// 提前返回时取消 ctx，结束 ListObjects 的后台 goroutine
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	files := make([]model.MediaFile, 0)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       mediaPrefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("列出 MinIO 对象失败: %w", obj.Err)
		}
		// 标准 S3 的列表结果不带用户元数据和 Content-Type，需要单独 stat
		if isGenericType(obj.ContentType) || objectName(obj) == "" {
			info, err := s.client.StatObject(ctx, s.bucket, obj.Key, minio.StatObjectOptions{})
			if err != nil {
				log.Warnf("读取 MinIO 对象元数据失败: key=%s, err=%v", obj.Key, err)
			} else {
				obj = info
			}
		}
		if isGenericType(obj.ContentType) {
			if ct, err := s.sniffType(ctx, obj.Key); err == nil {
				obj.ContentType = ct
			} else {
				log.Warnf("推断 MinIO 对象类型失败: key=%s, err=%v", obj.Key, err)
			}
		}
		files = append(files, s.toMediaFile(ctx, obj))
	}
	return files, nil
}

func (s *MinioStore) Get(ctx context.Context, id string) (*model.MediaFile, error) {
	info, err := s.stat(ctx, id)
	if err != nil {
		return nil, err
	}
	mf := s.toMediaFile(ctx, info)
	return &mf, nil
}

func (s *MinioStore) Open(ctx context.Context, id string) (io.ReadCloser, *model.MediaFile, error) {
	info, err := s.stat(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, info.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, minioError(err)
	}
	mf := s.toMediaFile(ctx, info)
	return obj, &mf, nil
}

func (s *MinioStore) Upload(ctx context.Context, obj Object) (*model.MediaFile, error) {
	id := uuid.NewString()
	key := mediaPrefix + id
	if obj.Thumbnail {
		key = thumbnailPrefix + id
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, obj.Body, -1, minio.PutObjectOptions{
		ContentType:  obj.MimeType,
		UserMetadata: map[string]string{metaNameKey: obj.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("上传文件到 MinIO 失败: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	info, err := s.stat(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, info.Key, minio.RemoveObjectOptions{}); err != nil {
		return minioError(err)
	}
	return nil
}

// stat 依次在媒体前缀和缩略图前缀下查找对象。
func (s *MinioStore) stat(ctx context.Context, id string) (minio.ObjectInfo, error) {
	if id == "" || strings.Contains(id, "/") {
		return minio.ObjectInfo{}, ErrNotFound
	}
	var lastErr error
	for _, prefix := range []string{mediaPrefix, thumbnailPrefix} {
		info, err := s.client.StatObject(ctx, s.bucket, prefix+id, minio.StatObjectOptions{})
		if err == nil {
			return info, nil
		}
		lastErr = minioError(err)
		if !errors.Is(lastErr, ErrNotFound) {
			return minio.ObjectInfo{}, lastErr
		}
	}
	return minio.ObjectInfo{}, lastErr
}

func (s *MinioStore) toMediaFile(ctx context.Context, info minio.ObjectInfo) model.MediaFile {
	id := info.Key[strings.LastIndex(info.Key, "/")+1:]
	name := objectName(info)
	if name == "" {
		name = id
	}
	var viewLink string
	if u, err := s.client.PresignedGetObject(ctx, s.bucket, info.Key, presignedLinkTTL, nil); err == nil {
		viewLink = u.String()
	} else {
		log.Warnf("生成预签名 URL 失败: key=%s, err=%v", info.Key, err)
	}
	return model.MediaFile{
		ID:          id,
		Name:        name,
		MimeType:    info.ContentType,
		CreatedTime: info.LastModified,
		ViewLink:    viewLink,
		Size:        info.Size,
	}
}

// isGenericType 判断存储的 Content-Type 是否无法区分图片与视频。
func isGenericType(ct string) bool {
	return ct == "" || ct == "application/octet-stream" || ct == "binary/octet-stream"
}

// sniffType 读取对象的文件头推断类型。
func (s *MinioStore) sniffType(ctx context.Context, key string) (string, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(0, sniffHeaderLen-1); err != nil {
		return "", err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return "", err
	}
	defer obj.Close()
	detected, err := mimetype.DetectReader(obj)
	if err != nil {
		return "", err
	}
	return detected.String(), nil
}

// objectName 读取原始文件名。StatObject 与 ListObjects 返回的元数据键格式不同。
func objectName(info minio.ObjectInfo) string {
	for _, k := range []string{metaNameKey, "X-Amz-Meta-" + metaNameKey, strings.ToLower(metaNameKey)} {
		if v, ok := info.UserMetadata[k]; ok && v != "" {
			return v
		}
	}
	return info.Metadata.Get("X-Amz-Meta-" + metaNameKey)
}

func minioError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Message)
	}
	return fmt.Errorf("minio request failed: %w", err)
}
