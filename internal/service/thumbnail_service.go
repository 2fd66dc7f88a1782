package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"pog-gallery/internal/config"
	"pog-gallery/internal/metrics"
	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
	"pog-gallery/pkg/log"
	"pog-gallery/pkg/storage"
	"pog-gallery/pkg/tasks"
)

const (
	// 存储服务生成的预览图默认带有 =s220 尺寸后缀。
	providerPreviewSuffix = "=s220"
	defaultPlaceholderURL = "/images/video-placeholder.png"
)

// ThumbnailPublisher 将缩略图转码任务投递到队列。
type ThumbnailPublisher interface {
	PublishThumbnailTask(ctx context.Context, task tasks.ThumbnailTask) error
}

// ThumbnailService 为视频解析可展示的缩略图地址。
type ThumbnailService interface {
	// GetThumbnail 总是返回可用的 URL：缓存命中、由预览图生成，或占位图。
	GetThumbnail(ctx context.Context, videoID string) string
	// CachedThumbnails 批量查询缓存，失败时返回空 map。
	CachedThumbnails(ctx context.Context, videoIDs []string) map[string]string
}

type thumbnailService struct {
	thumbRepo repository.ThumbnailRepository
	store     storage.FileStore
	publisher ThumbnailPublisher
	cfg       config.ThumbnailConfig
}

// NewThumbnailService 创建 ThumbnailService。publisher 为 nil 时不启用转码回退。
func NewThumbnailService(thumbRepo repository.ThumbnailRepository, store storage.FileStore, publisher ThumbnailPublisher, cfg config.ThumbnailConfig) ThumbnailService {
	return &thumbnailService{
		thumbRepo: thumbRepo,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *thumbnailService) GetThumbnail(ctx context.Context, videoID string) (url string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[ThumbnailService] 解析缩略图时发生 panic，使用占位图, videoID: %s, panic: %v", videoID, r)
			url = s.placeholder()
		}
	}()
	if videoID == "" {
		return s.placeholder()
	}

	thumb, err := s.thumbRepo.FindByVideoID(ctx, videoID)
	switch {
	case err == nil && thumb.ThumbnailURL != "":
		metrics.ThumbnailResolutions.WithLabelValues(metrics.ThumbnailCacheHit).Inc()
		return thumb.ThumbnailURL
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warnf("[ThumbnailService] 查询缩略图缓存失败，按未命中处理, videoID: %s, error: %v", videoID, err)
	}

	generated, err := s.generate(ctx, videoID)
	if err != nil {
		log.Warnf("[ThumbnailService] 生成缩略图失败，使用占位图, videoID: %s, error: %v", videoID, err)
		return s.placeholder()
	}
	metrics.ThumbnailResolutions.WithLabelValues(metrics.ThumbnailGenerated).Inc()
	return generated
}

// generate 读取存储服务的预览图地址，放大尺寸后写入缓存。
func (s *thumbnailService) generate(ctx context.Context, videoID string) (string, error) {
	if timeout := s.cfg.GenerateTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	file, err := s.store.Get(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("获取文件元数据失败: %w", err)
	}
	if file == nil {
		return "", errors.New("存储服务返回了空的文件元数据")
	}
	if file.PreviewLink == "" {
		s.requestTranscode(ctx, file)
		return "", errors.New("存储服务未提供预览图")
	}

	url := s.resize(file.PreviewLink)
	if err := s.thumbRepo.Upsert(ctx, &model.VideoThumbnail{VideoID: videoID, ThumbnailURL: url}); err != nil {
		return "", fmt.Errorf("写入缩略图缓存失败: %w", err)
	}
	return url, nil
}

// requestTranscode 投递转码任务，失败只记录日志。
func (s *thumbnailService) requestTranscode(ctx context.Context, file *model.MediaFile) {
	if s.publisher == nil || !s.cfg.TranscodeEnabled {
		return
	}
	task := tasks.ThumbnailTask{VideoID: file.ID, FileName: file.Name, MimeType: file.MimeType}
	if err := s.publisher.PublishThumbnailTask(ctx, task); err != nil {
		log.Warnf("[ThumbnailService] 投递转码任务失败, videoID: %s, error: %v", file.ID, err)
	}
}

// resize 将预览图的 =s220 后缀替换为配置的尺寸，没有该后缀时原样返回。
func (s *thumbnailService) resize(link string) string {
	size := s.cfg.PreviewSize
	if size <= 0 {
		size = 1280
	}
	idx := strings.LastIndex(link, providerPreviewSuffix)
	if idx < 0 {
		return link
	}
	return link[:idx] + "=s" + strconv.Itoa(size) + link[idx+len(providerPreviewSuffix):]
}

func (s *thumbnailService) placeholder() string {
	metrics.ThumbnailResolutions.WithLabelValues(metrics.ThumbnailPlaceholder).Inc()
	if s.cfg.PlaceholderURL == "" {
		return defaultPlaceholderURL
	}
	return s.cfg.PlaceholderURL
}

func (s *thumbnailService) CachedThumbnails(ctx context.Context, videoIDs []string) map[string]string {
	out := make(map[string]string, len(videoIDs))
	if len(videoIDs) == 0 {
		return out
	}
	thumbs, err := s.thumbRepo.FindByVideoIDs(ctx, videoIDs)
	if err != nil {
		log.Warnf("[ThumbnailService] 批量查询缩略图缓存失败: %v", err)
		return out
	}
	for _, t := range thumbs {
		if t.ThumbnailURL != "" {
			out[t.VideoID] = t.ThumbnailURL
		}
	}
	return out
}
