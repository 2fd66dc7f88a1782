// Package pipeline 定义了视频缩略图的离线处理流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
	"pog-gallery/pkg/log"
	"pog-gallery/pkg/storage"
	"pog-gallery/pkg/tasks"
)

// FrameExtractor 从本地视频文件中截取一帧写入 output。
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, input, output string) error
}

// Processor 封装了缩略图转码的所有依赖和逻辑。
type Processor struct {
	store         storage.FileStore
	thumbRepo     repository.ThumbnailRepository
	extractor     FrameExtractor
	fileURLPrefix string
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(store storage.FileStore, thumbRepo repository.ThumbnailRepository, extractor FrameExtractor, fileURLPrefix string) *Processor {
	return &Processor{
		store:         store,
		thumbRepo:     thumbRepo,
		extractor:     extractor,
		fileURLPrefix: fileURLPrefix,
	}
}

// Process 下载视频，截取画面，上传为缩略图并写入缓存。
func (p *Processor) Process(ctx context.Context, task tasks.ThumbnailTask) error {
	log.Infof("[Processor] 开始生成缩略图, VideoID: %s, FileName: %s", task.VideoID, task.FileName)
	if task.VideoID == "" {
		return errors.New("任务缺少 video_id")
	}

	// 已有缓存时直接跳过，消息可能被重复投递
	if cached, err := p.thumbRepo.FindByVideoID(ctx, task.VideoID); err == nil && cached.ThumbnailURL != "" {
		log.Infof("[Processor] 缩略图已存在, 跳过, VideoID: %s", task.VideoID)
		return nil
	}

	dir, err := os.MkdirTemp("", "pog-thumb-*")
	if err != nil {
		return fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "source"+filepath.Ext(task.FileName))
	if err := p.download(ctx, task.VideoID, input); err != nil {
		return err
	}

	output := filepath.Join(dir, "frame.jpg")
	if err := p.extractor.ExtractFrame(ctx, input, output); err != nil {
		log.Errorf("[Processor] 截取画面失败, VideoID: %s, Error: %v", task.VideoID, err)
		return fmt.Errorf("截取画面失败: %w", err)
	}

	frame, err := os.Open(output)
	if err != nil {
		return fmt.Errorf("读取画面失败: %w", err)
	}
	defer frame.Close()

	uploaded, err := p.store.Upload(ctx, storage.Object{
		Name:      task.VideoID + "_thumbnail.jpg",
		MimeType:  "image/jpeg",
		Body:      frame,
		Thumbnail: true,
	})
	if err != nil {
		log.Errorf("[Processor] 上传缩略图失败, VideoID: %s, Error: %v", task.VideoID, err)
		return fmt.Errorf("上传缩略图失败: %w", err)
	}

	thumb := &model.VideoThumbnail{
		VideoID:      task.VideoID,
		ThumbnailID:  uploaded.ID,
		ThumbnailURL: p.fileURLPrefix + uploaded.ID,
	}
	if err := p.thumbRepo.Upsert(ctx, thumb); err != nil {
		return fmt.Errorf("写入缩略图缓存失败: %w", err)
	}
	log.Infow("[Processor] 缩略图生成完成", "videoID", task.VideoID, "thumbnailID", uploaded.ID)
	return nil
}

func (p *Processor) download(ctx context.Context, videoID, path string) error {
	body, _, err := p.store.Open(ctx, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warnf("[Processor] 视频已不存在, VideoID: %s", videoID)
		}
		return fmt.Errorf("下载视频失败: %w", err)
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if n == 0 {
		return errors.New("视频内容为空")
	}
	return nil
}
