package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"pog-gallery/internal/metrics"
	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
	"pog-gallery/pkg/log"
	"pog-gallery/pkg/storage"
)

const (
	// itemConcurrency 是聚合画廊时同时解析的条目上限。
	itemConcurrency = 8
	// sniffLen 与 mimetype 默认读取的文件头长度一致。
	sniffLen = 3072
)

// VoteMapResolver 根据会话 token 解析调用者的投票记录。
type VoteMapResolver interface {
	VoteMap(ctx context.Context, token string) (model.VoteMap, error)
}

// UploadInput 描述一次媒体上传。
type UploadInput struct {
	Body     io.Reader
	Name     string
	Username string
}

// MediaService 接口定义了画廊相关的业务操作。
type MediaService interface {
	// ListMedia 聚合文件存储、元数据和缩略图，返回画廊条目。userToken 可以为空。
	ListMedia(ctx context.Context, userToken string) ([]model.MediaItem, error)
	Upload(ctx context.Context, in UploadInput) (string, error)
	Open(ctx context.Context, fileID string) (io.ReadCloser, *model.MediaFile, error)
	Delete(ctx context.Context, fileID string) error
}

type mediaService struct {
	store         storage.FileStore
	mediaRepo     repository.MediaRepository
	userRepo      repository.UserRepository
	thumbnails    ThumbnailService
	votes         VoteMapResolver
	fileURLPrefix string
}

// NewMediaService 创建一个新的 MediaService 实例。
func NewMediaService(
	store storage.FileStore,
	mediaRepo repository.MediaRepository,
	userRepo repository.UserRepository,
	thumbnails ThumbnailService,
	votes VoteMapResolver,
	fileURLPrefix string,
) MediaService {
	return &mediaService{
		store:         store,
		mediaRepo:     mediaRepo,
		userRepo:      userRepo,
		thumbnails:    thumbnails,
		votes:         votes,
		fileURLPrefix: fileURLPrefix,
	}
}

func (s *mediaService) ListMedia(ctx context.Context, userToken string) ([]model.MediaItem, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return nil, upstreamError(err, "failed to list media")
	}
	if len(files) == 0 {
		return []model.MediaItem{}, nil
	}

	ids := make([]string, 0, len(files))
	var videoIDs []string
	for _, f := range files {
		ids = append(ids, f.ID)
		if mediaType(f.MimeType) == model.MediaTypeVideo {
			videoIDs = append(videoIDs, f.ID)
		}
	}
	meta := s.loadMetadata(ctx, ids)
	votes := s.loadVotes(ctx, userToken)
	cached := s.thumbnails.CachedThumbnails(ctx, videoIDs)

	resolved := make([]*model.MediaItem, len(files))
	var g errgroup.Group
	g.SetLimit(itemConcurrency)
	for i := range files {
		i := i
		g.Go(func() error {
			item, err := s.resolveItem(ctx, files[i], meta, votes, cached)
			if err != nil {
				log.Warnf("[MediaService] 条目解析失败，已从结果中剔除, fileID: %q, error: %v", files[i].ID, err)
				metrics.MediaItemsDropped.Inc()
				return nil
			}
			resolved[i] = item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]model.MediaItem, 0, len(files))
	for _, item := range resolved {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, nil
}

// loadMetadata 一次查询获取所有文件的元数据，失败时降级为没有元数据。
func (s *mediaService) loadMetadata(ctx context.Context, ids []string) map[string]model.MediaUpload {
	out := make(map[string]model.MediaUpload, len(ids))
	records, err := s.mediaRepo.FindByFileIDs(ctx, ids)
	if err != nil {
		log.Warnf("[MediaService] 批量查询媒体元数据失败，使用默认值: %v", err)
		return out
	}
	for _, r := range records {
		out[r.FileID] = r
	}
	return out
}

// loadVotes 解析调用者的投票记录，token 缺失或无效时返回 nil。
func (s *mediaService) loadVotes(ctx context.Context, userToken string) model.VoteMap {
	if userToken == "" || s.votes == nil {
		return nil
	}
	votes, err := s.votes.VoteMap(ctx, userToken)
	if err != nil {
		log.Warnf("[MediaService] userToken 无法验证，忽略投票信息: %v", err)
		return nil
	}
	return votes
}

func (s *mediaService) resolveItem(ctx context.Context, f model.MediaFile, meta map[string]model.MediaUpload, votes model.VoteMap, cached map[string]string) (item *model.MediaItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			item, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ID == "" {
		return nil, errors.New("file id is empty")
	}

	ref := s.fileURLPrefix + f.ID
	item = &model.MediaItem{
		ID:          f.ID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Type:        mediaType(f.MimeType),
		CreatedTime: f.CreatedTime,
		ViewLink:    f.ViewLink,
		URL:         ref,
		Username:    model.UnknownUploader,
		UserVote:    votes[f.ID],
	}
	if m, ok := meta[f.ID]; ok {
		if m.Username != "" {
			item.Username = m.Username
		}
		item.Upvotes = m.Upvotes
		item.Downvotes = m.Downvotes
		item.VoteCount = m.VoteCount
	}

	if item.Type == model.MediaTypeVideo {
		if url, ok := cached[f.ID]; ok {
			item.Thumbnail = url
		} else {
			item.Thumbnail = s.thumbnails.GetThumbnail(ctx, f.ID)
		}
	} else {
		item.Thumbnail = ref
	}
	return item, nil
}

func mediaType(mimeType string) string {
	if strings.HasPrefix(mimeType, "video") {
		return model.MediaTypeVideo
	}
	return model.MediaTypeImage
}

// Upload 校验文件类型后上传到文件存储，并创建元数据记录。
func (s *mediaService) Upload(ctx context.Context, in UploadInput) (string, error) {
	if in.Body == nil {
		return "", validationError("file is required")
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return "", validationError("username is required")
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", validationError("failed to read upload")
	}
	if n == 0 {
		return "", validationError("file is empty")
	}
	header = header[:n]

	detected := mimetype.Detect(header)
	mimeType := strings.SplitN(detected.String(), ";", 2)[0]
	kind := strings.SplitN(mimeType, "/", 2)[0]
	if kind != "image" && kind != "video" {
		metrics.UploadsTotal.WithLabelValues("unsupported", "rejected").Inc()
		return "", validationError("unsupported file type %s", mimeType)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "upload" + detected.Extension()
	}

	file, err := s.store.Upload(ctx, storage.Object{
		Name:     name,
		MimeType: mimeType,
		Body:     io.MultiReader(bytes.NewReader(header), in.Body),
	})
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(kind, "failed").Inc()
		return "", upstreamError(err, "failed to upload file")
	}

	if err := s.mediaRepo.Create(ctx, &model.MediaUpload{FileID: file.ID, Username: username}); err != nil {
		// 元数据写入失败时回滚已上传的文件，避免出现没有记录的孤儿文件
		if delErr := s.store.Delete(ctx, file.ID); delErr != nil {
			log.Errorf("[MediaService] 回滚上传文件失败, fileID: %s, error: %v", file.ID, delErr)
		}
		metrics.UploadsTotal.WithLabelValues(kind, "failed").Inc()
		return "", upstreamError(err, "failed to save media metadata")
	}
	if err := s.userRepo.IncrementUploadCount(ctx, username); err != nil {
		log.Warnf("[MediaService] 更新上传计数失败, username: %s, error: %v", username, err)
	}

	metrics.UploadsTotal.WithLabelValues(kind, "ok").Inc()
	log.Infof("[MediaService] 文件上传成功, fileID: %s, name: %s, username: %s", file.ID, name, username)
	return file.ID, nil
}

func (s *mediaService) Open(ctx context.Context, fileID string) (io.ReadCloser, *model.MediaFile, error) {
	if fileID == "" {
		return nil, nil, validationError("file id is required")
	}
	body, file, err := s.store.Open(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, notFoundError("file not found")
		}
		return nil, nil, upstreamError(err, "failed to fetch file")
	}
	return body, file, nil
}

// Delete 从文件存储删除文件，然后尽力清理关联的数据库记录。
func (s *mediaService) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return validationError("file id is required")
	}
	if err := s.store.Delete(ctx, fileID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFoundError("file not found")
		}
		return upstreamError(err, "failed to delete file")
	}
	if err := s.mediaRepo.DeleteCascade(ctx, fileID); err != nil {
		log.Errorf("[MediaService] 清理媒体关联记录失败, fileID: %s, error: %v", fileID, err)
	}
	log.Infof("[MediaService] 媒体已删除, fileID: %s", fileID)
	return nil
}
