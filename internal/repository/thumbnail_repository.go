package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pog-gallery/internal/model"
)

// ThumbnailRepository 管理视频缩略图缓存（video_thumbnails 表）。
type ThumbnailRepository interface {
	FindByVideoID(ctx context.Context, videoID string) (*model.VideoThumbnail, error)
	FindByVideoIDs(ctx context.Context, videoIDs []string) ([]model.VideoThumbnail, error)
	// Upsert 以 video_id 为键插入或覆盖缓存记录，表中同一 video_id 永远只有一行。
	Upsert(ctx context.Context, thumb *model.VideoThumbnail) error
}

type thumbnailRepository struct {
	db *gorm.DB
}

func NewThumbnailRepository(db *gorm.DB) ThumbnailRepository {
	return &thumbnailRepository{db: db}
}

func (r *thumbnailRepository) FindByVideoID(ctx context.Context, videoID string) (*model.VideoThumbnail, error) {
	var thumb model.VideoThumbnail
	if err := r.db.WithContext(ctx).Where("video_id = ?", videoID).First(&thumb).Error; err != nil {
		return nil, err
	}
	return &thumb, nil
}

func (r *thumbnailRepository) FindByVideoIDs(ctx context.Context, videoIDs []string) ([]model.VideoThumbnail, error) {
	if len(videoIDs) == 0 {
		return []model.VideoThumbnail{}, nil
	}
	var thumbs []model.VideoThumbnail
	err := r.db.WithContext(ctx).Where("video_id IN ?", videoIDs).Find(&thumbs).Error
	return thumbs, err
}

func (r *thumbnailRepository) Upsert(ctx context.Context, thumb *model.VideoThumbnail) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"thumbnail_id", "thumbnail_url", "updated_at"}),
	}).Create(thumb).Error
}
