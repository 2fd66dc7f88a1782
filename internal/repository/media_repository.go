// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pog-gallery/internal/model"
)

// MediaRepository 接口定义了媒体元数据（media_uploads 表）的持久化操作。
type MediaRepository interface {
	Create(ctx context.Context, media *model.MediaUpload) error
	// FindByFileIDs 用一次 IN 查询获取多个文件的元数据，缺失的文件不出现在结果中。
	FindByFileIDs(ctx context.Context, fileIDs []string) ([]model.MediaUpload, error)
	List(ctx context.Context, offset, limit int) ([]model.MediaUpload, int64, error)
	// DeleteCascade 删除文件关联的元数据、缩略图缓存、评论与收藏。
	// 每张表独立删除，返回所有失败的合并错误。
	DeleteCascade(ctx context.Context, fileID string) error
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository 创建一个新的 MediaRepository 实例。
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, media *model.MediaUpload) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *mediaRepository) FindByFileIDs(ctx context.Context, fileIDs []string) ([]model.MediaUpload, error) {
	if len(fileIDs) == 0 {
		return []model.MediaUpload{}, nil
	}
	var records []model.MediaUpload
	err := r.db.WithContext(ctx).Where("file_id IN ?", fileIDs).Find(&records).Error
	return records, err
}

// List 按上传时间倒序分页返回元数据记录和总数。
func (r *mediaRepository) List(ctx context.Context, offset, limit int) ([]model.MediaUpload, int64, error) {
	var records []model.MediaUpload
	var total int64

	db := r.db.WithContext(ctx).Model(&model.MediaUpload{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *mediaRepository) DeleteCascade(ctx context.Context, fileID string) error {
	db := r.db.WithContext(ctx)
	return errors.Join(
		db.Where("file_id = ?", fileID).Delete(&model.MediaUpload{}).Error,
		db.Where("video_id = ?", fileID).Delete(&model.VideoThumbnail{}).Error,
		db.Where("media_id = ?", fileID).Delete(&model.Comment{}).Error,
		db.Where("media_id = ?", fileID).Delete(&model.Favorite{}).Error,
	)
}
