package repository

import (
	"context"

	"gorm.io/gorm"

	"pog-gallery/internal/model"
)

// CommentRepository 接口定义了评论的持久化操作。
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	// ListByMedia 按时间正序返回某个媒体的全部评论。
	ListByMedia(ctx context.Context, mediaID string) ([]model.Comment, error)
	// List 按时间倒序分页返回所有评论，供管理后台使用。
	List(ctx context.Context, offset, limit int) ([]model.Comment, int64, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) ListByMedia(ctx context.Context, mediaID string) ([]model.Comment, error) {
	comments := make([]model.Comment, 0)
	err := r.db.WithContext(ctx).Where("media_id = ?", mediaID).Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}

func (r *commentRepository) List(ctx context.Context, offset, limit int) ([]model.Comment, int64, error) {
	var comments []model.Comment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Comment{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// Delete 删除评论，评论不存在时返回 gorm.ErrRecordNotFound。
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Comment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
