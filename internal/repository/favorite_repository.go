package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pog-gallery/internal/model"
)

// FavoriteRepository 接口定义了收藏的持久化操作。
type FavoriteRepository interface {
	// Toggle 在事务中切换收藏状态，返回切换后是否处于已收藏状态。
	Toggle(ctx context.Context, username, mediaID string) (bool, error)
	ListByUser(ctx context.Context, username string) ([]string, error)
	CountByMedia(ctx context.Context, mediaID string) (int64, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Toggle(ctx context.Context, username, mediaID string) (bool, error) {
	var favorited bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("username = ? AND media_id = ?", username, mediaID).Delete(&model.Favorite{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			favorited = false
			return nil
		}
		if err := tx.Create(&model.Favorite{Username: username, MediaID: mediaID}).Error; err != nil {
			return err
		}
		favorited = true
		return nil
	})
	// 并发请求已插入同一对，唯一索引拒绝了这次插入
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, nil
	}
	return favorited, err
}

// ListByUser 返回用户收藏的媒体 ID，最近收藏的在前。
func (r *favoriteRepository) ListByUser(ctx context.Context, username string) ([]string, error) {
	ids := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("username = ?", username).
		Order("created_at DESC, id DESC").
		Pluck("media_id", &ids).Error
	return ids, err
}

func (r *favoriteRepository) CountByMedia(ctx context.Context, mediaID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Favorite{}).Where("media_id = ?", mediaID).Count(&n).Error
	return n, err
}
