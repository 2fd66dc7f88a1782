package repository

import (
	"context"

	"gorm.io/gorm"

	"pog-gallery/internal/model"
)

// Stats 是管理后台展示的汇总数据。
type Stats struct {
	Users          int64 `json:"users"`
	Media          int64 `json:"media"`
	Comments       int64 `json:"comments"`
	Favorites      int64 `json:"favorites"`
	TotalUpvotes   int64 `json:"totalUpvotes"`
	TotalDownvotes int64 `json:"totalDownvotes"`
}

// StatsRepository 负责汇总统计查询。
type StatsRepository interface {
	Collect(ctx context.Context) (*Stats, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Collect(ctx context.Context) (*Stats, error) {
	var s Stats
	db := r.db.WithContext(ctx)
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&model.User{}, &s.Users},
		{&model.MediaUpload{}, &s.Media},
		{&model.Comment{}, &s.Comments},
		{&model.Favorite{}, &s.Favorites},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var votes struct {
		Up   int64
		Down int64
	}
	err := db.Model(&model.MediaUpload{}).
		Select("COALESCE(SUM(upvotes), 0) AS up, COALESCE(SUM(downvotes), 0) AS down").
		Scan(&votes).Error
	if err != nil {
		return nil, err
	}
	s.TotalUpvotes = votes.Up
	s.TotalDownvotes = votes.Down
	return &s, nil
}
