package model

import "time"

// Favorite 收藏模型，(username, media_id) 唯一。
type Favorite struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_user_media_favorite" json:"username"`
	MediaID   string    `gorm:"type:varchar(128);not null;uniqueIndex:uq_user_media_favorite;index" json:"mediaId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Favorite) TableName() string {
	return "favorites"
}
