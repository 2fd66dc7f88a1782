package model

import "time"

// Comment 对应于数据库中的 comments 表。
type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MediaID   string    `gorm:"type:varchar(128);not null;index" json:"mediaId"`
	Username  string    `gorm:"type:varchar(64);not null" json:"username"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Comment) TableName() string {
	return "comments"
}
