package model

import "time"

// VideoThumbnail 对应于数据库中的 video_thumbnails 表，是视频缩略图的缓存。
// 每个 video_id 最多一条记录，写入一律通过 upsert 完成。
type VideoThumbnail struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	VideoID      string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"videoId"`
	ThumbnailID  string    `gorm:"type:varchar(128)" json:"thumbnailId"`
	ThumbnailURL string    `gorm:"type:text;not null" json:"thumbnailUrl"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (VideoThumbnail) TableName() string {
	return "video_thumbnails"
}
