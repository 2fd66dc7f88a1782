// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 画廊条目的展示类型。
const (
	MediaTypeVideo = "video"
	MediaTypeImage = "image"

	// UnknownUploader 是缺少元数据记录时使用的上传者占位名。
	UnknownUploader = "Unknown"
)

// MediaFile 是文件存储服务返回的文件描述，本地不持久化。
type MediaFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mimeType"`
	CreatedTime time.Time `json:"createdTime"`
	ViewLink    string    `json:"viewLink"`
	// PreviewLink 是文件存储生成的低分辨率预览图地址，可能为空。
	PreviewLink string `json:"previewLink,omitempty"`
	Size        int64  `json:"size"`
}

// MediaUpload 定义了 media_uploads 表的 ORM 模型。
// 它记录了每个上传文件的上传者和投票计数。
type MediaUpload struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID    string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"fileId"`
	Username  string    `gorm:"type:varchar(64);not null;index" json:"username"`
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0" json:"downvotes"`
	VoteCount int       `gorm:"not null;default:0" json:"voteCount"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (MediaUpload) TableName() string {
	return "media_uploads"
}

// MediaItem 是返回给前端的画廊条目，合并了文件属性、元数据记录和调用者的投票。
type MediaItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mimeType"`
	Type        string    `json:"type"`
	CreatedTime time.Time `json:"createdTime"`
	ViewLink    string    `json:"viewLink"`
	URL         string    `json:"url"`
	Thumbnail   string    `json:"thumbnail"`
	Username    string    `json:"username"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	VoteCount   int       `json:"voteCount"`
	UserVote    int       `json:"userVote"`
}
