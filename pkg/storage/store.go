// Package storage 提供了文件存储服务（Google Drive、MinIO）的客户端实现。
package storage

import (
	"context"
	"errors"
	"io"

	"pog-gallery/internal/model"
)

// ErrNotFound 表示请求的文件在存储服务中不存在（或已进入回收站）。
var ErrNotFound = errors.New("file not found")

// Object 描述一次上传。Thumbnail 为 true 时文件写入缩略图区域，List 永远不会返回这些文件。
type Object struct {
	Name      string
	MimeType  string
	Body      io.Reader
	Thumbnail bool
}

// FileStore 是外部文件存储服务的抽象。
type FileStore interface {
	// List 返回媒体目录下的全部文件（不含回收站条目与文件夹），顺序与存储服务一致。
	List(ctx context.Context) ([]model.MediaFile, error)
	// Get 返回文件元数据，包括存储服务生成的预览图地址。
	Get(ctx context.Context, id string) (*model.MediaFile, error)
	// Open 以流的方式读取文件内容，调用方负责关闭。
	Open(ctx context.Context, id string) (io.ReadCloser, *model.MediaFile, error)
	Upload(ctx context.Context, obj Object) (*model.MediaFile, error)
	Delete(ctx context.Context, id string) error
}
