package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"pog-gallery/internal/config"
	"pog-gallery/internal/model"
	"pog-gallery/pkg/log"
)

const (
	driveFolderMimeType = "application/vnd.google-apps.folder"
	driveFileFields     = "id, name, mimeType, createdTime, webViewLink, thumbnailLink, size, trashed"
)

// DriveStore 是基于 Google Drive v3 API 的 FileStore 实现。
type DriveStore struct {
	srv               *drive.Service
	folderID          string
	thumbnailFolderID string
}

// NewDriveService 使用长期有效的 refresh token 创建 Drive API 客户端。
func NewDriveService(ctx context.Context, cfg config.DriveConfig) (*drive.Service, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveScope},
	}
	httpClient := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("初始化 Google Drive 客户端失败: %w", err)
	}
	log.Info("Google Drive 客户端初始化成功")
	return srv, nil
}

// NewDriveStore 创建 DriveStore。thumbnailFolderID 为空时不支持上传缩略图。
func NewDriveStore(srv *drive.Service, folderID, thumbnailFolderID string) *DriveStore {
	return &DriveStore{srv: srv, folderID: folderID, thumbnailFolderID: thumbnailFolderID}
}

// List 分页列出媒体文件夹中的所有文件。
func (s *DriveStore) List(ctx context.Context) ([]model.MediaFile, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false and mimeType != '%s'", s.folderID, driveFolderMimeType)
	files := make([]model.MediaFile, 0)
	err := s.srv.Files.List().
		Q(q).
		PageSize(1000).
		Fields(googleapi.Field("nextPageToken, files(" + driveFileFields + ")")).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, toMediaFile(f))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("列出 Drive 文件失败: %w", err)
	}
	return files, nil
}

// Get 获取单个文件的元数据。
func (s *DriveStore) Get(ctx context.Context, id string) (*model.MediaFile, error) {
	f, err := s.srv.Files.Get(id).Fields(googleapi.Field(driveFileFields)).Context(ctx).Do()
	if err != nil {
		return nil, driveError(err)
	}
	if f.Trashed {
		return nil, ErrNotFound
	}
	mf := toMediaFile(f)
	return &mf, nil
}

// Open 下载文件内容。
func (s *DriveStore) Open(ctx context.Context, id string) (io.ReadCloser, *model.MediaFile, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, nil, driveError(err)
	}
	return resp.Body, meta, nil
}

// Upload 将文件上传到媒体文件夹或缩略图文件夹。
func (s *DriveStore) Upload(ctx context.Context, obj Object) (*model.MediaFile, error) {
	parent := s.folderID
	if obj.Thumbnail {
		if s.thumbnailFolderID == "" {
			return nil, errors.New("未配置 drive.thumbnail_folder_id，无法上传缩略图")
		}
		parent = s.thumbnailFolderID
	}
	f, err := s.srv.Files.Create(&drive.File{
		Name:     obj.Name,
		MimeType: obj.MimeType,
		Parents:  []string{parent},
	}).
		Media(obj.Body, googleapi.ContentType(obj.MimeType)).
		Fields(googleapi.Field(driveFileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("上传文件到 Drive 失败: %w", err)
	}
	mf := toMediaFile(f)
	return &mf, nil
}

// Delete 删除文件。
func (s *DriveStore) Delete(ctx context.Context, id string) error {
	if err := s.srv.Files.Delete(id).Context(ctx).Do(); err != nil {
		return driveError(err)
	}
	return nil
}

func toMediaFile(f *drive.File) model.MediaFile {
	created, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		created = time.Time{}
	}
	return model.MediaFile{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		CreatedTime: created,
		ViewLink:    f.WebViewLink,
		PreviewLink: f.ThumbnailLink,
		Size:        f.Size,
	}
}

// driveError 将 404 映射为 ErrNotFound，其余错误原样包装。
func driveError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
	}
	return fmt.Errorf("drive request failed: %w", err)
}
