package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
	"pog-gallery/pkg/database"
	"pog-gallery/pkg/storage"
	"pog-gallery/pkg/tasks"
	"pog-gallery/pkg/token"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestJWT() *token.JWTManager {
	return token.NewJWTManager("test-secret", 1, 1, 5)
}

// fakeFileStore 是内存中的 FileStore。
type fakeFileStore struct {
	mu       sync.Mutex
	files    []model.MediaFile
	listErr  error
	getErr   error
	blockGet bool
	getCalls int32

	uploaded  []storage.Object
	bodies    [][]byte
	deleted   []string
	deleteErr error
}

func (f *fakeFileStore) List(ctx context.Context) ([]model.MediaFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MediaFile(nil), f.files...), nil
}

func (f *fakeFileStore) Get(ctx context.Context, id string) (*model.MediaFile, error) {
	atomic.AddInt32(&f.getCalls, 1)
	if f.blockGet {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range f.files {
		if file.ID == id {
			file := file
			return &file, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeFileStore) Open(ctx context.Context, id string) (io.ReadCloser, *model.MediaFile, error) {
	file, err := f.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return io.NopCloser(strings.NewReader("content-of-" + id)), file, nil
}

func (f *fakeFileStore) Upload(ctx context.Context, obj storage.Object) (*model.MediaFile, error) {
	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, obj)
	f.bodies = append(f.bodies, body)
	file := model.MediaFile{ID: fmt.Sprintf("up-%d", len(f.uploaded)), Name: obj.Name, MimeType: obj.MimeType, CreatedTime: time.Now()}
	f.files = append(f.files, file)
	return &file, nil
}

func (f *fakeFileStore) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, file := range f.files {
		if file.ID == id {
			f.files = append(f.files[:i], f.files[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeFileStore) calls() int {
	return int(atomic.LoadInt32(&f.getCalls))
}

// fakeThumbRepo 是内存中的 ThumbnailRepository。
type fakeThumbRepo struct {
	mu        sync.Mutex
	rows      map[string]model.VideoThumbnail
	findErr   error
	upsertErr error
}

func newFakeThumbRepo() *fakeThumbRepo {
	return &fakeThumbRepo{rows: map[string]model.VideoThumbnail{}}
}

func (r *fakeThumbRepo) FindByVideoID(ctx context.Context, videoID string) (*model.VideoThumbnail, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[videoID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *fakeThumbRepo) FindByVideoIDs(ctx context.Context, videoIDs []string) ([]model.VideoThumbnail, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VideoThumbnail
	for _, id := range videoIDs {
		if row, ok := r.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeThumbRepo) Upsert(ctx context.Context, thumb *model.VideoThumbnail) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[thumb.VideoID] = *thumb
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	tasks []tasks.ThumbnailTask
	err   error
}

func (p *fakePublisher) PublishThumbnailTask(ctx context.Context, task tasks.ThumbnailTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return p.err
}

// fakeSessionRepo 是内存中的 token 黑名单。
type fakeSessionRepo struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{revoked: map[string]bool{}}
}

func (r *fakeSessionRepo) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = true
	return nil
}

func (r *fakeSessionRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[tokenID], nil
}

// fakeThumbnails 允许测试控制每个视频的缩略图解析。
type fakeThumbnails struct {
	cached map[string]string
	get    func(videoID string) string
}

func (f *fakeThumbnails) GetThumbnail(ctx context.Context, videoID string) string {
	return f.get(videoID)
}

func (f *fakeThumbnails) CachedThumbnails(ctx context.Context, videoIDs []string) map[string]string {
	out := map[string]string{}
	for _, id := range videoIDs {
		if u, ok := f.cached[id]; ok {
			out[id] = u
		}
	}
	return out
}

type staticVotes struct {
	votes model.VoteMap
	err   error
}

func (s staticVotes) VoteMap(ctx context.Context, token string) (model.VoteMap, error) {
	return s.votes, s.err
}

// failingMediaRepo 让 FindByFileIDs 失败，其余方法委托给内嵌实现。
type failingMediaRepo struct {
	repository.MediaRepository
}

func (failingMediaRepo) FindByFileIDs(ctx context.Context, fileIDs []string) ([]model.MediaUpload, error) {
	return nil, fmt.Errorf("connection refused")
}

var pngHeader = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
