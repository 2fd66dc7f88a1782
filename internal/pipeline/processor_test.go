package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pog-gallery/internal/model"
	"pog-gallery/pkg/storage"
	"pog-gallery/pkg/tasks"
)

type memStore struct {
	files    map[string]string
	uploaded []storage.Object
	bodies   [][]byte
}

func (m *memStore) List(ctx context.Context) ([]model.MediaFile, error) { return nil, nil }

func (m *memStore) Get(ctx context.Context, id string) (*model.MediaFile, error) {
	if _, ok := m.files[id]; !ok {
		return nil, storage.ErrNotFound
	}
	return &model.MediaFile{ID: id}, nil
}

func (m *memStore) Open(ctx context.Context, id string) (io.ReadCloser, *model.MediaFile, error) {
	content, ok := m.files[id]
	if !ok {
		return nil, nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), &model.MediaFile{ID: id}, nil
}

func (m *memStore) Upload(ctx context.Context, obj storage.Object) (*model.MediaFile, error) {
	b, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, err
	}
	m.uploaded = append(m.uploaded, obj)
	m.bodies = append(m.bodies, b)
	return &model.MediaFile{ID: "thumb-1", Name: obj.Name, MimeType: obj.MimeType}, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error { return nil }

type memThumbRepo struct {
	rows map[string]model.VideoThumbnail
}

func (r *memThumbRepo) FindByVideoID(ctx context.Context, videoID string) (*model.VideoThumbnail, error) {
	t, ok := r.rows[videoID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *memThumbRepo) FindByVideoIDs(ctx context.Context, videoIDs []string) ([]model.VideoThumbnail, error) {
	return nil, nil
}

func (r *memThumbRepo) Upsert(ctx context.Context, thumb *model.VideoThumbnail) error {
	r.rows[thumb.VideoID] = *thumb
	return nil
}

type fakeExtractor struct {
	calls int
	err   error
}

func (f *fakeExtractor) ExtractFrame(ctx context.Context, input, output string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	src, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, append([]byte("JPEG:"), src...), 0o600)
}

func TestProcess_GeneratesAndCachesThumbnail(t *testing.T) {
	store := &memStore{files: map[string]string{"v1": "video-bytes"}}
	repo := &memThumbRepo{rows: map[string]model.VideoThumbnail{}}
	ext := &fakeExtractor{}
	p := NewProcessor(store, repo, ext, "/api/file/")

	err := p.Process(context.Background(), tasks.ThumbnailTask{VideoID: "v1", FileName: "clip.mp4", MimeType: "video/mp4"})
	require.NoError(t, err)

	require.Len(t, store.uploaded, 1)
	assert.True(t, store.uploaded[0].Thumbnail)
	assert.Equal(t, "image/jpeg", store.uploaded[0].MimeType)
	assert.True(t, bytes.Equal([]byte("JPEG:video-bytes"), store.bodies[0]))

	row := repo.rows["v1"]
	assert.Equal(t, "thumb-1", row.ThumbnailID)
	assert.Equal(t, "/api/file/thumb-1", row.ThumbnailURL)
}

func TestProcess_SkipsWhenCached(t *testing.T) {
	store := &memStore{files: map[string]string{"v1": "video-bytes"}}
	repo := &memThumbRepo{rows: map[string]model.VideoThumbnail{"v1": {VideoID: "v1", ThumbnailURL: "https://x/thumb"}}}
	ext := &fakeExtractor{}

	require.NoError(t, NewProcessor(store, repo, ext, "/api/file/").Process(context.Background(), tasks.ThumbnailTask{VideoID: "v1"}))
	assert.Zero(t, ext.calls)
	assert.Empty(t, store.uploaded)
}

func TestProcess_Failures(t *testing.T) {
	t.Run("missing video", func(t *testing.T) {
		repo := &memThumbRepo{rows: map[string]model.VideoThumbnail{}}
		p := NewProcessor(&memStore{files: map[string]string{}}, repo, &fakeExtractor{}, "/api/file/")
		err := p.Process(context.Background(), tasks.ThumbnailTask{VideoID: "gone"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Empty(t, repo.rows)
	})

	t.Run("empty video", func(t *testing.T) {
		ext := &fakeExtractor{}
		p := NewProcessor(&memStore{files: map[string]string{"v1": ""}}, &memThumbRepo{rows: map[string]model.VideoThumbnail{}}, ext, "/api/file/")
		assert.Error(t, p.Process(context.Background(), tasks.ThumbnailTask{VideoID: "v1"}))
		assert.Zero(t, ext.calls)
	})

	t.Run("extractor error", func(t *testing.T) {
		store := &memStore{files: map[string]string{"v1": "video-bytes"}}
		repo := &memThumbRepo{rows: map[string]model.VideoThumbnail{}}
		boom := errors.New("moov atom not found")
		p := NewProcessor(store, repo, &fakeExtractor{err: boom}, "/api/file/")
		assert.ErrorIs(t, p.Process(context.Background(), tasks.ThumbnailTask{VideoID: "v1"}), boom)
		assert.Empty(t, store.uploaded)
		assert.Empty(t, repo.rows)
	})

	t.Run("missing id", func(t *testing.T) {
		p := NewProcessor(&memStore{}, &memThumbRepo{rows: map[string]model.VideoThumbnail{}}, &fakeExtractor{}, "/api/file/")
		assert.Error(t, p.Process(context.Background(), tasks.ThumbnailTask{}))
	})
}
