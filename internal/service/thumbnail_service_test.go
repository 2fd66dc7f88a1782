package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pog-gallery/internal/config"
	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
)

const testPlaceholder = "/images/video-placeholder.png"

func testThumbConfig() config.ThumbnailConfig {
	return config.ThumbnailConfig{
		PlaceholderURL:         testPlaceholder,
		PreviewSize:            1280,
		GenerateTimeoutSeconds: 10,
	}
}

func TestGetThumbnail_CacheHitSkipsFileStore(t *testing.T) {
	store := &fakeFileStore{}
	repo := newFakeThumbRepo()
	repo.rows["v1"] = model.VideoThumbnail{VideoID: "v1", ThumbnailURL: "https://cached"}
	svc := NewThumbnailService(repo, store, nil, testThumbConfig())

	got := svc.GetThumbnail(context.Background(), "v1")

	assert.Equal(t, "https://cached", got)
	assert.Zero(t, store.calls())
}

func TestGetThumbnail_GenerateThenCacheHit(t *testing.T) {
	store := &fakeFileStore{files: []model.MediaFile{
		{ID: "v1", MimeType: "video/mp4", PreviewLink: "https://lh3.googleusercontent.com/abc=s220"},
	}}
	repo := newFakeThumbRepo()
	svc := NewThumbnailService(repo, store, nil, testThumbConfig())

	first := svc.GetThumbnail(context.Background(), "v1")
	assert.Equal(t, "https://lh3.googleusercontent.com/abc=s1280", first)
	assert.Equal(t, 1, store.calls())

	second := svc.GetThumbnail(context.Background(), "v1")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls())
	assert.Len(t, repo.rows, 1)
}

func TestGetThumbnail_PreviewWithoutSizeSuffix(t *testing.T) {
	store := &fakeFileStore{files: []model.MediaFile{
		{ID: "v1", MimeType: "video/mp4", PreviewLink: "https://preview.example/v1.jpg"},
	}}
	svc := NewThumbnailService(newFakeThumbRepo(), store, nil, testThumbConfig())

	assert.Equal(t, "https://preview.example/v1.jpg", svc.GetThumbnail(context.Background(), "v1"))
}

func TestGetThumbnail_ProviderTimeoutReturnsPlaceholder(t *testing.T) {
	store := &fakeFileStore{blockGet: true}
	svc := NewThumbnailService(newFakeThumbRepo(), store, nil, testThumbConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Equal(t, testPlaceholder, svc.GetThumbnail(ctx, "v1"))
}

func TestGetThumbnail_FailuresReturnPlaceholder(t *testing.T) {
	preview := []model.MediaFile{{ID: "v1", MimeType: "video/mp4", PreviewLink: "https://x=s220"}}

	cases := []struct {
		name  string
		store *fakeFileStore
		repo  func() *fakeThumbRepo
		id    string
	}{
		{"empty id", &fakeFileStore{}, newFakeThumbRepo, ""},
		{"file missing", &fakeFileStore{}, newFakeThumbRepo, "v1"},
		{"provider error", &fakeFileStore{getErr: errors.New("403 forbidden")}, newFakeThumbRepo, "v1"},
		{"no preview link", &fakeFileStore{files: []model.MediaFile{{ID: "v1", MimeType: "video/mp4"}}}, newFakeThumbRepo, "v1"},
		{"upsert fails", &fakeFileStore{files: preview}, func() *fakeThumbRepo {
			r := newFakeThumbRepo()
			r.upsertErr = errors.New("db down")
			return r
		}, "v1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewThumbnailService(tc.repo(), tc.store, nil, testThumbConfig())
			assert.Equal(t, testPlaceholder, svc.GetThumbnail(context.Background(), tc.id))
		})
	}
}

func TestGetThumbnail_CacheErrorTreatedAsMiss(t *testing.T) {
	store := &fakeFileStore{getErr: errors.New("unreachable")}
	repo := newFakeThumbRepo()
	repo.findErr = errors.New("db down")
	svc := NewThumbnailService(repo, store, nil, testThumbConfig())

	assert.Equal(t, testPlaceholder, svc.GetThumbnail(context.Background(), "v1"))
	assert.Equal(t, 1, store.calls())
}

func TestGetThumbnail_EmptyPlaceholderConfigStillResolves(t *testing.T) {
	cfg := testThumbConfig()
	cfg.PlaceholderURL = ""
	svc := NewThumbnailService(newFakeThumbRepo(), &fakeFileStore{}, nil, cfg)

	assert.NotEmpty(t, svc.GetThumbnail(context.Background(), "v1"))
}

func TestGetThumbnail_PublishesTranscodeTask(t *testing.T) {
	store := &fakeFileStore{files: []model.MediaFile{{ID: "v1", Name: "clip.mp4", MimeType: "video/mp4"}}}
	pub := &fakePublisher{err: errors.New("broker down")}
	cfg := testThumbConfig()
	cfg.TranscodeEnabled = true
	svc := NewThumbnailService(newFakeThumbRepo(), store, pub, cfg)

	assert.Equal(t, testPlaceholder, svc.GetThumbnail(context.Background(), "v1"))
	require.Len(t, pub.tasks, 1)
	assert.Equal(t, "v1", pub.tasks[0].VideoID)
	assert.Equal(t, "clip.mp4", pub.tasks[0].FileName)

	cfg.TranscodeEnabled = false
	pub2 := &fakePublisher{}
	svc = NewThumbnailService(newFakeThumbRepo(), store, pub2, cfg)
	svc.GetThumbnail(context.Background(), "v1")
	assert.Empty(t, pub2.tasks)
}

func TestCachedThumbnails(t *testing.T) {
	repo := newFakeThumbRepo()
	repo.rows["a"] = model.VideoThumbnail{VideoID: "a", ThumbnailURL: "ua"}
	repo.rows["b"] = model.VideoThumbnail{VideoID: "b"}
	svc := NewThumbnailService(repo, &fakeFileStore{}, nil, testThumbConfig())

	got := svc.CachedThumbnails(context.Background(), []string{"a", "b", "c"})
	assert.Equal(t, map[string]string{"a": "ua"}, got)

	repo.findErr = errors.New("db down")
	assert.Empty(t, svc.CachedThumbnails(context.Background(), []string{"a"}))
}

// nilMetadataStore 的 Get 既不返回文件也不返回错误。
type nilMetadataStore struct{ *fakeFileStore }

func (nilMetadataStore) Get(ctx context.Context, id string) (*model.MediaFile, error) {
	return nil, nil
}

type panickingStore struct{ *fakeFileStore }

func (panickingStore) Get(ctx context.Context, id string) (*model.MediaFile, error) {
	panic("provider client not initialised")
}

func TestGetThumbnail_MalformedProviderResponseReturnsPlaceholder(t *testing.T) {
	repo := newFakeThumbRepo()

	svc := NewThumbnailService(repo, nilMetadataStore{&fakeFileStore{}}, nil, testThumbConfig())
	assert.Equal(t, testPlaceholder, svc.GetThumbnail(context.Background(), "v1"))

	svc = NewThumbnailService(repo, panickingStore{&fakeFileStore{}}, nil, testThumbConfig())
	assert.NotPanics(t, func() {
		assert.Equal(t, testPlaceholder, svc.GetThumbnail(context.Background(), "v1"))
	})
	assert.Empty(t, repo.rows)
}

func TestListMedia_MalformedThumbnailKeepsItem(t *testing.T) {
	db := newTestDB(t)
	store := &fakeFileStore{files: []model.MediaFile{{ID: "v1", MimeType: "video/mp4"}}}
	thumbs := NewThumbnailService(repository.NewThumbnailRepository(db), nilMetadataStore{store}, nil, testThumbConfig())
	svc := NewMediaService(store, repository.NewMediaRepository(db), repository.NewUserRepository(db), thumbs, nil, testFilePrefix)

	items, err := svc.ListMedia(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, testPlaceholder, items[0].Thumbnail)
}
