package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
)

func newTestAdminService(t *testing.T, username, password string) (AdminService, *repositories) {
	t.Helper()
	db := newTestDB(t)
	repos := &repositories{
		users:    repository.NewUserRepository(db),
		media:    repository.NewMediaRepository(db),
		comments: repository.NewCommentRepository(db),
	}
	svc := NewAdminService(username, password, newTestJWT(), repos.users, repos.media, repos.comments, repository.NewStatsRepository(db))
	return svc, repos
}

type repositories struct {
	users    repository.UserRepository
	media    repository.MediaRepository
	comments repository.CommentRepository
}

func TestAdminLogin(t *testing.T) {
	svc, _ := newTestAdminService(t, "root", "hunter22")
	ctx := context.Background()

	adminToken, err := svc.Login(ctx, "root", "hunter22")
	require.NoError(t, err)
	claims, err := svc.VerifyToken(adminToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	_, err = svc.Login(ctx, "root", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, "admin", "hunter22")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminLogin_NotConfigured(t *testing.T) {
	svc, _ := newTestAdminService(t, "", "")
	_, err := svc.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminVerifyToken_RejectsUserToken(t *testing.T) {
	svc, _ := newTestAdminService(t, "root", "hunter22")
	userToken, err := newTestJWT().GenerateToken("alice")
	require.NoError(t, err)

	_, err = svc.VerifyToken(userToken)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.VerifyToken("")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAdminListUsersPagination(t *testing.T) {
	svc, repos := newTestAdminService(t, "root", "hunter22")
	ctx := context.Background()
	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, repos.users.Create(ctx, &model.User{Username: name, Password: "x"}))
	}

	page, err := svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Number)
	users := page.Content.([]UserDetailResponse)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)

	require.NoError(t, svc.DeleteUser(ctx, "carol"))
	assert.ErrorIs(t, svc.DeleteUser(ctx, "carol"), ErrNotFound)
}

func TestAdminComments(t *testing.T) {
	svc, repos := newTestAdminService(t, "root", "hunter22")
	ctx := context.Background()
	c := &model.Comment{MediaID: "m1", Username: "alice", Content: "hi"}
	require.NoError(t, repos.comments.Create(ctx, c))

	page, err := svc.ListComments(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, page.Size)
	assert.Len(t, page.Content.([]CommentDetailResponse), 1)

	require.NoError(t, svc.DeleteComment(ctx, c.ID))
	assert.ErrorIs(t, svc.DeleteComment(ctx, c.ID), ErrNotFound)
}

func TestAdminStats(t *testing.T) {
	svc, repos := newTestAdminService(t, "root", "hunter22")
	ctx := context.Background()
	require.NoError(t, repos.media.Create(ctx, &model.MediaUpload{FileID: "m1", Username: "alice", Upvotes: 2, Downvotes: 1}))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Media)
	assert.EqualValues(t, 2, stats.TotalUpvotes)
	assert.EqualValues(t, 1, stats.TotalDownvotes)
}

func TestNormalizePage(t *testing.T) {
	page, size, offset := normalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, maxPageSize, size)
	assert.Equal(t, 2*maxPageSize, offset)
}
