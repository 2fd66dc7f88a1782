package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
)

func newTestUserService(t *testing.T) (UserService, repository.UserRepository, *fakeSessionRepo) {
	t.Helper()
	userRepo := repository.NewUserRepository(newTestDB(t))
	sessions := newFakeSessionRepo()
	return NewUserService(userRepo, sessions, newTestJWT()), userRepo, sessions
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()

	cases := []struct{ username, password string }{
		{"ab", "secret1"},
		{"has space", "secret1"},
		{strings.Repeat("a", 33), "secret1"},
		{"alice", "123"},
		{"alice", strings.Repeat("p", 73)},
	}
	for _, tc := range cases {
		_, err := svc.Register(ctx, tc.username, tc.password)
		assert.ErrorIs(t, err, ErrValidation, "username=%q", tc.username)
	}
}

func TestRegister_DuplicateAndLogin(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = svc.Register(ctx, "alice", "another1")
	assert.ErrorIs(t, err, ErrConflict)

	pair, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", pair.Username)
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.RefreshToken)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, pair.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	_, err = svc.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.Token))
	_, err = svc.Authenticate(ctx, pair.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, svc.Logout(ctx, pair.Token), ErrUnauthorized)
}

func TestRefreshToken_RotatesPair(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "secret1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", next.Username)
	_, err = svc.Authenticate(ctx, next.Token)
	assert.NoError(t, err)

	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.RefreshToken(ctx, next.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVoteMap(t *testing.T) {
	svc, userRepo, _ := newTestUserService(t)
	ctx := context.Background()
	require.NoError(t, userRepo.Create(ctx, &model.User{Username: "alice", Password: "x", Votes: model.VoteMap{"m1": 1}}))
	tok, err := newTestJWT().GenerateToken("alice")
	require.NoError(t, err)

	votes, err := svc.VoteMap(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, 1, votes["m1"])

	_, err = svc.VoteMap(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
