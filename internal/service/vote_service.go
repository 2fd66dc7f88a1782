package service

import (
	"context"
	"errors"

	"pog-gallery/internal/repository"
	"pog-gallery/pkg/log"
)

// voteAttempts 是投票比较并交换失败后的最大尝试次数。
const voteAttempts = 3

// VoteService 处理用户对媒体的投票。
type VoteService interface {
	// Vote 提交 voteType（1 或 -1）。与已有投票相同则撤销为 0。
	Vote(ctx context.Context, userToken, mediaID string, voteType int) (*repository.VoteResult, error)
}

type voteService struct {
	users    UserService
	userRepo repository.UserRepository
}

func NewVoteService(users UserService, userRepo repository.UserRepository) VoteService {
	return &voteService{users: users, userRepo: userRepo}
}

func (s *voteService) Vote(ctx context.Context, userToken, mediaID string, voteType int) (*repository.VoteResult, error) {
	if mediaID == "" {
		return nil, validationError("mediaId is required")
	}
	if voteType != 1 && voteType != -1 {
		return nil, validationError("voteType must be 1 or -1")
	}
	claims, err := s.users.Authenticate(ctx, userToken)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= voteAttempts; attempt++ {
		res, err := s.userRepo.ApplyVote(ctx, claims.Username, mediaID, voteType)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, repository.ErrVoteConflict):
			log.Warnf("[VoteService] 投票并发冲突，重试 (%d/%d), username: %s, mediaID: %s", attempt, voteAttempts, claims.Username, mediaID)
			lastErr = err
		case errors.Is(err, repository.ErrMediaNotFound):
			return nil, notFoundError("media not found")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, unauthorizedError(err, "user not found")
		default:
			return nil, upstreamError(err, "failed to record vote")
		}
	}
	return nil, conflictError(lastErr, "vote was modified concurrently, please retry")
}
