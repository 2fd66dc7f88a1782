package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
)

const maxCommentLen = 1000

// CommentService 处理评论的查询与发布。
type CommentService interface {
	List(ctx context.Context, mediaID string) ([]model.Comment, error)
	Create(ctx context.Context, mediaID, username, content string) (*model.Comment, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
}

func NewCommentService(commentRepo repository.CommentRepository) CommentService {
	return &commentService{commentRepo: commentRepo}
}

func (s *commentService) List(ctx context.Context, mediaID string) ([]model.Comment, error) {
	if mediaID == "" {
		return nil, validationError("mediaId is required")
	}
	comments, err := s.commentRepo.ListByMedia(ctx, mediaID)
	if err != nil {
		return nil, upstreamError(err, "failed to load comments")
	}
	return comments, nil
}

func (s *commentService) Create(ctx context.Context, mediaID, username, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	username = strings.TrimSpace(username)
	switch {
	case mediaID == "":
		return nil, validationError("mediaId is required")
	case username == "":
		return nil, validationError("username is required")
	case content == "":
		return nil, validationError("content is required")
	case utf8.RuneCountInString(content) > maxCommentLen:
		return nil, validationError("content must be at most %d characters", maxCommentLen)
	}

	comment := &model.Comment{MediaID: mediaID, Username: username, Content: content}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, upstreamError(err, "failed to save comment")
	}
	return comment, nil
}
