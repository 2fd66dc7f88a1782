package service

import (
	"context"

	"pog-gallery/internal/repository"
)

// FavoriteService 处理收藏的切换与查询。
type FavoriteService interface {
	Toggle(ctx context.Context, userToken, mediaID string) (bool, error)
	List(ctx context.Context, userToken string) ([]string, error)
}

type favoriteService struct {
	users        UserService
	favoriteRepo repository.FavoriteRepository
}

func NewFavoriteService(users UserService, favoriteRepo repository.FavoriteRepository) FavoriteService {
	return &favoriteService{users: users, favoriteRepo: favoriteRepo}
}

func (s *favoriteService) Toggle(ctx context.Context, userToken, mediaID string) (bool, error) {
	if mediaID == "" {
		return false, validationError("mediaId is required")
	}
	claims, err := s.users.Authenticate(ctx, userToken)
	if err != nil {
		return false, err
	}
	favorited, err := s.favoriteRepo.Toggle(ctx, claims.Username, mediaID)
	if err != nil {
		return false, upstreamError(err, "failed to update favorite")
	}
	return favorited, nil
}

func (s *favoriteService) List(ctx context.Context, userToken string) ([]string, error) {
	claims, err := s.users.Authenticate(ctx, userToken)
	if err != nil {
		return nil, err
	}
	ids, err := s.favoriteRepo.ListByUser(ctx, claims.Username)
	if err != nil {
		return nil, upstreamError(err, "failed to load favorites")
	}
	return ids, nil
}
