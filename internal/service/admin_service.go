package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"

	"gorm.io/gorm"

	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
	"pog-gallery/pkg/log"
	"pog-gallery/pkg/token"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageResponse 定义了分页列表 API 的响应结构。
type PageResponse struct {
	Content       interface{} `json:"content"`
	TotalElements int64       `json:"totalElements"`
	TotalPages    int         `json:"totalPages"`
	Size          int         `json:"size"`
	Number        int         `json:"number"`
}

// UserDetailResponse 定义了用户列表项的详细结构。
type UserDetailResponse struct {
	UserID      uint            `json:"userId"`
	Username    string          `json:"username"`
	Score       int             `json:"score"`
	UploadCount int             `json:"uploadCount"`
	CreatedAt   model.LocalTime `json:"createdAt"`
}

// CommentDetailResponse 定义了评论列表项的结构。
type CommentDetailResponse struct {
	ID        uint            `json:"id"`
	MediaID   string          `json:"mediaId"`
	Username  string          `json:"username"`
	Content   string          `json:"content"`
	CreatedAt model.LocalTime `json:"createdAt"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	Login(ctx context.Context, username, password string) (string, error)
	VerifyToken(tokenString string) (*token.CustomClaims, error)

	ListUsers(ctx context.Context, page, size int) (*PageResponse, error)
	DeleteUser(ctx context.Context, username string) error
	ListMedia(ctx context.Context, page, size int) (*PageResponse, error)
	ListComments(ctx context.Context, page, size int) (*PageResponse, error)
	DeleteComment(ctx context.Context, id uint) error
	Stats(ctx context.Context) (*repository.Stats, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	username    string
	password    string
	jwtManager  *token.JWTManager
	userRepo    repository.UserRepository
	mediaRepo   repository.MediaRepository
	commentRepo repository.CommentRepository
	statsRepo   repository.StatsRepository
}

// NewAdminService 创建一个新的 AdminService 实例。username/password 是配置的管理员凭证。
func NewAdminService(
	username, password string,
	jwtManager *token.JWTManager,
	userRepo repository.UserRepository,
	mediaRepo repository.MediaRepository,
	commentRepo repository.CommentRepository,
	statsRepo repository.StatsRepository,
) AdminService {
	return &adminService{
		username:    username,
		password:    password,
		jwtManager:  jwtManager,
		userRepo:    userRepo,
		mediaRepo:   mediaRepo,
		commentRepo: commentRepo,
		statsRepo:   statsRepo,
	}
}

// Login 以常量时间比较配置的管理员凭证，成功后签发短期管理员 token。
// 未配置管理员凭证时拒绝所有登录。
func (s *adminService) Login(ctx context.Context, username, password string) (string, error) {
	if s.username == "" || s.password == "" {
		log.Warnf("[AdminService] 未配置管理员凭证，拒绝管理员登录")
		return "", unauthorizedError(nil, "invalid admin credentials")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		log.Warnf("[AdminService] 管理员登录失败, username: %s", username)
		return "", unauthorizedError(nil, "invalid admin credentials")
	}
	adminToken, err := s.jwtManager.GenerateAdminToken(username)
	if err != nil {
		return "", upstreamError(err, "failed to issue admin token")
	}
	log.Infof("[AdminService] 管理员登录成功, username: %s", username)
	return adminToken, nil
}

func (s *adminService) VerifyToken(tokenString string) (*token.CustomClaims, error) {
	claims, err := s.jwtManager.VerifyAdminToken(tokenString)
	if err != nil {
		return nil, newError(ErrForbidden, err, "admin access required")
	}
	return claims, nil
}

// normalizePage 将页码（从 1 开始）和每页大小规范化为 offset/limit。
func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, (page - 1) * size
}

func newPage(content interface{}, total int64, page, size int) *PageResponse {
	return &PageResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
		Size:          size,
		Number:        page,
	}
}

// ListUsers 分页获取用户列表。
func (s *adminService) ListUsers(ctx context.Context, page, size int) (*PageResponse, error) {
	page, size, offset := normalizePage(page, size)
	users, total, err := s.userRepo.FindWithPagination(ctx, offset, size)
	if err != nil {
		return nil, upstreamError(err, "failed to list users")
	}
	details := make([]UserDetailResponse, 0, len(users))
	for _, u := range users {
		details = append(details, UserDetailResponse{
			UserID:      u.ID,
			Username:    u.Username,
			Score:       u.Score,
			UploadCount: u.UploadCount,
			CreatedAt:   model.LocalTime(u.CreatedAt),
		})
	}
	return newPage(details, total, page, size), nil
}

func (s *adminService) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return validationError("username is required")
	}
	if err := s.userRepo.Delete(ctx, username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("user not found")
		}
		return upstreamError(err, "failed to delete user")
	}
	log.Infof("[AdminService] 用户已删除, username: %s", username)
	return nil
}

func (s *adminService) ListMedia(ctx context.Context, page, size int) (*PageResponse, error) {
	page, size, offset := normalizePage(page, size)
	records, total, err := s.mediaRepo.List(ctx, offset, size)
	if err != nil {
		return nil, upstreamError(err, "failed to list media")
	}
	return newPage(records, total, page, size), nil
}

func (s *adminService) ListComments(ctx context.Context, page, size int) (*PageResponse, error) {
	page, size, offset := normalizePage(page, size)
	comments, total, err := s.commentRepo.List(ctx, offset, size)
	if err != nil {
		return nil, upstreamError(err, "failed to list comments")
	}
	details := make([]CommentDetailResponse, 0, len(comments))
	for _, c := range comments {
		details = append(details, CommentDetailResponse{
			ID:        c.ID,
			MediaID:   c.MediaID,
			Username:  c.Username,
			Content:   c.Content,
			CreatedAt: model.LocalTime(c.CreatedAt),
		})
	}
	return newPage(details, total, page, size), nil
}

func (s *adminService) DeleteComment(ctx context.Context, id uint) error {
	if err := s.commentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("comment not found")
		}
		return upstreamError(err, "failed to delete comment")
	}
	return nil
}

func (s *adminService) Stats(ctx context.Context) (*repository.Stats, error) {
	stats, err := s.statsRepo.Collect(ctx)
	if err != nil {
		return nil, upstreamError(err, "failed to collect stats")
	}
	return stats, nil
}
