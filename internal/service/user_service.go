package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"gorm.io/gorm"

	"pog-gallery/internal/model"
	"pog-gallery/internal/repository"
	"pog-gallery/pkg/hash"
	"pog-gallery/pkg/log"
	"pog-gallery/pkg/token"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

const (
	minPasswordLen = 6
	// bcrypt 只使用前 72 个字节
	maxPasswordLen = 72
)

// TokenPair 是登录与刷新 token 接口的返回结果。
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, tokenString string) error
	// Authenticate 验证会话 token（签名、类型、黑名单），返回其中的声明。
	Authenticate(ctx context.Context, tokenString string) (*token.CustomClaims, error)
	GetProfile(ctx context.Context, username string) (*model.User, error)
	VoteMap(ctx context.Context, tokenString string) (model.VoteMap, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	jwtManager  *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, validationError("username must be 3-32 characters of letters, digits or underscore")
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return nil, validationError("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}

	// 1. 检查用户名是否已存在
	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil, conflictError(nil, "username already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, upstreamError(err, "failed to register user")
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, upstreamError(err, "failed to register user")
	}

	// 3. 创建新用户
	user := &model.User{
		Username: username,
		Password: hashedPassword,
		Votes:    model.VoteMap{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictError(err, "username already exists")
		}
		return nil, upstreamError(err, "failed to register user")
	}
	log.Infof("[UserService] 用户注册成功, username: %s", username)
	return user, nil
}

// Login 校验密码并签发会话 token 与 refresh token。
func (s *userService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if username == "" || password == "" {
		return nil, validationError("username and password are required")
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorizedError(err, "invalid credentials")
		}
		return nil, upstreamError(err, "failed to login")
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, unauthorizedError(nil, "invalid credentials")
	}
	return s.issue(user.Username)
}

func (s *userService) issue(username string) (*TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateToken(username)
	if err != nil {
		return nil, upstreamError(err, "failed to issue token")
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(username)
	if err != nil {
		return nil, upstreamError(err, "failed to issue token")
	}
	return &TokenPair{Token: accessToken, RefreshToken: refreshToken, Username: username}, nil
}

// RefreshToken 使用 refresh token 换取新的 token 对，旧的 refresh token 随即作废。
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.verify(ctx, refreshToken, token.KindRefresh)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByUsername(ctx, claims.Username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorizedError(err, "user not found")
		}
		return nil, upstreamError(err, "failed to refresh token")
	}
	s.revoke(ctx, claims)
	return s.issue(claims.Username)
}

// Logout 将会话 token 加入黑名单直到其过期。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.verify(ctx, tokenString, token.KindAccess)
	if err != nil {
		return err
	}
	if err := s.sessionRepo.Revoke(ctx, claims.ID, remaining(claims)); err != nil {
		return upstreamError(err, "failed to logout")
	}
	return nil
}

func (s *userService) revoke(ctx context.Context, claims *token.CustomClaims) {
	if err := s.sessionRepo.Revoke(ctx, claims.ID, remaining(claims)); err != nil {
		log.Warnf("[UserService] 作废 token 失败, username: %s, error: %v", claims.Username, err)
	}
}

func remaining(claims *token.CustomClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}

func (s *userService) Authenticate(ctx context.Context, tokenString string) (*token.CustomClaims, error) {
	return s.verify(ctx, tokenString, token.KindAccess)
}

func (s *userService) verify(ctx context.Context, tokenString, kind string) (*token.CustomClaims, error) {
	claims, err := s.jwtManager.VerifyKind(tokenString, kind)
	if err != nil {
		return nil, unauthorizedError(err, "invalid or expired token")
	}
	revoked, err := s.sessionRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		// 黑名单不可用时按 token 有效处理，只记录日志
		log.Warnf("[UserService] 查询 token 黑名单失败: %v", err)
	} else if revoked {
		return nil, unauthorizedError(nil, "token has been revoked")
	}
	return claims, nil
}

// GetProfile 获取用户的详细信息。
func (s *userService) GetProfile(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("user not found")
		}
		return nil, upstreamError(err, "failed to load user")
	}
	return user, nil
}

// VoteMap 返回 token 对应用户的投票记录。
func (s *userService) VoteMap(ctx context.Context, tokenString string) (model.VoteMap, error) {
	claims, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.GetProfile(ctx, claims.Username)
	if err != nil {
		return nil, err
	}
	return user.Votes, nil
}
