// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token 类型，写入 claims 以区分会话 token、refresh token 与管理员 token。
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
	KindAdmin   = "admin"
)

var (
	// ErrInvalidToken 表示 token 签名错误、已过期或格式不正确。
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongKind 表示 token 有效但类型不符（例如用 refresh token 访问接口）。
	ErrWrongKind = errors.New("token kind mismatch")
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey       []byte        // secretKey 用于签名和验证 token 的密钥
	accessTokenDur  time.Duration // accessTokenDur 定义了 access token 的有效期
	refreshTokenDur time.Duration // refreshTokenDur 定义了 refresh token 的有效期
	adminTokenDur   time.Duration // adminTokenDur 定义了管理员 token 的有效期
}

// CustomClaims 定义了我们想要在 JWT 中存储的自定义数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type CustomClaims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string, accessTokenExpireHours, refreshTokenExpireDays, adminTokenExpireMinutes int) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secret),
		accessTokenDur:  time.Hour * time.Duration(accessTokenExpireHours),
		refreshTokenDur: time.Duration(refreshTokenExpireDays) * 24 * time.Hour,
		adminTokenDur:   time.Duration(adminTokenExpireMinutes) * time.Minute,
	}
}

// GenerateToken 为用户生成一个新的会话 token。
func (m *JWTManager) GenerateToken(username string) (string, error) {
	return m.sign(username, false, KindAccess, m.accessTokenDur)
}

// GenerateRefreshToken 生成 refresh token，与 GenerateToken 类似但有效期更长。
func (m *JWTManager) GenerateRefreshToken(username string) (string, error) {
	return m.sign(username, false, KindRefresh, m.refreshTokenDur)
}

// GenerateAdminToken 生成一个携带 isAdmin 声明的短期管理员 token。
func (m *JWTManager) GenerateAdminToken(username string) (string, error) {
	return m.sign(username, true, KindAdmin, m.adminTokenDur)
}

func (m *JWTManager) sign(username string, isAdmin bool, kind string, dur time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Username: username,
		IsAdmin:  isAdmin,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GenerateRandomString(8),
			ExpiresAt: jwt.NewNumericDate(now.Add(dur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	// 使用 HS256 签名方法创建新的 token 对象
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 有效，它会返回 CustomClaims 对象。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// VerifyKind 验证 token 并要求其类型为 kind。
func (m *JWTManager) VerifyKind(tokenString, kind string) (*CustomClaims, error) {
	claims, err := m.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}

// VerifyAdminToken 验证管理员 token，要求 isAdmin 声明为 true。
func (m *JWTManager) VerifyAdminToken(tokenString string) (*CustomClaims, error) {
	claims, err := m.VerifyKind(tokenString, KindAdmin)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin {
		return nil, ErrWrongKind
	}
	return claims, nil
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
