// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pog-gallery/pkg/token"
)

// 写入 gin.Context 的键
const (
	ContextClaims   = "claims"
	ContextUsername = "username"
	ContextToken    = "token"
)

// Authenticator 验证会话 token。
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*token.CustomClaims, error)
}

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从 Authorization 请求头中提取 Bearer token，验证通过后将声明与用户名存入上下文。
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		// Token 通常以 "Bearer <token>" 的形式提供，我们需要提取出 token 本身
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}
