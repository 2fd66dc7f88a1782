package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pog-gallery/pkg/token"
)

// AdminTokenHeader 是携带管理员 token 的请求头。
const AdminTokenHeader = "admin-token"

// AdminVerifier 验证管理员 token。
type AdminVerifier interface {
	VerifyToken(tokenString string) (*token.CustomClaims, error)
}

// AdminAuthMiddleware 检查请求头中的管理员 token，缺失或无效时返回 403。
func AdminAuthMiddleware(verifier AdminVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminToken := c.GetHeader(AdminTokenHeader)
		if adminToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin token required"})
			return
		}
		claims, err := verifier.VerifyToken(adminToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid admin token"})
			return
		}
		c.Set(ContextClaims, claims)
		c.Next()
	}
}
