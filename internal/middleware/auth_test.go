package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"pog-gallery/pkg/token"
)

type stubAuth struct {
	claims *token.CustomClaims
	err    error
}

func (s stubAuth) Authenticate(ctx context.Context, tokenString string) (*token.CustomClaims, error) {
	return s.claims, s.err
}

func (s stubAuth) VerifyToken(tokenString string) (*token.CustomClaims, error) {
	return s.claims, s.err
}

func newAuthRouter(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", h, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.GetString(ContextUsername)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	ok := stubAuth{claims: &token.CustomClaims{Username: "alice"}}
	cases := []struct {
		name   string
		auth   stubAuth
		header string
		want   int
	}{
		{"missing header", ok, "", http.StatusUnauthorized},
		{"not bearer", ok, "Basic abc", http.StatusUnauthorized},
		{"invalid token", stubAuth{err: errors.New("bad")}, "Bearer abc", http.StatusUnauthorized},
		{"valid", ok, "Bearer abc", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthRouter(AuthMiddleware(tc.auth))
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), "alice")
			}
		})
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		auth   stubAuth
		header string
		want   int
	}{
		{"missing token", stubAuth{}, "", http.StatusForbidden},
		{"invalid token", stubAuth{err: errors.New("bad")}, "abc", http.StatusForbidden},
		{"valid", stubAuth{claims: &token.CustomClaims{Username: "root", IsAdmin: true}}, "abc", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthRouter(AdminAuthMiddleware(tc.auth))
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(AdminTokenHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
