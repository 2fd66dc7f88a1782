package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pog-gallery/internal/middleware"
)

// Handlers 汇总了所有路由使用的 handler。
type Handlers struct {
	Media       *MediaHandler
	User        *UserHandler
	Interaction *InteractionHandler
	Admin       *AdminHandler
	Health      *HealthHandler
}

// Limiters 是路由使用的限流器。每个限流器都有后台清理 goroutine，停机时需要 Stop。
type Limiters struct {
	Auth *middleware.RateLimiter
	Vote *middleware.RateLimiter
}

func NewLimiters() Limiters {
	return Limiters{
		Auth: middleware.NewAuthRateLimiter(),
		Vote: middleware.NewVoteRateLimiter(),
	}
}

func (l Limiters) Stop() {
	l.Auth.Stop()
	l.Vote.Stop()
}

// NewRouter 创建 gin 引擎并注册所有路由。
func NewRouter(h Handlers, limiters Limiters, auth middleware.Authenticator, admin middleware.AdminVerifier, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(corsOrigins))

	authLimiter := limiters.Auth
	voteLimiter := limiters.Vote
	adminAuth := middleware.AdminAuthMiddleware(admin)

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/media", h.Media.ListMedia)
		api.POST("/upload", h.Media.Upload)
		api.GET("/file/:id", h.Media.GetFile)
		api.DELETE("/delete-media/:id", adminAuth, h.Media.DeleteMedia)

		api.POST("/register", authLimiter.Handler(), h.User.Register)
		api.POST("/login", authLimiter.Handler(), h.User.Login)
		api.POST("/refresh-token", h.User.RefreshToken)
		api.POST("/logout", middleware.AuthMiddleware(auth), h.User.Logout)
		api.GET("/me", middleware.AuthMiddleware(auth), h.User.GetProfile)

		api.POST("/vote", voteLimiter.Handler(), h.Interaction.Vote)
		api.POST("/favorites", h.Interaction.ToggleFavorite)
		api.GET("/favorites", h.Interaction.ListFavorites)
		api.GET("/comments", h.Interaction.ListComments)
		api.POST("/comments", h.Interaction.CreateComment)

		api.POST("/admin-login", authLimiter.Handler(), h.Admin.Login)
		adminRoutes := api.Group("/admin", adminAuth)
		{
			adminRoutes.GET("/users", h.Admin.ListUsers)
			adminRoutes.DELETE("/users/:username", h.Admin.DeleteUser)
			adminRoutes.GET("/media", h.Admin.ListMedia)
			adminRoutes.GET("/comments", h.Admin.ListComments)
			adminRoutes.DELETE("/comments/:id", h.Admin.DeleteComment)
			adminRoutes.GET("/stats", h.Admin.Stats)
		}
	}
	return r
}
