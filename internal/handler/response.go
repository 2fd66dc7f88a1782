// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pog-gallery/internal/service"
	"pog-gallery/pkg/log"
)

// respondError 将服务层错误映射为 HTTP 状态码，并以 {"error": "..."} 返回。
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Errorw("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err, "cause", errors.Unwrap(err))
	} else {
		log.Warnf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	msg := err.Error()
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pageParams 读取 page 与 size 查询参数，非法值交给服务层规范化。
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}
