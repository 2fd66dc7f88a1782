package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck 检查一个依赖是否可用。
type HealthCheck func(ctx context.Context) error

// HealthHandler 汇报各个依赖的健康状态。
type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type componentStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Health 任意依赖不可用时返回 503。
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	components := make(map[string]componentStatus, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		start := time.Now()
		err := check(ctx)
		st := componentStatus{Status: "up", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			st.Status = "down"
			st.Error = err.Error()
			healthy = false
		}
		components[name] = st
	}

	status, code := "up", http.StatusOK
	if !healthy {
		status, code = "down", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "components": components})
}
