package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pog-gallery/internal/service"
	"pog-gallery/pkg/log"
)

// AdminHandler 负责处理管理员相关的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// Login 校验管理员凭证并返回 adminToken。
func (h *AdminHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}
	adminToken, err := h.adminService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adminToken": adminToken})
}

// ListUsers 分页获取用户列表。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, size := pageParams(c)
	res, err := h.adminService.ListUsers(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	username := c.Param("username")
	if err := h.adminService.DeleteUser(c.Request.Context(), username); err != nil {
		respondError(c, err)
		return
	}
	log.Infof("Admin deleted user '%s'", username)
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *AdminHandler) ListMedia(c *gin.Context) {
	page, size := pageParams(c)
	res, err := h.adminService.ListMedia(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) ListComments(c *gin.Context) {
	page, size := pageParams(c)
	res, err := h.adminService.ListComments(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid comment id")
		return
	}
	if err := h.adminService.DeleteComment(c.Request.Context(), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
