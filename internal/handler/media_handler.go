package handler

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"pog-gallery/internal/service"
	"pog-gallery/pkg/log"
)

// MediaHandler 负责画廊、上传、文件流与删除接口。
type MediaHandler struct {
	mediaService   service.MediaService
	maxUploadBytes int64
}

// NewMediaHandler 创建一个新的 MediaHandler 实例。
func NewMediaHandler(mediaService service.MediaService, maxUploadBytes int64) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, maxUploadBytes: maxUploadBytes}
}

// ListMedia 返回画廊条目，响应禁止被缓存。
func (h *MediaHandler) ListMedia(c *gin.Context) {
	items, err := h.mediaService.ListMedia(c.Request.Context(), c.Query("userToken"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.JSON(http.StatusOK, items)
}

// Upload 处理 multipart 上传：字段 file、name、username。
func (h *MediaHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		log.Warnf("Upload: missing file field, error: %v", err)
		badRequest(c, "file is required")
		return
	}
	defer file.Close()

	name := c.PostForm("name")
	if name == "" {
		name = header.Filename
	}
	fileID, err := h.mediaService.Upload(c.Request.Context(), service.UploadInput{
		Body:     file,
		Name:     name,
		Username: c.PostForm("username"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fileId": fileID})
}

// GetFile 以流的方式返回文件内容。
func (h *MediaHandler) GetFile(c *gin.Context) {
	body, file, err := h.mediaService.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := file.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, contentType, body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("inline", map[string]string{"filename": file.Name}),
		"Cache-Control":       "public, max-age=86400",
	})
}

// DeleteMedia 删除文件及其关联记录，需要管理员 token。
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	if err := h.mediaService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "media deleted"})
}
