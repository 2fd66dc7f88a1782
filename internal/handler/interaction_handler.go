package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pog-gallery/internal/service"
)

// InteractionHandler 负责投票、收藏与评论接口。
type InteractionHandler struct {
	voteService     service.VoteService
	favoriteService service.FavoriteService
	commentService  service.CommentService
}

func NewInteractionHandler(voteService service.VoteService, favoriteService service.FavoriteService, commentService service.CommentService) *InteractionHandler {
	return &InteractionHandler{
		voteService:     voteService,
		favoriteService: favoriteService,
		commentService:  commentService,
	}
}

type voteRequest struct {
	MediaID   string `json:"mediaId"`
	UserToken string `json:"userToken"`
	VoteType  int    `json:"voteType"`
}

// Vote 提交或撤销投票。
func (h *InteractionHandler) Vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.voteService.Vote(c.Request.Context(), req.UserToken, req.MediaID, req.VoteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"voteCount": res.VoteCount,
		"userScore": res.UserScore,
		"userVote":  res.UserVote,
	})
}

type favoriteRequest struct {
	Token   string `json:"token"`
	MediaID string `json:"mediaId"`
}

// ToggleFavorite 切换收藏状态。
func (h *InteractionHandler) ToggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	favorited, err := h.favoriteService.Toggle(c.Request.Context(), req.Token, req.MediaID)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "Removed from favorites"
	if favorited {
		msg = "Added to favorites"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "favorited": favorited})
}

// ListFavorites 返回调用者收藏的媒体 ID。
func (h *InteractionHandler) ListFavorites(c *gin.Context) {
	ids, err := h.favoriteService.List(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": ids})
}

// ListComments 按时间正序返回媒体的评论。
func (h *InteractionHandler) ListComments(c *gin.Context) {
	comments, err := h.commentService.List(c.Request.Context(), c.Query("mediaId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

type commentRequest struct {
	MediaID  string `json:"mediaId"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

// CreateComment 发布评论。
func (h *InteractionHandler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	comment, err := h.commentService.Create(c.Request.Context(), req.MediaID, req.Username, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
