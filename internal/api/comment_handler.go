package api

import (
	"net/http"
	"strconv"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CommentHandler handles comment endpoints
type CommentHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// CreateComment handles POST /v1/posts/:id/comments
// A parentId in the body makes the comment a reply.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	subject, _ := subjectFrom(c)

	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	defer cancel()

	comment, err := h.services.Comment.AddComment(ctx, c.Param("id"), subject.ID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ListComments handles GET /v1/posts/:id/comments
// Query parameters:
//   - depth: reply levels to materialize (default from config, capped)
func (h *CommentHandler) ListComments(c *gin.Context) {
	depth := h.cfg.Comments.DefaultDepth
	if raw := c.Query("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "depth must be an integer")
			return
		}
		depth = n
	}

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	defer cancel()

	comments, err := h.services.Comment.ListTopLevelWithReplies(ctx, c.Param("id"), depth)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if depth > h.cfg.Comments.MaxDepth {
		depth = h.cfg.Comments.MaxDepth
	}
	c.JSON(http.StatusOK, gin.H{
		"postId":   c.Param("id"),
		"depth":    depth,
		"comments": comments,
	})
}

// CountComments handles GET /v1/posts/:id/comments/count
func (h *CommentHandler) CountComments(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	defer cancel()

	count, err := h.services.Comment.CountComments(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"postId": c.Param("id"),
		"count":  count,
	})
}

// DeleteComment handles DELETE /v1/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	subject, _ := subjectFrom(c)

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	defer cancel()

	if err := h.services.Comment.DeleteComment(ctx, c.Param("id"), subject); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
