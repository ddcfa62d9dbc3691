package api

import (
	"net/http"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/realtime"
	"github.com/blog-engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PostHandler handles post endpoints
type PostHandler struct {
	services *service.Services
	hub      *realtime.Hub
	cfg      *config.Config
	log      zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(services *service.Services, hub *realtime.Hub, cfg *config.Config, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		services: services,
		hub:      hub,
		cfg:      cfg,
		log:      log.With().Str("handler", "post").Logger(),
	}
}

// CreatePost handles POST /v1/posts
func (h *PostHandler) CreatePost(c *gin.Context) {
	subject, _ := subjectFrom(c)

	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	defer cancel()

	post, err := h.services.Post.Create(ctx, subject.ID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetPost handles GET /v1/posts/:id
// The engagement flags are set for the caller when a token is present.
func (h *PostHandler) GetPost(c *gin.Context) {
	subject, _ := subjectFrom(c)

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	defer cancel()

	post, err := h.services.Post.Get(ctx, c.Param("id"), subject.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// Live handles GET /v1/posts/:id/live
// It upgrades to a websocket that streams the events of one post.
func (h *PostHandler) Live(c *gin.Context) {
	postID := c.Param("id")

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	_, err := h.services.Post.Get(ctx, postID, "")
	cancel()
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.hub.ServeWS(c.Writer, c.Request, postID)
}
