package api

import (
	"context"
	"net/http"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EngagementHandler handles like/dislike endpoints
type EngagementHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewEngagementHandler creates a new EngagementHandler
func NewEngagementHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *EngagementHandler {
	return &EngagementHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "engagement").Logger(),
	}
}

type toggleFunc func(ctx context.Context, postID, subjectID string) (*models.Engagement, error)

// Like handles PUT /v1/posts/:id/like
func (h *EngagementHandler) Like(c *gin.Context) {
	h.toggle(c, h.services.Engagement.ToggleLike)
}

// Dislike handles PUT /v1/posts/:id/dislike
func (h *EngagementHandler) Dislike(c *gin.Context) {
	h.toggle(c, h.services.Engagement.ToggleDislike)
}

func (h *EngagementHandler) toggle(c *gin.Context, fn toggleFunc) {
	subject, _ := subjectFrom(c)

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.RequestTimeout)
	defer cancel()

	view, err := fn(ctx, c.Param("id"), subject.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
