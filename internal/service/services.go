package service

import (
	"context"
	"fmt"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/repository"
	"github.com/blog-engagement-api/internal/validation"
	"github.com/rs/zerolog"
)

// EngagementService toggles and reads the like/dislike state of posts
type EngagementService interface {
	ToggleLike(ctx context.Context, postID, subjectID string) (*models.Engagement, error)
	ToggleDislike(ctx context.Context, postID, subjectID string) (*models.Engagement, error)
	GetEngagement(ctx context.Context, postID, subjectID string) (*models.Engagement, error)
}

// CommentService manages the comment threads of posts
type CommentService interface {
	AddComment(ctx context.Context, postID, authorID string, req *models.CreateCommentRequest) (*models.CommentNode, error)
	ListTopLevelWithReplies(ctx context.Context, postID string, depth int) ([]*models.CommentNode, error)
	DeleteComment(ctx context.Context, commentID string, requester models.Subject) error
	CountComments(ctx context.Context, postID string) (int, error)
}

// PostService creates and reads posts
type PostService interface {
	Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.PostView, error)
	Get(ctx context.Context, postID, viewerID string) (*models.PostView, error)
}

// StatsService reports store health and record counts
type StatsService interface {
	Ping(ctx context.Context) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// EventPublisher receives events after successful writes. Publish must
// not block.
type EventPublisher interface {
	Publish(event models.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.Event) {}

// Services holds all service interfaces
type Services struct {
	Engagement EngagementService
	Comment    CommentService
	Post       PostService
	Stats      StatsService
}

// NewServices creates all services. A nil publisher disables events.
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, publisher EventPublisher) *Services {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	validator := validation.NewValidator(cfg.Comments.MaxLength)
	policy := retryPolicy{
		maxRetries: cfg.Engagement.MaxRetries,
		backoff:    cfg.Engagement.RetryBackoff,
		maxBackoff: cfg.Engagement.MaxBackoff,
	}

	return &Services{
		Engagement: newEngagementService(repos.Post, policy, publisher, log),
		Comment:    newCommentService(repos, validator, policy, &cfg.Comments, cfg.Auth.AdminRole, publisher, log),
		Post:       newPostService(repos.Post, validator, policy, log),
		Stats:      newStatsService(repos),
	}
}

// storageErr tags a repository failure as StorageUnavailable while
// keeping the driver error in the chain
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, err)
}
