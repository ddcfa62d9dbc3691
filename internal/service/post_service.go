package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blog-engagement-api/internal/engagement"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/repository"
	"github.com/blog-engagement-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// postService is the concrete implementation of PostService
type postService struct {
	posts     repository.PostRepository
	validator *validation.Validator
	policy    retryPolicy
	log       zerolog.Logger
}

func newPostService(posts repository.PostRepository, validator *validation.Validator, policy retryPolicy, log zerolog.Logger) *postService {
	return &postService{
		posts:     posts,
		validator: validator,
		policy:    policy,
		log:       log.With().Str("service", "post").Logger(),
	}
}

// Create stores a new post with empty engagement sets
func (s *postService) Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.PostView, error) {
	if authorID == "" {
		return nil, fmt.Errorf("create post: %w: author is required", models.ErrValidation)
	}
	if fieldErrs := s.validator.ValidatePost(req); len(fieldErrs) > 0 {
		return nil, models.ValidationErrors(fieldErrs)
	}

	now := time.Now().UTC()
	post := &models.Post{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(req.Title),
		Body:       req.Body,
		AuthorID:   authorID,
		LikedBy:    []string{},
		DislikedBy: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, storageErr("insert post", err)
	}

	s.log.Info().Str("post_id", post.ID).Str("author_id", authorID).Msg("Post created")

	return &models.PostView{Post: *post}, nil
}

// Get returns a post with the engagement view of viewerID, which may be
// empty for anonymous readers
func (s *postService) Get(ctx context.Context, postID, viewerID string) (*models.PostView, error) {
	var post *models.Post
	err := s.policy.do(ctx, s.log, "get post", func() error {
		var err error
		post, err = s.posts.GetByID(ctx, postID)
		if err != nil {
			return storageErr("load post", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}

	return &models.PostView{
		Post:       *post,
		Engagement: engagement.FromPost(post).View(viewerID),
	}, nil
}
