package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blog-engagement-api/internal/engagement"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/repository"
	"github.com/rs/zerolog"
)

// engagementService is the concrete implementation of EngagementService
type engagementService struct {
	posts     repository.PostRepository
	policy    retryPolicy
	publisher EventPublisher
	log       zerolog.Logger
}

func newEngagementService(posts repository.PostRepository, policy retryPolicy, publisher EventPublisher, log zerolog.Logger) *engagementService {
	return &engagementService{
		posts:     posts,
		policy:    policy,
		publisher: publisher,
		log:       log.With().Str("service", "engagement").Logger(),
	}
}

// ToggleLike applies a like input for subjectID on the post
func (s *engagementService) ToggleLike(ctx context.Context, postID, subjectID string) (*models.Engagement, error) {
	return s.toggle(ctx, postID, subjectID, engagement.Like)
}

// ToggleDislike applies a dislike input for subjectID on the post
func (s *engagementService) ToggleDislike(ctx context.Context, postID, subjectID string) (*models.Engagement, error) {
	return s.toggle(ctx, postID, subjectID, engagement.Dislike)
}

// toggle reads the post, applies the transition and writes it back only if
// no other writer bumped the version in between. A lost race is retried
// from a fresh read.
func (s *engagementService) toggle(ctx context.Context, postID, subjectID string, in engagement.Input) (*models.Engagement, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("toggle %s: %w: subject is required", in, models.ErrValidation)
	}

	var (
		next  engagement.Sets
		state engagement.State
	)
	op := "toggle " + string(in)
	err := s.policy.do(ctx, s.log, op, func() error {
		post, err := s.posts.GetByID(ctx, postID)
		if err != nil {
			return storageErr("load post", err)
		}
		if post == nil {
			return fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
		}

		next, state, err = engagement.FromPost(post).Apply(subjectID, in)
		if err != nil {
			return err
		}

		ok, err := s.posts.UpdateReactions(ctx, postID, next.LikedBy.Slice(), next.DislikedBy.Slice(), post.Version)
		if err != nil {
			return s.settle(ctx, postID, post.Version, next, err)
		}
		if !ok {
			return fmt.Errorf("post %s version %d: %w", postID, post.Version, models.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("post_id", postID).
		Str("input", string(in)).
		Str("state", string(state)).
		Msg("Engagement toggled")

	counts := next.Counts()
	s.publisher.Publish(models.Event{
		Type:    models.EventEngagementUpdated,
		PostID:  postID,
		Payload: counts,
		At:      time.Now().UTC(),
	})

	view := next.View(subjectID)
	return &view, nil
}

// settle decides the outcome of a reaction write that returned an error.
// The write may have committed before the error (a lost reply). It is
// retried only if the post is still at expectedVersion, and counted as
// committed if the post is one version ahead holding exactly next.
// Anything else is ambiguous and must not be applied again.
func (s *engagementService) settle(ctx context.Context, postID string, expectedVersion int64, next engagement.Sets, writeErr error) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return final(storageErr("update reactions", errors.Join(writeErr, err)))
	}

	switch {
	case post == nil:
		return fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	case post.Version == expectedVersion:
		return storageErr("update reactions", writeErr)
	case post.Version == expectedVersion+1 && engagement.FromPost(post).Equal(next):
		s.log.Warn().
			Err(writeErr).
			Str("post_id", postID).
			Int64("version", post.Version).
			Msg("Reaction write committed despite error")
		return nil
	}

	s.log.Error().
		Err(writeErr).
		Str("post_id", postID).
		Int64("expected_version", expectedVersion).
		Int64("version", post.Version).
		Msg("Reaction write outcome unknown")
	return final(storageErr("update reactions", writeErr))
}

// GetEngagement returns the engagement view of a post without changing it.
// An empty subjectID yields the anonymous view.
func (s *engagementService) GetEngagement(ctx context.Context, postID, subjectID string) (*models.Engagement, error) {
	var post *models.Post
	err := s.policy.do(ctx, s.log, "get engagement", func() error {
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

	view := engagement.FromPost(post).View(subjectID)
	return &view, nil
}
