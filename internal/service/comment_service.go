package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/repository"
	"github.com/blog-engagement-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	users     repository.UserRepository
	validator *validation.Validator
	policy    retryPolicy
	cfg       *config.CommentsConfig
	adminRole string
	publisher EventPublisher
	log       zerolog.Logger
}

func newCommentService(
	repos *repository.Repositories,
	validator *validation.Validator,
	policy retryPolicy,
	cfg *config.CommentsConfig,
	adminRole string,
	publisher EventPublisher,
	log zerolog.Logger,
) *commentService {
	return &commentService{
		posts:     repos.Post,
		comments:  repos.Comment,
		users:     repos.User,
		validator: validator,
		policy:    policy,
		cfg:       cfg,
		adminRole: adminRole,
		publisher: publisher,
		log:       log.With().Str("service", "comment").Logger(),
	}
}

// AddComment creates a top-level comment or, with req.ParentID, a reply.
// The parent must be a live comment of the same post.
func (s *commentService) AddComment(ctx context.Context, postID, authorID string, req *models.CreateCommentRequest) (*models.CommentNode, error) {
	if authorID == "" {
		return nil, fmt.Errorf("add comment: %w: author is required", models.ErrValidation)
	}
	content, fieldErrs := s.validator.ValidateComment(req)
	if len(fieldErrs) > 0 {
		return nil, models.ValidationErrors(fieldErrs)
	}
	if req.ParentID != nil {
		if err := s.validator.ValidateParentID(*req.ParentID); err != nil {
			return nil, err
		}
	}

	// Reads are retried; the insert runs once so a lost ack cannot
	// surface as a duplicate key.
	err := s.policy.do(ctx, s.log, "add comment", func() error {
		exists, err := s.posts.Exists(ctx, postID)
		if err != nil {
			return storageErr("check post", err)
		}
		if !exists {
			return fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
		}
		if req.ParentID == nil {
			return nil
		}

		parent, err := s.comments.GetByID(ctx, *req.ParentID)
		if err != nil {
			return storageErr("load parent", err)
		}
		switch {
		case parent == nil:
			return fmt.Errorf("parent %s does not exist: %w", *req.ParentID, models.ErrInvalidParent)
		case parent.PostID != postID:
			return fmt.Errorf("parent %s belongs to another post: %w", *req.ParentID, models.ErrInvalidParent)
		case parent.IsDeleted():
			return fmt.Errorf("parent %s is deleted: %w", *req.ParentID, models.ErrInvalidParent)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		ParentID:  req.ParentID,
		AuthorID:  authorID,
		Content:   &content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, storageErr("insert comment", err)
	}

	node := &models.CommentNode{Comment: *comment, Replies: []*models.CommentNode{}}
	authors, err := s.users.GetByIDs(ctx, []string{authorID})
	if err != nil {
		// The comment is stored; a failed join only degrades the author view.
		s.log.Warn().Err(err).Str("comment_id", comment.ID).Msg("Author lookup failed")
	}
	node.Author = authorSummary(authorID, authors)

	s.log.Info().
		Str("comment_id", comment.ID).
		Str("post_id", postID).
		Bool("reply", comment.ParentID != nil).
		Msg("Comment created")

	s.publisher.Publish(models.Event{
		Type:    models.EventCommentCreated,
		PostID:  postID,
		Payload: node,
		At:      comment.CreatedAt,
	})

	return node, nil
}

// ListTopLevelWithReplies returns the top-level comments of a post with
// their replies materialized depth levels deep, newest first at every
// level. Depth 0 returns top-level comments only. Depth is clamped to the
// configured maximum and each node keeps at most MaxFanout replies.
func (s *commentService) ListTopLevelWithReplies(ctx context.Context, postID string, depth int) ([]*models.CommentNode, error) {
	if fieldErrs := s.validator.ValidateDepth(depth); len(fieldErrs) > 0 {
		return nil, models.ValidationErrors(fieldErrs)
	}
	if depth > s.cfg.MaxDepth {
		depth = s.cfg.MaxDepth
	}

	var roots []*models.CommentNode
	err := s.policy.do(ctx, s.log, "list comments", func() error {
		var err error
		roots, err = s.materialize(ctx, postID, depth)
		return err
	})
	if err != nil {
		return nil, err
	}
	return roots, nil
}

// materialize builds the tree breadth first: one query for the top level,
// one per reply level, one lookahead below the last level and one batched
// author lookup.
func (s *commentService) materialize(ctx context.Context, postID string, depth int) ([]*models.CommentNode, error) {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, storageErr("check post", err)
	}
	if !exists {
		return nil, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}

	top, err := s.comments.ListTopLevel(ctx, postID)
	if err != nil {
		return nil, storageErr("list top-level comments", err)
	}
	sortNewestFirst(top)

	authorIDs := make(map[string]struct{})
	roots := make([]*models.CommentNode, 0, len(top))
	frontier := make(map[string]*models.CommentNode, len(top))
	for _, c := range top {
		node := newNode(c)
		roots = append(roots, node)
		frontier[c.ID] = node
		authorIDs[c.AuthorID] = struct{}{}
	}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		children, err := s.comments.ListByParents(ctx, postID, keys(frontier), s.cfg.MaxFanout+1)
		if err != nil {
			return nil, storageErr("list replies", err)
		}
		sortNewestFirst(children)

		next := make(map[string]*models.CommentNode, len(children))
		for _, c := range children {
			if c.ParentID == nil {
				continue
			}
			parent, ok := frontier[*c.ParentID]
			if !ok {
				continue
			}
			if len(parent.Replies) == s.cfg.MaxFanout {
				parent.HasMoreReplies = true
				continue
			}
			node := newNode(c)
			parent.Replies = append(parent.Replies, node)
			next[c.ID] = node
			authorIDs[c.AuthorID] = struct{}{}
		}
		frontier = next
	}

	// Mark nodes on the last level that still have replies below them
	if len(frontier) > 0 {
		below, err := s.comments.ListByParents(ctx, postID, keys(frontier), 1)
		if err != nil {
			return nil, storageErr("look ahead for replies", err)
		}
		for _, c := range below {
			if c.ParentID != nil {
				if parent, ok := frontier[*c.ParentID]; ok {
					parent.HasMoreReplies = true
				}
			}
		}
	}

	authors, err := s.users.GetByIDs(ctx, keys(authorIDs))
	if err != nil {
		return nil, storageErr("load authors", err)
	}
	attachAuthors(roots, authors)

	return roots, nil
}

// DeleteComment tombstones a comment. Only its author or an admin may
// delete it; replies stay reachable under the tombstone.
func (s *commentService) DeleteComment(ctx context.Context, commentID string, requester models.Subject) error {
	var comment *models.Comment
	err := s.policy.do(ctx, s.log, "load comment", func() error {
		var err error
		comment, err = s.comments.GetByID(ctx, commentID)
		if err != nil {
			return storageErr("load comment", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if comment == nil || comment.IsDeleted() {
		return fmt.Errorf("comment %s: %w", commentID, models.ErrNotFound)
	}
	if requester.ID == "" || (comment.AuthorID != requester.ID && requester.Role != s.adminRole) {
		return fmt.Errorf("delete comment %s: %w", commentID, models.ErrForbidden)
	}

	ok, err := s.comments.Tombstone(ctx, commentID, time.Now().UTC())
	if err != nil {
		return storageErr("tombstone comment", err)
	}
	if !ok {
		// Deleted concurrently
		return fmt.Errorf("comment %s: %w", commentID, models.ErrNotFound)
	}

	s.log.Info().
		Str("comment_id", commentID).
		Str("post_id", comment.PostID).
		Bool("by_admin", comment.AuthorID != requester.ID).
		Msg("Comment deleted")

	s.publisher.Publish(models.Event{
		Type:    models.EventCommentDeleted,
		PostID:  comment.PostID,
		Payload: models.CommentRef{ID: commentID},
		At:      time.Now().UTC(),
	})

	return nil
}

// CountComments returns the number of live comments on a post
func (s *commentService) CountComments(ctx context.Context, postID string) (int, error) {
	var count int
	err := s.policy.do(ctx, s.log, "count comments", func() error {
		exists, err := s.posts.Exists(ctx, postID)
		if err != nil {
			return storageErr("check post", err)
		}
		if !exists {
			return fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
		}
		count, err = s.comments.CountByPost(ctx, postID)
		if err != nil {
			return storageErr("count comments", err)
		}
		return nil
	})
	return count, err
}

func newNode(c *models.Comment) *models.CommentNode {
	return &models.CommentNode{
		Comment: *c,
		Deleted: c.IsDeleted(),
		Replies: []*models.CommentNode{},
	}
}

// authorSummary falls back to a placeholder for authors the user store
// does not know
func authorSummary(id string, users map[string]*models.User) *models.AuthorSummary {
	if u, ok := users[id]; ok && u != nil {
		return u.Summary()
	}
	return &models.AuthorSummary{ID: id, Avatar: models.DefaultAvatar}
}

func attachAuthors(nodes []*models.CommentNode, users map[string]*models.User) {
	for _, n := range nodes {
		n.Author = authorSummary(n.AuthorID, users)
		attachAuthors(n.Replies, users)
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortNewestFirst(comments []*models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
}
