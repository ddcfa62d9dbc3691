package repository

import (
	"context"
	"time"

	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/models"
)

// UserRepository defines the interface for user data operations. Users
// are owned by the auth service; Upsert is the hook it syncs through.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	Count(ctx context.Context) (int, error)
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	// UpdateReactions replaces the engagement sets of a post and bumps its
	// version, provided the stored version still equals expectedVersion.
	// It reports false when the post changed (or vanished) in between.
	UpdateReactions(ctx context.Context, id string, likedBy, dislikedBy []string, expectedVersion int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListTopLevel returns the comments of a post without a parent,
	// newest first
	ListTopLevel(ctx context.Context, postID string) ([]*models.Comment, error)
	// ListByParents returns the direct replies of the given parents within
	// a post, at most perParent replies per parent, newest first
	ListByParents(ctx context.Context, postID string, parentIDs []string, perParent int) ([]*models.Comment, error)
	// Tombstone clears the content of a live comment and marks it deleted.
	// It reports false when the comment is missing or already deleted.
	Tombstone(ctx context.Context, id string, at time.Time) (bool, error)
	CountByPost(ctx context.Context, postID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User    UserRepository
	Post    PostRepository
	Comment CommentRepository

	// Ping checks the underlying store
	Ping func(ctx context.Context) error
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepo(db),
		Post:    NewPostRepo(db),
		Comment: NewCommentRepo(db),
		Ping:    db.HealthCheck,
	}
}

// NewMongo creates all repositories backed by MongoDB
func NewMongo(m *database.MongoDB) *Repositories {
	return &Repositories{
		User:    NewMongoUserRepo(m.Database),
		Post:    NewMongoPostRepo(m.Database),
		Comment: NewMongoCommentRepo(m.Database),
		Ping:    m.HealthCheck,
	}
}
