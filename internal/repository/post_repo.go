package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/models"
	"github.com/lib/pq"
)

// postRepo is the concrete implementation of PostRepository
type postRepo struct {
	db *database.DB
}

// NewPostRepo creates a new post repository
func NewPostRepo(db *database.DB) PostRepository {
	return &postRepo{db: db}
}

// Create inserts a new post
func (r *postRepo) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, title, body, author_id, liked_by, disliked_by, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.Title, post.Body, post.AuthorID,
		pq.Array(nonNil(post.LikedBy)), pq.Array(nonNil(post.DislikedBy)), post.Version,
		post.CreatedAt, time.Now(),
	)
	return err
}

// GetByID retrieves a post by ID including its engagement sets
func (r *postRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `
		SELECT id, title, body, author_id, liked_by, disliked_by, version, created_at, updated_at
		FROM posts WHERE id = $1
	`

	var post models.Post
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.Title, &post.Body, &post.AuthorID,
		pq.Array(&post.LikedBy), pq.Array(&post.DislikedBy), &post.Version,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &post, nil
}

// Exists checks if a post with the given ID exists
func (r *postRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// UpdateReactions conditionally writes the engagement sets. The version
// predicate makes the write a compare-and-swap on the single post row.
func (r *postRepo) UpdateReactions(ctx context.Context, id string, likedBy, dislikedBy []string, expectedVersion int64) (bool, error) {
	query := `
		UPDATE posts SET liked_by = $1, disliked_by = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		pq.Array(nonNil(likedBy)), pq.Array(nonNil(dislikedBy)), time.Now(), id, expectedVersion,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Count returns the total number of posts
func (r *postRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}

// nonNil makes pq write '{}' rather than NULL for empty sets
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
