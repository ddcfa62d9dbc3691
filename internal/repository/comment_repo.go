package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/models"
	"github.com/lib/pq"
)

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

const commentColumns = `id, post_id, parent_id, author_id, content, created_at, deleted_at`

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, post_id, parent_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.PostID, comment.ParentID, comment.AuthorID, comment.Content,
		comment.CreatedAt,
	)
	return err
}

// GetByID retrieves a comment by ID, tombstones included
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListTopLevel returns the top-level comments of a post, newest first
func (r *commentRepo) ListTopLevel(ctx context.Context, postID string) ([]*models.Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE post_id = $1 AND parent_id IS NULL
		ORDER BY created_at DESC, id DESC
	`
	return r.queryComments(ctx, query, postID)
}

// ListByParents returns one level of replies for a batch of parents. The
// window keeps at most perParent rows for each parent.
func (r *commentRepo) ListByParents(ctx context.Context, postID string, parentIDs []string, perParent int) ([]*models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + commentColumns + ` FROM (
			SELECT ` + commentColumns + `,
				ROW_NUMBER() OVER (PARTITION BY parent_id ORDER BY created_at DESC, id DESC) AS rn
			FROM comments
			WHERE post_id = $1 AND parent_id = ANY($2)
		) ranked
		WHERE rn <= $3
		ORDER BY created_at DESC, id DESC
	`
	return r.queryComments(ctx, query, postID, pq.Array(parentIDs), perParent)
}

// Tombstone clears the content of a live comment
func (r *commentRepo) Tombstone(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE comments SET content = NULL, deleted_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// CountByPost returns the number of live comments on a post
func (r *commentRepo) CountByPost(ctx context.Context, postID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comments WHERE post_id = $1 AND deleted_at IS NULL", postID,
	).Scan(&count)
	return count, err
}

// Count returns the total number of comments
func (r *commentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}

func (r *commentRepo) queryComments(ctx context.Context, query string, args ...interface{}) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var (
		comment  models.Comment
		parentID sql.NullString
		content  sql.NullString
		deleted  sql.NullTime
	)
	err := row.Scan(
		&comment.ID, &comment.PostID, &parentID, &comment.AuthorID, &content,
		&comment.CreatedAt, &deleted,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		comment.ParentID = &parentID.String
	}
	if content.Valid {
		comment.Content = &content.String
	}
	if deleted.Valid {
		comment.DeletedAt = &deleted.Time
	}
	return &comment, nil
}
