package models

import (
	"time"
)

// Comment represents a comment on a post. A nil ParentID marks a top-level
// comment. Content is nil once the comment has been tombstoned.
type Comment struct {
	ID        string     `json:"id" db:"id" bson:"_id"`
	PostID    string     `json:"postId" db:"post_id" bson:"post_id"`
	ParentID  *string    `json:"parentId" db:"parent_id" bson:"parent_id"`
	AuthorID  string     `json:"authorId" db:"author_id" bson:"author_id"`
	Content   *string    `json:"content" db:"content" bson:"content"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at" bson:"created_at"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at" bson:"deleted_at,omitempty"`
}

// IsDeleted reports whether the comment is a tombstone
func (c *Comment) IsDeleted() bool {
	return c.DeletedAt != nil
}

// MaxCommentLength is the default maximum number of characters in a comment
const MaxCommentLength = 500

// AuthorSummary is the denormalized author data attached to comments
type AuthorSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// CommentNode is a comment with its author and materialized replies
type CommentNode struct {
	Comment
	Author         *AuthorSummary `json:"author"`
	Deleted        bool           `json:"deleted"`
	Replies        []*CommentNode `json:"replies"`
	HasMoreReplies bool           `json:"hasMoreReplies,omitempty"`
}

// CreateCommentRequest is the body of POST /v1/posts/:id/comments
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId,omitempty"`
}
