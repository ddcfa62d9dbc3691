package models

import (
	"time"
)

// Post represents an article together with its engagement sets.
// LikedBy and DislikedBy are disjoint; Version increases on every
// engagement write and is used for optimistic concurrency.
type Post struct {
	ID         string    `json:"id" db:"id" bson:"_id"`
	Title      string    `json:"title" db:"title" bson:"title"`
	Body       string    `json:"body" db:"body" bson:"body"`
	AuthorID   string    `json:"authorId" db:"author_id" bson:"author_id"`
	LikedBy    []string  `json:"-" db:"liked_by" bson:"liked_by"`
	DislikedBy []string  `json:"-" db:"disliked_by" bson:"disliked_by"`
	Version    int64     `json:"-" db:"version" bson:"version"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

// MaxPostTitleLength is the maximum number of characters in a post title
const MaxPostTitleLength = 100

// Engagement is the like/dislike view of a post for one subject
type Engagement struct {
	LikeCount    int  `json:"likeCount"`
	DislikeCount int  `json:"dislikeCount"`
	IsLiked      bool `json:"isLiked"`
	IsDisliked   bool `json:"isDisliked"`
}

// PostView is a post as returned by the API
type PostView struct {
	Post
	Engagement
}

// CreatePostRequest is the body of POST /v1/posts
type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
