package models

import "time"

// EventType identifies a realtime event
type EventType string

const (
	EventEngagementUpdated EventType = "engagement.updated"
	EventCommentCreated    EventType = "comment.created"
	EventCommentDeleted    EventType = "comment.deleted"
)

// Event is published to realtime subscribers of a post
type Event struct {
	Type    EventType   `json:"type"`
	PostID  string      `json:"postId"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// EngagementCounts is the payload of engagement.updated. It never names
// subjects.
type EngagementCounts struct {
	LikeCount    int `json:"likeCount"`
	DislikeCount int `json:"dislikeCount"`
}

// CommentRef is the payload of comment.deleted
type CommentRef struct {
	ID string `json:"id"`
}
