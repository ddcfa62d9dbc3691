package mocks

import (
	"context"
	"fmt"

	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/service"
)

// Verify interface compliance
var (
	_ service.EngagementService = (*MockEngagementService)(nil)
	_ service.CommentService    = (*MockCommentService)(nil)
	_ service.PostService       = (*MockPostService)(nil)
	_ service.StatsService      = (*MockStatsService)(nil)
)

// MockEngagementService is a mock implementation of EngagementService
type MockEngagementService struct {
	ToggleFunc func(ctx context.Context, postID, subjectID, input string) (*models.Engagement, error)
	Calls      []string
}

func NewMockEngagementService() *MockEngagementService {
	return &MockEngagementService{}
}

func (m *MockEngagementService) toggle(ctx context.Context, postID, subjectID, input string) (*models.Engagement, error) {
	m.Calls = append(m.Calls, input+":"+postID+":"+subjectID)
	if m.ToggleFunc != nil {
		return m.ToggleFunc(ctx, postID, subjectID, input)
	}
	return &models.Engagement{}, nil
}

func (m *MockEngagementService) ToggleLike(ctx context.Context, postID, subjectID string) (*models.Engagement, error) {
	return m.toggle(ctx, postID, subjectID, "like")
}

func (m *MockEngagementService) ToggleDislike(ctx context.Context, postID, subjectID string) (*models.Engagement, error) {
	return m.toggle(ctx, postID, subjectID, "dislike")
}

func (m *MockEngagementService) GetEngagement(ctx context.Context, postID, subjectID string) (*models.Engagement, error) {
	return m.toggle(ctx, postID, subjectID, "get")
}

// MockCommentService is a mock implementation of CommentService
type MockCommentService struct {
	AddFunc    func(ctx context.Context, postID, authorID string, req *models.CreateCommentRequest) (*models.CommentNode, error)
	ListFunc   func(ctx context.Context, postID string, depth int) ([]*models.CommentNode, error)
	DeleteFunc func(ctx context.Context, commentID string, requester models.Subject) error
	Counts     map[string]int
	LastDepth  int
}

func NewMockCommentService() *MockCommentService {
	return &MockCommentService{Counts: make(map[string]int)}
}

func (m *MockCommentService) AddComment(ctx context.Context, postID, authorID string, req *models.CreateCommentRequest) (*models.CommentNode, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, postID, authorID, req)
	}
	content := req.Content
	return &models.CommentNode{
		Comment: models.Comment{ID: "comment-1", PostID: postID, ParentID: req.ParentID, AuthorID: authorID, Content: &content},
		Author:  &models.AuthorSummary{ID: authorID, Avatar: models.DefaultAvatar},
		Replies: []*models.CommentNode{},
	}, nil
}

func (m *MockCommentService) ListTopLevelWithReplies(ctx context.Context, postID string, depth int) ([]*models.CommentNode, error) {
	m.LastDepth = depth
	if m.ListFunc != nil {
		return m.ListFunc(ctx, postID, depth)
	}
	return []*models.CommentNode{}, nil
}

func (m *MockCommentService) DeleteComment(ctx context.Context, commentID string, requester models.Subject) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, commentID, requester)
	}
	return nil
}

func (m *MockCommentService) CountComments(ctx context.Context, postID string) (int, error) {
	count, ok := m.Counts[postID]
	if !ok {
		return 0, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}
	return count, nil
}

// MockPostService is a mock implementation of PostService
type MockPostService struct {
	Posts map[string]*models.PostView
}

func NewMockPostService() *MockPostService {
	return &MockPostService{Posts: make(map[string]*models.PostView)}
}

func (m *MockPostService) Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.PostView, error) {
	view := &models.PostView{Post: models.Post{ID: fmt.Sprintf("post-%d", len(m.Posts)+1), Title: req.Title, Body: req.Body, AuthorID: authorID}}
	m.Posts[view.ID] = view
	return view, nil
}

func (m *MockPostService) Get(ctx context.Context, postID, viewerID string) (*models.PostView, error) {
	view, ok := m.Posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}
	return view, nil
}

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	Counts    map[string]int
	PingError error
}

func NewMockStatsService() *MockStatsService {
	return &MockStatsService{Counts: make(map[string]int)}
}

func (m *MockStatsService) Ping(ctx context.Context) error {
	return m.PingError
}

func (m *MockStatsService) GetCount(ctx context.Context, resource string) (int, error) {
	return m.Counts[resource], nil
}
