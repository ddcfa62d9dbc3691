package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.UserRepository    = (*MockUserRepository)(nil)
	_ repository.PostRepository    = (*MockPostRepository)(nil)
	_ repository.CommentRepository = (*MockCommentRepository)(nil)
)

// NewMockRepositories wires fresh in-memory repositories together
func NewMockRepositories() (*repository.Repositories, *MockUserRepository, *MockPostRepository, *MockCommentRepository) {
	users := NewMockUserRepository()
	posts := NewMockPostRepository()
	comments := NewMockCommentRepository()
	repos := &repository.Repositories{
		User:    users,
		Post:    posts,
		Comment: comments,
		Ping:    func(ctx context.Context) error { return nil },
	}
	return repos, users, posts, comments
}

// MockUserRepository is an in-memory implementation of UserRepository
type MockUserRepository struct {
	mu          sync.RWMutex
	Users       map[string]*models.User
	GetError    error
	InsertError error
	LookupCalls int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*models.User),
	}
}

// Create seeds a user; the service only syncs users through Upsert
func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	u := *user
	m.Users[user.ID] = &u
	return nil
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	return m.Create(ctx, user)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LookupCalls++
	if m.GetError != nil {
		return nil, m.GetError
	}
	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Users), nil
}

// MockPostRepository is an in-memory implementation of PostRepository.
// UpdateReactions honours the version check, so concurrent togglers see
// real conflicts.
type MockPostRepository struct {
	mu          sync.RWMutex
	Posts       map[string]*models.Post
	GetError    error
	InsertError error
	UpdateError error
	// UpdateReactionsFunc, when set, runs before the stored update. A
	// non-nil error or false result short-circuits it.
	UpdateReactionsFunc func(ctx context.Context, id string, expectedVersion int64) (bool, error)
	UpdateCalls         int
}

func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{
		Posts: make(map[string]*models.Post),
	}
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	m.Posts[post.ID] = copyPost(post)
	return nil
}

func (m *MockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	p, ok := m.Posts[id]
	if !ok {
		return nil, nil
	}
	return copyPost(p), nil
}

func (m *MockPostRepository) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return false, m.GetError
	}
	_, exists := m.Posts[id]
	return exists, nil
}

func (m *MockPostRepository) UpdateReactions(ctx context.Context, id string, likedBy, dislikedBy []string, expectedVersion int64) (bool, error) {
	m.mu.Lock()
	m.UpdateCalls++
	hook := m.UpdateReactionsFunc
	m.mu.Unlock()

	if hook != nil {
		ok, err := hook(ctx, id, expectedVersion)
		if err != nil || !ok {
			return ok, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	p, exists := m.Posts[id]
	if !exists || p.Version != expectedVersion {
		return false, nil
	}
	p.LikedBy = append([]string(nil), likedBy...)
	p.DislikedBy = append([]string(nil), dislikedBy...)
	p.Version++
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPostRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Posts), nil
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.LikedBy = append([]string(nil), p.LikedBy...)
	cp.DislikedBy = append([]string(nil), p.DislikedBy...)
	return &cp
}

// MockCommentRepository is an in-memory implementation of CommentRepository
type MockCommentRepository struct {
	mu            sync.RWMutex
	Comments      map[string]*models.Comment
	GetError      error
	InsertError   error
	ListError     error
	ListCalls     int
	TombstoneFunc func(ctx context.Context, id string) (bool, error)
}

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{
		Comments: make(map[string]*models.Comment),
	}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	m.Comments[comment.ID] = copyComment(comment)
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	return copyComment(c), nil
}

func (m *MockCommentRepository) ListTopLevel(ctx context.Context, postID string) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*models.Comment
	for _, c := range m.Comments {
		if c.PostID == postID && c.ParentID == nil {
			out = append(out, copyComment(c))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MockCommentRepository) ListByParents(ctx context.Context, postID string, parentIDs []string, perParent int) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}
	wanted := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}

	byParent := make(map[string][]*models.Comment)
	for _, c := range m.Comments {
		if c.PostID == postID && c.ParentID != nil && wanted[*c.ParentID] {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], copyComment(c))
		}
	}

	var out []*models.Comment
	for _, children := range byParent {
		sortNewestFirst(children)
		if len(children) > perParent {
			children = children[:perParent]
		}
		out = append(out, children...)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MockCommentRepository) Tombstone(ctx context.Context, id string, at time.Time) (bool, error) {
	if m.TombstoneFunc != nil {
		return m.TombstoneFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok || c.DeletedAt != nil {
		return false, nil
	}
	c.Content = nil
	c.DeletedAt = &at
	return true, nil
}

func (m *MockCommentRepository) CountByPost(ctx context.Context, postID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.Comments {
		if c.PostID == postID && c.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *MockCommentRepository) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Comments), nil
}

func copyComment(c *models.Comment) *models.Comment {
	cp := *c
	if c.ParentID != nil {
		parent := *c.ParentID
		cp.ParentID = &parent
	}
	if c.Content != nil {
		content := *c.Content
		cp.Content = &content
	}
	if c.DeletedAt != nil {
		at := *c.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}

func sortNewestFirst(comments []*models.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
}
