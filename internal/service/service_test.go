package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/engagement"
	"github.com/blog-engagement-api/internal/mocks"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", AdminRole: models.RoleAdmin},
		Engagement: config.EngagementConfig{
			MaxRetries:   5,
			RetryBackoff: time.Millisecond,
			MaxBackoff:   5 * time.Millisecond,
		},
		Comments: config.CommentsConfig{
			MaxLength:    500,
			DefaultDepth: 1,
			MaxDepth:     8,
			MaxFanout:    200,
		},
	}
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

type fixture struct {
	svc       *service.Services
	users     *mocks.MockUserRepository
	posts     *mocks.MockPostRepository
	comments  *mocks.MockCommentRepository
	publisher *recordingPublisher
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	repos, users, posts, comments := mocks.NewMockRepositories()
	pub := &recordingPublisher{}
	return &fixture{
		svc:       service.NewServices(repos, cfg, zerolog.Nop(), pub),
		users:     users,
		posts:     posts,
		comments:  comments,
		publisher: pub,
	}
}

func (f *fixture) seedPost(t *testing.T, id string) {
	t.Helper()
	err := f.posts.Create(context.Background(), &models.Post{
		ID: id, Title: "Post " + id, Body: "body", AuthorID: "author", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
}

func (f *fixture) seedUser(t *testing.T, id, name, role string) {
	t.Helper()
	err := f.users.Create(context.Background(), &models.User{ID: id, Name: name, Role: role, Active: true})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// seedComment stores a comment directly with an explicit timestamp
func (f *fixture) seedComment(t *testing.T, postID string, parentID *string, author string, at time.Time) string {
	t.Helper()
	id := uuid.NewString()
	content := "comment " + id[:8]
	err := f.comments.Create(context.Background(), &models.Comment{
		ID: id, PostID: postID, ParentID: parentID, AuthorID: author, Content: &content, CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return id
}

func expectEngagement(t *testing.T, got *models.Engagement, likes, dislikes int, liked, disliked bool) {
	t.Helper()
	want := models.Engagement{LikeCount: likes, DislikeCount: dislikes, IsLiked: liked, IsDisliked: disliked}
	if got == nil || *got != want {
		t.Fatalf("engagement = %+v, want %+v", got, want)
	}
}

func TestEngagementService_LikeTwiceReturnsToNeutral(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	ctx := context.Background()

	got, err := f.svc.Engagement.ToggleLike(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	expectEngagement(t, got, 1, 0, true, false)

	got, err = f.svc.Engagement.ToggleLike(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	expectEngagement(t, got, 0, 0, false, false)
}

func TestEngagementService_DislikeWhileLiked(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	ctx := context.Background()

	if _, err := f.svc.Engagement.ToggleLike(ctx, "p1", "u2"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Engagement.ToggleLike(ctx, "p1", "u1"); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Engagement.ToggleDislike(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("ToggleDislike failed: %v", err)
	}
	expectEngagement(t, got, 1, 1, false, true)

	got, err = f.svc.Engagement.ToggleLike(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	expectEngagement(t, got, 2, 0, true, false)
}

func TestEngagementService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		postID  string
		subject string
		want    error
	}{
		{name: "unknown post", postID: "missing", subject: "u1", want: models.ErrNotFound},
		{name: "empty subject", postID: "p1", subject: "", want: models.ErrValidation},
		{
			name:    "store down",
			setup:   func(f *fixture) { f.posts.GetError = errors.New("connection refused") },
			postID:  "p1",
			subject: "u1",
			want:    models.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testConfig())
			f.seedPost(t, "p1")
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.svc.Engagement.ToggleLike(context.Background(), tt.postID, tt.subject)
			if !errors.Is(err, tt.want) {
				t.Errorf("ToggleLike() error = %v, want %v", err, tt.want)
			}
			if len(f.publisher.Events()) != 0 {
				t.Error("failed toggles must not publish events")
			}
		})
	}
}

func TestEngagementService_ConflictRetriesExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.Engagement.MaxRetries = 3
	f := newFixture(t, cfg)
	f.seedPost(t, "p1")

	f.posts.UpdateReactionsFunc = func(ctx context.Context, id string, v int64) (bool, error) {
		return false, nil
	}

	_, err := f.svc.Engagement.ToggleLike(context.Background(), "p1", "u1")
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if models.KindOf(err) != models.KindConflict {
		t.Errorf("KindOf() = %s, want conflict", models.KindOf(err))
	}
	if f.posts.UpdateCalls != 4 {
		t.Errorf("expected 4 attempts, got %d", f.posts.UpdateCalls)
	}

	post, _ := f.posts.GetByID(context.Background(), "p1")
	if len(post.LikedBy) != 0 || post.Version != 0 {
		t.Errorf("post should be unchanged, got %+v", post)
	}
}

func TestEngagementService_TransientFailureRecovers(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")

	failures := 2
	f.posts.UpdateReactionsFunc = func(ctx context.Context, id string, v int64) (bool, error) {
		if failures > 0 {
			failures--
			return false, errors.New("connection reset by peer")
		}
		return true, nil
	}

	got, err := f.svc.Engagement.ToggleLike(context.Background(), "p1", "u1")
	if err != nil {
		t.Fatalf("expected recovery after transient failures, got %v", err)
	}
	expectEngagement(t, got, 1, 0, true, false)
}

// lostReplyPosts commits reaction writes and then reports a transport
// error for the first lost of them, as a driver does when the reply to a
// committed write never arrives
type lostReplyPosts struct {
	*mocks.MockPostRepository
	mu          sync.Mutex
	lost        int
	afterCommit func()
}

func (r *lostReplyPosts) UpdateReactions(ctx context.Context, id string, likedBy, dislikedBy []string, expectedVersion int64) (bool, error) {
	ok, err := r.MockPostRepository.UpdateReactions(ctx, id, likedBy, dislikedBy, expectedVersion)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil || !ok || r.lost == 0 {
		return ok, err
	}
	r.lost--
	if r.afterCommit != nil {
		r.afterCommit()
	}
	return false, errors.New("i/o timeout")
}

func newLostReplyFixture(t *testing.T) (*service.Services, *lostReplyPosts) {
	t.Helper()
	repos, _, posts, _ := mocks.NewMockRepositories()
	if err := posts.Create(context.Background(), &models.Post{ID: "p1", Title: "t", Body: "b", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	wrapped := &lostReplyPosts{MockPostRepository: posts, lost: 1}
	repos.Post = wrapped
	return service.NewServices(repos, testConfig(), zerolog.Nop(), nil), wrapped
}

func TestEngagementService_CommittedWriteWithLostReply(t *testing.T) {
	svc, posts := newLostReplyFixture(t)

	got, err := svc.Engagement.ToggleLike(context.Background(), "p1", "u1")
	if err != nil {
		t.Fatalf("committed write should succeed, got %v", err)
	}
	expectEngagement(t, got, 1, 0, true, false)

	post, _ := posts.GetByID(context.Background(), "p1")
	if len(post.LikedBy) != 1 || post.LikedBy[0] != "u1" {
		t.Errorf("expected likedBy [u1], got %v", post.LikedBy)
	}
	if post.Version != 1 {
		t.Errorf("like must be applied exactly once, got version %d", post.Version)
	}
	if posts.UpdateCalls != 1 {
		t.Errorf("expected 1 write, got %d", posts.UpdateCalls)
	}

	// The next like still toggles back to neutral
	got, err = svc.Engagement.ToggleLike(context.Background(), "p1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	expectEngagement(t, got, 0, 0, false, false)
}

func TestEngagementService_UnknownWriteOutcomeIsNotRepeated(t *testing.T) {
	tests := []struct {
		name        string
		afterCommit func(posts *lostReplyPosts)
		wantLikedBy []string
		wantCalls   int
	}{
		{
			name: "another writer moved the post on",
			afterCommit: func(posts *lostReplyPosts) {
				posts.MockPostRepository.UpdateReactions(context.Background(), "p1", []string{"u1", "u2"}, nil, 1)
			},
			wantLikedBy: []string{"u1", "u2"},
			wantCalls:   2,
		},
		{
			name: "post cannot be read back",
			afterCommit: func(posts *lostReplyPosts) {
				posts.GetError = errors.New("connection refused")
			},
			wantLikedBy: []string{"u1"},
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, posts := newLostReplyFixture(t)
			posts.afterCommit = func() { tt.afterCommit(posts) }

			_, err := svc.Engagement.ToggleLike(context.Background(), "p1", "u1")
			if !errors.Is(err, models.ErrStorageUnavailable) {
				t.Fatalf("expected ErrStorageUnavailable, got %v", err)
			}
			if posts.UpdateCalls != tt.wantCalls {
				t.Errorf("write must not be repeated: expected %d writes, got %d", tt.wantCalls, posts.UpdateCalls)
			}

			posts.GetError = nil
			post, _ := posts.GetByID(context.Background(), "p1")
			if len(post.LikedBy) != len(tt.wantLikedBy) {
				t.Fatalf("expected likedBy %v, got %v", tt.wantLikedBy, post.LikedBy)
			}
			for i, id := range tt.wantLikedBy {
				if post.LikedBy[i] != id {
					t.Errorf("expected likedBy %v, got %v", tt.wantLikedBy, post.LikedBy)
				}
			}
		})
	}
}

func TestEngagementService_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.Engagement.RetryBackoff = time.Second
	cfg.Engagement.MaxBackoff = time.Second
	f := newFixture(t, cfg)
	f.seedPost(t, "p1")

	f.posts.UpdateReactionsFunc = func(ctx context.Context, id string, v int64) (bool, error) {
		return false, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := f.svc.Engagement.ToggleLike(ctx, "p1", "u1")
	if !errors.Is(err, models.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancelled context should stop the backoff immediately")
	}
}

func TestEngagementService_ConcurrentLikesFromOneSubject(t *testing.T) {
	cfg := testConfig()
	cfg.Engagement.MaxRetries = 10000
	cfg.Engagement.RetryBackoff = 10 * time.Microsecond
	cfg.Engagement.MaxBackoff = time.Millisecond
	f := newFixture(t, cfg)
	f.seedPost(t, "p1")

	const calls = 100
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Engagement.ToggleLike(context.Background(), "p1", "u1"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := f.svc.Engagement.GetEngagement(context.Background(), "p1", "u1")
	if err != nil {
		t.Fatalf("GetEngagement failed: %v", err)
	}
	if got.LikeCount != successes%2 {
		t.Errorf("likeCount = %d after %d applied toggles, want %d", got.LikeCount, successes, successes%2)
	}
	if got.LikeCount > 1 || got.DislikeCount != 0 {
		t.Errorf("unexpected counts %+v", got)
	}

	post, _ := f.posts.GetByID(context.Background(), "p1")
	if post.Version != int64(successes) {
		t.Errorf("version = %d, want one bump per applied toggle (%d)", post.Version, successes)
	}
}

func TestEngagementService_ConcurrentSubjectsStayDisjoint(t *testing.T) {
	cfg := testConfig()
	cfg.Engagement.MaxRetries = 10000
	cfg.Engagement.RetryBackoff = 10 * time.Microsecond
	cfg.Engagement.MaxBackoff = time.Millisecond
	f := newFixture(t, cfg)
	f.seedPost(t, "p1")

	const subjects = 20
	var wg sync.WaitGroup
	for i := 0; i < subjects; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))
			subject := fmt.Sprintf("u%d", i)
			for j := 0; j < 10; j++ {
				var err error
				if rng.Intn(2) == 0 {
					_, err = f.svc.Engagement.ToggleLike(context.Background(), "p1", subject)
				} else {
					_, err = f.svc.Engagement.ToggleDislike(context.Background(), "p1", subject)
				}
				if err != nil {
					t.Errorf("toggle failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	post, _ := f.posts.GetByID(context.Background(), "p1")
	if !engagement.FromPost(post).Disjoint() {
		t.Fatalf("likedBy and dislikedBy overlap: %v / %v", post.LikedBy, post.DislikedBy)
	}
	if post.Version != subjects*10 {
		t.Errorf("version = %d, want %d", post.Version, subjects*10)
	}
}

func TestEngagementService_PublishesCountsOnly(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")

	if _, err := f.svc.Engagement.ToggleDislike(context.Background(), "p1", "u1"); err != nil {
		t.Fatal(err)
	}

	events := f.publisher.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != models.EventEngagementUpdated || events[0].PostID != "p1" {
		t.Errorf("unexpected event %+v", events[0])
	}
	counts, ok := events[0].Payload.(models.EngagementCounts)
	if !ok {
		t.Fatalf("payload should be EngagementCounts, got %T", events[0].Payload)
	}
	if counts.LikeCount != 0 || counts.DislikeCount != 1 {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestEngagementService_GetEngagementAnonymous(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	ctx := context.Background()

	f.svc.Engagement.ToggleLike(ctx, "p1", "u1")

	got, err := f.svc.Engagement.GetEngagement(ctx, "p1", "")
	if err != nil {
		t.Fatal(err)
	}
	expectEngagement(t, got, 1, 0, false, false)

	if _, err := f.svc.Engagement.GetEngagement(ctx, "nope", ""); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommentService_AddComment(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	f.seedUser(t, "u1", "Ada", models.RoleViewer)

	node, err := f.svc.Comment.AddComment(context.Background(), "p1", "u1", &models.CreateCommentRequest{Content: "  First!  "})
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if node.Content == nil || *node.Content != "First!" {
		t.Errorf("content should be trimmed, got %v", node.Content)
	}
	if node.ParentID != nil {
		t.Error("top-level comment should have no parent")
	}
	if node.Author == nil || node.Author.Name != "Ada" || node.Author.Avatar != models.DefaultAvatar {
		t.Errorf("unexpected author %+v", node.Author)
	}
	if _, err := uuid.Parse(node.ID); err != nil {
		t.Errorf("comment id should be a UUID: %v", err)
	}

	events := f.publisher.Events()
	if len(events) != 1 || events[0].Type != models.EventCommentCreated {
		t.Errorf("expected comment.created event, got %+v", events)
	}
}

func TestCommentService_AddCommentUnknownAuthor(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")

	node, err := f.svc.Comment.AddComment(context.Background(), "p1", "ghost", &models.CreateCommentRequest{Content: "boo"})
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if node.Author == nil || node.Author.ID != "ghost" || node.Author.Avatar != models.DefaultAvatar {
		t.Errorf("expected placeholder author, got %+v", node.Author)
	}
}

func TestCommentService_AddCommentErrors(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	f.seedPost(t, "p2")
	now := time.Now()
	otherPostComment := f.seedComment(t, "p2", nil, "u1", now)
	tombstoned := f.seedComment(t, "p1", nil, "u1", now)
	f.comments.Tombstone(context.Background(), tombstoned, now)
	missing := uuid.NewString()
	malformed := "not-a-comment-id"

	tests := []struct {
		name   string
		postID string
		req    *models.CreateCommentRequest
		want   error
	}{
		{name: "empty content", postID: "p1", req: &models.CreateCommentRequest{Content: " "}, want: models.ErrValidation},
		{name: "unknown post", postID: "nope", req: &models.CreateCommentRequest{Content: "hi"}, want: models.ErrNotFound},
		{name: "parent on another post", postID: "p1", req: &models.CreateCommentRequest{Content: "hi", ParentID: &otherPostComment}, want: models.ErrInvalidParent},
		{name: "missing parent", postID: "p1", req: &models.CreateCommentRequest{Content: "hi", ParentID: &missing}, want: models.ErrInvalidParent},
		{name: "deleted parent", postID: "p1", req: &models.CreateCommentRequest{Content: "hi", ParentID: &tombstoned}, want: models.ErrInvalidParent},
		{name: "malformed parent id", postID: "p1", req: &models.CreateCommentRequest{Content: "hi", ParentID: &malformed}, want: models.ErrInvalidParent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := f.comments.Count(context.Background())
			_, err := f.svc.Comment.AddComment(context.Background(), tt.postID, "u1", tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("AddComment() error = %v, want %v", err, tt.want)
			}
			after, _ := f.comments.Count(context.Background())
			if after != before {
				t.Error("rejected comment must not be stored")
			}
		})
	}
}

func TestCommentService_ListOrdersAndNests(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	f.seedPost(t, "p2")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	c1 := f.seedComment(t, "p1", nil, "u1", base)
	c2 := f.seedComment(t, "p1", nil, "u2", base.Add(time.Minute))
	c3 := f.seedComment(t, "p1", nil, "u3", base.Add(2*time.Minute))
	// Replies created after every top-level comment
	r1 := f.seedComment(t, "p1", &c1, "u2", base.Add(3*time.Minute))
	r2 := f.seedComment(t, "p1", &c1, "u3", base.Add(4*time.Minute))
	f.seedComment(t, "p2", nil, "u1", base.Add(5*time.Minute))

	roots, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "p1", 1)
	if err != nil {
		t.Fatalf("ListTopLevelWithReplies failed: %v", err)
	}

	if len(roots) != 3 {
		t.Fatalf("expected 3 top-level comments, got %d", len(roots))
	}
	wantOrder := []string{c3, c2, c1}
	for i, id := range wantOrder {
		if roots[i].ID != id {
			t.Errorf("root %d = %s, want %s", i, roots[i].ID, id)
		}
	}

	replies := roots[2].Replies
	if len(replies) != 2 || replies[0].ID != r2 || replies[1].ID != r1 {
		t.Errorf("replies of c1 should be [r2 r1] newest first, got %v", ids(replies))
	}
	if len(roots[0].Replies) != 0 || len(roots[1].Replies) != 0 {
		t.Error("replies must only nest under their own parent")
	}
	for _, root := range roots {
		if root.Author == nil {
			t.Errorf("root %s has no author", root.ID)
		}
	}
}

func TestCommentService_ListDepthAndFanout(t *testing.T) {
	cfg := testConfig()
	cfg.Comments.MaxDepth = 2
	cfg.Comments.MaxFanout = 3
	f := newFixture(t, cfg)
	f.seedPost(t, "p1")
	base := time.Now()

	root := f.seedComment(t, "p1", nil, "u1", base)
	var last string
	for i := 0; i < 5; i++ {
		last = f.seedComment(t, "p1", &root, "u1", base.Add(time.Duration(i+1)*time.Second))
	}
	child := f.seedComment(t, "p1", &last, "u1", base.Add(10*time.Second))
	f.seedComment(t, "p1", &child, "u1", base.Add(11*time.Second))

	t.Run("depth 0 is top level only", func(t *testing.T) {
		roots, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "p1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(roots) != 1 || len(roots[0].Replies) != 0 {
			t.Fatalf("unexpected tree %v", ids(roots))
		}
		if !roots[0].HasMoreReplies {
			t.Error("root with unmaterialized replies should report hasMoreReplies")
		}
	})

	t.Run("fan-out is truncated", func(t *testing.T) {
		roots, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "p1", 1)
		if err != nil {
			t.Fatal(err)
		}
		if got := len(roots[0].Replies); got != 3 {
			t.Fatalf("expected 3 replies after truncation, got %d", got)
		}
		if !roots[0].HasMoreReplies {
			t.Error("truncated node should report hasMoreReplies")
		}
		if roots[0].Replies[0].ID != last {
			t.Error("truncation should keep the newest replies")
		}
	})

	t.Run("depth is clamped", func(t *testing.T) {
		roots, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "p1", 50)
		if err != nil {
			t.Fatal(err)
		}
		newest := roots[0].Replies[0]
		if len(newest.Replies) != 1 || newest.Replies[0].ID != child {
			t.Fatalf("expected second level to be materialized")
		}
		leaf := newest.Replies[0]
		if len(leaf.Replies) != 0 {
			t.Error("third level must not be materialized beyond the maximum depth")
		}
		if !leaf.HasMoreReplies {
			t.Error("node at depth limit with children should report hasMoreReplies")
		}
	})

	t.Run("negative depth", func(t *testing.T) {
		_, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "p1", -1)
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("unknown post", func(t *testing.T) {
		_, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "nope", 1)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCommentService_ListBoundedRoundTrips(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	base := time.Now()

	parent := f.seedComment(t, "p1", nil, "u1", base)
	for i := 1; i <= 6; i++ {
		parent = f.seedComment(t, "p1", &parent, fmt.Sprintf("u%d", i), base.Add(time.Duration(i)*time.Second))
	}

	if _, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "p1", 3); err != nil {
		t.Fatal(err)
	}
	// top level + 3 reply levels + 1 lookahead
	if f.comments.ListCalls != 5 {
		t.Errorf("expected 5 comment queries, got %d", f.comments.ListCalls)
	}
	if f.users.LookupCalls != 1 {
		t.Errorf("expected 1 batched author lookup, got %d", f.users.LookupCalls)
	}
}

func TestCommentService_DeleteComment(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	now := time.Now()

	tests := []struct {
		name      string
		author    string
		requester models.Subject
		want      error
	}{
		{name: "author deletes own comment", author: "u1", requester: models.Subject{ID: "u1", Role: models.RoleViewer}},
		{name: "admin deletes any comment", author: "u1", requester: models.Subject{ID: "boss", Role: models.RoleAdmin}},
		{name: "other user is forbidden", author: "u1", requester: models.Subject{ID: "u2", Role: models.RoleEditor}, want: models.ErrForbidden},
		{name: "anonymous is forbidden", author: "u1", requester: models.Subject{}, want: models.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := f.seedComment(t, "p1", nil, tt.author, now)
			err := f.svc.Comment.DeleteComment(context.Background(), id, tt.requester)
			if !errors.Is(err, tt.want) {
				t.Fatalf("DeleteComment() error = %v, want %v", err, tt.want)
			}

			stored, _ := f.comments.GetByID(context.Background(), id)
			if tt.want == nil {
				if !stored.IsDeleted() || stored.Content != nil {
					t.Error("deleted comment should be a tombstone with no content")
				}
				if stored.AuthorID != tt.author {
					t.Error("tombstone should keep its author")
				}
			} else if stored.IsDeleted() {
				t.Error("forbidden delete must not change the comment")
			}
		})
	}

	t.Run("missing and already deleted", func(t *testing.T) {
		if err := f.svc.Comment.DeleteComment(context.Background(), uuid.NewString(), models.Subject{ID: "u1"}); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing comment, got %v", err)
		}
		id := f.seedComment(t, "p1", nil, "u1", now)
		if err := f.svc.Comment.DeleteComment(context.Background(), id, models.Subject{ID: "u1"}); err != nil {
			t.Fatal(err)
		}
		if err := f.svc.Comment.DeleteComment(context.Background(), id, models.Subject{ID: "u1"}); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound for second delete, got %v", err)
		}
	})
}

func TestCommentService_TombstoneKeepsRepliesReachable(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	ctx := context.Background()

	root, err := f.svc.Comment.AddComment(ctx, "p1", "u1", &models.CreateCommentRequest{Content: "root"})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := f.svc.Comment.AddComment(ctx, "p1", "u2", &models.CreateCommentRequest{Content: "reply", ParentID: &root.ID})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Comment.DeleteComment(ctx, root.ID, models.Subject{ID: "u1"}); err != nil {
		t.Fatal(err)
	}

	roots, err := f.svc.Comment.ListTopLevelWithReplies(ctx, "p1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 || !roots[0].Deleted || roots[0].Content != nil {
		t.Fatalf("expected one tombstoned root, got %+v", roots)
	}
	if len(roots[0].Replies) != 1 || roots[0].Replies[0].ID != reply.ID {
		t.Fatal("reply should stay reachable under the tombstone")
	}

	// Every stored comment of the post is reachable from the tree
	if reachable, stored := countNodes(roots), len(f.comments.Comments); reachable != stored {
		t.Errorf("%d comments reachable, %d stored", reachable, stored)
	}
}

// A subject likes then dislikes a post, then deletes the root of a
// three-comment reply chain.
func TestScenario_LikeDislikeDeleteChain(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "P1")
	f.seedUser(t, "U1", "User One", models.RoleViewer)
	ctx := context.Background()

	got, err := f.svc.Engagement.ToggleLike(ctx, "P1", "U1")
	if err != nil {
		t.Fatal(err)
	}
	expectEngagement(t, got, 1, 0, true, false)

	got, err = f.svc.Engagement.ToggleDislike(ctx, "P1", "U1")
	if err != nil {
		t.Fatal(err)
	}
	expectEngagement(t, got, 0, 1, false, true)

	var parent *string
	var chain []string
	for i := 0; i < 3; i++ {
		node, err := f.svc.Comment.AddComment(ctx, "P1", "U1", &models.CreateCommentRequest{
			Content:  fmt.Sprintf("level %d", i),
			ParentID: parent,
		})
		if err != nil {
			t.Fatalf("AddComment level %d: %v", i, err)
		}
		chain = append(chain, node.ID)
		id := node.ID
		parent = &id
	}

	if err := f.svc.Comment.DeleteComment(ctx, chain[0], models.Subject{ID: "U1", Role: models.RoleViewer}); err != nil {
		t.Fatal(err)
	}

	roots, err := f.svc.Comment.ListTopLevelWithReplies(ctx, "P1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 1 {
		t.Fatalf("expected one root, got %d", len(roots))
	}
	root := roots[0]
	if root.ID != chain[0] || !root.Deleted || root.Content != nil {
		t.Errorf("root should be a tombstone, got %+v", root.Comment)
	}
	if root.Author == nil || root.Author.Name != "User One" {
		t.Errorf("tombstone should keep its author, got %+v", root.Author)
	}
	if len(root.Replies) != 1 || root.Replies[0].ID != chain[1] || root.Replies[0].Deleted {
		t.Fatal("first reply should be preserved")
	}
	if r := root.Replies[0].Replies; len(r) != 1 || r[0].ID != chain[2] || r[0].Deleted {
		t.Fatal("second reply should be preserved")
	}

	count, err := f.svc.Comment.CountComments(ctx, "P1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 live comments, got %d", count)
	}
}

func TestCommentService_StorageUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Engagement.MaxRetries = 1
	f := newFixture(t, cfg)
	f.seedPost(t, "p1")
	f.comments.ListError = errors.New("i/o timeout")

	_, err := f.svc.Comment.ListTopLevelWithReplies(context.Background(), "p1", 1)
	if models.KindOf(err) != models.KindStorageUnavailable {
		t.Fatalf("expected storage_unavailable, got %v", err)
	}
	if f.comments.ListCalls != 2 {
		t.Errorf("expected one retry, got %d calls", f.comments.ListCalls)
	}
}

func TestPostService_CreateAndGet(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	created, err := f.svc.Post.Create(ctx, "u1", &models.CreatePostRequest{Title: " Hello ", Body: "World"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Title != "Hello" || created.AuthorID != "u1" {
		t.Errorf("unexpected post %+v", created.Post)
	}

	f.svc.Engagement.ToggleLike(ctx, created.ID, "u2")

	view, err := f.svc.Post.Get(ctx, created.ID, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if view.LikeCount != 1 || !view.IsLiked {
		t.Errorf("unexpected engagement %+v", view.Engagement)
	}

	if _, err := f.svc.Post.Get(ctx, "missing", ""); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Post.Create(ctx, "u1", &models.CreatePostRequest{}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestStatsService_GetCount(t *testing.T) {
	f := newFixture(t, testConfig())
	f.seedPost(t, "p1")
	f.seedPost(t, "p2")
	f.seedComment(t, "p1", nil, "u1", time.Now())

	tests := []struct {
		resource string
		want     int
	}{
		{"posts", 2},
		{"comments", 1},
		{"users", 0},
	}
	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			got, err := f.svc.Stats.GetCount(context.Background(), tt.resource)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("GetCount(%s) = %d, want %d", tt.resource, got, tt.want)
			}
		})
	}

	if _, err := f.svc.Stats.GetCount(context.Background(), "likes"); err == nil {
		t.Error("unknown resource should fail")
	}
	if err := f.svc.Stats.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func ids(nodes []*models.CommentNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func countNodes(nodes []*models.CommentNode) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countNodes(node.Replies)
	}
	return n
}
