package benchmark

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blog-engagement-api/internal/config"
	"github.com/blog-engagement-api/internal/engagement"
	"github.com/blog-engagement-api/internal/mocks"
	"github.com/blog-engagement-api/internal/models"
	"github.com/blog-engagement-api/internal/service"
	"github.com/blog-engagement-api/internal/validation"
	"github.com/rs/zerolog"
)

func benchConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{AdminRole: models.RoleAdmin},
		Engagement: config.EngagementConfig{
			MaxRetries:   8,
			RetryBackoff: 50 * time.Microsecond,
			MaxBackoff:   time.Millisecond,
		},
		Comments: config.CommentsConfig{
			MaxLength:    500,
			DefaultDepth: 1,
			MaxDepth:     8,
			MaxFanout:    200,
		},
	}
}

// BenchmarkApply benchmarks the pure transition over a post with many reactions
func BenchmarkApply(b *testing.B) {
	post := &models.Post{ID: "p1"}
	for i := 0; i < 10000; i++ {
		post.LikedBy = append(post.LikedBy, fmt.Sprintf("liker-%05d", i))
		post.DislikedBy = append(post.DislikedBy, fmt.Sprintf("hater-%05d", i))
	}
	sets := engagement.FromPost(post)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := sets.Apply("liker-00042", engagement.Dislike); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkToggleLike benchmarks the full read-apply-write cycle of one subject
func BenchmarkToggleLike(b *testing.B) {
	repos, _, posts, _ := mocks.NewMockRepositories()
	posts.Create(context.Background(), &models.Post{ID: "p1", Title: "t", Body: "b"})
	svc := service.NewServices(repos, benchConfig(), zerolog.Nop(), nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := svc.Engagement.ToggleLike(context.Background(), "p1", "u1"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkToggleLikeContended benchmarks many subjects racing on one post
func BenchmarkToggleLikeContended(b *testing.B) {
	repos, _, posts, _ := mocks.NewMockRepositories()
	posts.Create(context.Background(), &models.Post{ID: "p1", Title: "t", Body: "b"})
	svc := service.NewServices(repos, benchConfig(), zerolog.Nop(), nil)

	var subjects, conflicts int64

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		subject := fmt.Sprintf("u%d", atomic.AddInt64(&subjects, 1))
		for pb.Next() {
			if _, err := svc.Engagement.ToggleLike(context.Background(), "p1", subject); err != nil {
				atomic.AddInt64(&conflicts, 1)
			}
		}
	})

	b.ReportMetric(float64(atomic.LoadInt64(&conflicts))/float64(b.N), "failures/op")
}

// BenchmarkListTopLevelWithReplies benchmarks materializing a wide, two-level thread
func BenchmarkListTopLevelWithReplies(b *testing.B) {
	repos, users, _, comments := mocks.NewMockRepositories()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 50; i++ {
		users.Create(ctx, &models.User{ID: fmt.Sprintf("user-%d", i), Name: fmt.Sprintf("User %d", i)})
	}

	n := 0
	for i := 0; i < 200; i++ {
		topID := fmt.Sprintf("top-%03d", i)
		content := "top"
		comments.Create(ctx, &models.Comment{
			ID: topID, PostID: "p1", AuthorID: fmt.Sprintf("user-%d", n%50),
			Content: &content, CreatedAt: base.Add(time.Duration(n) * time.Second),
		})
		n++
		for j := 0; j < 10; j++ {
			parent := topID
			reply := "reply"
			comments.Create(ctx, &models.Comment{
				ID: fmt.Sprintf("%s-reply-%02d", topID, j), PostID: "p1", ParentID: &parent,
				AuthorID: fmt.Sprintf("user-%d", n%50), Content: &reply,
				CreatedAt: base.Add(time.Duration(n) * time.Second),
			})
			n++
		}
	}

	// Post existence is checked through the post repository
	repos.Post.Create(ctx, &models.Post{ID: "p1", Title: "t", Body: "b"})
	svc := service.NewServices(repos, benchConfig(), zerolog.Nop(), nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		nodes, err := svc.Comment.ListTopLevelWithReplies(ctx, "p1", 2)
		if err != nil {
			b.Fatal(err)
		}
		if len(nodes) != 200 {
			b.Fatalf("expected 200 top-level comments, got %d", len(nodes))
		}
	}

	b.ReportMetric(float64(n*b.N)/b.Elapsed().Seconds(), "comments/sec")
}

// BenchmarkValidateComment benchmarks comment input validation
func BenchmarkValidateComment(b *testing.B) {
	validator := validation.NewValidator(500)
	parent := "550e8400-e29b-41d4-a716-446655440000"
	req := &models.CreateCommentRequest{Content: "  a reasonably sized comment body  ", ParentID: &parent}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		validator.ValidateComment(req)
	}
}
