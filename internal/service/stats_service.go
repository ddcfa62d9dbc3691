package service

import (
	"context"
	"fmt"

	"github.com/blog-engagement-api/internal/repository"
)

// statsService is the concrete implementation of StatsService
type statsService struct {
	repos *repository.Repositories
}

func newStatsService(repos *repository.Repositories) *statsService {
	return &statsService{repos: repos}
}

// Ping checks the active store
func (s *statsService) Ping(ctx context.Context) error {
	if s.repos.Ping == nil {
		return nil
	}
	if err := s.repos.Ping(ctx); err != nil {
		return storageErr("ping store", err)
	}
	return nil
}

// GetCount returns the number of records of a resource
func (s *statsService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "posts":
		return s.repos.Post.Count(ctx)
	case "comments":
		return s.repos.Comment.Count(ctx)
	case "users":
		return s.repos.User.Count(ctx)
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
}
