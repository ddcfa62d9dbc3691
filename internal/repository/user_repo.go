package repository

import (
	"context"
	"time"

	"github.com/blog-engagement-api/internal/database"
	"github.com/blog-engagement-api/internal/models"
	"github.com/lib/pq"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, email, name, avatar, role, active, created_at, updated_at`

// Upsert inserts or updates a user by id
func (r *userRepo) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, avatar, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar = EXCLUDED.avatar,
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Avatar, user.Role, user.Active,
		user.CreatedAt, time.Now(),
	)
	return err
}

// GetByIDs retrieves users by ID in one round trip. Unknown ids are
// absent from the result.
func (r *userRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Avatar, &user.Role, &user.Active,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
