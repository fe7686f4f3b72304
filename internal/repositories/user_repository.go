package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

// UserRepository is the user-directory surface the chat core depends on:
// bulk existence checks and display projections. Accounts themselves are
// managed elsewhere.
type UserRepository interface {
	CountExisting(ctx context.Context, ids []string) (int, error)
	BulkDisplay(ctx context.Context, ids []string) (map[string]models.UserDisplay, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CountExisting reports how many of the given ids reference existing users.
func (r *UserRepo) CountExisting(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return countExistingUsersTx(ctx, r.db, ids)
}

// BulkDisplay fetches display projections for the given ids, keyed by id.
func (r *UserRepo) BulkDisplay(ctx context.Context, ids []string) (map[string]models.UserDisplay, error) {
	result := make(map[string]models.UserDisplay, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.UserDisplay
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, avatar_url FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
