package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/user"
)

const (
	getUserByIDSQL = `SELECT id, name, email, role, created_at FROM users WHERE id = $1`

	// Seeding re-runs are idempotent: an existing email keeps its id.
	upsertUserSQL = `INSERT INTO users (id, name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
		RETURNING id, created_at`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a single user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var (
		u    user.User
		role string
	)
	err := r.pool.QueryRow(ctx, getUserByIDSQL, id).Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	u.Role = user.Role(role)
	return &u, nil
}

// Create inserts u or, when the email is taken, updates that account and
// adopts its id.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}

	err := r.pool.QueryRow(ctx, upsertUserSQL, u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}
