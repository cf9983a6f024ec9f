// Package postgres implements the domain repositories on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/db"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Repositories groups every repository backed by one pool.
type Repositories struct {
	Products *ProductRepository
	Users    *UserRepository
	Carts    *CartRepository
	Orders   *OrderRepository
	APIKeys  *APIKeyRepository
}

// NewRepositories builds all repositories on pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Products: NewProductRepository(pool),
		Users:    NewUserRepository(pool),
		Carts:    NewCartRepository(pool),
		Orders:   NewOrderRepository(pool),
		APIKeys:  NewAPIKeyRepository(pool),
	}
}

func now() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }
