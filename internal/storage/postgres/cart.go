package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

const (
	getCartByUserSQL = `SELECT id, user_id, items, total, updated_at FROM carts WHERE user_id = $1`

	upsertCartSQL = `INSERT INTO carts (id, user_id, items, total, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at
		RETURNING id`
)

// cartItemJSON is the JSONB shape of a cart line.
type cartItemJSON struct {
	ProductID string          `json:"product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetByUser returns the cart owned by userID.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	var (
		c        cart.Cart
		rawItems []byte
	)
	err := r.pool.QueryRow(ctx, getCartByUserSQL, userID).Scan(&c.ID, &c.UserID, &rawItems, &c.Total, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	var items []cartItemJSON
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	c.Items = make([]cart.Item, 0, len(items))
	for _, it := range items {
		c.Items = append(c.Items, cart.Item(it))
	}
	return &c, nil
}

// Save upserts c by owner after recomputing its derived fields.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	if c.ID == "" {
		c.ID = newID()
	}
	c.PrepareForPersist(now())

	items := make([]cartItemJSON, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemJSON(it))
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	err = r.pool.QueryRow(ctx, upsertCartSQL, c.ID, c.UserID, itemsJSON, c.Total, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("saving cart for user %q: %w", c.UserID, err)
	}
	return nil
}
