package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const (
	productSelect = `SELECT id, name, description, price, stock, category, vendor_id,
		images, featured, rating, num_reviews, created_at, updated_at FROM products`

	getProductByIDSQL = productSelect + ` WHERE id = $1`

	countProductsSQL = `SELECT count(*) FROM products`

	insertProductSQL = `INSERT INTO products (id, name, description, price, stock, category,
		vendor_id, images, featured, rating, num_reviews, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateProductSQL = `UPDATE products SET name = $2, description = $3, price = $4, stock = $5,
		category = $6, images = $7, featured = $8, rating = $9, num_reviews = $10, updated_at = $11
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Find returns the products matching f in the given order and window.
func (r *ProductRepository) Find(ctx context.Context, f product.Filter, sort []product.SortField, w product.Window) ([]product.Product, error) {
	where, args := productFilter(f)
	n := len(args)
	q := productSelect + where + productOrder(sort) +
		" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	args = append(args, w.Limit, w.Skip)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Count returns the number of products matching f.
func (r *ProductRepository) Count(ctx context.Context, f product.Filter) (int64, error) {
	where, args := productFilter(f)

	var n int64
	if err := r.pool.QueryRow(ctx, countProductsSQL+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// Create inserts p, assigning its id.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if p.ID == "" {
		p.ID = newID()
	}
	p.PrepareForPersist(now())

	_, err := r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, string(p.Category),
		p.VendorID, images(p.Images), p.Featured, p.Rating, p.NumReviews,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// Update overwrites the mutable columns of p.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	p.PrepareForPersist(now())

	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, string(p.Category),
		images(p.Images), p.Featured, p.Rating, p.NumReviews, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes the product with the given id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &category, &p.VendorID,
		&p.Images, &p.Featured, &p.Rating, &p.NumReviews, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Category = product.Category(category)
	return p, err
}

// images keeps the NOT NULL text[] column non-null.
func images(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
