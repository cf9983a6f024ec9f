package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	orderSelect = `SELECT id, user_id, items, shipping_address, payment_method, transaction_id,
		payment_status, status, total_amount, tax, shipping_fee, created_at, updated_at, delivered_at
		FROM orders`

	getOrderByIDSQL = orderSelect + ` WHERE id = $1`

	listOrdersByUserSQL = orderSelect + ` WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

	countOrdersByUserSQL = `SELECT count(*) FROM orders WHERE user_id = $1`

	insertOrderSQL = `INSERT INTO orders (id, user_id, items, shipping_address, payment_method,
		transaction_id, payment_status, status, total_amount, tax, shipping_fee,
		created_at, updated_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateOrderSQL = `UPDATE orders SET transaction_id = $2, payment_status = $3, status = $4,
		updated_at = $5, delivered_at = $6 WHERE id = $1`
)

// orderItemJSON is the JSONB shape of an order line.
type orderItemJSON struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
}

type addressJSON struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items and the address are serialized to JSON
// for storage in JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if o.ID == "" {
		o.ID = newID()
	}
	o.PrepareForPersist(now())

	items := make([]orderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemJSON(it))
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	addrJSON, err := json.Marshal(addressJSON(o.ShippingAddress))
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, itemsJSON, addrJSON,
		string(o.PaymentInfo.Method), o.PaymentInfo.TransactionID, string(o.PaymentInfo.Status),
		string(o.Status), o.TotalAmount, o.Tax, o.ShippingFee,
		o.CreatedAt, o.UpdatedAt, o.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns a window of the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, skip, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// CountByUser returns how many orders the user has placed.
func (r *OrderRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countOrdersByUserSQL, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders of user %q: %w", userID, err)
	}
	return n, nil
}

// Update writes the status fields of o.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	o.PrepareForPersist(now())

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.PaymentInfo.TransactionID, string(o.PaymentInfo.Status), string(o.Status),
		o.UpdatedAt, o.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                             order.Order
		rawItems, rawAddr             []byte
		method, paymentStatus, status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &rawItems, &rawAddr, &method, &o.PaymentInfo.TransactionID,
		&paymentStatus, &status, &o.TotalAmount, &o.Tax, &o.ShippingFee,
		&o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt,
	)
	if err != nil {
		return o, err
	}
	o.PaymentInfo.Method = order.PaymentMethod(method)
	o.PaymentInfo.Status = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)

	var items []orderItemJSON
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.Items = make([]order.Item, 0, len(items))
	for _, it := range items {
		o.Items = append(o.Items, order.Item(it))
	}

	var addr addressJSON
	if err := json.Unmarshal(rawAddr, &addr); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	o.ShippingAddress = order.Address(addr)
	return o, nil
}
