package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the provider used for service spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("storefront/cart") }
}

// WithMeterProvider sets the provider used for cart metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("storefront/cart") }
}

// Service implements cart operations for the authenticated user.
type Service struct {
	carts    Repository
	products product.Reader
	tracer   trace.Tracer
	meter    metric.Meter

	itemsAdded metric.Int64Counter
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Reader, opts ...Option) (*Service, error) {
	s := &Service{
		carts:    carts,
		products: products,
		tracer:   otel.GetTracerProvider().Tracer("storefront/cart"),
		meter:    otel.GetMeterProvider().Meter("storefront/cart"),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.itemsAdded, err = s.meter.Int64Counter("cart.items.added",
		metric.WithDescription("Units added to carts"),
	); err != nil {
		return nil, errors.Wrap(err, "create cart.items.added counter")
	}
	return s, nil
}

// Get returns the caller's cart. A user without a stored cart gets an empty
// one, which is not persisted.
func (s *Service) Get(ctx context.Context, who auth.Identity) (*Cart, error) {
	c, err := s.carts.GetByUser(ctx, who.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c = New(who.UserID)
			c.Recalculate()
			return c, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// AddItem adds quantity units of productID, snapshotting its price, name and
// first image.
func (s *Service) AddItem(ctx context.Context, who auth.Identity, productID string, quantity int) (*Cart, error) {
	ctx, span := s.tracer.Start(ctx, "cart.AddItem")
	defer span.End()

	if err := checkQuantity(productID, quantity); err != nil {
		return nil, err
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, who)
	if err != nil {
		return nil, err
	}
	if err := checkStock(p, c.Quantity(productID), quantity); err != nil {
		return nil, err
	}

	c.AddItem(Item{
		ProductID: p.ID,
		Quantity:  quantity,
		Price:     p.Price,
		Name:      p.Name,
		Image:     p.PrimaryImage(),
	})
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	s.itemsAdded.Add(ctx, int64(quantity))
	return c, nil
}

// SetQuantity replaces the quantity of a line already in the cart.
func (s *Service) SetQuantity(ctx context.Context, who auth.Identity, productID string, quantity int) (*Cart, error) {
	ctx, span := s.tracer.Start(ctx, "cart.SetQuantity")
	defer span.End()

	if err := checkQuantity(productID, quantity); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, who)
	if err != nil {
		return nil, err
	}
	if c.Find(productID) < 0 {
		return nil, &ItemNotFoundError{ProductID: productID}
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(p, 0, quantity); err != nil {
		return nil, err
	}

	if err := c.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, who auth.Identity, productID string) (*Cart, error) {
	c, err := s.Get(ctx, who)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(productID); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear empties the caller's cart.
func (s *Service) Clear(ctx context.Context, who auth.Identity) (*Cart, error) {
	c, err := s.Get(ctx, who)
	if err != nil {
		return nil, err
	}
	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

func (s *Service) product(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &product.NotFoundError{ID: id}
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return p, nil
}

func checkQuantity(productID string, quantity int) error {
	var b verr.Builder
	if productID == "" {
		b.Add("productId", "Product ID is required")
	}
	if quantity < 1 {
		b.Add("quantity", "Quantity cannot be less than 1")
	}
	return b.Err()
}

// checkStock reports whether held units plus more fit in stock. It compares
// against the remaining stock so huge quantities cannot wrap the sum.
func checkStock(p *product.Product, held, more int) error {
	if more > p.Stock-held {
		return verr.Field("quantity", fmt.Sprintf("Only %d of %s in stock", p.Stock, p.Name))
	}
	return nil
}
