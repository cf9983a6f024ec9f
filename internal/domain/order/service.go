package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

// Pricing holds the checkout charges added on top of the item subtotal.
type Pricing struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

// Option configures a Service.
type Option func(*Service)

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("storefront/order") }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("storefront/order") }
}

// WithLimits overrides the listing page-size bounds.
func WithLimits(l product.Limits) Option {
	return func(s *Service) { s.limits = l }
}

// Service implements checkout and order management.
type Service struct {
	orders  Repository
	carts   cart.Repository
	pricing Pricing
	limits  product.Limits
	tracer  trace.Tracer
	meter   metric.Meter

	placed  metric.Int64Counter
	revenue metric.Float64Counter
}

// NewService creates an order Service.
func NewService(orders Repository, carts cart.Repository, pricing Pricing, opts ...Option) (*Service, error) {
	s := &Service{
		orders:  orders,
		carts:   carts,
		pricing: pricing,
		limits:  product.DefaultLimits,
		tracer:  otel.GetTracerProvider().Tracer("storefront/order"),
		meter:   otel.GetMeterProvider().Meter("storefront/order"),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.placed, err = s.meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders created at checkout"),
	); err != nil {
		return nil, errors.Wrap(err, "create orders.placed counter")
	}
	if s.revenue, err = s.meter.Float64Counter("orders.revenue",
		metric.WithDescription("Total amount of placed orders"),
	); err != nil {
		return nil, errors.Wrap(err, "create orders.revenue counter")
	}
	return s, nil
}

// CheckoutInput is what the customer supplies when placing an order.
type CheckoutInput struct {
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	TransactionID   string
}

// Checkout places an order from the caller's cart and then empties the cart.
// A failure to clear the cart after the order is stored is logged, not
// returned.
func (s *Service) Checkout(ctx context.Context, who auth.Identity, in CheckoutInput) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout")
	defer span.End()

	c, err := s.carts.GetByUser(ctx, who.UserID)
	switch {
	case errors.Is(err, cart.ErrNotFound):
		c = cart.New(who.UserID)
	case err != nil:
		return nil, errors.Wrap(err, "get cart")
	}
	if c.Empty() {
		return nil, verr.Field("items", "Cart is empty")
	}

	o := &Order{
		UserID:          who.UserID,
		Items:           make([]Item, 0, len(c.Items)),
		ShippingAddress: in.ShippingAddress,
		PaymentInfo: PaymentInfo{
			Method:        in.PaymentMethod,
			TransactionID: in.TransactionID,
			Status:        PaymentPending,
		},
		Status: StatusPending,
	}
	for _, it := range c.Items {
		o.Items = append(o.Items, Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Image:     it.Image,
		})
	}
	s.price(o)
	if err := Validate(o); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.method", string(o.PaymentInfo.Method))))
	s.revenue.Add(ctx, o.TotalAmount.InexactFloat64())

	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		zctx.From(ctx).Error("Failed to clear cart after checkout",
			zap.String("order_id", o.ID),
			zap.String("user_id", who.UserID),
			zap.Error(err),
		)
	}
	return o, nil
}

func (s *Service) price(o *Order) {
	subtotal := o.Subtotal()
	o.Tax = subtotal.Mul(s.pricing.TaxRate).Round(2)
	o.ShippingFee = s.pricing.ShippingFee
	o.TotalAmount = subtotal.Add(o.Tax).Add(o.ShippingFee)
}

// Get returns an order visible to the caller: its owner or an admin.
func (s *Service) Get(ctx context.Context, who auth.Identity, id string) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanMutate(who, o.UserID, "access this order"); err != nil {
		return nil, err
	}
	return o, nil
}

// Page is one window of a user's orders.
type Page struct {
	Items      []Order
	Total      int64
	Pagination product.Pagination
}

// List returns the caller's orders newest first.
func (s *Service) List(ctx context.Context, who auth.Identity, page, limit int) (*Page, error) {
	ctx, span := s.tracer.Start(ctx, "order.List")
	defer span.End()

	page, limit = s.limits.Clamp(page, limit)

	var (
		items []Order
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.orders.CountByUser(gctx, who.UserID)
		if err != nil {
			return errors.Wrap(err, "count orders")
		}
		total = n
		return nil
	})
	g.Go(func() error {
		found, err := s.orders.ListByUser(gctx, who.UserID, (page-1)*limit, limit)
		if err != nil {
			return errors.Wrap(err, "list orders")
		}
		items = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		Total:      total,
		Pagination: product.Paginate(page, limit, total),
	}, nil
}

// UpdateInput carries the admin-writable order fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	Status        *Status
	PaymentStatus *PaymentStatus
	TransactionID *string
}

// Update changes status fields of an order. Any valid enum value may be set
// regardless of the current one. Moving to delivered stamps DeliveredAt once.
func (s *Service) Update(ctx context.Context, who auth.Identity, id string, in UpdateInput) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Update")
	defer span.End()

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(who, "update orders"); err != nil {
		return nil, err
	}

	var b verr.Builder
	if in.Status != nil && !in.Status.Valid() {
		b.Add("status", string(*in.Status)+" is not a valid order status")
	}
	if in.PaymentStatus != nil && !in.PaymentStatus.Valid() {
		b.Add("paymentStatus", string(*in.PaymentStatus)+" is not a valid payment status")
	}
	if err := b.Err(); err != nil {
		return nil, err
	}

	if in.Status != nil {
		o.Status = *in.Status
		if o.Status == StatusDelivered && o.DeliveredAt == nil {
			now := nowFunc()
			o.DeliveredAt = &now
		}
	}
	if in.PaymentStatus != nil {
		o.PaymentInfo.Status = *in.PaymentStatus
	}
	if in.TransactionID != nil {
		o.PaymentInfo.TransactionID = *in.TransactionID
	}

	if err := s.orders.Update(ctx, o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, errors.Wrapf(err, "update order %s", id)
	}
	return o, nil
}

func (s *Service) load(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}
