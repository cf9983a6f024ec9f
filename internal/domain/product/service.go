// Package product implements the catalog: validation, listing queries with
// pagination, and vendor-owned create/update/delete.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the provider used for service spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("storefront/product")
	}
}

// WithLimits overrides the listing page-size bounds.
func WithLimits(l Limits) Option {
	return func(s *Service) {
		s.limits = l
	}
}

// Service encapsulates catalog business logic.
type Service struct {
	products Repository
	users    user.Repository
	limits   Limits
	tracer   trace.Tracer
}

// NewService creates a catalog Service.
func NewService(products Repository, users user.Repository, opts ...Option) *Service {
	s := &Service{
		products: products,
		users:    users,
		limits:   DefaultLimits,
		tracer:   otel.GetTracerProvider().Tracer("storefront/product"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns one page of products matching q. The total used for the
// pagination descriptor is counted with the same filter.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	ctx, span := s.tracer.Start(ctx, "product.List")
	defer span.End()

	q = q.normalize(s.limits)
	span.SetAttributes(
		attribute.Int("page", q.Page),
		attribute.Int("limit", q.Limit),
	)

	var (
		items []Product
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.products.Count(gctx, q.Filter)
		if err != nil {
			return errors.Wrap(err, "count products")
		}
		total = n
		return nil
	})
	g.Go(func() error {
		found, err := s.products.Find(gctx, q.Filter, q.Sort, q.Window())
		if err != nil {
			return errors.Wrap(err, "find products")
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
		Pagination: Paginate(q.Page, q.Limit, total),
	}, nil
}

// ListByVendor lists the products of a single vendor. The id must belong to an
// account holding the vendor role.
func (s *Service) ListByVendor(ctx context.Context, vendorID string, q Query) (*Page, error) {
	if _, err := user.LookupVendor(ctx, s.users, vendorID); err != nil {
		return nil, err
	}
	q.Filter.VendorID = vendorID
	return s.List(ctx, q)
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return p, nil
}

// Create stores a new product owned by the acting identity.
func (s *Service) Create(ctx context.Context, who auth.Identity, in Input) (*Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.Create")
	defer span.End()

	if err := auth.CanCreate(who, "create products"); err != nil {
		return nil, err
	}

	p, err := New(who.UserID, in)
	if err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update applies the present fields of in to an existing product. Existence
// is checked before ownership.
func (s *Service) Update(ctx context.Context, who auth.Identity, id string, in Input) (*Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.Update")
	defer span.End()

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanMutate(who, p.VendorID, "update this product"); err != nil {
		return nil, err
	}

	in.ApplyTo(p)
	Normalize(p)
	if err := Validate(p); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, errors.Wrapf(err, "update product %s", id)
	}
	return p, nil
}

// Delete removes a product. Existence is checked before ownership.
func (s *Service) Delete(ctx context.Context, who auth.Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "product.Delete")
	defer span.End()

	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CanMutate(who, p.VendorID, "delete this product"); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return errors.Wrapf(err, "delete product %s", id)
	}
	return nil
}
