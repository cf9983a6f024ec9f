// Package handler serves the storefront REST API on a net/http ServeMux.
//
// Handlers decode requests with jx, delegate to the domain services and
// funnel every failure through fail, which owns the status mapping and the
// error envelope.
package handler

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// UserGetter loads accounts for the vendor join and for authentication.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithTracerProvider sets the provider for per-route server spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) { h.tp = tp }
}

// WithMeterProvider sets the provider for per-route HTTP metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(h *Handler) { h.mp = mp }
}

// Handler holds the domain services behind the HTTP routes.
type Handler struct {
	products *product.Service
	carts    *cart.Service
	orders   *order.Service
	users    UserGetter
	authn    *Authenticator

	tp trace.TracerProvider
	mp metric.MeterProvider
}

// New constructs a Handler. authn guards every route that needs an identity.
func New(
	products *product.Service,
	carts *cart.Service,
	orders *order.Service,
	users UserGetter,
	authn *Authenticator,
	opts ...Option,
) *Handler {
	h := &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		users:    users,
		authn:    authn,
		tp:       otel.GetTracerProvider(),
		mp:       otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes registers every API route on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Catalog.
	h.handle(mux, "GET /api/products", h.listProducts)
	h.handle(mux, "GET /api/products/{id}", h.getProduct)
	h.handle(mux, "POST /api/products", h.protect(h.createProduct))
	h.handle(mux, "PUT /api/products/{id}", h.protect(h.updateProduct))
	h.handle(mux, "DELETE /api/products/{id}", h.protect(h.deleteProduct))
	h.handle(mux, "GET /api/vendors/{vendorId}/products", h.listVendorProducts)
	h.handle(mux, "GET /api/products/vendor/{vendorId}", h.listVendorProducts)

	// Cart.
	h.handle(mux, "GET /api/cart", h.protect(h.getCart))
	h.handle(mux, "POST /api/cart/items", h.protect(h.addCartItem))
	h.handle(mux, "PUT /api/cart/items/{productId}", h.protect(h.updateCartItem))
	h.handle(mux, "DELETE /api/cart/items/{productId}", h.protect(h.removeCartItem))
	h.handle(mux, "DELETE /api/cart", h.protect(h.clearCart))

	// Orders.
	h.handle(mux, "POST /api/orders", h.protect(h.createOrder))
	h.handle(mux, "GET /api/orders", h.protect(h.listOrders))
	h.handle(mux, "GET /api/orders/{id}", h.protect(h.getOrder))
	h.handle(mux, "PUT /api/orders/{id}", h.protect(h.updateOrder))

	return mux
}

// handle registers fn under pattern, instrumented with the pattern as the
// operation name.
func (h *Handler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, otelhttp.NewHandler(fn, pattern,
		otelhttp.WithTracerProvider(h.tp),
		otelhttp.WithMeterProvider(h.mp),
	))
}
