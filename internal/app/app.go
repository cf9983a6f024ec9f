package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/handler"
	"github.com/xenking/storefront-api/pkg/health"
	"github.com/xenking/storefront-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	store, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close(context.Background(), lg)

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	// Health check service.
	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddReadinessCheck(store.Driver, 5*time.Second, health.PingCheck(store.Driver, store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second),
		health.WithFailureThreshold(5),
	)
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	tp, mp := m.TracerProvider(), m.MeterProvider()
	productSvc := product.NewService(store.Products, store.Users,
		product.WithTracerProvider(tp),
		product.WithLimits(cfg.Limits()),
	)
	cartSvc, err := cart.NewService(store.Carts, store.Products,
		cart.WithTracerProvider(tp),
		cart.WithMeterProvider(mp),
	)
	if err != nil {
		return errors.Wrap(err, "create cart service")
	}
	orderSvc, err := order.NewService(store.Orders, store.Carts, cfg.Pricing(),
		order.WithTracerProvider(tp),
		order.WithMeterProvider(mp),
		order.WithLimits(cfg.Limits()),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	// HTTP handlers.
	authn := handler.NewAuthenticator(store.APIKeys, store.Users, handler.AuthConfig{
		APIKeyPepper: []byte(cfg.Auth.APIKeyPepper),
		JWTSecret:    []byte(cfg.Auth.JWTSecret),
	})
	if cfg.Auth.JWTSecret == "" {
		lg.Info("Bearer tokens disabled: STORE_AUTH_JWT_SECRET is empty")
	}
	h := handler.New(productSvc, cartSvc, orderSvc, store.Users, authn,
		handler.WithTracerProvider(tp),
		handler.WithMeterProvider(mp),
	)

	// Mux: health endpoints + API routes on one server.
	mux := h.Routes()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.ClientCredential,
			}),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
