package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
	"github.com/xenking/storefront-api/internal/storage/mongo"
	"github.com/xenking/storefront-api/internal/storage/postgres"
)

// Storage is the set of repositories of one backend plus its lifecycle.
type Storage struct {
	Driver   string
	Products product.Repository
	Users    user.Repository
	Carts    cart.Repository
	Orders   order.Repository
	APIKeys  auth.Repository

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

// OpenStorage connects to the backend selected by cfg.Driver.
func OpenStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return openPostgres(ctx, cfg)
	case DriverMongo:
		return openMongo(ctx, cfg)
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	repos := postgres.NewRepositories(pool)
	return &Storage{
		Driver:   DriverPostgres,
		Products: repos.Products,
		Users:    repos.Users,
		Carts:    repos.Carts,
		Orders:   repos.Orders,
		APIKeys:  repos.APIKeys,
		ping:     pool.Ping,
		migrate: func(ctx context.Context) error {
			return postgres.RunMigrations(ctx, pool)
		},
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	repos := store.NewRepositories()
	return &Storage{
		Driver:   DriverMongo,
		Products: repos.Products,
		Users:    repos.Users,
		Carts:    repos.Carts,
		Orders:   repos.Orders,
		APIKeys:  repos.APIKeys,
		ping:     store.Ping,
		migrate:  store.EnsureIndexes,
		close:    store.Close,
	}, nil
}

// Ping verifies the backend connection.
func (s *Storage) Ping(ctx context.Context) error { return s.ping(ctx) }

// Migrate applies the schema (postgres) or creates the indexes (mongo).
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return errors.Wrapf(err, "migrate %s", s.Driver)
	}
	return nil
}

// Close releases the backend connection, logging failures.
func (s *Storage) Close(ctx context.Context, lg *zap.Logger) {
	if err := s.close(ctx); err != nil {
		lg.Warn("Close storage", zap.String("driver", s.Driver), zap.Error(err))
	}
}
