// Command seed-db prepares a storage backend for local use: it applies the
// schema or indexes, creates an admin, a vendor and a customer with API keys,
// and loads the sample catalog for the vendor.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/db"
	"github.com/xenking/storefront-api/internal/app"
	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// Config is read from STORE_* variables, flags and config.yaml like the API
// server's, so both commands agree on storage and pepper.
type Config struct {
	Storage app.StorageConfig
	Auth    app.AuthConfig
	Seed    SeedConfig
}

// SeedConfig holds the plaintext API keys to register. An empty key skips
// that account's key.
type SeedConfig struct {
	AdminKey     string `usage:"API key for the admin account" flag:"admin-key"`
	VendorKey    string `usage:"API key for the vendor account" flag:"vendor-key"`
	CustomerKey  string `usage:"API key for the customer account" flag:"customer-key"`
	ProductsFile string `usage:"Products JSON file; empty uses the embedded sample catalog" flag:"products-file"`
}

// productJSON is one entry of the seed catalog.
type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
	Featured    bool            `json:"featured"`
	Rating      float64         `json:"rating"`
	NumReviews  int             `json:"numReviews"`
}

func (p productJSON) input() product.Input {
	category := product.Category(p.Category)
	images := p.Images
	return product.Input{
		Name:        &p.Name,
		Description: &p.Description,
		Price:       &p.Price,
		Stock:       &p.Stock,
		Category:    &category,
		Images:      &images,
		Featured:    &p.Featured,
		Rating:      &p.Rating,
		NumReviews:  &p.NumReviews,
	}
}

func main() {
	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg Config
	if err := app.Load(&cfg); err != nil {
		lg.Fatal("Load config", zap.Error(err))
	}
	if err := cfg.Storage.Resolve(); err != nil {
		lg.Fatal("Storage config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, cfg Config) error {
	lg.Info("Connecting", zap.String("driver", cfg.Storage.Driver))
	store, err := app.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close(context.Background(), lg)

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	accounts := []struct {
		user user.User
		key  string
	}{
		{user: user.User{Name: "Admin", Email: "admin@example.com", Role: user.RoleAdmin}, key: cfg.Seed.AdminKey},
		{user: user.User{Name: "Acme Supplies", Email: "vendor@example.com", Role: user.RoleVendor}, key: cfg.Seed.VendorKey},
		{user: user.User{Name: "Jane Customer", Email: "customer@example.com", Role: user.RoleUser}, key: cfg.Seed.CustomerKey},
	}

	var vendor *user.User
	for i := range accounts {
		u := &accounts[i].user
		if err := store.Users.Create(ctx, u); err != nil {
			return errors.Wrapf(err, "seed user %s", u.Email)
		}
		lg.Info("Upserted user", zap.String("id", u.ID), zap.String("email", u.Email), zap.String("role", string(u.Role)))
		if u.Role == user.RoleVendor {
			vendor = u
		}

		if accounts[i].key == "" {
			continue
		}
		info := &auth.APIKeyInfo{
			KeyHash: auth.HashAPIKey([]byte(cfg.Auth.APIKeyPepper), accounts[i].key),
			Name:    "Seed key for " + u.Email,
			UserID:  u.ID,
		}
		if err := store.APIKeys.Upsert(ctx, info); err != nil {
			return errors.Wrapf(err, "seed api key for %s", u.Email)
		}
		lg.Info("Upserted API key", zap.String("id", info.ID), zap.String("user_id", u.ID))
	}

	return seedProducts(ctx, lg, store, vendor, cfg.Seed.ProductsFile)
}

// seedProducts loads the catalog for vendor unless the vendor already owns
// products, so running the command twice does not duplicate the catalog.
func seedProducts(ctx context.Context, lg *zap.Logger, store *app.Storage, vendor *user.User, file string) error {
	existing, err := store.Products.Count(ctx, product.Filter{VendorID: vendor.ID})
	if err != nil {
		return errors.Wrap(err, "count vendor products")
	}
	if existing > 0 {
		lg.Info("Catalog already seeded", zap.Int64("products", existing))
		return nil
	}

	data := db.SeedProducts
	if file != "" {
		if data, err = os.ReadFile(file); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	svc := product.NewService(store.Products, store.Users)
	who := auth.Identity{UserID: vendor.ID, Role: vendor.Role}
	for _, p := range products {
		created, err := svc.Create(ctx, who, p.input())
		if err != nil {
			return errors.Wrapf(err, "create product %q", p.Name)
		}
		lg.Info("Created product", zap.String("id", created.ID), zap.String("name", created.Name))
	}
	lg.Info("Catalog seeded", zap.Int("products", len(products)))
	return nil
}
