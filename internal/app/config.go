package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Auth      AuthConfig
	Catalog   CatalogConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects and locates the backing store.
type StorageConfig struct {
	Driver        string `default:"postgres" usage:"Storage backend: postgres or mongo"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (STORE_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MongoURI      string `usage:"MongoDB connection URI (STORE_STORAGE_MONGO_URI or MONGO_URI)" flag:"mongo-uri"`
	MongoDatabase string `default:"storefront" usage:"MongoDB database name" flag:"mongo-database"`
}

// AuthConfig holds credential verification secrets.
type AuthConfig struct {
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	JWTSecret    string `usage:"HS256 secret for bearer tokens; empty disables them" flag:"jwt-secret"`
}

// CatalogConfig bounds listing page sizes.
type CatalogConfig struct {
	DefaultLimit int `default:"10" usage:"Default page size"`
	MaxLimit     int `default:"100" usage:"Maximum page size"`
}

// CheckoutConfig prices orders.
type CheckoutConfig struct {
	TaxRate     float64 `default:"0" usage:"Tax rate applied to the order subtotal, e.g. 0.0825"`
	ShippingFee float64 `default:"0" usage:"Flat shipping fee per order"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Load fills dst from environment variables (STORE_ prefix), flags and the
// YAML config files. Commands use it with their own config structs.
func Load(dst any) error {
	loader := aconfig.LoaderFor(dst, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return errors.Wrap(err, "load config")
	}
	return nil
}

// LoadConfig loads the API server configuration and applies platform-specific
// defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := Load(&cfg); err != nil {
		return nil, err
	}
	if port := os.Getenv("PORT"); port != "" && cfg.Addr == defaultAddr {
		cfg.Addr = "0.0.0.0:" + port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate resolves the storage settings and checks checkout pricing.
func (c *Config) Validate() error {
	if err := c.Storage.Resolve(); err != nil {
		return err
	}
	if c.Checkout.TaxRate < 0 || c.Checkout.ShippingFee < 0 {
		return errors.New("checkout tax rate and shipping fee cannot be negative")
	}
	return nil
}

// Resolve maps platform-provided DATABASE_URL and MONGO_URI (Railway, Render,
// etc.) onto unset fields and checks that the selected driver is configured.
func (s *StorageConfig) Resolve() error {
	if s.DatabaseURL == "" {
		s.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if s.MongoURI == "" {
		s.MongoURI = os.Getenv("MONGO_URI")
	}

	switch s.Driver {
	case DriverPostgres:
		if s.DatabaseURL == "" {
			return errors.New("database URL is required: set STORE_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case DriverMongo:
		if s.MongoURI == "" {
			return errors.New("mongo URI is required: set STORE_STORAGE_MONGO_URI or MONGO_URI")
		}
	default:
		return errors.Errorf("unknown storage driver %q", s.Driver)
	}
	return nil
}

// Limits returns the catalog page-size bounds.
func (c *Config) Limits() product.Limits {
	return product.Limits{DefaultLimit: c.Catalog.DefaultLimit, MaxLimit: c.Catalog.MaxLimit}
}

// Pricing returns the checkout pricing rules.
func (c *Config) Pricing() order.Pricing {
	return order.Pricing{
		TaxRate:     decimal.NewFromFloat(c.Checkout.TaxRate),
		ShippingFee: decimal.NewFromFloat(c.Checkout.ShippingFee),
	}
}
