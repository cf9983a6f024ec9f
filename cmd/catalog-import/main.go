// Command catalog-import bulk loads products for one vendor from gzip
// compressed JSON Lines files. Files are streamed concurrently, repeated
// product names are dropped, and every product goes through the same
// validation as the API.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/app"
	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// Config is read from STORE_* variables, flags and config.yaml.
type Config struct {
	Storage app.StorageConfig
	Import  ImportConfig
}

// ImportConfig controls the import run.
type ImportConfig struct {
	Dir      string  `default:"data" usage:"Directory containing product files" flag:"data-dir"`
	Pattern  string  `default:"*.jsonl.gz" usage:"Glob selecting product files inside Dir" flag:"pattern"`
	VendorID string  `usage:"Vendor that owns the imported products" flag:"vendor-id"`
	Workers  int     `default:"4" usage:"Concurrent product writers" flag:"workers"`
	Capacity uint    `default:"1000000" usage:"Expected number of products, sizes the duplicate filter" flag:"capacity"`
	FPR      float64 `default:"0.000001" usage:"False positive rate of the duplicate filter" flag:"fpr"`
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
	if cfg.Import.VendorID == "" {
		lg.Fatal("Vendor id is required: set --vendor-id or STORE_IMPORT_VENDOR_ID")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Catalog import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg Config) error {
	files, err := filepath.Glob(filepath.Join(cfg.Import.Dir, cfg.Import.Pattern))
	if err != nil {
		return errors.Wrap(err, "list product files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", cfg.Import.Pattern, cfg.Import.Dir)
	}

	store, err := app.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close(context.Background(), lg)

	vendor, err := user.LookupVendor(ctx, store.Users, cfg.Import.VendorID)
	if err != nil {
		return err
	}

	im := newImporter(lg, product.NewService(store.Products, store.Users), importerConfig{
		who:      auth.Identity{UserID: vendor.ID, Role: vendor.Role},
		workers:  cfg.Import.Workers,
		capacity: cfg.Import.Capacity,
		fpr:      cfg.Import.FPR,
	})
	if err := im.preload(ctx, store.Products); err != nil {
		return err
	}

	lg.Info("Importing", zap.Strings("files", files), zap.String("vendor_id", vendor.ID))
	if err := im.run(ctx, files); err != nil {
		return err
	}
	im.logStats()
	return nil
}
