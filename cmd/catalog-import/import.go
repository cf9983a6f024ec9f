package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

const (
	maxLineBytes  = 1 << 20
	preloadPage   = 500
	progressEvery = 10_000
)

// productLine is one JSON Lines record.
type productLine struct {
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

func (p *productLine) input() product.Input {
	category := product.Category(p.Category)
	return product.Input{
		Name:        &p.Name,
		Description: &p.Description,
		Price:       &p.Price,
		Stock:       &p.Stock,
		Category:    &category,
		Images:      &p.Images,
		Featured:    &p.Featured,
		Rating:      &p.Rating,
		NumReviews:  &p.NumReviews,
	}
}

type record struct {
	file string
	line int
	in   product.Input
}

type productCreator interface {
	Create(ctx context.Context, who auth.Identity, in product.Input) (*product.Product, error)
}

type productFinder interface {
	Find(ctx context.Context, f product.Filter, sort []product.SortField, w product.Window) ([]product.Product, error)
}

type importerConfig struct {
	who      auth.Identity
	workers  int
	capacity uint
	fpr      float64
}

// importer streams product files into a creator. Duplicate detection is
// probabilistic: a false positive of the bloom filter drops a product, at
// the configured rate.
type importer struct {
	lg       *zap.Logger
	products productCreator
	cfg      importerConfig

	mu   sync.Mutex
	seen *bloom.BloomFilter

	read       atomic.Int64
	duplicates atomic.Int64
	invalid    atomic.Int64
	created    atomic.Int64
}

func newImporter(lg *zap.Logger, products productCreator, cfg importerConfig) *importer {
	cfg.workers = max(cfg.workers, 1)
	return &importer{
		lg:       lg,
		products: products,
		cfg:      cfg,
		seen:     bloom.NewWithEstimates(max(cfg.capacity, 1), cfg.fpr),
	}
}

func dedupKey(vendorID, name string) string {
	return vendorID + "\x00" + strings.ToLower(strings.TrimSpace(name))
}

// firstSeen records name and reports whether it was new.
func (im *importer) firstSeen(name string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return !im.seen.TestOrAddString(dedupKey(im.cfg.who.UserID, name))
}

// preload marks the vendor's existing products as seen.
func (im *importer) preload(ctx context.Context, products productFinder) error {
	f := product.Filter{VendorID: im.cfg.who.UserID}
	var total int
	for skip := 0; ; skip += preloadPage {
		page, err := products.Find(ctx, f, nil, product.Window{Skip: skip, Limit: preloadPage})
		if err != nil {
			return errors.Wrap(err, "load existing products")
		}
		for _, p := range page {
			im.firstSeen(p.Name)
		}
		total += len(page)
		if len(page) < preloadPage {
			break
		}
	}
	im.lg.Info("Existing products loaded", zap.Int("count", total))
	return nil
}

// run reads every file concurrently and feeds the writers.
func (im *importer) run(ctx context.Context, files []string) error {
	records := make(chan record, 1024)

	g, gctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(gctx)
	for _, path := range files {
		readers.Go(func() error {
			return im.readFile(rctx, path, records)
		})
	}
	g.Go(func() error {
		defer close(records)
		return readers.Wait()
	})
	for range im.cfg.workers {
		g.Go(func() error {
			return im.write(gctx, records)
		})
	}
	return g.Wait()
}

func (im *importer) readFile(ctx context.Context, path string, out chan<- record) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if n := im.read.Add(1); n%progressEvery == 0 {
			im.lg.Info("Import progress", zap.Int64("read", n), zap.Int64("created", im.created.Load()))
		}

		p := new(productLine)
		if err := json.Unmarshal(raw, p); err != nil {
			im.invalid.Add(1)
			im.lg.Warn("Skipping malformed line", zap.String("file", path), zap.Int("line", line), zap.Error(err))
			continue
		}
		in := p.input()
		if _, err := product.New(im.cfg.who.UserID, in); err != nil {
			im.skipInvalid(path, line, err)
			continue
		}
		// Only valid lines claim a name.
		if !im.firstSeen(p.Name) {
			im.duplicates.Add(1)
			continue
		}

		select {
		case out <- record{file: path, line: line, in: in}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// write creates products until records is closed. Validation failures are
// logged and skipped; any other error aborts the import.
func (im *importer) write(ctx context.Context, records <-chan record) error {
	for rec := range records {
		_, err := im.products.Create(ctx, im.cfg.who, rec.in)
		if _, ok := verr.Fields(err); ok {
			im.skipInvalid(rec.file, rec.line, err)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "%s:%d", rec.file, rec.line)
		}
		im.created.Add(1)
	}
	return nil
}

func (im *importer) skipInvalid(file string, line int, err error) {
	im.invalid.Add(1)
	fields, _ := verr.Fields(err)
	reasons := make([]string, 0, len(fields))
	for _, f := range fields {
		reasons = append(reasons, f.Name+": "+f.Error.Error())
	}
	im.lg.Warn("Skipping invalid product",
		zap.String("file", file),
		zap.Int("line", line),
		zap.Strings("reasons", reasons),
	)
}

func (im *importer) logStats() {
	im.lg.Info("Catalog import completed",
		zap.Int64("read", im.read.Load()),
		zap.Int64("created", im.created.Load()),
		zap.Int64("duplicates", im.duplicates.Load()),
		zap.Int64("invalid", im.invalid.Load()),
	)
}
