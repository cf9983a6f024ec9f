package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

// --- Mock implementations ---

type mockCreator struct {
	mu       sync.Mutex
	names    []string
	failOn   string
	rejectOn string
	vendors  map[string]bool
}

func (m *mockCreator) Create(_ context.Context, who auth.Identity, in product.Input) (*product.Product, error) {
	if *in.Name == m.rejectOn {
		return nil, verr.Field("name", "Product name is reserved")
	}
	if *in.Name == m.failOn {
		return nil, errors.New("connection refused")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, *in.Name)
	if m.vendors == nil {
		m.vendors = map[string]bool{}
	}
	m.vendors[who.UserID] = true
	return &product.Product{Name: *in.Name}, nil
}

func (m *mockCreator) sorted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.names...)
	sort.Strings(out)
	return out
}

type mockFinder struct {
	products []product.Product
	windows  []product.Window
}

func (m *mockFinder) Find(_ context.Context, f product.Filter, _ []product.SortField, w product.Window) ([]product.Product, error) {
	m.windows = append(m.windows, w)
	var mine []product.Product
	for _, p := range m.products {
		if p.VendorID == f.VendorID {
			mine = append(mine, p)
		}
	}
	if w.Skip >= len(mine) {
		return nil, nil
	}
	return mine[w.Skip:min(w.Skip+w.Limit, len(mine))], nil
}

// --- Helpers ---

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func line(name, category string) string {
	return lineWith(name, "d", category)
}

func lineWith(name, description, category string) string {
	return `{"name":"` + name + `","description":"` + description + `","price":"9.99","stock":1,"category":"` + category + `"}`
}

func newTestImporter(c productCreator) *importer {
	return newImporter(zap.NewNop(), c, importerConfig{
		who:      auth.Identity{UserID: "v1", Role: user.RoleVendor},
		workers:  3,
		capacity: 1000,
		fpr:      1e-9,
	})
}

// --- Tests ---

func TestImporter_Run(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.jsonl.gz",
			line("Lamp", "home"),
			line(" LAMP", "home"),
			line("Mug", "home"),
			"",
			`{"name":`,
			line("Ball", "toys"),
		),
		writeGz(t, dir, "b.jsonl.gz",
			line("Mug", "home"),
			line("Desk", "home"),
		),
	}

	c := &mockCreator{}
	im := newTestImporter(c)
	require.NoError(t, im.run(context.Background(), files))

	assert.Equal(t, []string{"Desk", "Lamp", "Mug"}, c.sorted())
	assert.Equal(t, map[string]bool{"v1": true}, c.vendors)
	assert.EqualValues(t, 7, im.read.Load())
	assert.EqualValues(t, 3, im.created.Load())
	assert.EqualValues(t, 2, im.duplicates.Load(), "names compare trimmed and case-insensitively, across files")
	assert.EqualValues(t, 2, im.invalid.Load(), "one malformed line and one failed validation")
}

func TestImporter_InvalidLineDoesNotClaimName(t *testing.T) {
	dir := t.TempDir()
	path := writeGz(t, dir, "a.jsonl.gz",
		lineWith("Lamp", "", "home"),
		`{"name":"Lamp","description":"d","price":"9.99","stock":3000000000,"category":"home"}`,
		line("Lamp", "toys"),
		line("Lamp", "home"),
		line("lamp", "home"),
	)

	c := &mockCreator{}
	im := newTestImporter(c)
	require.NoError(t, im.run(context.Background(), []string{path}))

	assert.Equal(t, []string{"Lamp"}, c.sorted())
	assert.EqualValues(t, 3, im.invalid.Load())
	assert.EqualValues(t, 1, im.duplicates.Load())
}

func TestImporter_RejectedOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := writeGz(t, dir, "a.jsonl.gz", line("Lamp", "home"), line("Mug", "home"))

	c := &mockCreator{rejectOn: "Mug"}
	im := newTestImporter(c)
	require.NoError(t, im.run(context.Background(), []string{path}))

	assert.Equal(t, []string{"Lamp"}, c.sorted())
	assert.EqualValues(t, 1, im.created.Load())
	assert.EqualValues(t, 1, im.invalid.Load())
}

func TestImporter_StorageErrorAborts(t *testing.T) {
	dir := t.TempDir()
	path := writeGz(t, dir, "a.jsonl.gz", line("Lamp", "home"), line("Mug", "home"))

	im := newTestImporter(&mockCreator{failOn: "Mug"})
	err := im.run(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestImporter_MissingFile(t *testing.T) {
	im := newTestImporter(&mockCreator{})
	err := im.run(context.Background(), []string{filepath.Join(t.TempDir(), "nope.jsonl.gz")})
	require.Error(t, err)
}

func TestImporter_Preload(t *testing.T) {
	finder := &mockFinder{}
	for i := range preloadPage + 2 {
		finder.products = append(finder.products, product.Product{
			Name:     "Existing " + string(rune('A'+i%26)) + strings.Repeat("x", i/26),
			VendorID: "v1",
		})
	}
	finder.products = append(finder.products, product.Product{Name: "Other vendor item", VendorID: "v2"})

	dir := t.TempDir()
	path := writeGz(t, dir, "a.jsonl.gz",
		line("Existing A", "home"),
		line("Other vendor item", "home"),
	)

	c := &mockCreator{}
	im := newTestImporter(c)
	require.NoError(t, im.preload(context.Background(), finder))
	require.Len(t, finder.windows, 2)
	assert.Equal(t, product.Window{Skip: preloadPage, Limit: preloadPage}, finder.windows[1])

	require.NoError(t, im.run(context.Background(), []string{path}))
	assert.Equal(t, []string{"Other vendor item"}, c.sorted())
	assert.EqualValues(t, 1, im.duplicates.Load())
}
