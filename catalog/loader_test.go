package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeProvider struct {
	mu      sync.Mutex
	tables  []TableInfo
	columns map[string][]Column
	colErr  map[string]error
	listErr error
}

func (f *fakeProvider) ListTables(ctx context.Context) ([]TableInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables, f.listErr
}

func (f *fakeProvider) ListColumns(ctx context.Context, table string) ([]Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.colErr[table]; err != nil {
		return nil, err
	}
	return f.columns[table], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFake() *fakeProvider {
	return &fakeProvider{
		tables: []TableInfo{{Name: "users"}, {Name: "orders"}, {Name: "active_users", Kind: KindView}},
		columns: map[string][]Column{
			"users":        {{Name: "id", Type: "INTEGER"}, {Name: "email", Type: "TEXT"}},
			"orders":       {{Name: "id", Type: "INTEGER"}, {Name: "user_id", Type: "INTEGER"}},
			"active_users": {{Name: "id", Type: "INTEGER"}},
		},
	}
}

func TestFetch_OrderAndColumns(t *testing.T) {
	c, err := Fetch(context.Background(), newFake(), quietLogger())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if diff := cmp.Diff([]string{"users", "orders", "active_users"}, c.Tables()); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
	if got := c.ColumnsOf("orders"); len(got) != 2 || got[1].Name != "user_id" {
		t.Errorf("unexpected orders columns: %v", got)
	}
	if c.Kind("active_users") != KindView {
		t.Errorf("expected view kind to survive fetch")
	}
}

func TestFetch_ColumnFailureKeepsTable(t *testing.T) {
	p := newFake()
	p.colErr = map[string]error{"orders": errors.New("permission denied")}

	c, err := Fetch(context.Background(), p, quietLogger())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, ok := c.Table("orders"); !ok {
		t.Fatal("expected orders to stay in the catalog")
	}
	if got := c.ColumnsOf("orders"); len(got) != 0 {
		t.Errorf("expected no columns for orders, got %v", got)
	}
	if got := c.ColumnsOf("users"); len(got) != 2 {
		t.Errorf("expected users columns, got %v", got)
	}
}

func TestReload_ListFailureInstallsEmpty(t *testing.T) {
	p := newFake()
	h := NewHolder(Build([]TableMeta{{Name: "stale"}}))
	l := NewLoader(p, h, quietLogger())

	p.listErr = errors.New("connection refused")
	cat, err := l.Reload(context.Background())
	if err == nil {
		t.Fatal("expected diagnostic error")
	}
	if cat == nil || cat.Len() != 0 {
		t.Fatalf("expected empty catalog to be returned, got %v", cat)
	}
	if h.Catalog().Len() != 0 {
		t.Errorf("expected empty catalog installed, got %v", h.Catalog().Tables())
	}
}

func TestReload_ListFailureInstallsFallback(t *testing.T) {
	p := newFake()
	p.listErr = errors.New("connection refused")
	h := NewHolder(nil)
	l := NewLoader(p, h, quietLogger())
	saved := Build([]TableMeta{{Name: "saved_orders"}})
	l.Fallback = func() *Catalog { return saved }

	var installed *Catalog
	l.OnInstall = func(c *Catalog) { installed = c }

	cat, err := l.Reload(context.Background())
	if err == nil {
		t.Fatal("expected diagnostic error")
	}
	if cat != saved || h.Catalog() != saved || installed != saved {
		t.Errorf("expected the fallback catalog to be returned, installed and reported")
	}
}

func TestReload_InstallsAndNotifies(t *testing.T) {
	h := NewHolder(nil)
	l := NewLoader(newFake(), h, quietLogger())

	var installed *Catalog
	l.OnInstall = func(c *Catalog) { installed = c }

	cat, err := l.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if h.Catalog() != cat {
		t.Error("holder does not carry the reloaded catalog")
	}
	if installed != cat {
		t.Error("OnInstall not called with the installed catalog")
	}
}

// sequencedProvider blocks its first ListTables call until release is closed
// and returns different tables for the first and later calls. The first call
// fails with firstErr when it is set.
type sequencedProvider struct {
	mu       sync.Mutex
	calls    int
	entered  chan struct{}
	release  chan struct{}
	firstErr error
}

func (s *sequencedProvider) ListTables(ctx context.Context) ([]TableInfo, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		close(s.entered)
		<-s.release
		if s.firstErr != nil {
			return nil, s.firstErr
		}
		return []TableInfo{{Name: "old_table"}}, nil
	}
	return []TableInfo{{Name: "users"}}, nil
}

func (s *sequencedProvider) ListColumns(ctx context.Context, table string) ([]Column, error) {
	return nil, nil
}

func TestReload_SupersededResultIsDiscarded(t *testing.T) {
	p := &sequencedProvider{entered: make(chan struct{}), release: make(chan struct{})}
	h := NewHolder(nil)
	l := NewLoader(p, h, quietLogger())

	done := make(chan error, 1)
	go func() {
		_, err := l.Reload(context.Background())
		done <- err
	}()
	<-p.entered

	if _, err := l.Reload(context.Background()); err != nil {
		t.Fatalf("newer Reload: %v", err)
	}
	close(p.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if _, ok := h.Catalog().Table("old_table"); ok {
		t.Error("superseded catalog was installed")
	}
	if _, ok := h.Catalog().Table("users"); !ok {
		t.Error("newer catalog missing")
	}
}

func TestReload_SupersededFailureKeepsNewerCatalog(t *testing.T) {
	p := &sequencedProvider{
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
		firstErr: errors.New("connection reset"),
	}
	h := NewHolder(nil)
	l := NewLoader(p, h, quietLogger())
	fallbacks := 0
	l.Fallback = func() *Catalog {
		fallbacks++
		return Build([]TableMeta{{Name: "saved_table"}})
	}

	done := make(chan error, 1)
	go func() {
		_, err := l.Reload(context.Background())
		done <- err
	}()
	<-p.entered

	live, err := l.Reload(context.Background())
	if err != nil {
		t.Fatalf("newer Reload: %v", err)
	}
	close(p.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if h.Catalog() != live {
		t.Errorf("expected the live catalog to stay installed, got %v", h.Catalog().Tables())
	}
	if fallbacks != 1 {
		t.Errorf("expected the fallback to be built once, got %d", fallbacks)
	}
}

func TestHolder_DefaultsToEmpty(t *testing.T) {
	h := NewHolder(nil)
	if h.Catalog() == nil || h.Catalog().Len() != 0 {
		t.Fatal("expected empty catalog from fresh holder")
	}
	h.Store(nil)
	if h.Catalog() == nil {
		t.Fatal("Store(nil) must keep a usable catalog")
	}
}
