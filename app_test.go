package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anilkmeesala/db-sense-editor/catalog"
	"github.com/anilkmeesala/db-sense-editor/config"
	"github.com/anilkmeesala/db-sense-editor/logging"
	"github.com/anilkmeesala/db-sense-editor/store"
)

func TestPreviewQuery_Plain(t *testing.T) {
	cfg := config.Default()
	cfg.Connection.Driver = "sqlite"
	got := previewQuery(cfg, "Employees", 1000)
	want := "SELECT *\nFROM Employees\nLIMIT 1000"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPreviewQuery_QuotesOddNames(t *testing.T) {
	cfg := config.Default()
	cfg.Connection.Driver = "postgres"
	got := previewQuery(cfg, `order "items"`, 10)
	want := "SELECT *\nFROM \"order \"\"items\"\"\"\nLIMIT 10"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPreviewQuery_BigQueryQualifiesDataset(t *testing.T) {
	cfg := config.Default()
	cfg.Connection.Driver = "bigquery"
	cfg.Connection.Project = "acme"
	cfg.Connection.Dataset = "shop"
	got := previewQuery(cfg, "orders", 1000)
	want := "SELECT *\nFROM `shop.orders`\nLIMIT 1000"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNeedsQuoting(t *testing.T) {
	cases := map[string]bool{
		"employees":   false,
		"_tmp2":       false,
		"Dept_Names":  false,
		"2024_sales":  true,
		"order items": true,
		"dept-names":  true,
		"":            true,
	}
	for in, want := range cases {
		if got := needsQuoting(in); got != want {
			t.Errorf("needsQuoting(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestChangesSchema(t *testing.T) {
	cases := map[string]bool{
		"CREATE TABLE t (id INT)":  true,
		"  drop view v":            true,
		"alter table t add c INT":  true,
		"SELECT * FROM created":    false,
		"INSERT INTO t VALUES (1)": false,
		"":                         false,
	}
	for in, want := range cases {
		if got := changesSchema(in); got != want {
			t.Errorf("changesSchema(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("dial tcp: refused\ndetails"); got != "dial tcp: refused" {
		t.Errorf("unexpected %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Errorf("unexpected %q", got)
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Completion.ActivationDelay = config.Duration(300 * time.Millisecond)
	cfg.Completion.ActivateOnDot = false
	cfg.Completion.MaxVisible = 5

	opts := sessionOptions(cfg)
	if opts.Delay != 300*time.Millisecond || opts.ActivateOnDot || opts.MaxItems != 5 {
		t.Errorf("unexpected session options %+v", opts)
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoadCatalog_NoConnection(t *testing.T) {
	cat, err := loadCatalog(context.Background(), config.Default(), nil, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Len() != 0 {
		t.Errorf("expected an empty catalog, got %v", cat.Tables())
	}
}

func TestLoadCatalog_SavesSnapshot(t *testing.T) {
	st := newTestStore(t)
	cfg := config.Default()
	cfg.Connection.Driver = "sqlite"
	cfg.Connection.DSN = newShopDB(t)

	cat, err := loadCatalog(context.Background(), cfg, st, logging.Discard())
	if err != nil {
		t.Fatalf("loadCatalog: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 tables, got %v", cat.Tables())
	}

	snap, err := st.LoadSnapshot(cfg.ConnectionKey())
	if err != nil || snap == nil {
		t.Fatalf("expected a saved snapshot, got %v / %v", snap, err)
	}
	if len(snap.Tables) != 2 {
		t.Errorf("expected 2 saved tables, got %d", len(snap.Tables))
	}
}

func TestLoadCatalog_FallsBackToSnapshot(t *testing.T) {
	st := newTestStore(t)
	cfg := config.Default()
	cfg.Connection.Driver = "postgres"
	cfg.Connection.DSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=2"

	saved := []catalog.TableMeta{{Name: "orders", Columns: []catalog.Column{{Name: "id", Type: "int"}}}}
	if err := st.SaveSnapshot(cfg.ConnectionKey(), saved); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	cat, err := loadCatalog(context.Background(), cfg, st, logging.Discard())
	if err == nil {
		t.Fatal("expected the connection error to be reported")
	}
	if got := cat.Tables(); len(got) != 1 || got[0] != "orders" {
		t.Errorf("expected the saved schema, got %v", got)
	}
}

func TestLoadCatalog_UnreachableWithoutSnapshot(t *testing.T) {
	cfg := config.Default()
	cfg.Connection.Driver = "postgres"
	cfg.Connection.DSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=2"

	cat, err := loadCatalog(context.Background(), cfg, newTestStore(t), logging.Discard())
	if err == nil {
		t.Fatal("expected an error")
	}
	if cat == nil || cat.Len() != 0 {
		t.Errorf("expected an empty catalog, got %v", cat)
	}
}

func TestNewEngine_UsesDialectLexicon(t *testing.T) {
	cfg := config.Default()
	cfg.Connection.Driver = "sqlite"
	h := catalog.NewHolder(nil)
	if _, err := newEngine(cfg, h); err != nil {
		t.Fatalf("newEngine: %v", err)
	}

	cfg.Completion.LexiconPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := newEngine(cfg, h); err == nil {
		t.Error("expected an error for a missing lexicon file")
	}
}
