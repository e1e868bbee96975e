package dbmeta

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/anilkmeesala/db-sense-editor/catalog"
)

const seedSQL = `
CREATE TABLE employees (id INTEGER PRIMARY KEY, name TEXT, dept_id INTEGER);
CREATE TABLE departments (id INTEGER PRIMARY KEY, title TEXT);
CREATE VIEW staff AS SELECT name FROM employees;
INSERT INTO employees (id, name, dept_id) VALUES (1, 'Alice', 1), (2, 'Bob', NULL), (3, 'Carol', 1);
INSERT INTO departments (id, title) VALUES (1, 'Research');
`

func openSeeded(t *testing.T, driver string, maxRows int) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, driver, "", maxRows)
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.db.ExecContext(ctx, seedSQL); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "", 10); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestSQLite_Metadata(t *testing.T) {
	db := openSeeded(t, "sqlite", 100)
	ctx := context.Background()

	tables, err := db.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	want := []catalog.TableInfo{
		{Name: "departments", Kind: catalog.KindTable},
		{Name: "employees", Kind: catalog.KindTable},
		{Name: "staff", Kind: catalog.KindView},
	}
	if diff := cmp.Diff(want, tables); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	cols, err := db.ListColumns(ctx, "employees")
	if err != nil {
		t.Fatalf("ListColumns: %v", err)
	}
	wantCols := []catalog.Column{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}, {Name: "dept_id", Type: "INTEGER"}}
	if diff := cmp.Diff(wantCols, cols); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	cols, err = db.ListColumns(ctx, "missing")
	if err != nil || len(cols) != 0 {
		t.Errorf("expected no columns for a missing table, got %v, %v", cols, err)
	}
}

func TestSQLite_FetchCatalog(t *testing.T) {
	db := openSeeded(t, "sqlite", 100)
	cat, err := catalog.Fetch(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := cat.ColumnsOf("DEPARTMENTS"); len(got) != 2 || got[1].Name != "title" {
		t.Errorf("unexpected departments columns %v", got)
	}
	if cat.Kind("staff") != catalog.KindView {
		t.Errorf("expected staff to be a view")
	}
}

func TestSQLite_RunQuery(t *testing.T) {
	db := openSeeded(t, "sqlite", 100)
	res, err := db.RunQuery(context.Background(), "SELECT id, name, dept_id FROM employees ORDER BY id")
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "name", "dept_id"}, res.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	want := [][]string{{"1", "Alice", "1"}, {"2", "Bob", "NULL"}, {"3", "Carol", "1"}}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if res.RowCount != 3 || res.Truncated {
		t.Errorf("unexpected count %d truncated %v", res.RowCount, res.Truncated)
	}
}

func TestSQLite_RunQueryTruncates(t *testing.T) {
	db := openSeeded(t, "sqlite", 2)
	res, err := db.RunQuery(context.Background(), "SELECT id FROM employees ORDER BY id")
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if res.RowCount != 2 || !res.Truncated {
		t.Errorf("expected 2 rows and truncation, got %d / %v", res.RowCount, res.Truncated)
	}
}

func TestSQLite_RunQueryError(t *testing.T) {
	db := openSeeded(t, "sqlite", 10)
	if _, err := db.RunQuery(context.Background(), "SELECT nope FROM nowhere"); err == nil {
		t.Error("expected error for invalid statement")
	}
}

func TestDuckDB_Metadata(t *testing.T) {
	db := openSeeded(t, "duckdb", 100)
	ctx := context.Background()

	tables, err := db.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	if diff := cmp.Diff([]string{"departments", "employees", "staff"}, names); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
	if tables[2].Kind != catalog.KindView {
		t.Errorf("expected staff to be a view, got %q", tables[2].Kind)
	}

	cols, err := db.ListColumns(ctx, "departments")
	if err != nil {
		t.Fatalf("ListColumns: %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "id" || cols[1].Name != "title" {
		t.Errorf("unexpected columns %v", cols)
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{[]byte("raw"), "raw"},
		{int64(7), "7"},
		{1.5, "1.5"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := formatValue(c.in); got != c.want {
			t.Errorf("formatValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
