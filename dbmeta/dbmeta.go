// Package dbmeta reads schema metadata from, and runs statements against,
// databases reached through database/sql: sqlite (modernc), postgres (pgx)
// and duckdb.
package dbmeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/anilkmeesala/db-sense-editor/catalog"
)

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("unsupported driver")

// QueryResult holds the stringified rows of one statement.
type QueryResult struct {
	Columns        []string
	Rows           [][]string
	RowCount       int64
	Duration       time.Duration
	BytesProcessed int64
	// Truncated is set when rows beyond the row limit were dropped.
	Truncated bool
}

// Source is a live connection the editor can complete against and run
// statements on.
type Source interface {
	catalog.Provider
	RunQuery(ctx context.Context, sqlText string) (*QueryResult, error)
	// Name is a short label for the status bar.
	Name() string
	Close() error
}

type dialect struct {
	sqlDriver string
	tables    string
	columns   string
}

var dialects = map[string]dialect{
	"sqlite": {
		sqlDriver: "sqlite",
		tables: `SELECT name, type FROM sqlite_master
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		columns: `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`,
	},
	"postgres": {
		sqlDriver: "pgx",
		tables: `SELECT table_name, table_type FROM information_schema.tables
			WHERE table_schema = current_schema()
			ORDER BY table_name`,
		columns: `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position`,
	},
	"duckdb": {
		sqlDriver: "duckdb",
		tables: `SELECT table_name, table_type FROM information_schema.tables
			WHERE table_schema = current_schema()
			ORDER BY table_name`,
		columns: `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?
			ORDER BY ordinal_position`,
	},
}

// DB is a Source backed by database/sql.
type DB struct {
	db      *sql.DB
	driver  string
	dsn     string
	dialect dialect
	maxRows int
}

var _ Source = (*DB)(nil)

// Open connects to a sqlite, postgres or duckdb database. An empty dsn opens
// an in-memory sqlite or duckdb database.
func Open(ctx context.Context, driver, dsn string, maxRows int) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	openDSN := dsn
	if driver == "sqlite" && dsn == "" {
		openDSN = ":memory:"
	}
	db, err := sql.Open(d.sqlDriver, openDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if openDSN == ":memory:" || (driver == "duckdb" && dsn == "") {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return &DB{db: db, driver: driver, dsn: dsn, dialect: d, maxRows: maxRows}, nil
}

// Wrap adapts an already open *sql.DB.
func Wrap(db *sql.DB, driver string, maxRows int) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return &DB{db: db, driver: driver, dialect: d, maxRows: maxRows}, nil
}

func (d *DB) Name() string {
	if d.dsn == "" {
		return d.driver + " (memory)"
	}
	if d.driver == "postgres" {
		return d.driver
	}
	return d.driver + " " + d.dsn
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) ListTables(ctx context.Context) ([]catalog.TableInfo, error) {
	rows, err := d.db.QueryContext(ctx, d.dialect.tables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []catalog.TableInfo
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, catalog.TableInfo{Name: name, Kind: tableKind(kind)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (d *DB) ListColumns(ctx context.Context, table string) ([]catalog.Column, error) {
	rows, err := d.db.QueryContext(ctx, d.dialect.columns, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []catalog.Column
	for rows.Next() {
		var c catalog.Column
		var typ sql.NullString
		if err := rows.Scan(&c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Type = typ.String
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	return cols, nil
}

func tableKind(kind string) string {
	if strings.Contains(strings.ToUpper(kind), "VIEW") {
		return catalog.KindView
	}
	return catalog.KindTable
}

// RunQuery executes sqlText and returns at most maxRows rows as strings.
func (d *DB) RunQuery(ctx context.Context, sqlText string) (*QueryResult, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	result := &QueryResult{Columns: cols}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if d.maxRows > 0 && result.RowCount >= int64(d.maxRows) {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
