// Package catalog holds immutable snapshots of database schema metadata used
// for completion, and the loader that builds them from a metadata provider.
package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	KindTable = "TABLE"
	KindView  = "VIEW"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableMeta is one table as reported by a metadata provider.
type TableMeta struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind,omitempty"`
	Columns []Column `json:"columns"`
}

// Catalog is a read-only snapshot. Nothing mutates a Catalog after Build
// returns it; a reload produces a new one.
type Catalog struct {
	id      string
	builtAt time.Time

	tables  []string
	kinds   map[string]string   // upper name -> kind
	canon   map[string]string   // upper name -> name as provided
	columns map[string][]Column // upper name -> columns in provider order
}

// Build constructs a catalog from provider metadata. Table order follows the
// input. A table listed more than once is merged; repeated (table, column)
// pairs are kept once.
func Build(tables []TableMeta) *Catalog {
	c := &Catalog{
		id:      uuid.NewString(),
		builtAt: time.Now(),
		kinds:   make(map[string]string, len(tables)),
		canon:   make(map[string]string, len(tables)),
		columns: make(map[string][]Column, len(tables)),
	}
	seenCols := make(map[string]map[string]bool, len(tables))

	for _, t := range tables {
		if t.Name == "" {
			continue
		}
		key := strings.ToUpper(t.Name)
		if _, ok := c.canon[key]; !ok {
			c.canon[key] = t.Name
			c.tables = append(c.tables, t.Name)
			kind := strings.ToUpper(t.Kind)
			if kind == "" {
				kind = KindTable
			}
			c.kinds[key] = kind
			seenCols[key] = make(map[string]bool, len(t.Columns))
		}
		seen := seenCols[key]
		for _, col := range t.Columns {
			ck := strings.ToUpper(col.Name)
			if col.Name == "" || seen[ck] {
				continue
			}
			seen[ck] = true
			c.columns[key] = append(c.columns[key], col)
		}
	}
	return c
}

// Empty returns a catalog with no tables.
func Empty() *Catalog {
	return Build(nil)
}

func (c *Catalog) ID() string         { return c.id }
func (c *Catalog) BuiltAt() time.Time { return c.builtAt }
func (c *Catalog) Len() int           { return len(c.tables) }

// Tables returns table names in provider order.
func (c *Catalog) Tables() []string {
	out := make([]string, len(c.tables))
	copy(out, c.tables)
	return out
}

// Table returns the canonical spelling of name, matched case-insensitively.
func (c *Catalog) Table(name string) (string, bool) {
	t, ok := c.canon[strings.ToUpper(name)]
	return t, ok
}

// Kind returns KindTable or KindView for a known table, or "" otherwise.
func (c *Catalog) Kind(name string) string {
	return c.kinds[strings.ToUpper(name)]
}

// ColumnsOf returns the columns of tableName, or nil when the table is unknown.
func (c *Catalog) ColumnsOf(tableName string) []Column {
	cols := c.columns[strings.ToUpper(tableName)]
	if len(cols) == 0 {
		return nil
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// Snapshot converts the catalog back to provider form, e.g. for persisting.
func (c *Catalog) Snapshot() []TableMeta {
	out := make([]TableMeta, 0, len(c.tables))
	for _, t := range c.tables {
		key := strings.ToUpper(t)
		out = append(out, TableMeta{
			Name:    t,
			Kind:    c.kinds[key],
			Columns: c.ColumnsOf(t),
		})
	}
	return out
}
