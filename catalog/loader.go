package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by Reload when a newer reload started before this
// one finished. The result of the older reload is discarded.
var ErrSuperseded = errors.New("catalog: reload superseded")

const columnFetchLimit = 4

// TableInfo is a table name as listed by a Provider, before columns are known.
type TableInfo struct {
	Name string
	Kind string
}

// Provider enumerates schema metadata from a live database connection.
type Provider interface {
	ListTables(ctx context.Context) ([]TableInfo, error)
	ListColumns(ctx context.Context, table string) ([]Column, error)
}

var emptyCatalog = Build(nil)

// Holder publishes the current catalog. Readers always see a complete
// snapshot; Store swaps the whole pointer.
type Holder struct {
	cur atomic.Pointer[Catalog]
}

func NewHolder(initial *Catalog) *Holder {
	h := &Holder{}
	if initial != nil {
		h.cur.Store(initial)
	}
	return h
}

// Catalog returns the installed snapshot, or an empty catalog if none was installed yet.
func (h *Holder) Catalog() *Catalog {
	if c := h.cur.Load(); c != nil {
		return c
	}
	return emptyCatalog
}

func (h *Holder) Store(c *Catalog) {
	if c == nil {
		c = emptyCatalog
	}
	h.cur.Store(c)
}

// Loader fetches metadata from a Provider off the caller's goroutine and
// installs the result into a Holder.
type Loader struct {
	provider Provider
	holder   *Holder
	logger   *slog.Logger

	gen       atomic.Uint64
	installMu sync.Mutex

	// OnInstall, if set, is called after a snapshot has been installed.
	OnInstall func(c *Catalog)
	// Fallback, if set, supplies the catalog to install when listing tables
	// fails, e.g. a saved snapshot. A nil result installs an empty catalog.
	Fallback func() *Catalog
}

func NewLoader(p Provider, h *Holder, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		provider: p,
		holder:   h,
		logger:   logger.With("component", "catalog"),
	}
}

// Reload rebuilds the catalog and installs it unless a newer Reload started
// in the meantime. When listing tables fails the Fallback catalog (or an empty
// one) is installed and the failure is returned as a diagnostic.
func (l *Loader) Reload(ctx context.Context) (*Catalog, error) {
	gen := l.gen.Add(1)

	cat, fetchErr := Fetch(ctx, l.provider, l.logger)
	if fetchErr != nil {
		cat = nil
		if l.Fallback != nil {
			cat = l.Fallback()
		}
		if cat == nil {
			l.logger.Warn("schema metadata unavailable, using empty catalog", "error", fetchErr)
			cat = Build(nil)
		} else {
			l.logger.Warn("schema metadata unavailable, using fallback catalog", "tables", cat.Len(), "error", fetchErr)
		}
	}

	l.installMu.Lock()
	if l.gen.Load() != gen {
		l.installMu.Unlock()
		l.logger.Debug("discarding superseded reload", "generation", gen)
		return nil, ErrSuperseded
	}
	l.holder.Store(cat)
	l.installMu.Unlock()

	l.logger.Info("catalog installed", "id", cat.ID(), "tables", cat.Len(), "generation", gen)
	if l.OnInstall != nil {
		l.OnInstall(cat)
	}
	return cat, fetchErr
}

// ReloadAsync runs Reload in a new goroutine and reports the outcome to done.
func (l *Loader) ReloadAsync(ctx context.Context, done func(*Catalog, error)) {
	go func() {
		cat, err := l.Reload(ctx)
		if done != nil {
			done(cat, err)
		}
	}()
}

// Fetch lists tables and their columns from p and builds a catalog. A table
// whose columns cannot be listed is kept with no columns.
func Fetch(ctx context.Context, p Provider, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tables, err := p.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	metas := make([]TableMeta, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(columnFetchLimit)
	for i, t := range tables {
		metas[i] = TableMeta{Name: t.Name, Kind: t.Kind}
		g.Go(func() error {
			cols, err := p.ListColumns(gctx, t.Name)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("list columns failed", "table", t.Name, "error", err)
				return nil
			}
			metas[i].Columns = cols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return Build(metas), nil
}
