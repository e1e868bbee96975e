package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anilkmeesala/db-sense-editor/bq"
	"github.com/anilkmeesala/db-sense-editor/catalog"
	"github.com/anilkmeesala/db-sense-editor/complete"
	"github.com/anilkmeesala/db-sense-editor/config"
	"github.com/anilkmeesala/db-sense-editor/dbmeta"
	"github.com/anilkmeesala/db-sense-editor/lexicon"
	"github.com/anilkmeesala/db-sense-editor/store"
)

// previewRows is the LIMIT used by the query generated for a table click.
const previewRows = 1000

// openSource connects to the database named by cfg. It returns nil, nil when
// no driver is configured.
func openSource(ctx context.Context, cfg *config.Config) (dbmeta.Source, error) {
	conn := cfg.Connection
	switch conn.Driver {
	case "":
		return nil, nil
	case "bigquery":
		c, err := bq.Open(ctx, conn.Project, conn.Dataset, conn.MaxRows)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		db, err := dbmeta.Open(ctx, conn.Driver, conn.DSN, conn.MaxRows)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// newEngine builds the completion engine for cfg on top of h.
func newEngine(cfg *config.Config, h *catalog.Holder) (*complete.Engine, error) {
	lex, err := lexicon.Load(cfg.Completion.LexiconPath, cfg.Dialect())
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	return complete.NewEngine(h, lex, complete.Options{
		ContextAware:          cfg.Completion.ContextAware,
		DefaultIncludesTables: cfg.Completion.DefaultIncludesTables,
	})
}

// sessionOptions maps the completion settings onto the editor session.
func sessionOptions(cfg *config.Config) complete.SessionOptions {
	return complete.SessionOptions{
		Delay:         cfg.Completion.ActivationDelay.Std(),
		ActivateOnDot: cfg.Completion.ActivateOnDot,
		MaxItems:      cfg.Completion.MaxVisible,
	}
}

// cachedCatalog returns the schema snapshot saved for key, or nil.
func cachedCatalog(st *store.Store, key string, logger *slog.Logger) *catalog.Catalog {
	if st == nil || key == "" {
		return nil
	}
	snap, err := st.LoadSnapshot(key)
	if err != nil {
		logger.Warn("failed to read schema snapshot", "connection", key, "error", err)
		return nil
	}
	if snap == nil {
		return nil
	}
	logger.Debug("loaded schema snapshot", "connection", key, "tables", len(snap.Tables), "saved_at", snap.SavedAt)
	return catalog.Build(snap.Tables)
}

// loadCatalog fetches the live catalog for cfg and records it in st. When
// the database cannot be reached the last saved snapshot is used instead;
// the returned catalog is never nil, and err reports why the live fetch
// failed.
func loadCatalog(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*catalog.Catalog, error) {
	key := cfg.ConnectionKey()
	if key == "" {
		return catalog.Empty(), nil
	}

	cat, err := fetchLive(ctx, cfg, logger)
	if err == nil {
		if st != nil {
			if serr := st.SaveSnapshot(key, cat.Snapshot()); serr != nil {
				logger.Warn("failed to save schema snapshot", "connection", key, "error", serr)
			}
		}
		return cat, nil
	}

	if cached := cachedCatalog(st, key, logger); cached != nil {
		logger.Warn("database unavailable, using saved schema", "connection", key, "error", err)
		return cached, err
	}
	return catalog.Empty(), err
}

func fetchLive(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	src, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return catalog.Fetch(ctx, src, logger)
}

// previewQuery is the statement offered when a table is picked in the
// explorer. BigQuery names are qualified with the dataset and backquoted.
func previewQuery(cfg *config.Config, table string, limit int) string {
	name := table
	switch cfg.Connection.Driver {
	case "bigquery":
		name = "`" + cfg.Connection.Dataset + "." + table + "`"
	default:
		if needsQuoting(table) {
			name = `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
		}
	}
	return fmt.Sprintf("SELECT *\nFROM %s\nLIMIT %d", name, limit)
}

func needsQuoting(ident string) bool {
	if ident == "" {
		return true
	}
	for i, r := range ident {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return true
		}
	}
	return false
}
