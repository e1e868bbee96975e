package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/anilkmeesala/db-sense-editor/catalog"
	"github.com/anilkmeesala/db-sense-editor/complete"
	"github.com/anilkmeesala/db-sense-editor/config"
	"github.com/anilkmeesala/db-sense-editor/dbmeta"
	"github.com/anilkmeesala/db-sense-editor/store"
	"github.com/anilkmeesala/db-sense-editor/ui"
)

const historyLimit = 200

type App struct {
	window fyne.Window
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	holder *catalog.Holder
	engine *complete.Engine

	explorer *ui.Explorer
	editor   *ui.Editor
	results  *ui.Results
	schema   *ui.SchemaView
	history  *ui.History

	ctx context.Context

	mu        sync.Mutex
	source    dbmeta.Source
	loader    *catalog.Loader
	cancelRun context.CancelFunc
}

// runGUI opens the desktop editor and blocks until its window is closed.
func runGUI(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fyneApp := app.New()
	if v, err := st.GetSetting(settingThemeVariant); err == nil {
		appTheme.SetVariant(parseVariant(v))
	}
	fyneApp.Settings().SetTheme(appTheme)

	window := fyneApp.NewWindow("dbsense")
	window.Resize(fyne.NewSize(1280, 800))

	a, err := NewApp(ctx, window, cfg, st, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	window.SetContent(a.BuildUI())
	a.Connect()
	go a.refreshHistory()

	window.ShowAndRun()
	return nil
}

// NewApp builds the editor around cfg. Completion starts from the schema
// saved for this connection, if any, until Connect installs a live one.
func NewApp(ctx context.Context, window fyne.Window, cfg *config.Config, st *store.Store, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		window: window,
		cfg:    cfg,
		store:  st,
		logger: logger.With("component", "app"),
		ctx:    ctx,
	}

	a.holder = catalog.NewHolder(cachedCatalog(st, cfg.ConnectionKey(), logger))
	engine, err := newEngine(cfg, a.holder)
	if err != nil {
		return nil, err
	}
	a.engine = engine

	a.explorer = ui.NewExplorer()
	a.editor = ui.NewEditor(engine, sessionOptions(cfg), logger)
	a.results = ui.NewResults()
	a.schema = ui.NewSchemaView()
	a.history = ui.NewHistory()

	if cached := a.holder.Catalog(); cached.Len() > 0 {
		a.explorer.SetCatalog(cached)
		a.explorer.SetStatus(fmt.Sprintf("%d tables (saved)", cached.Len()))
	}

	a.wireCallbacks()
	return a, nil
}

func (a *App) wireCallbacks() {
	a.explorer.OnTableSelected = func(table string) {
		a.schema.ShowTable(a.holder.Catalog(), table)
		a.editor.SetSQL(previewQuery(a.cfg, table, previewRows))
	}
	a.explorer.OnColumnSelected = func(_, column string) {
		a.editor.InsertAtCaret(column)
	}
	a.explorer.OnReload = a.reloadSchema

	a.editor.RunQuery = func(sql string) {
		go a.runQuery(sql)
	}
	a.editor.OnStop = a.stopQuery

	a.history.OnSelect = func(sql string) {
		a.editor.SetSQL(sql)
	}
	a.history.OnRefresh = func() {
		go a.refreshHistory()
	}
	a.history.OnClear = func() {
		go func() {
			if err := a.store.ClearHistory(); err != nil {
				a.showError(err)
			}
		}()
	}
}

// Connect opens the configured database off the UI goroutine and starts
// the first schema load.
func (a *App) Connect() {
	if a.cfg.ConnectionKey() == "" {
		a.editor.SetConnectionName("Not connected")
		a.explorer.SetStatus("No connection configured")
		return
	}
	a.editor.SetConnectionName("Connecting...")
	go func() {
		src, err := openSource(a.ctx, a.cfg)
		if err != nil {
			a.logger.Warn("connection failed", "driver", a.cfg.Connection.Driver, "error", err)
			a.editor.SetConnectionName("Offline")
			a.explorer.SetStatus("Connection failed: " + firstLine(err.Error()))
			return
		}

		if a.ctx.Err() != nil {
			src.Close()
			return
		}

		loader := catalog.NewLoader(src, a.holder, a.logger)
		loader.OnInstall = a.explorer.SetCatalog
		key := a.cfg.ConnectionKey()
		loader.Fallback = func() *catalog.Catalog {
			return cachedCatalog(a.store, key, a.logger)
		}

		a.mu.Lock()
		a.source = src
		a.loader = loader
		a.mu.Unlock()

		a.editor.SetConnectionName(src.Name())
		a.reloadSchema()
	}()
}

// reloadSchema rebuilds the catalog in the background. Completion keeps
// using the current snapshot until the new one is installed.
func (a *App) reloadSchema() {
	a.mu.Lock()
	loader := a.loader
	a.mu.Unlock()
	if loader == nil {
		a.explorer.SetStatus("Not connected")
		return
	}

	a.explorer.SetStatus("Loading schema...")
	key := a.cfg.ConnectionKey()
	loader.ReloadAsync(a.ctx, func(cat *catalog.Catalog, err error) {
		switch {
		case errors.Is(err, catalog.ErrSuperseded):
			return
		case err != nil && cat.Len() > 0:
			a.explorer.SetStatus(fmt.Sprintf("%d tables (saved)", cat.Len()))
			return
		case err != nil:
			a.explorer.SetStatus("Schema unavailable: " + firstLine(err.Error()))
			return
		}
		if err := a.store.SaveSnapshot(key, cat.Snapshot()); err != nil {
			a.logger.Warn("failed to save schema snapshot", "error", err)
		}
	})
}

func (a *App) runQuery(sqlText string) {
	a.mu.Lock()
	src := a.source
	if a.cancelRun != nil {
		a.cancelRun()
	}
	ctx, cancel := context.WithTimeout(a.ctx, a.cfg.Connection.QueryTimeout.Std())
	a.cancelRun = cancel
	a.mu.Unlock()
	defer cancel()

	if src == nil {
		a.results.SetStatus("Not connected")
		return
	}

	a.editor.SetRunning(true)
	defer a.editor.SetRunning(false)
	a.results.SetStatus("Running query...")

	start := time.Now()
	res, err := src.RunQuery(ctx, sqlText)
	dur := time.Since(start)

	if err != nil {
		a.logger.Info("query failed", "duration", dur, "error", err)
		a.results.SetStatus(fmt.Sprintf("Error: %v", err))
		a.addHistory(sqlText, dur, 0, err.Error())
		return
	}

	a.logger.Debug("query finished", "rows", res.RowCount, "duration", dur)
	a.results.Show(res)
	a.addHistory(sqlText, dur, res.RowCount, "")
	if changesSchema(sqlText) {
		a.reloadSchema()
	}
}

func (a *App) stopQuery() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelRun != nil {
		a.cancelRun()
	}
}

func (a *App) addHistory(sqlText string, dur time.Duration, rows int64, queryErr string) {
	if err := a.store.AddHistory(sqlText, a.cfg.ConnectionKey(), dur, rows, queryErr); err != nil {
		a.logger.Warn("failed to record history", "error", err)
	}
	a.refreshHistory()
}

func (a *App) refreshHistory() {
	entries, err := a.store.ListHistory(a.cfg.ConnectionKey(), historyLimit)
	if err != nil {
		a.logger.Warn("failed to list history", "error", err)
		return
	}
	a.history.SetEntries(entries)
}

// changesSchema reports whether a statement may add, drop or alter tables.
func changesSchema(sqlText string) bool {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(strings.TrimLeft(fields[0], "(")) {
	case "CREATE", "DROP", "ALTER":
		return true
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (a *App) toggleTheme() {
	next := theme.VariantDark
	if appTheme.Variant() == theme.VariantDark {
		next = theme.VariantLight
	}
	appTheme.SetVariant(next)
	if err := a.store.SetSetting(settingThemeVariant, variantName(next)); err != nil {
		a.logger.Warn("failed to save theme", "error", err)
	}
	fyne.CurrentApp().Settings().SetTheme(appTheme)
}

func (a *App) BuildUI() fyne.CanvasObject {
	bottomTabs := container.NewAppTabs(
		container.NewTabItem("Results", a.results.Container),
		container.NewTabItem("Schema", a.schema.Container),
		container.NewTabItem("History", a.history.Container),
	)

	rightSplit := container.NewVSplit(a.editor.Container, bottomTabs)
	rightSplit.Offset = 0.45

	mainSplit := container.NewHSplit(a.explorer.Container, rightSplit)
	mainSplit.Offset = 0.22

	toolbar := container.NewHBox(
		widget.NewButtonWithIcon("Reload schema", theme.ViewRefreshIcon(), a.reloadSchema),
		layout.NewSpacer(),
		widget.NewButtonWithIcon("", theme.Icon(theme.IconNameColorPalette), a.toggleTheme),
	)

	a.window.Canvas().AddShortcut(
		&desktop.CustomShortcut{KeyName: fyne.KeyR, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift},
		func(fyne.Shortcut) { a.reloadSchema() },
	)

	return container.NewBorder(toolbar, nil, nil, nil, mainSplit)
}

func (a *App) showError(err error) {
	fyne.Do(func() {
		dialog.ShowError(err, a.window)
	})
}

func (a *App) Close() {
	a.stopQuery()
	a.mu.Lock()
	src := a.source
	a.source = nil
	a.mu.Unlock()
	if src != nil {
		if err := src.Close(); err != nil {
			a.logger.Warn("failed to close connection", "error", err)
		}
	}
}
