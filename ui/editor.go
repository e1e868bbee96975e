package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/anilkmeesala/db-sense-editor/complete"
)

type RunQueryFunc func(sql string)

// Editor is the tabbed query area. Every tab owns an SQLEditor with its own
// completion session; all tabs share one engine and so see the same catalog.
type Editor struct {
	tabs       *container.DocTabs
	connection *widget.Label
	runBtn     *widget.Button
	stopBtn    *widget.Button

	engine *complete.Engine
	opts   complete.SessionOptions
	logger *slog.Logger

	mu       sync.Mutex
	tabData  map[*container.TabItem]*SQLEditor
	tabCount int

	RunQuery RunQueryFunc
	OnStop   func()

	Container fyne.CanvasObject
}

func NewEditor(engine *complete.Engine, opts complete.SessionOptions, logger *slog.Logger) *Editor {
	e := &Editor{
		engine:     engine,
		opts:       opts,
		logger:     logger,
		tabData:    make(map[*container.TabItem]*SQLEditor),
		connection: widget.NewLabel("Not connected"),
	}

	e.runBtn = widget.NewButton("Run", e.run)
	e.stopBtn = widget.NewButton("Stop", func() {
		if e.OnStop != nil {
			e.OnStop()
		}
	})

	e.tabs = container.NewDocTabs()
	e.tabs.OnClosed = func(tab *container.TabItem) {
		e.mu.Lock()
		ed := e.tabData[tab]
		delete(e.tabData, tab)
		e.mu.Unlock()
		if ed != nil {
			ed.Session().Dismiss()
		}
	}
	e.tabs.CreateTab = e.newTab

	first := e.newTab()
	e.tabs.Append(first)
	e.tabs.Select(first)

	toolbar := container.NewHBox(e.runBtn, e.stopBtn, layout.NewSpacer(), e.connection)
	e.Container = container.NewBorder(toolbar, nil, nil, nil, e.tabs)
	return e
}

func (e *Editor) newTab() *container.TabItem {
	ed := NewSQLEditor(e.engine, e.opts, e.logger)
	ed.SetPlaceHolder("Enter SQL query... (Ctrl+Space to complete, Ctrl+Enter to run)")
	ed.OnSubmit = e.run

	e.mu.Lock()
	e.tabCount++
	tab := container.NewTabItem(fmt.Sprintf("Query %d", e.tabCount), ed)
	e.tabData[tab] = ed
	e.mu.Unlock()
	return tab
}

// Current returns the editor of the selected tab, or nil.
func (e *Editor) Current() *SQLEditor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tabData[e.tabs.Selected()]
}

// run submits the selection of the current tab, or its whole text.
func (e *Editor) run() {
	ed := e.Current()
	if ed == nil {
		return
	}
	sql := ed.SelectedText()
	if strings.TrimSpace(sql) == "" {
		sql = ed.Text
	}
	if strings.TrimSpace(sql) == "" {
		return
	}
	if e.RunQuery != nil {
		e.RunQuery(sql)
	}
}

func (e *Editor) SetConnectionName(name string) {
	fyne.Do(func() { e.connection.SetText(name) })
}

func (e *Editor) GetCurrentSQL() string {
	if ed := e.Current(); ed != nil {
		return ed.Text
	}
	return ""
}

func (e *Editor) SetSQL(sql string) {
	if ed := e.Current(); ed != nil {
		fyne.Do(func() { ed.SetText(sql) })
	}
}

// InsertAtCaret inserts text at the caret of the current tab.
func (e *Editor) InsertAtCaret(text string) {
	ed := e.Current()
	if ed == nil {
		return
	}
	fyne.Do(func() {
		ed.ReplaceFragment(0, text)
		ed.Session().Dismiss()
	})
}

func (e *Editor) SetRunning(running bool) {
	fyne.Do(func() {
		if running {
			e.runBtn.Disable()
		} else {
			e.runBtn.Enable()
		}
	})
}
