package ui

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/anilkmeesala/db-sense-editor/catalog"
)

// Node ID format:
//   "t:<table>"
//   "c:<table>/<column>"

func TableNodeID(table string) string { return "t:" + table }
func ColumnNodeID(table, column string) string {
	return fmt.Sprintf("c:%s/%s", table, column)
}

// ParseNodeID splits a node ID into its kind ("t" or "c"), table and column.
// Table names may contain "/", so the column is taken after the last one.
func ParseNodeID(id string) (kind, table, column string) {
	if len(id) < 2 || id[1] != ':' {
		return "", "", ""
	}
	kind, rest := id[:1], id[2:]
	if kind == "c" {
		if i := strings.LastIndex(rest, "/"); i >= 0 {
			return kind, rest[:i], rest[i+1:]
		}
	}
	return kind, rest, ""
}

type explorerNode struct {
	id       string
	label    string
	detail   string
	depth    int // 0=table, 1=column
	isBranch bool
	expanded bool
}

// Explorer lists the tables of the installed catalog with their columns.
type Explorer struct {
	list        *widget.List
	searchEntry *widget.Entry
	status      *widget.Label

	mu       sync.Mutex
	cat      *catalog.Catalog
	expanded map[string]bool // upper table name
	filter   string
	visible  []explorerNode

	OnTableSelected  func(table string)
	OnColumnSelected func(table, column string)
	OnReload         func()

	Container fyne.CanvasObject
}

func NewExplorer() *Explorer {
	e := &Explorer{
		cat:      catalog.Empty(),
		expanded: make(map[string]bool),
		status:   widget.NewLabel("No schema loaded"),
	}

	e.searchEntry = widget.NewEntry()
	e.searchEntry.SetPlaceHolder("Filter tables & columns...")
	e.searchEntry.OnChanged = e.SetFilter

	e.list = widget.NewList(
		func() int {
			e.mu.Lock()
			defer e.mu.Unlock()
			return len(e.visible)
		},
		func() fyne.CanvasObject {
			spacer := widget.NewLabel("")
			icon := widget.NewIcon(theme.NavigateNextIcon())
			label := canvas.NewText("template", color.White)
			detail := canvas.NewText("", color.White)
			return container.NewBorder(nil, nil, container.NewHBox(spacer, icon), detail, label)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			e.mu.Lock()
			if id >= len(e.visible) {
				e.mu.Unlock()
				return
			}
			node := e.visible[id]
			e.mu.Unlock()

			c := obj.(*fyne.Container)
			label := c.Objects[0].(*canvas.Text)
			leftGroup := c.Objects[1].(*fyne.Container)
			detail := c.Objects[2].(*canvas.Text)
			spacer := leftGroup.Objects[0].(*widget.Label)
			icon := leftGroup.Objects[1].(*widget.Icon)

			spacer.SetText(strings.Repeat("    ", node.depth))
			label.Text = node.label
			label.Color = explorerNodeColor(node)
			label.TextSize = theme.Size(theme.SizeNameText)
			detail.Text = node.detail
			detail.Color = theme.Color(theme.ColorNamePlaceHolder)
			detail.TextSize = theme.Size(theme.SizeNameCaptionText)

			switch {
			case node.isBranch && node.expanded:
				icon.SetResource(theme.MoveDownIcon())
			case node.isBranch:
				icon.SetResource(theme.NavigateNextIcon())
			default:
				icon.SetResource(theme.DocumentIcon())
			}
			label.Refresh()
			detail.Refresh()
		},
	)

	e.list.OnSelected = func(id widget.ListItemID) {
		e.list.UnselectAll()
		e.selectIndex(id)
	}

	reloadBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		if e.OnReload != nil {
			e.OnReload()
		}
	})
	top := container.NewBorder(nil, nil, nil, reloadBtn, e.searchEntry)
	e.Container = container.NewBorder(top, e.status, nil, nil, e.list)
	return e
}

func (e *Explorer) selectIndex(id int) {
	e.mu.Lock()
	if id < 0 || id >= len(e.visible) {
		e.mu.Unlock()
		return
	}
	node := e.visible[id]
	e.mu.Unlock()

	kind, table, column := ParseNodeID(node.id)
	switch kind {
	case "t":
		e.toggle(table)
		if e.OnTableSelected != nil {
			e.OnTableSelected(table)
		}
	case "c":
		if e.OnColumnSelected != nil {
			e.OnColumnSelected(table, column)
		}
	}
}

// SetCatalog replaces the displayed schema and reports when it was built.
func (e *Explorer) SetCatalog(cat *catalog.Catalog) {
	if cat == nil {
		cat = catalog.Empty()
	}
	e.mu.Lock()
	e.cat = cat
	e.mu.Unlock()
	e.rebuildVisible()
	status := fmt.Sprintf("%d tables, loaded %s", cat.Len(), cat.BuiltAt().Format("15:04"))
	if cat.Len() == 0 {
		status = "No schema loaded"
	}
	fyne.Do(func() { e.status.SetText(status) })
}

// SetStatus shows a message under the tree, e.g. while a reload runs.
func (e *Explorer) SetStatus(text string) {
	fyne.Do(func() { e.status.SetText(text) })
}

func (e *Explorer) SetFilter(text string) {
	e.mu.Lock()
	e.filter = text
	e.mu.Unlock()
	e.rebuildVisible()
}

func (e *Explorer) toggle(table string) {
	key := strings.ToUpper(table)
	e.mu.Lock()
	e.expanded[key] = !e.expanded[key]
	e.mu.Unlock()
	e.rebuildVisible()
}

// rebuildVisible recomputes the flat node list. With a filter, a table is
// shown when its name or any of its columns contains the filter, and only
// the matching columns are listed under it.
func (e *Explorer) rebuildVisible() {
	e.mu.Lock()
	filter := strings.ToLower(e.filter)
	cat := e.cat
	var nodes []explorerNode
	for _, table := range cat.Tables() {
		tableMatch := filter == "" || strings.Contains(strings.ToLower(table), filter)
		var cols []explorerNode
		for _, col := range cat.ColumnsOf(table) {
			if filter != "" && !tableMatch && !strings.Contains(strings.ToLower(col.Name), filter) {
				continue
			}
			cols = append(cols, explorerNode{
				id:     ColumnNodeID(table, col.Name),
				label:  col.Name,
				detail: col.Type,
				depth:  1,
			})
		}
		if !tableMatch && len(cols) == 0 {
			continue
		}
		expanded := e.expanded[strings.ToUpper(table)] || (filter != "" && !tableMatch)
		nodes = append(nodes, explorerNode{
			id:       TableNodeID(table),
			label:    table,
			detail:   strings.ToLower(cat.Kind(table)),
			isBranch: true,
			expanded: expanded,
		})
		if expanded {
			nodes = append(nodes, cols...)
		}
	}
	e.visible = nodes
	e.mu.Unlock()

	fyne.Do(e.list.Refresh)
}

func explorerNodeColor(node explorerNode) color.Color {
	th := fyne.CurrentApp().Settings().Theme()
	v := fyne.CurrentApp().Settings().ThemeVariant()
	if node.depth == 0 {
		return themeColor(th, ColorNameTable, v)
	}
	return themeColor(th, ColorNameColumn, v)
}
