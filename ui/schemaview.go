package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/anilkmeesala/db-sense-editor/catalog"
)

// SchemaView shows the columns of one table.
type SchemaView struct {
	table    *widget.Table
	titleBar *widget.Label
	columns  []catalog.Column

	Container fyne.CanvasObject
}

var schemaHeaders = []string{"Name", "Type"}

func NewSchemaView() *SchemaView {
	s := &SchemaView{
		titleBar: widget.NewLabel("Select a table to view schema"),
	}

	s.table = widget.NewTableWithHeaders(
		func() (int, int) {
			return len(s.columns), len(schemaHeaders)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			if id.Row >= len(s.columns) {
				return
			}
			if id.Col == 0 {
				label.SetText(s.columns[id.Row].Name)
			} else {
				label.SetText(s.columns[id.Row].Type)
			}
		},
	)

	s.table.UpdateHeader = func(id widget.TableCellID, template fyne.CanvasObject) {
		label := template.(*widget.Label)
		if id.Row < 0 && id.Col >= 0 && id.Col < len(schemaHeaders) {
			label.SetText(schemaHeaders[id.Col])
		} else if id.Col < 0 && id.Row >= 0 {
			label.SetText(fmt.Sprintf("%d", id.Row+1))
		}
	}

	s.table.SetColumnWidth(0, 220)
	s.table.SetColumnWidth(1, 160)

	s.Container = container.NewBorder(s.titleBar, nil, nil, nil, s.table)
	return s
}

// ShowTable displays the columns cat holds for table.
func (s *SchemaView) ShowTable(cat *catalog.Catalog, table string) {
	title := table
	if kind := cat.Kind(table); kind != "" {
		title = fmt.Sprintf("%s (%s)", table, kind)
	}
	s.titleBar.SetText(title)
	s.columns = cat.ColumnsOf(table)
	s.table.Refresh()
}

func (s *SchemaView) Clear() {
	s.titleBar.SetText("Select a table to view schema")
	s.columns = nil
	s.table.Refresh()
}
