package ui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/anilkmeesala/db-sense-editor/dbmeta"
)

type Results struct {
	table     *widget.Table
	statusBar *widget.Label

	columns []string
	rows    [][]string

	Container fyne.CanvasObject
}

func NewResults() *Results {
	r := &Results{
		statusBar: widget.NewLabel("Ready"),
	}

	r.table = widget.NewTableWithHeaders(
		func() (int, int) {
			if len(r.columns) == 0 {
				return 0, 0
			}
			return len(r.rows), len(r.columns)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			if id.Row < len(r.rows) && id.Col < len(r.rows[id.Row]) {
				label.SetText(r.rows[id.Row][id.Col])
			}
		},
	)

	r.table.UpdateHeader = func(id widget.TableCellID, template fyne.CanvasObject) {
		label := template.(*widget.Label)
		if id.Row < 0 && id.Col >= 0 && id.Col < len(r.columns) {
			label.SetText(r.columns[id.Col])
		} else if id.Col < 0 && id.Row >= 0 {
			label.SetText(fmt.Sprintf("%d", id.Row+1))
		}
	}

	r.Container = container.NewBorder(nil, r.statusBar, nil, nil, r.table)
	return r
}

// Show displays a query result and its summary.
func (r *Results) Show(res *dbmeta.QueryResult) {
	r.SetData(res.Columns, res.Rows)
	r.SetStatus(Summary(res))
}

// Summary renders the status line for a result, e.g. "3 rows in 12ms".
func Summary(res *dbmeta.QueryResult) string {
	s := fmt.Sprintf("%d rows in %s", res.RowCount, res.Duration.Round(time.Millisecond))
	if res.RowCount == 1 {
		s = fmt.Sprintf("1 row in %s", res.Duration.Round(time.Millisecond))
	}
	if res.BytesProcessed > 0 {
		s += fmt.Sprintf(", %s processed", formatBytes(res.BytesProcessed))
	}
	if res.Truncated {
		s += " (truncated)"
	}
	return s
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (r *Results) SetData(columns []string, rows [][]string) {
	r.columns = columns
	r.rows = rows
	fyne.Do(func() {
		for i := range columns {
			r.table.SetColumnWidth(i, 150)
		}
		r.table.Refresh()
	})
}

func (r *Results) SetStatus(text string) {
	fyne.Do(func() {
		r.statusBar.SetText(text)
	})
}

func (r *Results) Clear() {
	r.columns = nil
	r.rows = nil
	fyne.Do(func() {
		r.table.Refresh()
		r.statusBar.SetText("Ready")
	})
}
