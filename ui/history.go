package ui

import (
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/anilkmeesala/db-sense-editor/store"
)

type History struct {
	list    *widget.List
	entries []store.HistoryEntry

	OnSelect  func(sql string)
	OnRefresh func()
	OnClear   func()

	Container fyne.CanvasObject
}

func NewHistory() *History {
	h := &History{}

	refreshBtn := widget.NewButton("Refresh", func() {
		if h.OnRefresh != nil {
			h.OnRefresh()
		}
	})
	clearBtn := widget.NewButton("Clear", func() {
		if h.OnClear != nil {
			h.OnClear()
		}
		h.SetEntries(nil)
	})
	toolbar := container.NewHBox(refreshBtn, clearBtn)

	h.list = widget.NewList(
		func() int { return len(h.entries) },
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(h.entries) {
				return
			}
			obj.(*widget.Label).SetText(historyLine(h.entries[id]))
		},
	)

	h.list.OnSelected = func(id widget.ListItemID) {
		if id < len(h.entries) && h.OnSelect != nil {
			h.OnSelect(h.entries[id].SQL)
		}
		h.list.UnselectAll()
	}

	h.Container = container.NewBorder(toolbar, nil, nil, nil, h.list)
	return h
}

func historyLine(e store.HistoryEntry) string {
	ts := e.Timestamp.Format("15:04:05")
	sql := strings.Join(strings.Fields(e.SQL), " ")
	if r := []rune(sql); len(r) > 80 {
		sql = string(r[:80]) + "..."
	}
	if e.Error != "" {
		return fmt.Sprintf("[%s] ERR: %s", ts, sql)
	}
	return fmt.Sprintf("[%s] %s (%d rows, %s)", ts, sql, e.RowCount, e.Duration.Round(time.Millisecond))
}

func (h *History) SetEntries(entries []store.HistoryEntry) {
	fyne.Do(func() {
		h.entries = entries
		h.list.Refresh()
	})
}
