package ui

import (
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/anilkmeesala/db-sense-editor/complete"
)

const (
	maxACDisplay = 8
	acWidth      = 320
)

// SQLEditor is a multi-line entry with a completion dropdown driven by a
// complete.Session. The dropdown is drawn with canvas primitives inside the
// widget so keyboard focus never leaves the editor.
type SQLEditor struct {
	widget.Entry

	OnSubmit func() // Ctrl/Cmd+Enter

	session *complete.Session

	mu       sync.Mutex
	lastText string
	items    []complete.Candidate
	selected int
	visible  bool
	anchorX  float32
	anchorY  float32

	// Dropdown canvas primitives, created in CreateRenderer.
	acBg      *canvas.Rectangle
	acSelBg   *canvas.Rectangle
	acTexts   [maxACDisplay]*canvas.Text
	acDetails [maxACDisplay]*canvas.Text
	acItemH   float32
	acFirst   int
}

var (
	_ complete.Host     = (*SQLEditor)(nil)
	_ fyne.Tabbable     = (*SQLEditor)(nil)
	_ fyne.Shortcutable = (*SQLEditor)(nil)
)

// NewSQLEditor creates an editor whose completions come from engine.
func NewSQLEditor(engine *complete.Engine, opts complete.SessionOptions, logger *slog.Logger) *SQLEditor {
	e := &SQLEditor{}
	e.MultiLine = true
	e.Wrapping = fyne.TextWrapOff
	e.TextStyle = fyne.TextStyle{Monospace: true}
	e.ExtendBaseWidget(e)

	e.session = complete.NewSession(engine, e, opts, logger)
	e.Entry.OnChanged = func(string) { e.syncSession() }
	e.Entry.OnCursorChanged = e.syncSession
	return e
}

// Session exposes the completion session, mainly for tests.
func (e *SQLEditor) Session() *complete.Session { return e.session }

// syncSession reports the entry's state to the session. Entry fires
// OnChanged and OnCursorChanged for one keystroke in no fixed order and may
// report the text before moving the cursor, so both funnel here. For an edit
// the caret is taken as the end of the changed region.
func (e *SQLEditor) syncSession() {
	text := e.Entry.Text

	e.mu.Lock()
	prev := e.lastText
	e.lastText = text
	e.mu.Unlock()

	if text != prev {
		e.session.TextChanged(text, editCaret(prev, text))
		return
	}
	e.session.CaretMoved(caretOffset(text, e.CursorRow, e.CursorColumn))
}

// editCaret returns the rune offset just past the region that differs
// between before and after.
func editCaret(before, after string) int {
	o, n := []rune(before), []rune(after)
	p := 0
	for p < len(o) && p < len(n) && o[p] == n[p] {
		p++
	}
	s := 0
	for s < len(o)-p && s < len(n)-p && o[len(o)-1-s] == n[len(n)-1-s] {
		s++
	}
	return len(n) - s
}

// Caret returns the caret position as a rune offset into Text.
func (e *SQLEditor) Caret() int {
	return caretOffset(e.Entry.Text, e.CursorRow, e.CursorColumn)
}

// SetCaret moves the caret to a rune offset into Text.
func (e *SQLEditor) SetCaret(offset int) {
	e.CursorRow, e.CursorColumn = rowCol(e.Entry.Text, offset)
	e.Refresh()
	e.syncSession()
}

func caretOffset(text string, row, col int) int {
	lines := strings.Split(text, "\n")
	off := 0
	for i := 0; i < row && i < len(lines); i++ {
		off += utf8.RuneCountInString(lines[i]) + 1
	}
	if row < len(lines) {
		col = min(col, utf8.RuneCountInString(lines[row]))
	}
	return off + max(col, 0)
}

func rowCol(text string, offset int) (int, int) {
	row, col := 0, 0
	for i, r := range []rune(text) {
		if i >= offset {
			break
		}
		if r == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return row, col
}

// Host

func (e *SQLEditor) ShowCompletions(items []complete.Candidate, selected int) {
	e.mu.Lock()
	e.items = items
	e.selected = selected
	e.visible = true
	e.mu.Unlock()
	fyne.Do(func() {
		e.placeDropdown()
		e.refreshAC()
	})
}

func (e *SQLEditor) HideCompletions() {
	e.mu.Lock()
	e.visible = false
	e.items = nil
	e.mu.Unlock()
	fyne.Do(e.refreshAC)
}

func (e *SQLEditor) ReplaceFragment(fragmentLen int, text string) {
	runes := []rune(e.Entry.Text)
	caret := min(e.Caret(), len(runes))
	start := max(caret-fragmentLen, 0)

	var b strings.Builder
	b.WriteString(string(runes[:start]))
	b.WriteString(text)
	b.WriteString(string(runes[caret:]))
	e.SetText(b.String())

	e.CursorRow, e.CursorColumn = rowCol(e.Entry.Text, start+utf8.RuneCountInString(text))
	e.Refresh()
	e.syncSession()
}

// Completions returns what the dropdown currently shows.
func (e *SQLEditor) Completions() (items []complete.Candidate, selected int, visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]complete.Candidate(nil), e.items...), e.selected, e.visible
}

// Input

func (e *SQLEditor) TypedKey(ev *fyne.KeyEvent) {
	e.mu.Lock()
	vis := e.visible
	e.mu.Unlock()
	if vis {
		switch ev.Name {
		case fyne.KeyUp:
			e.session.MoveSelection(-1)
			return
		case fyne.KeyDown:
			e.session.MoveSelection(1)
			return
		case fyne.KeyReturn, fyne.KeyEnter, fyne.KeyTab:
			if e.session.Accept() {
				return
			}
		case fyne.KeyEscape:
			e.session.Dismiss()
			return
		}
	}
	e.Entry.TypedKey(ev)
}

func (e *SQLEditor) TypedShortcut(s fyne.Shortcut) {
	if cs, ok := s.(*desktop.CustomShortcut); ok {
		cmdOrCtrl := cs.Modifier&(fyne.KeyModifierSuper|fyne.KeyModifierControl) != 0
		switch {
		case cs.KeyName == fyne.KeySpace && cmdOrCtrl:
			e.session.Trigger()
			return
		case (cs.KeyName == fyne.KeyReturn || cs.KeyName == fyne.KeyEnter) && cmdOrCtrl:
			e.session.Dismiss()
			if e.OnSubmit != nil {
				e.OnSubmit()
			}
			return
		}
	}
	e.Entry.TypedShortcut(s)
}

// AcceptsTab keeps Tab inside the editor so it can accept a completion.
func (e *SQLEditor) AcceptsTab() bool { return true }

func (e *SQLEditor) Tapped(ev *fyne.PointEvent) {
	if idx, ok := e.hitItem(ev.Position); ok {
		items, sel, _ := e.Completions()
		if idx < len(items) {
			e.session.MoveSelection(idx - sel)
			e.session.Accept()
			return
		}
	}
	e.session.Dismiss()
	e.Entry.Tapped(ev)
}

func (e *SQLEditor) FocusLost() {
	e.session.Dismiss()
	e.Entry.FocusLost()
}

func (e *SQLEditor) hitItem(pos fyne.Position) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.visible || e.acItemH == 0 {
		return 0, false
	}
	n := min(len(e.items), maxACDisplay)
	if pos.X < e.anchorX || pos.X > e.anchorX+acWidth ||
		pos.Y < e.anchorY || pos.Y > e.anchorY+float32(n)*e.acItemH {
		return 0, false
	}
	return e.acFirst + int((pos.Y-e.anchorY)/e.acItemH), true
}

// Rendering

// placeDropdown anchors the dropdown under the start of the fragment being
// completed.
func (e *SQLEditor) placeDropdown() {
	ctx := e.session.Context()
	charSize := fyne.MeasureText("M", theme.TextSize(), fyne.TextStyle{Monospace: true})
	pad := theme.InnerPadding()
	col := max(e.CursorColumn-utf8.RuneCountInString(ctx.Prefix), 0)

	e.mu.Lock()
	e.anchorX = pad + float32(col)*charSize.Width
	e.anchorY = pad + float32(e.CursorRow+1)*charSize.Height
	e.acItemH = charSize.Height + theme.Padding()
	e.mu.Unlock()
}

func (e *SQLEditor) refreshAC() {
	e.mu.Lock()
	visible := e.visible && len(e.items) > 0
	items := e.items
	selected := e.selected
	x, y, itemH := e.anchorX, e.anchorY, e.acItemH
	if selected < e.acFirst {
		e.acFirst = selected
	} else if selected >= e.acFirst+maxACDisplay {
		e.acFirst = selected - maxACDisplay + 1
	}
	e.acFirst = min(e.acFirst, max(len(items)-maxACDisplay, 0))
	first := e.acFirst
	bg, selBg := e.acBg, e.acSelBg
	texts, details := e.acTexts, e.acDetails
	e.mu.Unlock()

	if bg == nil {
		return
	}
	if !visible {
		bg.Hide()
		selBg.Hide()
		for i := range texts {
			texts[i].Hide()
			details[i].Hide()
		}
		return
	}

	th := e.Theme()
	v := fyne.CurrentApp().Settings().ThemeVariant()
	n := min(len(items)-first, maxACDisplay)

	bg.FillColor = th.Color(theme.ColorNameMenuBackground, v)
	bg.StrokeColor = th.Color(theme.ColorNameSeparator, v)
	bg.StrokeWidth = 1
	bg.Resize(fyne.NewSize(acWidth, float32(n)*itemH))
	bg.Move(fyne.NewPos(x, y))
	bg.Show()
	bg.Refresh()

	selBg.FillColor = th.Color(theme.ColorNameSelection, v)
	selBg.Resize(fyne.NewSize(acWidth, itemH))
	selBg.Move(fyne.NewPos(x, y+float32(selected-first)*itemH))
	selBg.Show()
	selBg.Refresh()

	dim := th.Color(theme.ColorNamePlaceHolder, v)
	pad := theme.Padding()
	for i := range maxACDisplay {
		if i >= n {
			texts[i].Hide()
			details[i].Hide()
			continue
		}
		c := items[first+i]
		rowY := y + float32(i)*itemH

		texts[i].Text = c.Text
		texts[i].Color = themeColor(th, kindColorName(c.Kind), v)
		texts[i].Move(fyne.NewPos(x+pad, rowY))
		texts[i].Show()
		texts[i].Refresh()

		details[i].Text = c.Detail
		details[i].Color = dim
		size := fyne.MeasureText(details[i].Text, details[i].TextSize, details[i].TextStyle)
		details[i].Move(fyne.NewPos(x+acWidth-pad-size.Width, rowY))
		details[i].Show()
		details[i].Refresh()
	}
}

type sqlEditorRenderer struct {
	fyne.WidgetRenderer
	editor *SQLEditor
}

func (e *SQLEditor) CreateRenderer() fyne.WidgetRenderer {
	inner := e.Entry.CreateRenderer()

	e.mu.Lock()
	e.acBg = canvas.NewRectangle(color.Transparent)
	e.acBg.Hide()
	e.acSelBg = canvas.NewRectangle(color.Transparent)
	e.acSelBg.Hide()
	for i := range maxACDisplay {
		t := canvas.NewText("", color.White)
		t.TextStyle = fyne.TextStyle{Monospace: true}
		t.TextSize = theme.TextSize()
		t.Hide()
		e.acTexts[i] = t

		d := canvas.NewText("", color.White)
		d.TextStyle = fyne.TextStyle{Italic: true}
		d.TextSize = theme.CaptionTextSize()
		d.Hide()
		e.acDetails[i] = d
	}
	e.mu.Unlock()

	return &sqlEditorRenderer{WidgetRenderer: inner, editor: e}
}

func (r *sqlEditorRenderer) Objects() []fyne.CanvasObject {
	e := r.editor
	objects := append([]fyne.CanvasObject(nil), r.WidgetRenderer.Objects()...)
	objects = append(objects, e.acBg, e.acSelBg)
	for i := range maxACDisplay {
		objects = append(objects, e.acTexts[i], e.acDetails[i])
	}
	return objects
}

func (r *sqlEditorRenderer) Refresh() {
	r.WidgetRenderer.Refresh()
	r.editor.refreshAC()
}

func (r *sqlEditorRenderer) Destroy() {
	r.editor.session.Dismiss()
	r.WidgetRenderer.Destroy()
}
