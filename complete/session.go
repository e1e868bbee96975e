package complete

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// State is the popup state of a Session.
type State int

const (
	Idle State = iota
	Suggesting
)

func (s State) String() string {
	if s == Suggesting {
		return "Suggesting"
	}
	return "Idle"
}

// Host is the editor a Session drives. Calls are made without the session
// lock held, possibly from a timer goroutine.
type Host interface {
	ShowCompletions(items []Candidate, selected int)
	HideCompletions()
	// ReplaceFragment replaces the fragmentLen runes left of the caret with text.
	ReplaceFragment(fragmentLen int, text string)
}

// SessionOptions tunes when the popup opens.
type SessionOptions struct {
	// Delay is applied before the first automatic popup of a typing burst.
	// Zero or less shows it synchronously.
	Delay         time.Duration
	ActivateOnDot bool
	// MaxItems caps the number of candidates handed to the host (0 = no cap).
	MaxItems int
}

// Session connects an Engine to an editor. It is Idle until typing satisfies
// the activation predicate (or Trigger is called) and Suggesting until the
// user accepts, dismisses, or moves the caret somewhere the predicate fails.
type Session struct {
	engine *Engine
	host   Host
	opts   SessionOptions
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	text     string
	caret    int
	result   Result
	items    []Candidate
	selected int
	manual   bool
	burst    uint64 // bumped to invalidate a pending timer
	timer    *time.Timer
	accepted bool // swallow the edit caused by our own ReplaceFragment
}

func NewSession(engine *Engine, host Host, opts SessionOptions, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		engine: engine,
		host:   host,
		opts:   opts,
		logger: logger.With("component", "completion"),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Items returns the candidates currently offered and the selected index.
func (s *Session) Items() ([]Candidate, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Candidate(nil), s.items...), s.selected
}

// Context returns the classification behind the current items.
func (s *Session) Context() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Context
}

// TextChanged reports an edit. caret is the rune offset after the edit.
func (s *Session) TextChanged(text string, caret int) {
	s.mu.Lock()
	s.text, s.caret = text, caret
	if s.accepted {
		s.accepted = false
		s.mu.Unlock()
		return
	}

	if s.state == Suggesting {
		s.updateLocked()
		return
	}

	if !ShouldActivate(beforeCaret(text, caret), s.opts.ActivateOnDot) {
		s.mu.Unlock()
		return
	}
	if s.opts.Delay <= 0 {
		s.openLocked(false)
		return
	}
	if s.timer == nil {
		burst := s.burst
		s.timer = time.AfterFunc(s.opts.Delay, func() { s.fire(burst) })
	}
	s.mu.Unlock()
}

// CaretMoved reports a caret move without an edit.
func (s *Session) CaretMoved(caret int) {
	s.mu.Lock()
	if s.caret == caret {
		s.mu.Unlock()
		return
	}
	s.caret = caret
	if s.state != Suggesting {
		s.mu.Unlock()
		return
	}
	s.updateLocked()
}

// Trigger opens the popup at the caret regardless of the activation predicate.
func (s *Session) Trigger() {
	s.mu.Lock()
	s.cancelTimerLocked()
	s.openLocked(true)
}

// MoveSelection moves the highlighted item by delta, clamped to the list.
func (s *Session) MoveSelection(delta int) {
	s.mu.Lock()
	if s.state != Suggesting || len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	s.selected = max(0, min(len(s.items)-1, s.selected+delta))
	items, sel := s.items, s.selected
	s.mu.Unlock()
	s.host.ShowCompletions(items, sel)
}

// Accept inserts the selected candidate in place of the typed fragment. It
// reports whether anything was inserted.
func (s *Session) Accept() bool {
	s.mu.Lock()
	if s.state != Suggesting || len(s.items) == 0 {
		s.mu.Unlock()
		return false
	}
	c := s.items[s.selected]
	fragLen := utf8.RuneCountInString(s.result.Context.Prefix)
	s.closeLocked()
	s.accepted = true
	s.mu.Unlock()

	s.logger.Debug("completion accepted", "text", c.Text, "kind", c.Kind.String())
	s.host.HideCompletions()
	s.host.ReplaceFragment(fragLen, c.Text)
	return true
}

// Dismiss closes the popup and cancels a pending activation.
func (s *Session) Dismiss() {
	s.mu.Lock()
	s.cancelTimerLocked()
	wasOpen := s.state == Suggesting
	s.closeLocked()
	s.mu.Unlock()
	if wasOpen {
		s.host.HideCompletions()
	}
}

func (s *Session) fire(burst uint64) {
	s.mu.Lock()
	if burst != s.burst || s.state != Idle {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if !ShouldActivate(beforeCaret(s.text, s.caret), s.opts.ActivateOnDot) {
		s.mu.Unlock()
		return
	}
	s.openLocked(false)
}

// openLocked computes candidates and shows them. It releases s.mu.
func (s *Session) openLocked(manual bool) {
	s.timer = nil
	s.burst++
	s.manual = manual
	s.computeLocked()
	if len(s.items) == 0 && !manual {
		s.closeLocked()
		s.mu.Unlock()
		return
	}
	s.state = Suggesting
	items, sel := s.items, s.selected
	kind := s.result.Context.Kind
	s.mu.Unlock()

	s.logger.Debug("completion opened", "context", kind.String(), "items", len(items), "manual", manual)
	s.host.ShowCompletions(items, sel)
}

// updateLocked refreshes an open popup after an edit or caret move and closes
// it when the caret no longer qualifies. It releases s.mu.
func (s *Session) updateLocked() {
	if !ShouldActivate(beforeCaret(s.text, s.caret), s.opts.ActivateOnDot) {
		s.closeLocked()
		s.mu.Unlock()
		s.host.HideCompletions()
		return
	}
	s.manual = false
	s.computeLocked()
	if len(s.items) == 0 {
		s.closeLocked()
		s.mu.Unlock()
		s.host.HideCompletions()
		return
	}
	items, sel := s.items, s.selected
	s.mu.Unlock()
	s.host.ShowCompletions(items, sel)
}

func (s *Session) computeLocked() {
	s.result = s.engine.Complete(s.text, s.caret)
	items := s.result.Visible()
	if !s.manual && onlyExact(items, s.result.Context.Prefix) {
		items = nil
	}
	if s.opts.MaxItems > 0 && len(items) > s.opts.MaxItems {
		items = items[:s.opts.MaxItems]
	}
	s.items = items
	s.selected = 0
}

func (s *Session) closeLocked() {
	s.state = Idle
	s.items = nil
	s.selected = 0
	s.manual = false
	s.burst++
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.burst++
}

// onlyExact reports whether every item is exactly what was already typed.
func onlyExact(items []Candidate, fragment string) bool {
	if len(items) == 0 || fragment == "" {
		return false
	}
	for _, c := range items {
		if !strings.EqualFold(c.Text, fragment) {
			return false
		}
	}
	return true
}
