package complete

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

type fakeHost struct {
	mu       sync.Mutex
	shown    [][]Candidate
	selected int
	hidden   int
	replaced []string
	fragLens []int
	showCh   chan struct{}

	// session, if set, receives the edit produced by ReplaceFragment.
	session *Session
	text    string
}

func newFakeHost() *fakeHost {
	return &fakeHost{showCh: make(chan struct{}, 16)}
}

func (h *fakeHost) ShowCompletions(items []Candidate, selected int) {
	h.mu.Lock()
	h.shown = append(h.shown, items)
	h.selected = selected
	h.mu.Unlock()
	h.showCh <- struct{}{}
}

func (h *fakeHost) HideCompletions() {
	h.mu.Lock()
	h.hidden++
	h.mu.Unlock()
}

func (h *fakeHost) ReplaceFragment(fragmentLen int, text string) {
	h.mu.Lock()
	h.replaced = append(h.replaced, text)
	h.fragLens = append(h.fragLens, fragmentLen)
	runes := []rune(h.text)
	h.text = string(runes[:len(runes)-fragmentLen]) + text
	newText, s := h.text, h.session
	h.mu.Unlock()
	if s != nil {
		s.TextChanged(newText, utf8.RuneCountInString(newText))
	}
}

func (h *fakeHost) lastShown() []Candidate {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.shown) == 0 {
		return nil
	}
	return h.shown[len(h.shown)-1]
}

func (h *fakeHost) showCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.shown)
}

func newTestSession(t *testing.T, opts SessionOptions) (*Session, *fakeHost) {
	t.Helper()
	e, _ := newTestEngine(t, Options{ContextAware: true})
	h := newFakeHost()
	s := NewSession(e, h, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.session = s
	return s, h
}

// typeText feeds text to the session as if typed at the end of the editor.
func typeText(s *Session, h *fakeHost, text string) {
	h.mu.Lock()
	h.text = text
	h.mu.Unlock()
	s.TextChanged(text, utf8.RuneCountInString(text))
}

func TestSession_ActivatesOnFragment(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})

	typeText(s, h, "SELECT * FROM ")
	if s.State() != Idle {
		t.Fatalf("expected Idle without a fragment, got %v", s.State())
	}

	typeText(s, h, "SELECT * FROM E")
	if s.State() != Suggesting {
		t.Fatalf("expected Suggesting, got %v", s.State())
	}
	if got := Texts(h.lastShown()); len(got) != 1 || got[0] != "Employees" {
		t.Errorf("expected the one-char prefix to narrow the list, got %v", got)
	}

	typeText(s, h, "SELECT * FROM Em")
	if got := Texts(h.lastShown()); len(got) != 1 || got[0] != "Employees" {
		t.Errorf("expected refined list, got %v", got)
	}
}

func TestSession_AcceptReplacesFragment(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})

	typeText(s, h, "SELECT * FROM Em")
	if !s.Accept() {
		t.Fatal("Accept returned false")
	}
	if s.State() != Idle {
		t.Errorf("expected Idle after accept, got %v", s.State())
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.replaced) != 1 || h.replaced[0] != "Employees" || h.fragLens[0] != 2 {
		t.Errorf("unexpected replacement %v / %v", h.replaced, h.fragLens)
	}
	if h.text != "SELECT * FROM Employees" {
		t.Errorf("unexpected editor text %q", h.text)
	}
}

func TestSession_OneCharPrefixAcceptsMatchingName(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})

	typeText(s, h, "SELECT * FROM D")
	if got := Texts(h.lastShown()); len(got) != 1 || got[0] != "Departments" {
		t.Fatalf("expected [Departments], got %v", got)
	}
	if !s.Accept() {
		t.Fatal("Accept returned false")
	}
	h.mu.Lock()
	text := h.text
	h.mu.Unlock()
	if text != "SELECT * FROM Departments" {
		t.Errorf("unexpected editor text %q", text)
	}

	typeText(s, h, "SELECT t")
	if got := Texts(h.lastShown()); len(got) != 1 || got[0] != "title" {
		t.Fatalf("expected [title], got %v", got)
	}
	s.Accept()
	h.mu.Lock()
	text = h.text
	h.mu.Unlock()
	if text != "SELECT title" {
		t.Errorf("unexpected editor text %q", text)
	}
}

func TestSession_AcceptAfterDotReplacesNothing(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{ActivateOnDot: true})

	typeText(s, h, "SELECT * FROM Employees e WHERE e.")
	if s.State() != Suggesting {
		t.Fatalf("expected popup after the dot, got %v", s.State())
	}
	s.MoveSelection(1)
	if !s.Accept() {
		t.Fatal("Accept returned false")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.replaced[0] != "name" || h.fragLens[0] != 0 {
		t.Errorf("unexpected replacement %v / %v", h.replaced, h.fragLens)
	}
}

func TestSession_NoDotActivationWhenDisabled(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})
	typeText(s, h, "SELECT * FROM Employees e WHERE e.")
	if s.State() != Idle {
		t.Errorf("expected Idle, got %v", s.State())
	}
}

func TestSession_CaretMoveClosesWhenPredicateFails(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})

	text := "SELECT * FROM Em"
	typeText(s, h, text)
	if s.State() != Suggesting {
		t.Fatalf("expected Suggesting, got %v", s.State())
	}

	s.CaretMoved(len("SELECT * FROM Em") - 1)
	if s.State() != Suggesting {
		t.Errorf("caret still inside a fragment should keep the popup, got %v", s.State())
	}

	s.CaretMoved(len("SELECT "))
	if s.State() != Idle {
		t.Errorf("expected Idle after moving to whitespace, got %v", s.State())
	}
}

func TestSession_ManualTriggerBypassesPredicate(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})

	typeText(s, h, "SELECT ")
	if s.State() != Idle {
		t.Fatalf("expected Idle, got %v", s.State())
	}
	s.Trigger()
	if s.State() != Suggesting {
		t.Fatalf("expected Suggesting after Trigger, got %v", s.State())
	}
	if len(h.lastShown()) == 0 {
		t.Error("expected keyword candidates on manual trigger")
	}
	if got := s.Context().Kind; got != ContextDefault {
		t.Errorf("expected Default context, got %v", got)
	}
}

func TestSession_Dismiss(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})

	typeText(s, h, "SELECT * FROM Em")
	s.Dismiss()
	if s.State() != Idle {
		t.Errorf("expected Idle, got %v", s.State())
	}
	if s.Accept() {
		t.Error("Accept after Dismiss should do nothing")
	}
	h.mu.Lock()
	hidden := h.hidden
	h.mu.Unlock()
	if hidden != 1 {
		t.Errorf("expected one hide, got %d", hidden)
	}
}

func TestSession_DelayedActivation(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{Delay: 20 * time.Millisecond})

	typeText(s, h, "SELECT * FROM E")
	typeText(s, h, "SELECT * FROM Em")
	if s.State() != Idle {
		t.Fatalf("popup must wait for the delay, got %v", s.State())
	}

	select {
	case <-h.showCh:
	case <-time.After(2 * time.Second):
		t.Fatal("popup never opened")
	}
	if s.State() != Suggesting {
		t.Errorf("expected Suggesting, got %v", s.State())
	}
	if got := Texts(h.lastShown()); len(got) != 1 || got[0] != "Employees" {
		t.Errorf("timer should use the latest text, got %v", got)
	}
	if n := h.showCount(); n != 1 {
		t.Errorf("expected one popup for the burst, got %d", n)
	}
}

func TestSession_DismissCancelsPendingActivation(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{Delay: 10 * time.Millisecond})

	typeText(s, h, "SELECT * FROM Em")
	s.Dismiss()
	time.Sleep(50 * time.Millisecond)
	if s.State() != Idle || h.showCount() != 0 {
		t.Errorf("pending popup was not cancelled: state %v, shows %d", s.State(), h.showCount())
	}
}

func TestSession_ExactMatchOnlyStaysClosed(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})
	typeText(s, h, "SELECT * FROM Employees")
	if s.State() != Idle {
		t.Errorf("a fully typed name should not reopen the popup, got %v", s.State())
	}
}

func TestSession_MaxItems(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{MaxItems: 1})
	typeText(s, h, "SELECT * FROM E")
	if got := h.lastShown(); len(got) != 1 {
		t.Errorf("expected the list capped at 1, got %d", len(got))
	}
}

func TestSession_MoveSelectionClamps(t *testing.T) {
	s, h := newTestSession(t, SessionOptions{})
	typeText(s, h, "SELECT * FROM E")

	s.MoveSelection(-1)
	if _, sel := s.Items(); sel != 0 {
		t.Errorf("expected selection clamped at 0, got %d", sel)
	}
	s.MoveSelection(5)
	if items, sel := s.Items(); sel != len(items)-1 {
		t.Errorf("expected selection clamped at %d, got %d", len(items)-1, sel)
	}
}
