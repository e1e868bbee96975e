// Package complete implements context-aware SQL completion: alias
// resolution, caret classification and candidate generation over a schema
// catalog, plus the session that drives an editor popup.
package complete

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anilkmeesala/db-sense-editor/catalog"
	"github.com/anilkmeesala/db-sense-editor/lexicon"
)

// CatalogSource returns the catalog snapshot to complete against.
// *catalog.Holder satisfies it.
type CatalogSource interface {
	Catalog() *catalog.Catalog
}

// Options selects the completion pipeline.
type Options struct {
	// ContextAware enables classification. When false the engine matches the
	// fragment at the caret as a substring against every keyword, function,
	// table and column.
	ContextAware bool

	DefaultIncludesTables bool
}

// Result is the outcome of one completion request.
type Result struct {
	Context    Context     `json:"context"`
	Candidates []Candidate `json:"candidates"`
}

// Visible applies the editor-side narrowing: Default results are filtered by
// substring, and table or column results for a prefix shorter than
// minFilterLen (which Generate leaves unfiltered) by prefix.
func (r Result) Visible() []Candidate {
	switch r.Context.Kind {
	case ContextDefault:
		return Narrow(r.Candidates, r.Context.Prefix)
	case ContextTableRef, ContextColumnRef:
		if n := utf8.RuneCountInString(r.Context.Prefix); n > 0 && n < minFilterLen {
			return narrowPrefix(r.Candidates, r.Context.Prefix)
		}
	}
	return r.Candidates
}

// Engine composes the resolver, classifier and generator over a catalog source.
type Engine struct {
	source CatalogSource
	lex    *lexicon.Lexicon
	opts   Options
}

// NewEngine fails when the lexicon is missing or invalid.
func NewEngine(source CatalogSource, lex *lexicon.Lexicon, opts Options) (*Engine, error) {
	if source == nil {
		return nil, errors.New("new engine: nil catalog source")
	}
	if err := lex.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	return &Engine{source: source, lex: lex, opts: opts}, nil
}

// Complete classifies the caret position in statement and returns the
// candidates for it. caret is a rune offset.
func (e *Engine) Complete(statement string, caret int) Result {
	cat := e.source.Catalog()
	if !e.opts.ContextAware {
		frag := TrailingFragment(beforeCaret(statement, caret))
		return Result{
			Context:    Context{Kind: ContextDefault, Prefix: frag},
			Candidates: substringCandidates(cat, e.lex, frag),
		}
	}

	aliases := ResolveAliases(statement)
	ctx := Classify(statement, caret, aliases)
	cands := Generate(ctx, cat, aliases, e.lex, GenerateOptions{DefaultIncludesTables: e.opts.DefaultIncludesTables})
	return Result{Context: ctx, Candidates: cands}
}

func substringCandidates(cat *catalog.Catalog, lex *lexicon.Lexicon, frag string) []Candidate {
	all := defaultCandidates(cat, lex, GenerateOptions{DefaultIncludesTables: true})
	for _, t := range cat.Tables() {
		for _, col := range cat.ColumnsOf(t) {
			all = append(all, columnCandidate(t, col))
		}
	}
	upper := strings.ToUpper(frag)
	var out []Candidate
	for _, c := range dedup(all) {
		if strings.Contains(strings.ToUpper(c.Text), upper) {
			out = append(out, c)
		}
	}
	return rank(out, frag)
}
