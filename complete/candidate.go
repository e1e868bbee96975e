package complete

import (
	"sort"
	"strings"
)

// Kind is the category of a completion candidate.
type Kind int

const (
	KindKeyword Kind = iota
	KindFunction
	KindTable
	KindColumn
)

func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindFunction:
		return "function"
	case KindTable:
		return "table"
	case KindColumn:
		return "column"
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Candidate is one completion offered to the editor.
type Candidate struct {
	Text   string `json:"text"`
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail,omitempty"` // column type, table kind, "keyword" or "function"
	Table  string `json:"table,omitempty"`  // owning table for columns
}

func (c Candidate) key() string {
	k := c.Kind.String() + "\x00" + strings.ToUpper(c.Text)
	if c.Kind == KindColumn {
		k += "\x00" + strings.ToUpper(c.Table)
	}
	return k
}

// dedup drops repeated candidates, keeping the first occurrence.
func dedup(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	out := cands[:0:0]
	for _, c := range cands {
		k := c.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// rank moves candidates whose text equals fragment (ignoring case) to the
// front. The relative order of everything else is kept.
func rank(cands []Candidate, fragment string) []Candidate {
	if fragment == "" {
		return cands
	}
	upper := strings.ToUpper(fragment)
	sort.SliceStable(cands, func(i, j int) bool {
		ei := strings.ToUpper(cands[i].Text) == upper
		ej := strings.ToUpper(cands[j].Text) == upper
		return ei && !ej
	})
	return cands
}

// Narrow keeps the candidates whose text contains fragment, ignoring case.
// It is the editor-side filter applied to Default results.
func Narrow(cands []Candidate, fragment string) []Candidate {
	if fragment == "" {
		return cands
	}
	upper := strings.ToUpper(fragment)
	var out []Candidate
	for _, c := range cands {
		if strings.Contains(strings.ToUpper(c.Text), upper) {
			out = append(out, c)
		}
	}
	return rank(out, fragment)
}

// narrowPrefix keeps the candidates whose text starts with fragment, ignoring
// case, in their original order.
func narrowPrefix(cands []Candidate, fragment string) []Candidate {
	upper := strings.ToUpper(fragment)
	var out []Candidate
	for _, c := range cands {
		if strings.HasPrefix(strings.ToUpper(c.Text), upper) {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the candidate texts in order.
func Texts(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Text
	}
	return out
}
