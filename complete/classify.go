package complete

import (
	"regexp"
)

// ContextKind is the kind of token being typed at the caret.
type ContextKind int

const (
	ContextDefault ContextKind = iota
	ContextAliasColumn
	ContextTableRef
	ContextColumnRef
)

func (k ContextKind) String() string {
	switch k {
	case ContextAliasColumn:
		return "AliasColumn"
	case ContextTableRef:
		return "TableRef"
	case ContextColumnRef:
		return "ColumnRef"
	}
	return "Default"
}

func (k ContextKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Context describes the caret position.
//
// Prefix is the partial identifier being typed, in the user's spelling. For
// AliasColumn it is the text after the dot. For Default it is only used by
// the editor-side Narrow filter.
type Context struct {
	Kind   ContextKind `json:"kind"`
	Alias  string      `json:"alias,omitempty"`
	Table  string      `json:"table,omitempty"` // table the alias is bound to, if any
	Prefix string      `json:"prefix"`
}

var (
	aliasColumnRe = regexp.MustCompile(`(` + identPattern + `)\.(` + identPattern + `)?$`)
	tableRefRe    = regexp.MustCompile(`\b(?:FROM|JOIN)\s+(` + identPattern + `)?$`)
	columnRefRe   = regexp.MustCompile(
		`(?:\b(?:SELECT|WHERE|AND|OR|ON)\b|[=<>!+\-])\s*` +
			`((?:(?:` + qualifiedPattern + `|\*)\s*,\s*)*(?:` + qualifiedPattern + `)?)$`)
)

// Classify reports what is being typed at caret, a rune offset into
// statement. Only the text left of the caret is inspected; the checks run in
// a fixed order and the first one that matches wins. Classify never fails: any
// input yields exactly one of the four kinds.
func Classify(statement string, caret int, aliases Aliases) Context {
	before := beforeCaret(statement, caret)
	f := fold(before)

	if m := aliasColumnRe.FindStringSubmatchIndex(f.upper); m != nil {
		alias := f.original(m[2], m[3])
		table, _ := aliases.Lookup(alias)
		return Context{
			Kind:   ContextAliasColumn,
			Alias:  alias,
			Table:  table,
			Prefix: f.original(m[4], m[5]),
		}
	}

	// FROM and JOIN count only once followed by whitespace; a keyword still
	// being typed stays Default.
	if m := tableRefRe.FindStringSubmatchIndex(f.upper); m != nil {
		return Context{Kind: ContextTableRef, Prefix: f.original(m[2], m[3])}
	}

	// An anchor with nothing typed after it ("SELECT ", "WHERE ", "= ") is
	// left to Default.
	if m := columnRefRe.FindStringSubmatchIndex(f.upper); m != nil && m[3] > m[2] {
		return Context{Kind: ContextColumnRef, Prefix: TrailingFragment(before)}
	}

	return Context{Kind: ContextDefault, Prefix: TrailingFragment(before)}
}
