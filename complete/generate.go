package complete

import (
	"strings"
	"unicode/utf8"

	"github.com/anilkmeesala/db-sense-editor/catalog"
	"github.com/anilkmeesala/db-sense-editor/lexicon"
)

// minFilterLen is the shortest non-empty prefix that filters table and
// bare-column candidates. Shorter prefixes return the unfiltered set and
// leave narrowing to the editor. Alias-qualified columns filter at any length.
const minFilterLen = 2

// GenerateOptions tunes candidate generation.
type GenerateOptions struct {
	// DefaultIncludesTables adds every table name to Default results.
	DefaultIncludesTables bool
}

// Generate returns the candidates for ctx. Unknown aliases and tables yield
// an empty result.
func Generate(ctx Context, cat *catalog.Catalog, aliases Aliases, lex *lexicon.Lexicon, opts GenerateOptions) []Candidate {
	if cat == nil {
		cat = catalog.Empty()
	}
	var out []Candidate
	switch ctx.Kind {
	case ContextAliasColumn:
		table := resolveTable(ctx, cat, aliases)
		if table == "" {
			return nil
		}
		upper := strings.ToUpper(ctx.Prefix)
		for _, col := range cat.ColumnsOf(table) {
			if strings.HasPrefix(strings.ToUpper(col.Name), upper) {
				out = append(out, columnCandidate(table, col))
			}
		}

	case ContextTableRef:
		for _, t := range cat.Tables() {
			if thresholdMatch(t, ctx.Prefix) {
				out = append(out, Candidate{Text: t, Kind: KindTable, Detail: strings.ToLower(cat.Kind(t))})
			}
		}

	case ContextColumnRef:
		// Columns of tables the statement references come first.
		inScope := scopedTables(cat, aliases)
		var rest []Candidate
		for _, t := range cat.Tables() {
			for _, col := range cat.ColumnsOf(t) {
				if !thresholdMatch(col.Name, ctx.Prefix) {
					continue
				}
				if inScope[strings.ToUpper(t)] {
					out = append(out, columnCandidate(t, col))
				} else {
					rest = append(rest, columnCandidate(t, col))
				}
			}
		}
		out = append(out, rest...)

	default:
		return dedup(defaultCandidates(cat, lex, opts))
	}
	return rank(dedup(out), ctx.Prefix)
}

func defaultCandidates(cat *catalog.Catalog, lex *lexicon.Lexicon, opts GenerateOptions) []Candidate {
	var out []Candidate
	if lex != nil {
		for _, kw := range lex.Keywords {
			out = append(out, Candidate{Text: kw, Kind: KindKeyword, Detail: "keyword"})
		}
		for _, fn := range lex.Functions {
			out = append(out, Candidate{Text: fn, Kind: KindFunction, Detail: "function"})
		}
	}
	if opts.DefaultIncludesTables {
		for _, t := range cat.Tables() {
			out = append(out, Candidate{Text: t, Kind: KindTable, Detail: strings.ToLower(cat.Kind(t))})
		}
	}
	return out
}

func columnCandidate(table string, col catalog.Column) Candidate {
	return Candidate{Text: col.Name, Kind: KindColumn, Detail: col.Type, Table: table}
}

func thresholdMatch(name, prefix string) bool {
	if utf8.RuneCountInString(prefix) < minFilterLen {
		return true
	}
	return strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(prefix))
}

// resolveTable finds the catalog table an alias-qualified context refers to.
// An unbound qualifier that is itself a catalog table name refers to that table.
func resolveTable(ctx Context, cat *catalog.Catalog, aliases Aliases) string {
	table := ctx.Table
	if table == "" {
		table, _ = aliases.Lookup(ctx.Alias)
	}
	if table == "" {
		table = ctx.Alias
	}
	return canonicalTable(cat, table)
}

// canonicalTable returns the catalog spelling of table, trying the last
// segment of a qualified name when the full name is unknown.
func canonicalTable(cat *catalog.Catalog, table string) string {
	if table == "" {
		return ""
	}
	if name, ok := cat.Table(table); ok {
		return name
	}
	if seg := lastSegment(table); seg != table {
		if name, ok := cat.Table(seg); ok {
			return name
		}
	}
	return ""
}

func scopedTables(cat *catalog.Catalog, aliases Aliases) map[string]bool {
	out := make(map[string]bool)
	for _, t := range aliases.Tables() {
		if name := canonicalTable(cat, t); name != "" {
			out[strings.ToUpper(name)] = true
		}
	}
	return out
}
