package complete

import (
	"regexp"
	"strings"
)

var (
	tableTokenPattern = `(?:` + quotedPattern + `|` + identPattern + `)(?:\.(?:` + quotedPattern + `|` + identPattern + `))*`

	fromJoinRe  = regexp.MustCompile(`\b(?:FROM|JOIN)\s+(` + tableTokenPattern + `)`)
	aliasRe     = regexp.MustCompile(`^\s+(?:AS\s+)?(` + identPattern + `)`)
	nextTableRe = regexp.MustCompile(`^\s*,\s*(` + tableTokenPattern + `)`)
	segmentRe   = regexp.MustCompile(quotedPattern + `|` + identPattern)
)

// reservedAliases are clause words that can follow a table reference and
// must not be taken as its alias.
var reservedAliases = map[string]bool{
	"AS": true, "ON": true, "USING": true, "WHERE": true, "JOIN": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "FULL": true, "OUTER": true,
	"CROSS": true, "NATURAL": true, "LATERAL": true, "GROUP": true, "ORDER": true,
	"HAVING": true, "LIMIT": true, "OFFSET": true, "FETCH": true, "UNION": true,
	"EXCEPT": true, "INTERSECT": true, "WINDOW": true, "QUALIFY": true,
	"SET": true, "VALUES": true, "RETURNING": true, "SELECT": true, "FROM": true,
	"WITH": true, "AND": true, "OR": true, "WHEN": true, "THEN": true, "END": true,
	"FOR": true, "TABLESAMPLE": true,
}

// Aliases maps an alias, or a bare table name used without one, to the table
// it names. Keys are upper-cased; values keep the spelling from the statement.
type Aliases map[string]string

// Lookup resolves name case-insensitively.
func (a Aliases) Lookup(name string) (string, bool) {
	t, ok := a[strings.ToUpper(name)]
	return t, ok
}

// Tables returns the distinct tables referenced by the statement, in no
// particular order.
func (a Aliases) Tables() []string {
	seen := make(map[string]bool, len(a))
	var out []string
	for _, t := range a {
		if k := strings.ToUpper(t); !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	return out
}

func (a Aliases) bind(table, alias string) {
	if alias != "" {
		a[strings.ToUpper(alias)] = table
		return
	}
	a[strings.ToUpper(table)] = table
	if seg := lastSegment(table); seg != table {
		a[strings.ToUpper(seg)] = table
	}
}

// ResolveAliases scans the whole statement for FROM and JOIN table references
// and records the alias bindings they introduce. A later binding of the same
// alias replaces an earlier one; clause scoping and subqueries are not modelled.
func ResolveAliases(statement string) Aliases {
	f := fold(statement)
	out := Aliases{}
	for _, m := range fromJoinRe.FindAllStringSubmatchIndex(f.upper, -1) {
		start, end := m[2], m[3]
		for {
			table := tableName(f.original(start, end))
			alias, next := aliasAt(f, end)
			if table != "" {
				out.bind(table, alias)
			}
			c := nextTableRe.FindStringSubmatchIndex(f.upper[next:])
			if c == nil {
				break
			}
			start, end = next+c[2], next+c[3]
		}
	}
	return out
}

// aliasAt reads an optional "[AS] alias" at upper[pos:]. It returns the alias
// in its original spelling and the offset just past what was consumed.
func aliasAt(f folded, pos int) (string, int) {
	m := aliasRe.FindStringSubmatchIndex(f.upper[pos:])
	if m == nil {
		return "", pos
	}
	word := f.upper[pos+m[2] : pos+m[3]]
	if reservedAliases[word] {
		return "", pos
	}
	return f.original(pos+m[2], pos+m[3]), pos + m[1]
}

// tableName strips identifier quoting from each segment of a table token.
func tableName(token string) string {
	segs := segmentRe.FindAllString(token, -1)
	for i, s := range segs {
		segs[i] = unquote(s)
	}
	return strings.Join(segs, ".")
}
