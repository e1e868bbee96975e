package complete

import (
	"sort"
	"strings"
	"unicode"
)

// Identifier patterns are matched against upper-cased text.
const (
	identPattern     = `[\p{L}_][\p{L}\p{N}_$]*`
	quotedPattern    = "`[^`]+`" + `|"[^"]+"|\[[^\]]+\]`
	qualifiedPattern = identPattern + `(?:\.` + identPattern + `)*`
)

// folded is an upper-cased copy of a string that can map regex byte offsets
// back to the caller's original spelling.
type folded struct {
	orig   []rune
	upper  string
	starts []int // byte offset in upper of each rune, plus len(upper)
}

func fold(s string) folded {
	orig := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	starts := make([]int, 0, len(orig)+1)
	for _, r := range orig {
		starts = append(starts, b.Len())
		b.WriteRune(unicode.ToUpper(r))
	}
	starts = append(starts, b.Len())
	return folded{orig: orig, upper: b.String(), starts: starts}
}

func (f folded) runeIndex(off int) int {
	return sort.SearchInts(f.starts, off)
}

// original returns the original text behind upper[i:j].
func (f folded) original(i, j int) string {
	if i < 0 || j < i {
		return ""
	}
	return string(f.orig[f.runeIndex(i):f.runeIndex(j)])
}

// beforeCaret returns the text left of caret. caret counts runes and is
// clamped to the text.
func beforeCaret(text string, caret int) string {
	if caret <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == caret {
			return text[:i]
		}
		n++
	}
	return text
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// TrailingFragment returns the identifier being typed at the end of before.
// A run that starts with a digit or '$' is not an identifier.
func TrailingFragment(before string) string {
	runes := []rune(before)
	start := len(runes)
	for start > 0 && isIdentRune(runes[start-1]) {
		start--
	}
	frag := runes[start:]
	if len(frag) == 0 || unicode.IsDigit(frag[0]) || frag[0] == '$' {
		return ""
	}
	return string(frag)
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch {
		case s[0] == '`' && s[len(s)-1] == '`',
			s[0] == '"' && s[len(s)-1] == '"',
			s[0] == '[' && s[len(s)-1] == ']':
			return s[1 : len(s)-1]
		}
	}
	return s
}

// lastSegment returns the part after the final dot of a qualified name.
func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
