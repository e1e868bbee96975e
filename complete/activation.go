package complete

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

var sqlLexer = lexers.Get("sql")

// ShouldActivate reports whether typing that left before at the caret should
// open the popup automatically: an identifier fragment is being typed, or
// with onDot the caret follows "identifier.". Nothing activates inside a
// string literal or comment.
func ShouldActivate(before string, onDot bool) bool {
	if TrailingFragment(before) == "" && !(onDot && afterQualifier(before)) {
		return false
	}
	return !InLiteralOrComment(before)
}

func afterQualifier(before string) bool {
	runes := []rune(before)
	n := len(runes)
	return n >= 2 && runes[n-1] == '.' && isIdentRune(runes[n-2])
}

// InLiteralOrComment reports whether the end of before lies inside a string
// literal, quoted identifier or comment.
func InLiteralOrComment(before string) bool {
	if sqlLexer == nil || before == "" {
		return false
	}
	// The trailing newline takes the type of whatever state the lexer is in
	// at the caret.
	it, err := sqlLexer.Tokenise(nil, before+"\n")
	if err != nil {
		return false
	}
	tokens := it.Tokens()
	if len(tokens) == 0 {
		return false
	}
	last := tokens[len(tokens)-1].Type
	return last.InCategory(chroma.LiteralString) || last.InCategory(chroma.Comment)
}
