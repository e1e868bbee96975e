// Package lexicon loads the static SQL reserved words and function signatures
// offered by the completion engine. The lists are configuration data so a
// dialect can be extended without touching the classifier.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultData []byte

// ErrInvalid reports a lexicon that cannot back a completion session.
var ErrInvalid = errors.New("invalid lexicon")

type wordLists struct {
	Keywords  []string `yaml:"keywords"`
	Functions []string `yaml:"functions"`
}

type document struct {
	Base     wordLists            `yaml:"base"`
	Dialects map[string]wordLists `yaml:"dialects"`
}

// Lexicon is the resolved word list for one dialect.
type Lexicon struct {
	Dialect   string
	Keywords  []string
	Functions []string
}

// Default returns the built-in lexicon for dialect ("" for the base lists only).
func Default(dialect string) (*Lexicon, error) {
	return Parse(defaultData, dialect)
}

// Load reads a lexicon file. An empty path selects the built-in lexicon.
func Load(path, dialect string) (*Lexicon, error) {
	if path == "" {
		return Default(dialect)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return Parse(data, dialect)
}

// Parse decodes YAML lexicon data and resolves it for dialect.
func Parse(data []byte, dialect string) (*Lexicon, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	lists := []wordLists{doc.Base}
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	if dialect != "" {
		extra, ok := doc.Dialects[dialect]
		if !ok {
			return nil, fmt.Errorf("%w: unknown dialect %q (have %s)", ErrInvalid, dialect, strings.Join(dialectNames(doc), ", "))
		}
		lists = append(lists, extra)
	}

	lex := &Lexicon{Dialect: dialect}
	seenKW := make(map[string]bool)
	seenFn := make(map[string]bool)
	for _, l := range lists {
		for _, kw := range l.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				return nil, fmt.Errorf("%w: blank keyword", ErrInvalid)
			}
			if key := strings.ToUpper(kw); !seenKW[key] {
				seenKW[key] = true
				lex.Keywords = append(lex.Keywords, kw)
			}
		}
		for _, fn := range l.Functions {
			fn = strings.TrimSpace(fn)
			if FunctionName(fn) == "" {
				return nil, fmt.Errorf("%w: blank function signature %q", ErrInvalid, fn)
			}
			if key := strings.ToUpper(fn); !seenFn[key] {
				seenFn[key] = true
				lex.Functions = append(lex.Functions, fn)
			}
		}
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}

// Validate checks the lexicon can back a completion session.
func (l *Lexicon) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: missing", ErrInvalid)
	}
	if len(l.Keywords) == 0 {
		return fmt.Errorf("%w: no keywords", ErrInvalid)
	}
	for _, kw := range l.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: blank keyword", ErrInvalid)
		}
	}
	for _, fn := range l.Functions {
		if FunctionName(fn) == "" {
			return fmt.Errorf("%w: blank function signature %q", ErrInvalid, fn)
		}
	}
	return nil
}

// FunctionName returns the name part of a signature: "COUNT(*)" -> "COUNT".
func FunctionName(signature string) string {
	if i := strings.IndexByte(signature, '('); i >= 0 {
		signature = signature[:i]
	}
	return strings.TrimSpace(signature)
}

// Dialects lists the dialect sections of the built-in lexicon.
func Dialects() []string {
	var doc document
	if err := yaml.Unmarshal(defaultData, &doc); err != nil {
		return nil
	}
	return dialectNames(doc)
}

func dialectNames(doc document) []string {
	names := make([]string, 0, len(doc.Dialects))
	for name := range doc.Dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
