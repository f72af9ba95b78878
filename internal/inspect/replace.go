package inspect

import (
	"strings"
	"unicode"

	"github.com/dshills/lynxcheck/internal/chunker"
	"github.com/dshills/lynxcheck/pkg/types"
)

var conjunctions = []string{"and", "or"}

// IsInsertable reports whether the replacement is a bare comma
func IsInsertable(s string) bool {
	return s == ","
}

// IsAppendable reports whether the replacement is added after the old
// value: it starts with whitespace or has no letters or digits
func IsAppendable(s string) bool {
	if s == "" {
		return false
	}
	first := []rune(s)[0]
	return unicode.IsSpace(first) || (!hasLetterOrDigit(s) && !IsInsertable(s))
}

// IsPrependable reports whether the replacement ends with whitespace
func IsPrependable(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	return unicode.IsSpace(r[len(r)-1])
}

// IsStandalone reports whether the replacement substitutes the old value
func IsStandalone(s string) bool {
	return s != "" && !IsAppendable(s) && !IsPrependable(s) && !IsInsertable(s)
}

// FullReplacement computes the text that replaces old when the suggestion
// repl is applied
func FullReplacement(old, repl string) string {
	switch {
	case IsStandalone(repl):
		return repl
	case IsPrependable(repl):
		return repl + old
	case IsInsertable(repl) && endsWithAny(old, conjunctions):
		return repl + " " + old
	default:
		return old + repl
	}
}

// ApplyReplacement rewrites the range r of text with the suggestion repl.
// A replacement starting with punctuation also swallows the whitespace
// before r.
func ApplyReplacement(text string, r types.Range, repl string) string {
	if r.Start < 0 || r.End > len(text) || r.Start > r.End {
		return text
	}
	full := FullReplacement(text[r.Start:r.End], repl)
	start := r.Start
	if full != "" {
		first := []rune(full)[0]
		if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
			start = chunker.FarthestSpaceLeft(text, r.Start)
		}
	}
	return text[:start] + full + text[r.End:]
}

// ReplacementLabel describes the edit a suggestion makes
func ReplacementLabel(repl string) string {
	switch {
	case IsAppendable(repl):
		return `Append "` + strings.TrimSpace(repl) + `"`
	case IsPrependable(repl):
		return `Prepend "` + strings.TrimSpace(repl) + `"`
	case IsInsertable(repl):
		return `Insert "` + strings.TrimSpace(repl) + `"`
	}
	return `Replace with "` + repl + `"`
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func endsWithAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
