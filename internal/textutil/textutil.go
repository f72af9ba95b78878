// Package textutil holds small string helpers shared by the engine, the
// dispatcher and the inspectors.
package textutil

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var extraSpace = regexp.MustCompile(`\s{2,}`)

// Abbreviate shortens s to at most width runes, replacing the tail with "...".
// Widths below 4 leave s unchanged.
func Abbreviate(s string, width int) string {
	if width < 4 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

// CollapseSpace replaces every run of two or more whitespace characters with
// a single space
func CollapseSpace(s string) string {
	return extraSpace.ReplaceAllString(s, " ")
}

type charClass int

const (
	classOther charClass = iota
	classUpper
	classLower
	classDigit
	classSpace
)

func classify(r rune) charClass {
	switch {
	case unicode.IsUpper(r):
		return classUpper
	case unicode.IsLower(r):
		return classLower
	case unicode.IsDigit(r):
		return classDigit
	case unicode.IsSpace(r):
		return classSpace
	default:
		return classOther
	}
}

// SplitCamelCase splits s into runs of the same character class, treating
// an upper-case letter followed by lower-case letters as one word.
// "GrammarAndUsage" gives [Grammar And Usage]; "XMLParser" gives [XML Parser].
func SplitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	var words []string
	start := 0
	current := classify(runes[0])
	for i := 1; i < len(runes); i++ {
		class := classify(runes[i])
		if class == current {
			continue
		}
		if current == classUpper && class == classLower {
			// The last capital starts the next word
			if i-1 > start {
				words = append(words, string(runes[start:i-1]))
				start = i - 1
			}
		} else {
			words = append(words, string(runes[start:i]))
			start = i
		}
		current = class
	}
	return append(words, string(runes[start:]))
}

