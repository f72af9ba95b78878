package chunker

import (
	"strings"
	"unicode"

	"github.com/dshills/lynxcheck/pkg/types"
)

// IsWithinInlineTag reports whether r lies inside an inline tag such as
// "{@code x}"
func IsWithinInlineTag(text string, r types.Range) bool {
	cursor := 0
	for {
		start := indexFrom(text, "{@", cursor)
		if start < 0 {
			return false
		}
		end := indexFrom(text, "}", start)
		if end < 0 {
			return false
		}
		if start <= r.Start && end >= r.End {
			return true
		}
		cursor = end + 1
	}
}

// IsWithinCodeSnippet reports whether r lies inside a ``` block or a
// `code` span
func IsWithinCodeSnippet(text string, r types.Range) bool {
	if !strings.Contains(text, "`") {
		return false
	}
	snippets := delimitedRanges(text, "```", nil, true)
	snippets = append(snippets, delimitedRanges(text, "`", snippets, true)...)
	return anyContains(snippets, r)
}

// IsWithinDelimiters reports whether r lies between a pair of delim, matched
// left to right without nesting
func IsWithinDelimiters(text string, r types.Range, delim string) bool {
	if delim == "" || !strings.Contains(text, delim) {
		return false
	}
	return anyContains(delimitedRanges(text, delim, nil, false), r)
}

// IsWithinHyperlink reports whether r lies inside the target of a markdown
// link, i.e. a parenthesized range that directly follows a bracketed one
func IsWithinHyperlink(text string, r types.Range) bool {
	for _, s := range []string{"[", "]", "(", ")"} {
		if !strings.Contains(text, s) {
			return false
		}
	}
	var target types.Range
	found := false
	for _, p := range DelimitedRanges(text, "(", ")") {
		if p.Contains(r) {
			target, found = p, true
			break
		}
	}
	if !found {
		return false
	}
	for _, b := range DelimitedRanges(text, "[", "]") {
		if b.End == target.Start {
			return true
		}
	}
	return false
}

// IsWithinDocLink reports whether r lies inside a doc link such as [Name]
// or [pkg.Name]
func IsWithinDocLink(text string, r types.Range) bool {
	if !strings.Contains(text, "[") {
		return false
	}
	for _, b := range DelimitedRanges(text, "[", "]") {
		if b.Contains(r) && isIdentPath(text[b.Start+1:b.End-1]) {
			return true
		}
	}
	return false
}

// DelimitedRanges pairs open and close delimiters with a stack, so nested
// pairs each produce a range. Ranges include the delimiters. Unmatched
// delimiters produce nothing.
func DelimitedRanges(text, open, close string) []types.Range {
	var result []types.Range
	var stack []int

	next := strings.Index(text, open)
	isStart := true
	for next >= 0 {
		if isStart {
			stack = append(stack, next)
		} else if len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			result = append(result, types.Range{Start: top, End: next + len(close)})
		}

		searchFrom := next + len(close)
		if isStart {
			searchFrom = next + len(open)
		}
		nextStart := indexFrom(text, open, searchFrom)
		nextEnd := indexFrom(text, close, searchFrom)
		switch {
		case nextEnd >= 0 && (nextStart < 0 || nextEnd < nextStart):
			next, isStart = nextEnd, false
		case nextStart >= 0:
			next, isStart = nextStart, true
		default:
			next = -1
		}
	}
	return result
}

// delimitedRanges pairs identical delimiters left to right, skipping any that
// fall inside existing. A greedy scan resumes after the closing delimiter;
// a non-greedy one lets the closing delimiter open the next pair.
func delimitedRanges(text, delim string, existing []types.Range, greedy bool) []types.Range {
	var result []types.Range
	start := strings.Index(text, delim)
	for start >= 0 {
		if owner, ok := owning(existing, start); ok {
			start = indexFrom(text, delim, owner.End)
			continue
		}
		end := indexFrom(text, delim, start+len(delim))
		if end <= start {
			return result
		}
		result = append(result, types.Range{Start: start, End: end + len(delim)})
		if greedy {
			start = indexFrom(text, delim, end+len(delim))
		} else {
			start = indexFrom(text, delim, end)
		}
	}
	return result
}

func owning(ranges []types.Range, offset int) (types.Range, bool) {
	for _, r := range ranges {
		if r.ContainsOffset(offset) {
			return r, true
		}
	}
	return types.Range{}, false
}

func anyContains(ranges []types.Range, r types.Range) bool {
	for _, candidate := range ranges {
		if candidate.Contains(r) {
			return true
		}
	}
	return false
}

// indexFrom is strings.Index starting at from, returning an absolute offset
func indexFrom(text, sub string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(text) {
		return -1
	}
	i := strings.Index(text[from:], sub)
	if i < 0 {
		return -1
	}
	return i + from
}

func isIdentPath(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(strings.TrimPrefix(s, "*"), ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
				continue
			}
			return false
		}
	}
	return true
}
