package inspect

import (
	"sort"
	"strings"

	"github.com/dshills/lynxcheck/pkg/types"
)

// CategoryPrefix marks an exclusion that hides a whole category
const CategoryPrefix = "category:"

// Exclusions is the set of user-ignored alert patterns. An entry is either
// plain content, "category:<category>", or "{category:<category>}<content>".
type Exclusions map[string]struct{}

// NewExclusions builds a set from entries, dropping blanks
func NewExclusions(entries ...string) Exclusions {
	e := make(Exclusions, len(entries))
	for _, s := range entries {
		if strings.TrimSpace(s) != "" {
			e[s] = struct{}{}
		}
	}
	return e
}

// Excludes reports whether any entry matches the alert
func (e Exclusions) Excludes(a types.Alert) bool {
	if len(e) == 0 {
		return false
	}
	category := CategoryPrefix + a.Category
	if _, ok := e[category]; ok {
		return true
	}
	if _, ok := e["{"+category+"}"+a.Content]; ok {
		return true
	}
	if a.Content == "" {
		return false
	}
	_, ok := e[a.Content]
	return ok
}

// Entries returns the entries in sorted order
func (e Exclusions) Entries() []string {
	out := make([]string, 0, len(e))
	for s := range e {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IgnoreCategory returns the entry that hides every alert of a's category
func IgnoreCategory(a types.Alert) string {
	return CategoryPrefix + a.Category
}

// IgnoreText returns the entry that hides a's content within its category.
// It reports false when CanIgnoreText does.
func IgnoreText(a types.Alert) (string, bool) {
	if !CanIgnoreText(a) {
		return "", false
	}
	return "{" + CategoryPrefix + a.Category + "}" + a.Content, true
}

// CanIgnoreText reports whether a's content can be ignored on its own.
// Punctuation alerts and alerts suggesting partial edits cannot.
func CanIgnoreText(a types.Alert) bool {
	if strings.TrimSpace(a.Category) == "" || a.Content == "" {
		return false
	}
	if strings.Contains(a.Category, "Punct") {
		return false
	}
	for _, r := range a.Replacements {
		if !IsStandalone(r) {
			return false
		}
	}
	return true
}

// Filter decides which alerts are reported
type Filter struct {
	Exclusions   Exclusions
	ShowAdvanced bool // Report facultative alerts
}

// Accept reports whether a should be reported for in
func (f Filter) Accept(in Inspectable, a types.Alert) bool {
	if a.Facultative && !f.ShowAdvanced {
		return false
	}
	if f.Exclusions.Excludes(a) {
		return false
	}
	return in.Relevant(a)
}
