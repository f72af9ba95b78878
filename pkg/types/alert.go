package types

import "strings"

// GroupEnhancement is the alert group reported for style suggestions
const GroupEnhancement = "Enhancement"

// Alert is one issue reported by the checking service.
// Range is expressed in the coordinates of the checked (sanitized) text.
// Alerts are values and are never modified after the engine produces them.
type Alert struct {
	Group        string
	Title        string
	Category     string
	Description  string
	Content      string // Substring of the checked text the alert points at
	Range        Range
	Replacements []string
	Facultative  bool // Advanced alert, shown only when enabled in settings
}

// HasReplacements reports whether the alert suggests at least one fix
func (a Alert) HasReplacements() bool {
	return len(a.Replacements) > 0
}

// FullMessage renders the alert for display, e.g.
// "Grammar mistake: Missing article. Consider adding an article."
func (a Alert) FullMessage() string {
	var b strings.Builder
	b.WriteString(a.Group)
	if a.Group != GroupEnhancement {
		b.WriteString(" mistake")
	}
	if a.Title != "" {
		b.WriteString(": ")
		b.WriteString(a.Title)
	}
	if a.Description != "" {
		b.WriteString(". ")
		b.WriteString(a.Description)
	}
	return b.String()
}

// WithRange returns a copy of the alert re-anchored at r
func (a Alert) WithRange(r Range) Alert {
	a.Replacements = append([]string(nil), a.Replacements...)
	a.Range = r
	return a
}
