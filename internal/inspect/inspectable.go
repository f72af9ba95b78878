package inspect

import (
	"strings"

	"github.com/dshills/lynxcheck/internal/chunker"
	"github.com/dshills/lynxcheck/pkg/types"
)

// Inspectable is one unit of text checked as a whole
type Inspectable interface {
	Kind() types.FragmentKind
	// Text returns the text sent to the checker
	Text() string
	// ToSourceRange maps a range of Text to absolute file offsets
	ToSourceRange(r types.Range) (types.Range, bool)
	// Relevant reports whether the alert should be shown for this kind
	Relevant(a types.Alert) bool
	// CanReplace reports whether replacements may be offered
	CanReplace(a types.Alert) bool
}

// FromFragment builds the inspectables of one fragment. A doc block yields its
// body plus one inspectable per tag; every other kind yields one.
func FromFragment(f types.SourceFragment) []Inspectable {
	if len(f.Parts) == 0 {
		return nil
	}
	var out []Inspectable
	switch f.Kind {
	case types.FragmentDocBlock:
		out = newDocBlock(f.Parts)
	case types.FragmentParagraph:
		out = []Inspectable{newVerbatim(types.FragmentParagraph, f.Parts[0])}
	case types.FragmentLiteral:
		out = []Inspectable{newVerbatim(types.FragmentLiteral, f.Parts[0])}
	default:
		out = []Inspectable{NewComment(f.Parts)}
	}

	kept := out[:0]
	for _, in := range out {
		if strings.TrimSpace(in.Text()) != "" {
			kept = append(kept, in)
		}
	}
	return kept
}

// Comment is a single comment or a run of line comments checked together
type Comment struct {
	kind     types.FragmentKind
	comp     *chunker.Composition
	sequence bool
}

// NewComment chunks each part line by line and composes them
func NewComment(parts []types.FragmentPart) *Comment {
	frags := make([]chunker.Fragment, 0, len(parts))
	for _, p := range parts {
		frags = append(frags, chunker.NewFragment(chunker.SplitLines(p.Text), p.Offset))
	}
	return &Comment{
		kind:     types.FragmentComment,
		comp:     chunker.Compose(frags...),
		sequence: len(parts) > 1,
	}
}

func (c *Comment) Kind() types.FragmentKind { return c.kind }

func (c *Comment) Text() string { return c.comp.Text() }

func (c *Comment) ToSourceRange(r types.Range) (types.Range, bool) {
	m, ok := c.comp.MapRange(r)
	if !ok {
		return types.EmptyRange, false
	}
	return m.Absolute, true
}

func (c *Comment) Relevant(a types.Alert) bool {
	text := c.Text()
	return !chunker.IsWithinInlineTag(text, a.Range) && !chunker.IsWithinDocLink(text, a.Range)
}

// CanReplace is false for a run of line comments; a rewrite cannot be
// applied across the comment boundaries
func (c *Comment) CanReplace(types.Alert) bool {
	return !c.sequence
}

// verbatim is text checked as written: markdown paragraphs and string literals
type verbatim struct {
	kind types.FragmentKind
	text string
	at   int
}

func newVerbatim(kind types.FragmentKind, p types.FragmentPart) *verbatim {
	return &verbatim{kind: kind, text: p.Text, at: p.Offset}
}

func (v *verbatim) Kind() types.FragmentKind { return v.kind }

func (v *verbatim) Text() string { return v.text }

func (v *verbatim) ToSourceRange(r types.Range) (types.Range, bool) {
	if r.Start < 0 || r.End > len(v.text) || r.Empty() {
		return types.EmptyRange, false
	}
	return r.Shift(v.at), true
}

func (v *verbatim) Relevant(a types.Alert) bool {
	if v.kind == types.FragmentLiteral {
		return !strings.Contains(strings.ToLower(a.Title), "closing punct")
	}
	return !chunker.IsWithinCodeSnippet(v.text, a.Range) &&
		!chunker.IsWithinDelimiters(v.text, a.Range, "*") &&
		!chunker.IsWithinHyperlink(v.text, a.Range)
}

func (v *verbatim) CanReplace(types.Alert) bool { return true }
