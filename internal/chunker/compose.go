package chunker

import (
	"strings"

	"github.com/dshills/lynxcheck/pkg/types"
)

// Fragment is the chunked form of one original piece of text.
// Chunk ranges are local to the fragment; Offset places the fragment in its
// enclosing document.
type Fragment struct {
	Chunks []types.Chunk
	Offset int
}

// NewFragment wraps chunks produced for text located at offset
func NewFragment(chunks []types.Chunk, offset int) Fragment {
	return Fragment{Chunks: chunks, Offset: offset}
}

// Span ties one text chunk to its place in the composed text
type Span struct {
	Sanitized types.Range // Range in the composed text
	Original  types.Range // Range in the fragment
	Fragment  int         // Index of the owning fragment
}

// Mapped is a composed-text range re-anchored in its fragment
type Mapped struct {
	Fragment int
	Range    types.Range // Local to the fragment
	Absolute types.Range // Range shifted by the fragment offset
}

// Composition is the text sent for checking together with the table that
// maps it back to the fragments it came from
type Composition struct {
	fragments []Fragment
	text      string
	spans     []Span
}

// Compose joins the text chunks of fragments with single spaces
func Compose(fragments ...Fragment) *Composition {
	c := &Composition{fragments: fragments}
	var b strings.Builder
	for fi, f := range fragments {
		for _, ch := range f.Chunks {
			if !ch.IsText || ch.Content == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			start := b.Len()
			b.WriteString(ch.Content)
			c.spans = append(c.spans, Span{
				Sanitized: types.Range{Start: start, End: b.Len()},
				Original:  ch.Range,
				Fragment:  fi,
			})
		}
	}
	c.text = b.String()
	return c
}

// Text returns the composed text
func (c *Composition) Text() string {
	return c.text
}

// Index returns the position table, one span per text chunk in order
func (c *Composition) Index() []Span {
	out := make([]Span, len(c.spans))
	copy(out, c.spans)
	return out
}

// Fragments returns the number of composed fragments
func (c *Composition) Fragments() int {
	return len(c.fragments)
}

// MapRange maps a range of the composed text back to its fragment.
// The end is clipped to the chunk owning the start. It reports false when
// the start falls on a separator or outside the text.
func (c *Composition) MapRange(r types.Range) (Mapped, bool) {
	if r.Start < 0 {
		return Mapped{Fragment: -1}, false
	}
	for _, s := range c.spans {
		if !s.Sanitized.ContainsOffset(r.Start) {
			continue
		}
		delta := r.Start - s.Sanitized.Start
		start := s.Original.Start + delta
		end := start + r.Len()
		if end > s.Original.End {
			end = s.Original.End
		}
		local := types.Range{Start: start, End: end}
		return Mapped{
			Fragment: s.Fragment,
			Range:    local,
			Absolute: local.Shift(c.fragments[s.Fragment].Offset),
		}, true
	}
	return Mapped{Fragment: -1}, false
}

// MapOffset maps a single composed-text offset to its absolute position,
// or -1 if it cannot be mapped
func (c *Composition) MapOffset(offset int) int {
	m, ok := c.MapRange(types.Range{Start: offset, End: offset + 1})
	if !ok {
		return -1
	}
	return m.Absolute.Start
}
