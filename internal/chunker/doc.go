// Package chunker splits source text into checkable chunks and maps alert
// ranges from the checked text back to the original.
//
// Comment text carries decoration the checking service must not see: the
// "//" and "*" markers, indentation, and line breaks. The chunker splits a
// fragment into text chunks and non-text chunks that together cover the
// fragment edge to edge. Only text chunks are sent, joined by single spaces.
//
// # Basic Usage
//
//	comp := chunker.Compose(
//	    chunker.NewFragment(chunker.SplitLines("// Short comment"), 0),
//	    chunker.NewFragment(chunker.SplitLines("// split into lines"), 17),
//	)
//	comp.Text() // "Short comment split into lines"
//
//	m, ok := comp.MapRange(types.NewRange(0, 5))
//	// m.Fragment == 0, m.Range == [3, 8), m.Absolute == [3, 8)
//
// # Split Modes
//
// Split treats every maximal run of whitespace as a non-text chunk. Whitespace
// is Unicode whitespace plus '/' and '*'.
//
// SplitLines only breaks on runs that touch either edge of the text or contain
// a line break. Spacing inside a line stays in the text chunk, so an alert
// spanning several words maps back without clipping.
//
// # Mapping
//
// MapRange finds the text chunk that owns the start of the range, re-anchors
// the start in the original fragment and clips the end to that chunk. A range
// that starts in a separator or outside the text maps to nothing.
//
// # Relevance Filters
//
// The filter functions decide whether an alert range lies inside markup the
// service cannot understand: inline tags, code snippets, emphasis, hyperlink
// targets and doc links.
package chunker
