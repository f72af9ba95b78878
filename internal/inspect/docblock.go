package inspect

import (
	"strings"

	"github.com/dshills/lynxcheck/internal/chunker"
	"github.com/dshills/lynxcheck/pkg/types"
)

// Tags whose heading is the tag name alone; other tags also name a subject
// ("@param name") and drop two words.
var oneWordTags = []string{"@return ", "@custom "}

// newDocBlock splits a doc comment into its body and one inspectable per
// "@tag" section. A tag section runs until the next tag line.
func newDocBlock(parts []types.FragmentPart) []Inspectable {
	var body []types.FragmentPart
	var sections [][]types.FragmentPart
	for _, line := range splitLines(parts) {
		if isTagLine(line.Text) {
			sections = append(sections, []types.FragmentPart{line})
			continue
		}
		if n := len(sections); n > 0 {
			sections[n-1] = append(sections[n-1], line)
			continue
		}
		body = append(body, line)
	}

	var out []Inspectable
	if len(body) > 0 {
		c := NewComment(body)
		c.kind = types.FragmentDocBlock
		// The body of a doc block is rewritten as a whole
		c.sequence = false
		out = append(out, c)
	}
	for _, s := range sections {
		out = append(out, newTag(s))
	}
	return out
}

// newTag chunks a tag section and turns its heading into a non-text chunk
func newTag(lines []types.FragmentPart) *Comment {
	frags := make([]chunker.Fragment, 0, len(lines))
	for _, l := range lines {
		frags = append(frags, chunker.NewFragment(chunker.SplitLines(l.Text), l.Offset))
	}
	frags[0].Chunks = dropHeading(frags[0].Chunks)
	return &Comment{
		kind: types.FragmentDocBlock,
		comp: chunker.Compose(frags...),
	}
}

func dropHeading(chunks []types.Chunk) []types.Chunk {
	for i, ch := range chunks {
		if !ch.IsText || !strings.HasPrefix(ch.Content, "@") {
			continue
		}
		steps := 2
		for _, tag := range oneWordTags {
			if strings.HasPrefix(ch.Content, tag) {
				steps = 1
				break
			}
		}
		cut := chunker.AfterFarthestSpaceRight(ch.Content, steps)
		out := append([]types.Chunk(nil), chunks[:i]...)
		if cut >= len(ch.Content) {
			ch.IsText = false
			out = append(out, ch)
			return append(out, chunks[i+1:]...)
		}
		heading := types.Chunk{
			Content: ch.Content[:cut],
			Range:   types.Range{Start: ch.Range.Start, End: ch.Range.Start + cut},
		}
		rest := types.Chunk{
			Content: ch.Content[cut:],
			Range:   types.Range{Start: ch.Range.Start + cut, End: ch.Range.End},
			IsText:  true,
		}
		out = append(out, heading, rest)
		return append(out, chunks[i+1:]...)
	}
	return chunks
}

func isTagLine(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t/*"), "@")
}

// splitLines breaks parts at line breaks, keeping each line's file offset
func splitLines(parts []types.FragmentPart) []types.FragmentPart {
	var out []types.FragmentPart
	for _, p := range parts {
		offset := 0
		line := p.Position.Line
		for _, l := range strings.SplitAfter(p.Text, "\n") {
			if l == "" {
				continue
			}
			pos := p.Position
			if offset > 0 {
				pos = types.Position{Line: line, Column: 1}
			}
			out = append(out, types.FragmentPart{Text: l, Offset: p.Offset + offset, Position: pos})
			offset += len(l)
			line++
		}
	}
	return out
}
