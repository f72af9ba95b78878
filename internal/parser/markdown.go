package parser

import (
	"bytes"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/lynxcheck/pkg/types"
)

// parseMarkdown extracts every paragraph, including the text of tight list
// items, as a fragment. The fragment text is
// the raw source span of the paragraph, so offsets map straight back.
func parseMarkdown(path string, src []byte) *types.ParseResult {
	result := &types.ParseResult{Path: path}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	err := gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch n.Kind() {
		case gast.KindParagraph, gast.KindTextBlock:
		case gast.KindCodeBlock, gast.KindFencedCodeBlock, gast.KindHTMLBlock:
			return gast.WalkSkipChildren, nil
		default:
			return gast.WalkContinue, nil
		}
		lines := n.Lines()
		if lines.Len() == 0 {
			return gast.WalkSkipChildren, nil
		}
		start := lines.At(0).Start
		stop := lines.At(lines.Len() - 1).Stop
		body := bytes.TrimRight(src[start:stop], " \t\r\n")
		if len(bytes.TrimSpace(body)) == 0 {
			return gast.WalkSkipChildren, nil
		}

		result.Fragments = append(result.Fragments, types.SourceFragment{
			Kind: types.FragmentParagraph,
			Path: path,
			Parts: []types.FragmentPart{{
				Text:     string(body),
				Offset:   start,
				Position: position(src, start),
			}},
			Offset: start,
		})
		return gast.WalkSkipChildren, nil
	})
	if err != nil {
		result.AddError(path, 0, 0, err.Error())
	}
	return result
}

// position converts a byte offset into a 1-based line and column
func position(src []byte, offset int) types.Position {
	line := 1 + bytes.Count(src[:offset], []byte("\n"))
	col := offset + 1
	if i := bytes.LastIndexByte(src[:offset], '\n'); i >= 0 {
		col = offset - i
	}
	return types.Position{Line: line, Column: col}
}
