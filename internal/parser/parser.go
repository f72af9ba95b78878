package parser

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dshills/lynxcheck/pkg/types"
)

// ErrUnsupported is returned for files that are neither Go nor Markdown
var ErrUnsupported = errors.New("unsupported file type")

// Options controls which fragments are extracted
type Options struct {
	Literals bool // Extract string literals from Go files
}

// DefaultOptions extracts every fragment kind
func DefaultOptions() Options {
	return Options{Literals: true}
}

// Parser extracts checkable text from Go and Markdown files
type Parser struct {
	fset *token.FileSet
	opts Options
}

// New creates a new Parser instance with default options
func New() *Parser {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a Parser with opts
func NewWithOptions(opts Options) *Parser {
	return &Parser{
		fset: token.NewFileSet(),
		opts: opts,
	}
}

// Supported reports whether the file extension is handled
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go", ".md", ".markdown":
		return true
	}
	return false
}

// ParseFile reads and parses a file
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	if !Supported(filePath) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filePath)
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseSource(filePath, content)
}

// ParseSource parses already loaded content; the extension of path picks
// the language
func (p *Parser) ParseSource(path string, src []byte) (*types.ParseResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return p.parseGo(path, src), nil
	case ".md", ".markdown":
		return parseMarkdown(path, src), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func (p *Parser) parseGo(path string, src []byte) *types.ParseResult {
	result := &types.ParseResult{Path: path}

	file, err := parser.ParseFile(p.fset, path, src, parser.ParseComments)
	if err != nil {
		// Syntax errors are non-fatal; the partial AST still has comments
		result.AddError(path, 0, 0, fmt.Sprintf("syntax error: %v", err))
	}
	if file == nil {
		return result
	}
	if file.Name != nil {
		result.PackageName = file.Name.Name
	}

	e := &fragmentExtractor{
		fset: p.fset,
		path: path,
		docs: docGroups(file),
		skip: make(map[*ast.BasicLit]bool),
	}
	for _, cg := range file.Comments {
		e.extractCommentGroup(cg)
	}
	if p.opts.Literals {
		ast.Inspect(file, e.visitLiteral)
	}
	result.Fragments = e.fragments
	return result
}

// docGroups collects the comment groups attached to declarations as docs
func docGroups(file *ast.File) map[*ast.CommentGroup]bool {
	docs := make(map[*ast.CommentGroup]bool)
	add := func(cg *ast.CommentGroup) {
		if cg != nil {
			docs[cg] = true
		}
	}
	add(file.Doc)
	ast.Inspect(file, func(n ast.Node) bool {
		switch d := n.(type) {
		case *ast.FuncDecl:
			add(d.Doc)
		case *ast.GenDecl:
			add(d.Doc)
		case *ast.TypeSpec:
			add(d.Doc)
		case *ast.ValueSpec:
			add(d.Doc)
		case *ast.Field:
			add(d.Doc)
		}
		return true
	})
	return docs
}

// fragmentExtractor accumulates fragments while walking one file
type fragmentExtractor struct {
	fset      *token.FileSet
	path      string
	docs      map[*ast.CommentGroup]bool
	skip      map[*ast.BasicLit]bool
	fragments []types.SourceFragment
}

// extractCommentGroup turns a doc group into one doc block. Other groups
// yield one fragment per run of line comments and one per block comment.
func (e *fragmentExtractor) extractCommentGroup(cg *ast.CommentGroup) {
	var run []types.FragmentPart
	flush := func(kind types.FragmentKind) {
		if len(run) > 0 {
			e.add(kind, run)
			run = nil
		}
	}

	if e.docs[cg] {
		for _, c := range cg.List {
			if !isDirective(c.Text) {
				run = append(run, e.part(c))
			}
		}
		flush(types.FragmentDocBlock)
		return
	}

	for _, c := range cg.List {
		switch {
		case isDirective(c.Text):
			flush(types.FragmentComment)
		case strings.HasPrefix(c.Text, "/*"):
			flush(types.FragmentComment)
			e.add(types.FragmentComment, []types.FragmentPart{e.part(c)})
		default:
			run = append(run, e.part(c))
		}
	}
	flush(types.FragmentComment)
}

// visitLiteral extracts interpreted string literals that read like prose
func (e *fragmentExtractor) visitLiteral(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.ImportSpec:
		return false
	case *ast.Field:
		if v.Tag != nil {
			e.skip[v.Tag] = true
		}
	case *ast.BasicLit:
		if v.Kind != token.STRING || e.skip[v] || !strings.HasPrefix(v.Value, `"`) || len(v.Value) < 2 {
			return true
		}
		body := v.Value[1 : len(v.Value)-1]
		if !isProse(body) {
			return true
		}
		pos := e.fset.Position(v.Pos())
		e.add(types.FragmentLiteral, []types.FragmentPart{{
			Text:     body,
			Offset:   pos.Offset + 1,
			Position: types.Position{Line: pos.Line, Column: pos.Column + 1},
		}})
	}
	return true
}

func (e *fragmentExtractor) part(c *ast.Comment) types.FragmentPart {
	pos := e.fset.Position(c.Pos())
	return types.FragmentPart{
		Text:     c.Text,
		Offset:   pos.Offset,
		Position: types.Position{Line: pos.Line, Column: pos.Column},
	}
}

func (e *fragmentExtractor) add(kind types.FragmentKind, parts []types.FragmentPart) {
	e.fragments = append(e.fragments, types.SourceFragment{
		Kind:   kind,
		Path:   e.path,
		Parts:  parts,
		Offset: parts[0].Offset,
	})
}

// isDirective reports whether a comment is a tool directive such as
// //go:build or //nolint rather than prose
func isDirective(text string) bool {
	if strings.HasPrefix(text, "// +build") || strings.HasPrefix(text, "//line ") {
		return true
	}
	rest, ok := strings.CutPrefix(text, "//")
	if !ok || rest == "" || !unicode.IsLower(rune(rest[0])) {
		return false
	}
	word, _, found := strings.Cut(rest, ":")
	if found && !strings.ContainsAny(word, " \t") {
		return true
	}
	return strings.HasPrefix(rest, "nolint") || strings.HasPrefix(rest, "export ")
}

// isProse reports whether a literal holds a letter and a space
func isProse(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLetter) && strings.ContainsRune(s, ' ')
}
