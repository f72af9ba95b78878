package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lynxcheck/pkg/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fragmentsOf(result *types.ParseResult, kind types.FragmentKind) []types.SourceFragment {
	var out []types.SourceFragment
	for _, f := range result.Fragments {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func TestParseFile_ValidGoFile(t *testing.T) {
	src := `// Package sample does things.
package sample

import "fmt"

// Greet prints a greeting.
// It has two lines.
func Greet() {
	// say hello
	// to everyone
	fmt.Println("hello there world")
}
`
	path := writeFile(t, "sample.go", src)

	result, err := New().ParseFile(path)
	require.NoError(t, err)
	assert.False(t, result.HasErrors())
	assert.Equal(t, "sample", result.PackageName)
	assert.Equal(t, path, result.Path)

	docs := fragmentsOf(result, types.FragmentDocBlock)
	require.Len(t, docs, 2)
	assert.Equal(t, "// Package sample does things.", docs[0].Text())
	require.Len(t, docs[1].Parts, 2)
	assert.Equal(t, "// Greet prints a greeting.", docs[1].Parts[0].Text)
	assert.Equal(t, 6, docs[1].Parts[0].Position.Line)
	assert.Equal(t, 1, docs[1].Parts[0].Position.Column)

	comments := fragmentsOf(result, types.FragmentComment)
	require.Len(t, comments, 1)
	require.Len(t, comments[0].Parts, 2)
	assert.Equal(t, "// say hello", comments[0].Parts[0].Text)
	assert.Equal(t, "// to everyone", comments[0].Parts[1].Text)

	literals := fragmentsOf(result, types.FragmentLiteral)
	require.Len(t, literals, 1)
	lit := literals[0].Parts[0]
	assert.Equal(t, "hello there world", lit.Text)
	assert.Equal(t, lit.Text, src[lit.Offset:lit.Offset+len(lit.Text)])
}

func TestParseSource_OffsetsMatchSource(t *testing.T) {
	src := "package p\n\nvar x = 1 // trailing note\n"
	result, err := New().ParseSource("p.go", []byte(src))
	require.NoError(t, err)

	require.Len(t, result.Fragments, 1)
	part := result.Fragments[0].Parts[0]
	assert.Equal(t, "// trailing note", part.Text)
	assert.Equal(t, part.Text, src[part.Offset:part.Offset+len(part.Text)])
	assert.Equal(t, result.Fragments[0].Offset, part.Offset)
	assert.Equal(t, 3, part.Position.Line)
	assert.Equal(t, 11, part.Position.Column)
}

func TestParseSource_BlockCommentsAreSeparate(t *testing.T) {
	src := `package p

func f() {
	// line one
	/* block */
	// line two
}
`
	result, err := New().ParseSource("p.go", []byte(src))
	require.NoError(t, err)

	comments := fragmentsOf(result, types.FragmentComment)
	require.Len(t, comments, 3)
	assert.Equal(t, "// line one", comments[0].Text())
	assert.Equal(t, "/* block */", comments[1].Text())
	assert.Equal(t, "// line two", comments[2].Text())
}

func TestParseSource_SkipsDirectives(t *testing.T) {
	src := `//go:build linux
// +build linux

package p

//nolint:errcheck
//export Thing
func f() {}
`
	result, err := New().ParseSource("p.go", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, result.Fragments)
}

func TestParseSource_SkipsImportsAndTags(t *testing.T) {
	src := "package p\n\nimport \"some path/with space\"\n\ntype T struct {\n\tName string `json:\"name\" yaml:\"name, omitempty\"`\n}\n\nvar s = \"a real sentence\"\nvar id = \"identifier\"\nvar raw = `raw string here`\n"
	result, err := New().ParseSource("p.go", []byte(src))
	require.NoError(t, err)

	literals := fragmentsOf(result, types.FragmentLiteral)
	require.Len(t, literals, 1)
	assert.Equal(t, "a real sentence", literals[0].Text())
}

func TestParseSource_LiteralsDisabled(t *testing.T) {
	src := "package p\n\nvar s = \"a real sentence\"\n"
	result, err := NewWithOptions(Options{}).ParseSource("p.go", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, result.Fragments)
}

func TestParseSource_SyntaxErrorKeepsComments(t *testing.T) {
	src := "package p\n\n// still here\nfunc broken( {\n"
	result, err := New().ParseSource("p.go", []byte(src))
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
	assert.Contains(t, result.Errors[0].Message, "syntax error")
}

func TestParseFile_Markdown(t *testing.T) {
	src := "# Title\n\nFirst paragraph\nspans two lines.\n\n- item\n\nSecond one.\n"
	path := writeFile(t, "README.md", src)

	result, err := New().ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, result.PackageName)

	require.Len(t, result.Fragments, 3)
	first := result.Fragments[0].Parts[0]
	assert.Equal(t, types.FragmentParagraph, result.Fragments[0].Kind)
	assert.Equal(t, "First paragraph\nspans two lines.", first.Text)
	assert.Equal(t, first.Text, src[first.Offset:first.Offset+len(first.Text)])
	assert.Equal(t, types.Position{Line: 3, Column: 1}, first.Position)

	assert.Equal(t, "item", result.Fragments[1].Text())
	assert.Equal(t, types.Position{Line: 6, Column: 3}, result.Fragments[1].Parts[0].Position)
	assert.Equal(t, "Second one.", result.Fragments[2].Text())
}

func TestParseFile_Unsupported(t *testing.T) {
	_, err := New().ParseFile("notes.txt")
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = New().ParseSource("x.py", nil)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := New().ParseFile(filepath.Join(t.TempDir(), "missing.go"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.go"))
	assert.True(t, Supported("A.MD"))
	assert.True(t, Supported("b.markdown"))
	assert.False(t, Supported("c.txt"))
}

func TestIsDirective(t *testing.T) {
	cases := map[string]bool{
		"//go:generate stringer":  true,
		"//line foo.go:10":        true,
		"// +build ignore":        true,
		"//nolint":                true,
		"//export Foo":            true,
		"// regular comment":      false,
		"// Note: with colon":     false,
		"//TODO fix":              false,
		"/* block */":             false,
	}
	for text, want := range cases {
		assert.Equal(t, want, isDirective(text), text)
	}
}
