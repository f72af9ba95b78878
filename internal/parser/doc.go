// Package parser extracts checkable prose from Go and Markdown files.
//
// Go files are parsed with the standard go/parser so that comments and string
// literals are located exactly. Markdown files are parsed with goldmark and
// every paragraph becomes one fragment.
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.ParseFile("/path/to/file.go")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, f := range result.Fragments {
//	    fmt.Printf("%s at %d: %q\n", f.Kind, f.Offset, f.Text())
//	}
//
// # Fragment Kinds
//
// A Go file yields:
//   - doc blocks: comment groups attached to a package, declaration, spec or field
//   - comments: runs of consecutive // comments, and each /* */ comment on its own
//   - literals: interpreted string literals containing a letter and a space
//
// Tool directives such as //go:build, //nolint and // +build are never
// extracted. Import paths and struct tags are skipped.
//
// # Offsets
//
// Every fragment part carries the byte offset of its text in the file and a
// 1-based line and column, so a range found in the text maps straight back to
// the source.
//
// # Error Handling
//
// Syntax errors do not abort a Go parse. The partial AST still carries its
// comments, and the error is recorded in ParseResult.Errors.
package parser
