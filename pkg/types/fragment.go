package types

// FragmentKind identifies what kind of source text a fragment came from
type FragmentKind string

const (
	FragmentComment   FragmentKind = "comment"
	FragmentDocBlock  FragmentKind = "doc"
	FragmentParagraph FragmentKind = "paragraph"
	FragmentLiteral   FragmentKind = "literal"
)

// Position represents a location in source code
type Position struct {
	Line   int
	Column int
}

// SourceFragment is one contiguous piece of source text extracted from a file.
// Sequences of line comments are extracted as several parts sharing one fragment.
type SourceFragment struct {
	Kind   FragmentKind
	Path   string
	Parts  []FragmentPart
	Offset int // Byte offset of the first part in the file
}

// FragmentPart is a single piece of text at a byte offset in the file
type FragmentPart struct {
	Text     string
	Offset   int
	Position Position
}

// Text returns the concatenated text of all parts
func (f SourceFragment) Text() string {
	if len(f.Parts) == 1 {
		return f.Parts[0].Text
	}
	n := 0
	for _, p := range f.Parts {
		n += len(p.Text)
	}
	buf := make([]byte, 0, n)
	for _, p := range f.Parts {
		buf = append(buf, p.Text...)
	}
	return string(buf)
}

// ValidKind reports whether k is one of the known fragment kinds
func ValidKind(k FragmentKind) bool {
	switch k {
	case FragmentComment, FragmentDocBlock, FragmentParagraph, FragmentLiteral:
		return true
	default:
		return false
	}
}
