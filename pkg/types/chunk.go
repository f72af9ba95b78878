package types

// Chunk is a contiguous piece of an original fragment.
// Text chunks carry checkable content; non-text chunks carry whitespace,
// comment decoration, or headings that must not be sent for checking.
type Chunk struct {
	Content string
	Range   Range // Position in the original fragment
	IsText  bool
}

// JoinChunks concatenates chunk contents without separators.
// For the output of a splitter this reproduces the original text.
func JoinChunks(chunks []Chunk) string {
	n := 0
	for _, c := range chunks {
		n += len(c.Content)
	}
	buf := make([]byte, 0, n)
	for _, c := range chunks {
		buf = append(buf, c.Content...)
	}
	return string(buf)
}
