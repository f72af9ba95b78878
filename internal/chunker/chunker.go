package chunker

import (
	"unicode"
	"unicode/utf8"

	"github.com/dshills/lynxcheck/pkg/types"
)

// Mode selects which whitespace runs become separators
type Mode int

const (
	// ModeWords separates on every whitespace run
	ModeWords Mode = iota
	// ModeLines separates only on edge runs and runs containing a line break
	ModeLines
)

// Chunker splits text according to its mode
type Chunker struct {
	mode Mode
}

// New creates a Chunker for mode
func New(mode Mode) *Chunker {
	return &Chunker{mode: mode}
}

// Split splits text into chunks using ModeWords
func Split(text string) []types.Chunk {
	return New(ModeWords).Split(text, 0)
}

// SplitLines splits text into chunks using ModeLines
func SplitLines(text string) []types.Chunk {
	return New(ModeLines).Split(text, 0)
}

// IsSpace reports whether r separates words in comment text
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '/' || r == '*'
}

// Split divides text into alternating text and non-text chunks. Chunk ranges
// are shifted by offset.
func (c *Chunker) Split(text string, offset int) []types.Chunk {
	if text == "" {
		return nil
	}

	var chunks []types.Chunk
	emit := func(start, end int, isText bool) {
		chunks = append(chunks, types.Chunk{
			Content: text[start:end],
			Range:   types.Range{Start: start + offset, End: end + offset},
			IsText:  isText,
		})
	}

	last := 0
	for _, run := range spaceRuns(text) {
		if !c.separates(text, run) {
			continue
		}
		if run.Start > last {
			emit(last, run.Start, true)
		}
		emit(run.Start, run.End, false)
		last = run.End
	}
	if last < len(text) {
		emit(last, len(text), true)
	}
	return chunks
}

func (c *Chunker) separates(text string, run types.Range) bool {
	if c.mode == ModeWords {
		return true
	}
	if run.Start == 0 || run.End == len(text) {
		return true
	}
	for i := run.Start; i < run.End; i++ {
		if text[i] == '\n' || text[i] == '\r' {
			return true
		}
	}
	return false
}

// spaceRuns returns every maximal run of IsSpace runes as byte ranges
func spaceRuns(text string) []types.Range {
	var runs []types.Range
	start := -1
	for i, r := range text {
		if IsSpace(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, types.Range{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, types.Range{Start: start, End: len(text)})
	}
	return runs
}

// FarthestSpaceLeft returns the start of the whitespace run preceding the
// word at offset. For "hello world" and the offset of "world" it returns 5.
func FarthestSpaceLeft(text string, offset int) int {
	if offset <= 0 || text == "" {
		return 0
	}
	if offset >= len(text) {
		offset = len(text) - 1
	}
	pos := offset
	if !spaceAt(text, pos) {
		for pos >= 0 && !spaceAt(text, pos) {
			pos = prevRune(text, pos)
		}
	}
	for pos >= 0 && spaceAt(text, pos) {
		pos = prevRune(text, pos)
	}
	if pos < 0 {
		return 0
	}
	_, size := utf8.DecodeRuneInString(text[pos:])
	return pos + size
}

// AfterFarthestSpaceRight returns the offset just past the steps-th
// whitespace run, or len(text) if the text has fewer runs
func AfterFarthestSpaceRight(text string, steps int) int {
	pos := 0
	for i := 0; i < steps; i++ {
		for pos < len(text) && !spaceAt(text, pos) {
			pos = nextRune(text, pos)
		}
		if pos >= len(text) {
			return len(text)
		}
		for pos < len(text) && spaceAt(text, pos) {
			pos = nextRune(text, pos)
		}
	}
	return pos
}

func spaceAt(text string, pos int) bool {
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return IsSpace(r)
}

func nextRune(text string, pos int) int {
	_, size := utf8.DecodeRuneInString(text[pos:])
	return pos + size
}

func prevRune(text string, pos int) int {
	if pos == 0 {
		return -1
	}
	_, size := utf8.DecodeLastRuneInString(text[:pos])
	return pos - size
}
