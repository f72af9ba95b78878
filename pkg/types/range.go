package types

// Range is a half-open [Start, End) span of byte offsets.
type Range struct {
	Start int
	End   int
}

// EmptyRange is returned when a position cannot be mapped.
var EmptyRange = Range{}

// NewRange builds a range, swapping the bounds if they are reversed
func NewRange(start, end int) Range {
	if end < start {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// Len returns the number of bytes covered by the range
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range covers nothing
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Contains reports whether other lies fully inside r
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// ContainsOffset reports whether offset falls inside r
func (r Range) ContainsOffset(offset int) bool {
	return r.Start <= offset && offset < r.End
}

// Shift moves the range by delta
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

// Substring returns the part of s covered by r, clipped to the bounds of s
func (r Range) Substring(s string) string {
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return s[start:end]
}
