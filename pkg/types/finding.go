package types

// Finding is an alert anchored back into a source file
type Finding struct {
	Path         string
	Kind         FragmentKind
	Position     Position // 1-based line and column of the alert start
	Range        Range    // Byte range in the file
	Content      string
	Message      string
	Category     string
	Replacements []string
	Facultative  bool
}

// Validate checks that the finding points at a usable location
func (f *Finding) Validate() error {
	if f.Path == "" {
		return ErrMissingPath
	}
	if f.Range.Empty() {
		return ErrEmptyRange
	}
	if f.Message == "" {
		return ErrEmptyMessage
	}
	return nil
}
