package task

// Key identifies a cached task.
// Two keys are the same cache slot when their texts match; Sync only tells the
// creator how to dispatch the task it builds.
type Key struct {
	Text string
	Sync bool
}

// AsyncKey builds a key that dispatches through the shared session pool
func AsyncKey(text string) Key {
	return Key{Text: text}
}

// SyncKey builds a key that dispatches on a dedicated session
func SyncKey(text string) Key {
	return Key{Text: text, Sync: true}
}

// ID returns the value cache equality is based on
func (k Key) ID() string {
	return k.Text
}

// Same reports whether two keys address the same cache slot
func (k Key) Same(other Key) bool {
	return k.ID() == other.ID()
}
