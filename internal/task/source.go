package task

import "sync"

// Source hands tasks to a session one at a time.
// Next returns nil when no work remains.
type Source interface {
	Next() *Task
}

// Single is a source that yields one task and then reports exhaustion
type Single struct {
	mu   sync.Mutex
	task *Task
}

// NewSingle wraps t in a one-shot source
func NewSingle(t *Task) *Single {
	return &Single{task: t}
}

// Next returns the wrapped task on the first call and nil afterwards
func (s *Single) Next() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.task
	s.task = nil
	return t
}
