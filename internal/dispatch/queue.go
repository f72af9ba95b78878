package dispatch

import (
	"sync"

	"github.com/dshills/lynxcheck/internal/task"
)

// Queue is the shared FIFO that pooled sessions drain.
// It is safe for any number of producers and consumers.
type Queue struct {
	mu    sync.Mutex
	tasks []*task.Task
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends t and returns the queue length after the push
func (q *Queue) Push(t *task.Task) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return len(q.tasks)
}

// Next pops the oldest task, or returns nil if the queue is empty
func (q *Queue) Next() *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t
}

// Len returns the number of queued tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
