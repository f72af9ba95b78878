// Package dispatch schedules check tasks onto protocol sessions.
//
// # Scheduling
//
// Async tasks go to a shared FIFO queue. Submitting a task starts a new
// session only while fewer than Parallelism pooled sessions are running; a
// running session keeps pulling from the queue until it is empty, so tasks
// submitted in a burst are served by at most Parallelism connections.
//
// Sync tasks bypass the queue. Each one runs on its own session and the
// submitter blocks until the session completes it. Sync sessions do not count
// toward the pool bound.
//
// # Sessions
//
// A session is anything implementing Runner. Production code passes the
// websocket engine; tests pass a RunnerFunc.
package dispatch
