// Package task defines the unit of spellcheck work shared by the cache,
// the dispatcher and the protocol sessions.
//
// A Task binds one text to its eventual result and comes in two shapes:
//
//   - Async tasks resolve a future. Any number of callers can wait on it, and
//     disposing the task cancels the future so nobody hangs.
//   - Sync tasks fill a result slot and release a Latch. The submitting caller
//     blocks on the latch; modal sync tasks block even if the caller's context
//     is cancelled.
//
// Sessions receive tasks through a Source and are the only writers of a
// task's result. A task is completed at most once because exactly one session
// ever pulls it.
//
// Key is the cache identity of a task. Only the text participates in equality;
// the Sync flag records how the first requester wants the task dispatched.
package task
