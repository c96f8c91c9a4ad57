// Package executor provides driven.TaskExecutor implementations.
//
// Inline runs each task on the submitting goroutine and is used by tests and
// by CLI commands that wait for ingestion. Pool runs tasks on a fixed number
// of worker goroutines, detached from the submitter's cancellation, and
// drains queued work on Close.
package executor
