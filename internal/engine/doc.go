// Package engine turns watcher events into sorted files.
//
// An Engine owns one watcher goroutine feeding a bounded channel and one
// consumer goroutine that handles files strictly one at a time. For each path
// the consumer checks the pause flag and the processed set, waits for the file
// to settle, then hands it to the Sorter which classifies, resolves the
// destination, moves the file, and records the action.
//
// Per-file failures are logged and never stop the loop. A file that fails
// before its move completes is not marked processed, so the next event for the
// same path tries again.
package engine
