// Package logs reads back the scribe log file for the CLI.
//
// Tail returns the last lines of the file or everything after a byte offset,
// optionally waiting for new lines and keeping only lines that belong to one
// run. Memory use is bounded by the requested line count.
package logs
