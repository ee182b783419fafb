// Package history records one row per transcription run in a SQLite ledger.
//
// The ledger is append-mostly: Begin inserts a running row, Stage tracks the
// orchestrator state, and Finish stamps the outcome. ResetInterrupted marks
// rows left running by a crashed process as failed so `scribe history` never
// shows phantom work.
package history
