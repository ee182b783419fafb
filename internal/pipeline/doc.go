// Package pipeline drives one transcription run from a media reference to a
// persisted transcript.
//
// A run walks start → caption_lookup → (complete | download_fallback) →
// transcribing → (complete | failed). The fallback order is an ordered slice
// of strategies; the first strategy that returns a result ends the run. Every
// run emits exactly one terminal event, removes any temporary audio it
// created, records itself in the history ledger, and holds the run lock so
// only one transcription executes at a time across processes.
package pipeline
