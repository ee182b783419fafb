// Package preflight runs environment checks before transcription: directory
// access, the history database, external binaries, and optionally provider
// reachability. `scribe doctor` renders the results.
package preflight
