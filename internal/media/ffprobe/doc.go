// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: runs ffprobe through an injectable runner
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Prober.Duration: probe(audio) -> seconds, or unknown
package ffprobe
