// Command scribe fetches transcripts for online videos and local media.
//
// `scribe transcribe <url>` tries provider captions first and falls back to
// downloading the audio and running WhisperX. Progress is written to stdout as
// newline-delimited JSON events when stdout is not a terminal, and as
// human-readable lines otherwise.
package main
