// Package whisperx runs WhisperX through uvx as the speech recognition
// capability behind the inference engine.
//
// Load performs a one-time readiness check and returns a Service whose
// Transcribe method converts one audio file into time-aligned segments. The
// Service holds no per-call state; the engine serializes calls into it.
package whisperx
