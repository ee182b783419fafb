// Package progress defines the job event stream: the event union, its NDJSON
// encoding, and the bounded bridge that carries events from blocking workers
// to a streaming consumer.
package progress

import (
	"bytes"
	"encoding/json"

	"scribe/internal/transcript"
)

// Kind discriminates the event union.
type Kind string

const (
	KindStatus   Kind = "status"
	KindProgress Kind = "progress"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
)

// Event is one entry in a job's ordered event stream. Percent is only
// meaningful for progress events, where nil means indeterminate activity.
// Result is only set on complete events.
type Event struct {
	Kind    Kind
	Message string
	Percent *int
	Result  *transcript.Result
}

// Status reports a state transition or informational message.
func Status(message string) Event {
	return Event{Kind: KindStatus, Message: message}
}

// Progress reports a percent estimate, clamped to 0..100.
func Progress(message string, percent int) Event {
	p := min(max(percent, 0), 100)
	return Event{Kind: KindProgress, Message: message, Percent: &p}
}

// Pulse reports activity with no estimate.
func Pulse(message string) Event {
	return Event{Kind: KindProgress, Message: message}
}

// Complete is the successful terminal event.
func Complete(result transcript.Result) Event {
	return Event{Kind: KindComplete, Message: "Transcription complete", Result: &result}
}

// Error is the failed terminal event.
func Error(message string) Event {
	return Event{Kind: KindError, Message: message}
}

// Terminal reports whether no further events may follow e.
func (e Event) Terminal() bool {
	return e.Kind == KindComplete || e.Kind == KindError
}

// PercentValue returns the percent and whether one is known.
func (e Event) PercentValue() (int, bool) {
	if e.Percent == nil {
		return 0, false
	}
	return *e.Percent, true
}

type wireEvent struct {
	Type    Kind               `json:"type"`
	Message string             `json:"message"`
	Result  *transcript.Result `json:"result,omitempty"`
}

type wireProgressEvent struct {
	Type     Kind   `json:"type"`
	Message  string `json:"message"`
	Progress *int   `json:"progress"`
}

// MarshalJSON encodes the event with the fields type, message, progress
// (progress events only, null when indeterminate) and result (complete only).
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == KindProgress {
		return marshalRaw(wireProgressEvent{Type: e.Kind, Message: e.Message, Progress: e.Percent})
	}
	wire := wireEvent{Type: e.Kind, Message: e.Message}
	if e.Kind == KindComplete {
		wire.Result = e.Result
	}
	return marshalRaw(wire)
}

// marshalRaw encodes v without HTML escaping; transcript text passes through
// verbatim.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type     Kind               `json:"type"`
		Message  string             `json:"message"`
		Progress *int               `json:"progress"`
		Result   *transcript.Result `json:"result"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = Event{Kind: wire.Type, Message: wire.Message, Percent: wire.Progress, Result: wire.Result}
	return nil
}
