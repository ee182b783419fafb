// Package transcript defines transcript segments and results and persists
// finished transcripts to the storage directory.
package transcript

import (
	"strings"
)

// Method records which strategy produced a transcript.
type Method string

const (
	MethodCaptions       Method = "captions"
	MethodCaptionsManual Method = "captions_manual"
	MethodCaptionsAuto   Method = "captions_auto"
	MethodWhisper        Method = "whisper"
)

// Segment is one time-aligned piece of transcript text. Times are seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is a finished transcript. PersistedPath is empty until the text has
// been written to storage.
type Result struct {
	Method        Method    `json:"method"`
	Text          string    `json:"text"`
	Segments      []Segment `json:"segments"`
	PersistedPath string    `json:"file_path"`
}

// NewResult builds a result whose text is the space-joined segment texts.
func NewResult(method Method, segments []Segment) Result {
	if segments == nil {
		segments = []Segment{}
	}
	return Result{Method: method, Text: JoinText(segments), Segments: segments}
}

// JoinText concatenates segment texts with a single space, skipping blanks.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Shift returns copies of segments with offset seconds added to both bounds.
func Shift(segments []Segment, offset float64) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = Segment{Start: seg.Start + offset, End: seg.End + offset, Text: seg.Text}
	}
	return out
}

// WithPath returns a copy of r recording where its text was persisted.
func (r Result) WithPath(path string) Result {
	r.PersistedPath = path
	return r
}
