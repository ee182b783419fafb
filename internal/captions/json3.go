package captions

import (
	"encoding/json"
	"fmt"
	"strings"

	"scribe/internal/transcript"
)

type json3Document struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	TStartMs    *int64     `json:"tStartMs,omitempty"`
	DDurationMs *int64     `json:"dDurationMs,omitempty"`
	AAppend     *int       `json:"aAppend,omitempty"`
	Segs        []json3Seg `json:"segs,omitempty"`
}

type json3Seg struct {
	Utf8 string `json:"utf8"`
}

// ParseJSON3 converts a json3 caption document into transcript segments in
// provider order. Events without text (window setup, bare newlines) are
// dropped.
func ParseJSON3(data []byte) ([]transcript.Segment, error) {
	var doc json3Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json3: %w", err)
	}
	segments := make([]transcript.Segment, 0, len(doc.Events))
	for _, event := range doc.Events {
		if event.TStartMs == nil || len(event.Segs) == 0 {
			continue
		}
		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.Utf8)
		}
		cleaned := strings.Join(strings.Fields(text.String()), " ")
		if cleaned == "" {
			continue
		}
		start := float64(*event.TStartMs) / 1000
		end := start
		if event.DDurationMs != nil {
			end = start + float64(*event.DDurationMs)/1000
		}
		segments = append(segments, transcript.Segment{Start: start, End: end, Text: cleaned})
	}
	return segments, nil
}
