package transcript_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

func TestNewResultJoinsText(t *testing.T) {
	result := transcript.NewResult(transcript.MethodCaptionsManual, []transcript.Segment{
		{Start: 0, End: 1.5, Text: "hello"},
		{Start: 1.5, End: 2, Text: "  "},
		{Start: 2, End: 3, Text: "world "},
	})
	if result.Text != "hello world" {
		t.Fatalf("Text = %q, want %q", result.Text, "hello world")
	}
	if len(result.Segments) != 3 {
		t.Fatalf("segments should be kept verbatim, got %d", len(result.Segments))
	}
}

func TestResultJSONFieldNames(t *testing.T) {
	result := transcript.NewResult(transcript.MethodWhisper, nil).WithPath("/tmp/x_transcript.txt")
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"method", "text", "segments", "file_path"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, data)
		}
	}
	if segs, ok := decoded["segments"].([]any); !ok || len(segs) != 0 {
		t.Fatalf("expected empty segments array, got %v", decoded["segments"])
	}
}

func TestShift(t *testing.T) {
	raw := []transcript.Segment{{Start: 0, End: 4, Text: "a"}, {Start: 4, End: 9.5, Text: "b"}}
	shifted := transcript.Shift(raw, 600)
	if shifted[0].Start != 600 || shifted[1].End != 609.5 {
		t.Fatalf("unexpected shift: %+v", shifted)
	}
	if raw[0].Start != 0 {
		t.Fatal("Shift must not mutate its input")
	}
}

func TestStorePersistIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "storage")
	store := transcript.NewStore(dir)
	result := transcript.NewResult(transcript.MethodCaptionsAuto, []transcript.Segment{{Text: "ni hao"}, {Text: "shijie"}})

	first, err := store.Persist("dQw4w9WgXcQ", result)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	firstBytes, _ := os.ReadFile(first.PersistedPath)

	second, err := store.Persist("dQw4w9WgXcQ", result)
	if err != nil {
		t.Fatalf("Persist again: %v", err)
	}
	secondBytes, _ := os.ReadFile(second.PersistedPath)

	if first.PersistedPath != filepath.Join(dir, "dQw4w9WgXcQ_transcript.txt") {
		t.Fatalf("unexpected path %q", first.PersistedPath)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Fatalf("persisted files differ: %q vs %q", firstBytes, secondBytes)
	}
	if string(firstBytes) != "ni hao shijie" {
		t.Fatalf("unexpected content %q", firstBytes)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the transcript file, found %d entries", len(entries))
	}
}

func TestStorePersistFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := transcript.NewStore(filepath.Join(blocker, "storage"))
	_, err := store.Persist("dQw4w9WgXcQ", transcript.NewResult(transcript.MethodWhisper, nil))
	if !errors.Is(err, services.ErrPersistenceFailed) {
		t.Fatalf("expected ErrPersistenceFailed, got %v", err)
	}
}
