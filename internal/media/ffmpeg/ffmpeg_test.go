package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestProcessedPath(t *testing.T) {
	got := ProcessedPath("/data/uploads/meeting.final.m4a")
	if got != filepath.Join("/data/uploads", "meeting.final_processed.wav") {
		t.Fatalf("unexpected processed path %q", got)
	}
}

func TestChunkPath(t *testing.T) {
	got := ChunkPath("/work/job", "/tmp/abc.mp3", 2)
	if got != filepath.Join("/work/job", "abc_chunk_002.mp3") {
		t.Fatalf("unexpected chunk path %q", got)
	}
}

func TestExtractAudioArgs(t *testing.T) {
	var captured []string
	c := New("/opt/ffmpeg").WithRunner(func(_ context.Context, binary string, args ...string) error {
		if binary != "/opt/ffmpeg" {
			t.Fatalf("unexpected binary %q", binary)
		}
		captured = args
		return nil
	})
	if err := c.ExtractAudio(context.Background(), "in.mp4", "out.wav"); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	joined := strings.Join(captured, " ")
	for _, want := range []string{"-i in.mp4", "-ac 1", "-ar 16000", "-c:a pcm_s16le"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
	if captured[len(captured)-1] != "out.wav" {
		t.Fatalf("destination should be last arg: %v", captured)
	}
}

func TestExtractChunkUsesStreamCopy(t *testing.T) {
	var captured []string
	c := New("").WithRunner(func(_ context.Context, _ string, args ...string) error {
		captured = args
		return nil
	})
	if err := c.ExtractChunk(context.Background(), "a.mp3", 1200, 300.5, "c.mp3"); err != nil {
		t.Fatalf("ExtractChunk: %v", err)
	}
	ss := slices.Index(captured, "-ss")
	tt := slices.Index(captured, "-t")
	in := slices.Index(captured, "-i")
	if ss < 0 || captured[ss+1] != "1200" || tt < 0 || captured[tt+1] != "300.5" {
		t.Fatalf("unexpected seek args: %v", captured)
	}
	if ss > in {
		t.Fatalf("seek should precede input for fast seeking: %v", captured)
	}
	if !strings.Contains(strings.Join(captured, " "), "-c copy") {
		t.Fatalf("expected stream copy: %v", captured)
	}
}

func TestExtractChunkRejectsBadInput(t *testing.T) {
	c := New("").WithRunner(func(context.Context, string, ...string) error {
		t.Fatal("runner should not be called")
		return nil
	})
	if err := c.ExtractChunk(context.Background(), "a", 0, 0, "b"); err == nil {
		t.Fatal("expected error for zero length")
	}
	if err := c.ExtractChunk(context.Background(), "a", -1, 10, "b"); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

func TestExtractAudioWrapsFailure(t *testing.T) {
	boom := errors.New("exit status 1: invalid data")
	c := New("").WithRunner(func(context.Context, string, ...string) error { return boom })
	err := c.ExtractAudio(context.Background(), "in", "out")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}
