package reference_test

import (
	"errors"
	"testing"

	"scribe/internal/reference"
	"scribe/internal/services"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch with extra params", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"live", "https://www.youtube.com/live/jfKfPfyJRdk?feature=shared", "jfKfPfyJRdk"},
		{"shorts", "https://youtube.com/shorts/aBcDeFgHi_-", "aBcDeFgHi_-"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"v path", "http://youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"e path", "youtube.com/e/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"user path", "https://www.youtube.com/user/someone/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reference.ExtractID(tt.ref)
			if err != nil {
				t.Fatalf("ExtractID(%q) returned error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Fatalf("ExtractID(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestExtractIDInvalid(t *testing.T) {
	for _, ref := range []string{"not a url", "", "https://example.com/watch?v=dQw4w9WgXcQ", "https://youtu.be/short"} {
		_, err := reference.ExtractID(ref)
		if err == nil {
			t.Fatalf("expected error for %q", ref)
		}
		if !errors.Is(err, services.ErrInvalidReference) {
			t.Fatalf("expected ErrInvalidReference for %q, got %v", ref, err)
		}
		if !services.Terminal(err) {
			t.Fatalf("invalid reference should be terminal: %v", err)
		}
	}
}

func TestExtractIDDeterministic(t *testing.T) {
	ref := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	first, _ := reference.ExtractID(ref)
	for range 10 {
		again, _ := reference.ExtractID(ref)
		if again != first {
			t.Fatalf("extraction not deterministic: %q vs %q", first, again)
		}
	}
}

func TestIsRemote(t *testing.T) {
	if !reference.IsRemote("https://youtu.be/dQw4w9WgXcQ") {
		t.Fatal("expected URL to be remote")
	}
	if reference.IsRemote("/tmp/meeting.m4a") {
		t.Fatal("expected local path to not be remote")
	}
}
