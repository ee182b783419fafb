package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Duration: "61.5"}, {CodecType: "audio", Duration: "60"}},
		Format:  Format{Duration: "N/A"},
	}
	if result.DurationSeconds() != 61.5 {
		t.Fatalf("expected stream duration, got %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestProberDuration(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		runErr  error
		want    float64
		wantOK  bool
		wantErr bool
	}{
		{"known", `{"format":{"duration":"1500.0"}}`, nil, 1500, true, false},
		{"missing", `{"format":{}}`, nil, 0, false, false},
		{"malformed", `{"format":{"duration":"abc"}}`, nil, 0, false, false},
		{"tool failure", "", errors.New("exit status 1"), 0, false, true},
		{"bad json", "not json", nil, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []string
			p := NewProber("").WithRunner(func(_ context.Context, binary string, args ...string) ([]byte, error) {
				if binary != "ffprobe" {
					t.Fatalf("unexpected binary %q", binary)
				}
				gotArgs = args
				return []byte(tt.output), tt.runErr
			})
			got, ok, err := p.Duration(context.Background(), "/tmp/audio.wav")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("Duration = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
			if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "/tmp/audio.wav" {
				t.Fatalf("path not passed last: %v", gotArgs)
			}
		})
	}
}
