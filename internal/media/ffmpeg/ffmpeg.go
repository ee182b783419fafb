// Package ffmpeg wraps the ffmpeg conversions the pipeline needs: turning an
// arbitrary input into 16 kHz mono PCM WAV, and cutting exact-copy time
// slices for chunked transcription.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Standardized audio parameters expected by the speech engine.
const (
	SampleRate = "16000"
	Channels   = "1"
	Codec      = "pcm_s16le"
)

// Runner executes ffmpeg with args.
type Runner func(ctx context.Context, binary string, args ...string) error

func execRunner(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Converter runs ffmpeg conversions.
type Converter struct {
	binary string
	run    Runner
}

// New returns a converter for binary ("ffmpeg" when empty).
func New(binary string) *Converter {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Converter{binary: binary, run: execRunner}
}

// WithRunner replaces the process runner (for testing).
func (c *Converter) WithRunner(run Runner) *Converter {
	if run != nil {
		c.run = run
	}
	return c
}

// Binary returns the configured ffmpeg executable.
func (c *Converter) Binary() string {
	return c.binary
}

// ProcessedPath returns the standardized output path for input:
// <dir>/<stem>_processed.wav.
func ProcessedPath(input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), stem+"_processed.wav")
}

// ChunkPath returns the path used for chunk index of source inside dir. The
// source extension is kept because chunks are stream copies.
func ChunkPath(dir, source string, index int) string {
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(filepath.Base(source), ext)
	return filepath.Join(dir, fmt.Sprintf("%s_chunk_%03d%s", stem, index, ext))
}

// ExtractAudio converts input to mono 16 kHz PCM WAV at dest, overwriting it.
func (c *Converter) ExtractAudio(ctx context.Context, input, dest string) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(dest) == "" {
		return errors.New("extract audio: input and destination required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-sn",
		"-dn",
		"-ac", Channels,
		"-ar", SampleRate,
		"-c:a", Codec,
		dest,
	}
	if err := c.run(ctx, c.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// ExtractChunk copies length seconds of source starting at offset into dest
// without re-encoding.
func (c *Converter) ExtractChunk(ctx context.Context, source string, offset, length float64, dest string) error {
	if length <= 0 {
		return fmt.Errorf("extract chunk: invalid length %v", length)
	}
	if offset < 0 {
		return fmt.Errorf("extract chunk: invalid offset %v", offset)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(offset),
		"-t", formatSeconds(length),
		"-i", source,
		"-c", "copy",
		dest,
	}
	if err := c.run(ctx, c.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract chunk: %w", err)
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
