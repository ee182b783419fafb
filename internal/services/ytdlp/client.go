package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DownloadOptions selects the yt-dlp format and audio post-processing.
type DownloadOptions struct {
	Format       string
	AudioFormat  string
	AudioQuality string
}

// DefaultDownloadOptions mirrors the repository defaults: best audio, mp3 at 192K.
func DefaultDownloadOptions() DownloadOptions {
	return DownloadOptions{Format: "bestaudio/best", AudioFormat: "mp3", AudioQuality: "192K"}
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithDownloadOptions overrides DefaultDownloadOptions; empty fields keep defaults.
func WithDownloadOptions(opts DownloadOptions) Option {
	return func(c *Client) {
		if opts.Format != "" {
			c.opts.Format = opts.Format
		}
		if opts.AudioFormat != "" {
			c.opts.AudioFormat = opts.AudioFormat
		}
		if opts.AudioQuality != "" {
			c.opts.AudioQuality = opts.AudioQuality
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary string
	exec   Executor
	opts   DownloadOptions
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
		opts:   DefaultDownloadOptions(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// Download fetches the audio of url into outputDir as <id>.<audio_format> and
// returns the final file path. onProgress receives download percentages as
// yt-dlp reports them; lines without a parseable percent are ignored.
func (c *Client) Download(ctx context.Context, url, outputDir string, onProgress func(float64)) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("download: url required")
	}
	if outputDir == "" {
		return "", errors.New("download: output directory required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("download: create output dir: %w", err)
	}

	args := []string{
		"--no-config",
		"--no-playlist",
		"--newline",
		"--progress",
		"-f", c.opts.Format,
		"-x",
		"--audio-format", c.opts.AudioFormat,
		"--audio-quality", c.opts.AudioQuality,
		"--print", "after_move:filepath",
		"-o", filepath.Join(outputDir, "%(id)s.%(ext)s"),
		"--", url,
	}

	started := time.Now()
	var finalPath string
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		if percent, ok := ParsePercent(line); ok {
			if onProgress != nil {
				onProgress(percent)
			}
			return
		}
		if candidate := strings.TrimSpace(line); filepath.IsAbs(candidate) {
			finalPath = candidate
		}
	})
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}
	if finalPath == "" {
		finalPath = newestFile(outputDir, "."+c.opts.AudioFormat, started)
	}
	return finalPath, nil
}

var percentPattern = regexp.MustCompile(`^\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)

// ParsePercent extracts the percent from a yt-dlp "[download]  42.3% of ..."
// progress line. Values outside 0..100 are rejected.
func ParsePercent(line string) (float64, bool) {
	match := percentPattern.FindStringSubmatch(strings.TrimSpace(line))
	if len(match) < 2 {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value < 0 || value > 100 {
		return 0, false
	}
	return value, true
}

func newestFile(dir, ext string, since time.Time) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(since.Add(-time.Second)) {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(dir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best
}

// Info fetches video metadata without downloading media.
func (c *Client) Info(ctx context.Context, url string) (Info, error) {
	if strings.TrimSpace(url) == "" {
		return Info{}, errors.New("info: url required")
	}
	args := []string{"--no-config", "--no-playlist", "--skip-download", "-j", "--", url}
	var payload []byte
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			payload = []byte(trimmed)
		}
	})
	if err != nil {
		return Info{}, fmt.Errorf("yt-dlp info: %w", err)
	}
	if len(payload) == 0 {
		return Info{}, errors.New("yt-dlp info: no metadata returned")
	}
	return ParseInfo(payload)
}
