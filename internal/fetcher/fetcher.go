// Package fetcher turns a media reference into a local standardized audio
// artifact: remote references are downloaded with a bounded retry budget and
// post-download integrity checks, uploaded files are converted once.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/services"
)

// DownloadMessage labels download progress events.
const DownloadMessage = "Downloading audio…"

// Downloader is the remote download capability.
type Downloader interface {
	Download(ctx context.Context, url, outputDir string, onProgress func(float64)) (string, error)
}

// Converter is the audio standardization capability.
type Converter interface {
	ExtractAudio(ctx context.Context, input, dest string) error
}

// Artifact is a temporary audio file owned by one run.
type Artifact struct {
	Path string
	Size int64
}

// Remove deletes the artifact file. A missing file is not an error.
func (a Artifact) Remove() error {
	if a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Options controls the retry budget and integrity threshold.
type Options struct {
	WorkDir  string
	Attempts int
	Delay    time.Duration
	MinBytes int64
}

// DefaultOptions returns three attempts, a fixed 2s delay and a 1000 byte floor.
func DefaultOptions(workDir string) Options {
	return Options{WorkDir: workDir, Attempts: 3, Delay: 2 * time.Second, MinBytes: 1000}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithSleeper replaces the inter-attempt wait (for testing).
func WithSleeper(sleep Sleeper) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// Fetcher resolves references to local audio artifacts.
type Fetcher struct {
	downloader Downloader
	converter  Converter
	opts       Options
	sleep      Sleeper
	logger     *slog.Logger
}

// New constructs a Fetcher. Zero-valued options fall back to DefaultOptions.
func New(downloader Downloader, converter Converter, opts Options, options ...Option) *Fetcher {
	defaults := DefaultOptions(opts.WorkDir)
	if opts.Attempts <= 0 {
		opts.Attempts = defaults.Attempts
	}
	if opts.Delay < 0 {
		opts.Delay = defaults.Delay
	}
	if opts.MinBytes < 0 {
		opts.MinBytes = defaults.MinBytes
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	f := &Fetcher{
		downloader: downloader,
		converter:  converter,
		opts:       opts,
		sleep:      contextSleep,
		logger:     logging.NewNop(),
	}
	for _, opt := range options {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "fetcher")
	return f
}

// Download fetches ref with up to Options.Attempts attempts separated by a
// fixed Options.Delay. An attempt fails when the downloader errors, the
// reported file is absent, or it is smaller than Options.MinBytes. Failures
// that services.Terminal classifies as permanent end the loop early. Only the
// final attempt's error is returned, wrapped in services.ErrDownloadFailed.
// Percent updates are forwarded to sink as integer progress events. Values at
// or below the highest already sent are skipped, so a retry never reports a
// lower percent than an earlier attempt.
func (f *Fetcher) Download(ctx context.Context, ref string, sink progress.Sink) (Artifact, error) {
	if sink == nil {
		sink = progress.Discard
	}
	logger := logging.WithContext(ctx, f.logger)

	var lastErr error
	high := -1
	for attempt := 1; attempt <= f.opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, f.opts.Delay); err != nil {
				lastErr = err
				break
			}
		}

		artifact, err := f.attempt(ctx, ref, sink, &high)
		if err == nil {
			logger.Info("download complete",
				logging.Int("attempt", attempt),
				logging.String("path", artifact.Path),
				logging.Int64("bytes", artifact.Size),
			)
			return artifact, nil
		}
		lastErr = err
		if services.Terminal(err) {
			logging.WarnWithContext(logger, "download failed permanently", "download_not_retryable",
				logging.Int("attempt", attempt),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the configuration or reference before retrying"),
				logging.String(logging.FieldImpact, "remaining attempts skipped"),
			)
			break
		}
		if attempt < f.opts.Attempts {
			logging.WarnWithContext(logger, "download attempt failed", "download_retry",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", f.opts.Attempts),
				logging.Duration("retry_in", f.opts.Delay),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "transient network or provider failure"),
				logging.String(logging.FieldImpact, "retrying download"),
			)
		}
	}

	return Artifact{}, services.Wrap(services.ErrDownloadFailed, "download_fallback", "download",
		fmt.Sprintf("gave up after %d attempts", f.opts.Attempts), lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, ref string, sink progress.Sink, high *int) (Artifact, error) {
	path, err := f.downloader.Download(ctx, ref, f.opts.WorkDir, func(percent float64) {
		if math.IsNaN(percent) || math.IsInf(percent, 0) {
			return
		}
		value := int(percent)
		if value <= *high {
			return
		}
		*high = value
		sink.Send(progress.Progress(DownloadMessage, value))
	})
	if err != nil {
		return Artifact{}, err
	}
	return f.verify(path)
}

func (f *Fetcher) verify(path string) (Artifact, error) {
	if strings.TrimSpace(path) == "" {
		return Artifact{}, services.Wrap(services.ErrArtifactMissing, "download_fallback", "verify", "downloader reported no output file", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrArtifactMissing, "download_fallback", "verify", path, err)
	}
	if info.IsDir() {
		return Artifact{}, services.Wrap(services.ErrArtifactMissing, "download_fallback", "verify", path+" is a directory", nil)
	}
	if info.Size() < f.opts.MinBytes {
		_ = os.Remove(path)
		return Artifact{}, services.Wrap(services.ErrArtifactEmpty, "download_fallback", "verify",
			fmt.Sprintf("%s is %d bytes (minimum %d)", path, info.Size(), f.opts.MinBytes), nil)
	}
	return Artifact{Path: path, Size: info.Size()}, nil
}
