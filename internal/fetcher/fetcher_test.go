package fetcher_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/internal/fetcher"
	"scribe/internal/progress"
	"scribe/internal/services"
	"scribe/internal/testsupport"
)

type scriptedDownloader struct {
	mu       sync.Mutex
	dir      string
	calls    int
	outcomes []func(dir string, onProgress func(float64)) (string, error)
}

func (d *scriptedDownloader) Download(_ context.Context, _ string, dir string, onProgress func(float64)) (string, error) {
	d.mu.Lock()
	idx := d.calls
	d.calls++
	d.mu.Unlock()
	if idx >= len(d.outcomes) {
		idx = len(d.outcomes) - 1
	}
	return d.outcomes[idx](dir, onProgress)
}

func writeAudio(t *testing.T, size int) func(string, func(float64)) (string, error) {
	t.Helper()
	return func(dir string, onProgress func(float64)) (string, error) {
		for _, p := range []float64{0, 12.5, 12.9, 50, 100} {
			onProgress(p)
		}
		path := filepath.Join(dir, "abcdefghijk.mp3")
		if err := os.WriteFile(path, bytes.Repeat([]byte{0xff}, size), 0o644); err != nil {
			return "", err
		}
		return path, nil
	}
}

func failWith(err error) func(string, func(float64)) (string, error) {
	return func(string, func(float64)) (string, error) { return "", err }
}

type recordingSink struct {
	mu     sync.Mutex
	events []progress.Event
}

func (s *recordingSink) Send(e progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func TestDownloadRetriesThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	dl := &scriptedDownloader{outcomes: []func(string, func(float64)) (string, error){
		failWith(errors.New("connection reset")),
		writeAudio(t, 10), // too small
		writeAudio(t, 4096),
	}}

	var sleeps []time.Duration
	f := fetcher.New(dl, nil, fetcher.Options{WorkDir: dir, Attempts: 3, Delay: 2 * time.Second, MinBytes: 1000},
		fetcher.WithSleeper(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}),
	)

	sink := &recordingSink{}
	artifact, err := f.Download(context.Background(), "https://youtu.be/abcdefghijk", sink)
	require.NoError(t, err)
	assert.Equal(t, 3, dl.calls)
	assert.Equal(t, int64(4096), artifact.Size)
	assert.FileExists(t, artifact.Path)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeps)

	var percents []int
	for _, e := range sink.events {
		require.Equal(t, progress.KindProgress, e.Kind)
		assert.Equal(t, fetcher.DownloadMessage, e.Message)
		v, ok := e.PercentValue()
		require.True(t, ok)
		percents = append(percents, v)
	}
	// the retry repeats 0..100 but nothing below the first attempt's peak is resent
	assert.Equal(t, []int{0, 12, 50, 100}, percents)

	require.NoError(t, artifact.Remove())
	assert.NoFileExists(t, artifact.Path)
	require.NoError(t, artifact.Remove())
}

func TestDownloadWaitsBetweenAttempts(t *testing.T) {
	dl := &scriptedDownloader{outcomes: []func(string, func(float64)) (string, error){
		failWith(errors.New("boom")),
		writeAudio(t, 2000),
	}}
	f := fetcher.New(dl, nil, fetcher.Options{WorkDir: t.TempDir(), Attempts: 3, Delay: 30 * time.Millisecond, MinBytes: 1000})

	start := time.Now()
	_, err := f.Download(context.Background(), "abcdefghijk", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDownloadGivesUpAfterBudget(t *testing.T) {
	dl := &scriptedDownloader{outcomes: []func(string, func(float64)) (string, error){
		failWith(errors.New("first")),
		failWith(errors.New("second")),
		func(string, func(float64)) (string, error) { return "/nonexistent/file.mp3", nil },
		failWith(errors.New("never reached")),
	}}
	f := fetcher.New(dl, nil, fetcher.Options{WorkDir: t.TempDir(), Attempts: 3, Delay: 0, MinBytes: 1000})

	_, err := f.Download(context.Background(), "abcdefghijk", nil)
	require.Error(t, err)
	assert.Equal(t, 3, dl.calls)
	assert.ErrorIs(t, err, services.ErrDownloadFailed)
	assert.ErrorIs(t, err, services.ErrArtifactMissing)
	assert.NotContains(t, err.Error(), "first")
}

func TestDownloadDoesNotRetryPermanentFailure(t *testing.T) {
	dl := &scriptedDownloader{outcomes: []func(string, func(float64)) (string, error){
		failWith(services.Wrap(services.ErrConfiguration, "download_fallback", "download", "yt-dlp binary not found", nil)),
		writeAudio(t, 4096),
	}}
	f := fetcher.New(dl, nil, fetcher.Options{WorkDir: t.TempDir(), Attempts: 3, Delay: 0, MinBytes: 1000})

	_, err := f.Download(context.Background(), "abcdefghijk", nil)
	require.Error(t, err)
	assert.Equal(t, 1, dl.calls)
	assert.ErrorIs(t, err, services.ErrDownloadFailed)
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestDownloadRemovesUndersizedFile(t *testing.T) {
	dir := t.TempDir()
	dl := &scriptedDownloader{outcomes: []func(string, func(float64)) (string, error){writeAudio(t, 999)}}
	f := fetcher.New(dl, nil, fetcher.Options{WorkDir: dir, Attempts: 1, MinBytes: 1000})

	_, err := f.Download(context.Background(), "abcdefghijk", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrArtifactEmpty)
	assert.Equal(t, "artifact_empty", services.Classify(err))
	assert.NoFileExists(t, filepath.Join(dir, "abcdefghijk.mp3"))
}

func TestDownloadStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dl := &scriptedDownloader{outcomes: []func(string, func(float64)) (string, error){
		func(string, func(float64)) (string, error) {
			cancel()
			return "", errors.New("interrupted")
		},
	}}
	f := fetcher.New(dl, nil, fetcher.Options{WorkDir: t.TempDir(), Attempts: 3, Delay: time.Hour, MinBytes: 1000})

	_, err := f.Download(ctx, "abcdefghijk", nil)
	require.Error(t, err)
	assert.Equal(t, 1, dl.calls)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeConverter struct {
	err   error
	calls int
}

func (c *fakeConverter) ExtractAudio(_ context.Context, _ string, dest string) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(dest, []byte("RIFF....WAVE"), 0o644)
}

func TestConvertWritesProcessedFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "lecture.mp3")
	testsupport.WriteMedia(t, input, 4096)

	conv := &fakeConverter{}
	f := fetcher.New(nil, conv, fetcher.Options{WorkDir: dir})
	artifact, err := f.Convert(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lecture_processed.wav"), artifact.Path)
	assert.Equal(t, 1, conv.calls)
}

func TestConvertFailures(t *testing.T) {
	dir := t.TempDir()

	f := fetcher.New(nil, &fakeConverter{}, fetcher.Options{WorkDir: dir})
	_, err := f.Convert(context.Background(), filepath.Join(dir, "missing.mp4"))
	assert.ErrorIs(t, err, services.ErrNotFound)

	pdf := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(pdf, append([]byte("%PDF-1.7\n"), make([]byte, 64)...), 0o644))
	_, err = f.Convert(context.Background(), pdf)
	assert.ErrorIs(t, err, services.ErrValidation)

	input := filepath.Join(dir, "clip.bin")
	require.NoError(t, os.WriteFile(input, []byte("opaque media bytes"), 0o644))
	conv := &fakeConverter{err: errors.New("exit status 1")}
	f = fetcher.New(nil, conv, fetcher.Options{WorkDir: dir})
	_, err = f.Convert(context.Background(), input)
	assert.ErrorIs(t, err, services.ErrExternalTool)
	assert.Equal(t, 1, conv.calls)
}
