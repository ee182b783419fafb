// Package engine owns the process-wide speech recognition handle. The handle
// is built lazily on first use, every call into it is serialized, and long
// recordings are transcribed in fixed-length chunks while a foreground ticker
// reports progress.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Status messages emitted before any model work.
const (
	MessageColdStart = "Loading speech model (first run)…"
	MessageWarmStart = "Preparing transcription…"
	MessageWorking   = "Transcribing audio…"
)

// pulseMessages rotate while the duration is unknown.
var pulseMessages = []string{
	"Transcribing audio…",
	"Still transcribing…",
	"Working through the recording…",
}

// Recognizer converts one audio file into segments in file time.
type Recognizer interface {
	Transcribe(ctx context.Context, audio, lang string) ([]transcript.Segment, error)
}

// Loader builds the recognizer. It is called at most once per Engine.
type Loader func(ctx context.Context) (Recognizer, error)

// Prober reports the duration of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (seconds float64, ok bool, err error)
}

// Splitter cuts an exact-copy time range out of an audio file.
type Splitter interface {
	ExtractChunk(ctx context.Context, source string, offset, length float64, dest string) error
}

// Options tunes chunking and progress estimation.
type Options struct {
	ChunkSeconds       int
	PollInterval       time.Duration
	EstimateMultiplier float64
	WorkDir            string
	Language           string
	LogBucketPercent   float64
	Logger             *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ChunkSeconds <= 0 {
		o.ChunkSeconds = DefaultChunkSeconds
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 1500 * time.Millisecond
	}
	if o.EstimateMultiplier < 1 {
		o.EstimateMultiplier = 2.0
	}
	if o.WorkDir == "" {
		o.WorkDir = os.TempDir()
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

type handle struct {
	rec Recognizer
}

// Engine is constructed once at process start and shared by reference.
type Engine struct {
	loader   Loader
	prober   Prober
	splitter Splitter
	opts     Options
	logger   *slog.Logger

	ready  atomic.Pointer[handle]
	initMu sync.Mutex
	loads  atomic.Int32
	callMu sync.Mutex
}

// New constructs an engine. Nothing is loaded until the first transcription.
func New(loader Loader, prober Prober, splitter Splitter, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		loader:   loader,
		prober:   prober,
		splitter: splitter,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "engine"),
	}
}

// Warm reports whether the recognizer has been loaded.
func (e *Engine) Warm() bool {
	return e.ready.Load() != nil
}

// Loads reports how many times the loader has been invoked.
func (e *Engine) Loads() int {
	return int(e.loads.Load())
}

// recognizer returns the shared handle, loading it on first use. Concurrent
// first callers block on initMu and all receive the same handle. A failed
// load is not cached.
func (e *Engine) recognizer(ctx context.Context) (Recognizer, error) {
	if h := e.ready.Load(); h != nil {
		return h.rec, nil
	}
	e.initMu.Lock()
	defer e.initMu.Unlock()
	if h := e.ready.Load(); h != nil {
		return h.rec, nil
	}
	if e.loader == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "load model", "no loader configured", nil)
	}
	e.loads.Add(1)
	start := time.Now()
	rec, err := e.loader(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "load model", "loader returned no recognizer", nil)
	}
	e.ready.Store(&handle{rec: rec})
	logging.WithContext(ctx, e.logger).Info("speech model loaded", logging.Duration("load_time", time.Since(start)))
	return rec, nil
}

// call runs one serialized inference on the shared handle.
func (e *Engine) call(ctx context.Context, audio, lang string) ([]transcript.Segment, error) {
	rec, err := e.recognizer(ctx)
	if err != nil {
		return nil, err
	}
	e.callMu.Lock()
	defer e.callMu.Unlock()
	return rec.Transcribe(ctx, audio, lang)
}

// Transcribe runs a full transcription and returns the result without
// progress reporting.
func (e *Engine) Transcribe(ctx context.Context, audio, lang string) (transcript.Result, error) {
	var result transcript.Result
	completed := false
	for ev, err := range e.TranscribeWithProgress(ctx, audio, lang) {
		if err != nil {
			return transcript.Result{}, err
		}
		if ev.Result != nil {
			result = *ev.Result
			completed = true
		}
	}
	if !completed {
		return transcript.Result{}, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "transcribe", "no result produced", nil)
	}
	return result, nil
}

func (e *Engine) language(lang string) string {
	if lang != "" {
		return lang
	}
	return e.opts.Language
}

func checkAudio(audio string) error {
	info, err := os.Stat(audio)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "transcribing", "stat audio", audio, err)
		}
		return services.Wrap(services.ErrValidation, "transcribing", "stat audio", audio, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "transcribing", "stat audio", audio+" is a directory", nil)
	}
	return nil
}
