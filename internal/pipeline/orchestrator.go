package pipeline

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"scribe/internal/fetcher"
	"scribe/internal/history"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/progress"
	"scribe/internal/transcript"
)

const tracerName = "scribe/internal/pipeline"

// CaptionSource returns a persisted caption transcript or an error.
type CaptionSource interface {
	Fetch(ctx context.Context, id string) (transcript.Result, error)
}

// MediaFetcher produces local audio artifacts.
type MediaFetcher interface {
	Download(ctx context.Context, ref string, sink progress.Sink) (fetcher.Artifact, error)
	Convert(ctx context.Context, input string) (fetcher.Artifact, error)
}

// Transcriber streams engine events for one audio file.
type Transcriber interface {
	TranscribeWithProgress(ctx context.Context, audio, lang string) iter.Seq2[progress.Event, error]
}

// Recorder is the run ledger. history.Store satisfies it.
type Recorder interface {
	Begin(ctx context.Context, run history.Run) error
	Stage(ctx context.Context, id, stage string) error
	Finish(ctx context.Context, id string, outcome history.Outcome) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHistory records every run in rec.
func WithHistory(rec Recorder) Option {
	return func(o *Orchestrator) {
		o.history = rec
	}
}

// WithNotifier announces finished runs.
func WithNotifier(n notifications.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLockPath enables the cross-process run lock at path.
func WithLockPath(path string) Option {
	return func(o *Orchestrator) {
		o.lock = newRunLock(path)
	}
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithBridge sizes the progress bridge used during downloads.
func WithBridge(capacity int, sendTimeout time.Duration) Option {
	return func(o *Orchestrator) {
		if capacity > 0 {
			o.bridgeCapacity = capacity
		}
		if sendTimeout > 0 {
			o.sendTimeout = sendTimeout
		}
	}
}

// WithPulseInterval sets how often indeterminate progress is emitted while a
// blocking conversion runs.
func WithPulseInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pulseInterval = d
		}
	}
}

// WithLanguage sets the language hint passed to the engine.
func WithLanguage(lang string) Option {
	return func(o *Orchestrator) {
		o.language = lang
	}
}

// WithCaptions toggles the caption strategy. Disabled runs go straight to
// download and transcription.
func WithCaptions(enabled bool) Option {
	return func(o *Orchestrator) {
		o.captionsEnabled = enabled
	}
}

// Orchestrator owns the collaborators for transcription runs. It is safe for
// concurrent use; runs are serialized by the run lock.
type Orchestrator struct {
	captions CaptionSource
	media    MediaFetcher
	engine   Transcriber
	store    *transcript.Store

	history         Recorder
	notifier        notifications.Notifier
	lock            *runLock
	tracer          trace.Tracer
	logger          *slog.Logger
	bridgeCapacity  int
	sendTimeout     time.Duration
	pulseInterval   time.Duration
	language        string
	captionsEnabled bool
	newID           func() string
}

// New constructs an orchestrator.
func New(captions CaptionSource, media MediaFetcher, engine Transcriber, store *transcript.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		captions:        captions,
		media:           media,
		engine:          engine,
		store:           store,
		lock:            newRunLock(""),
		tracer:          otel.Tracer(tracerName),
		logger:          logging.NewNop(),
		bridgeCapacity:  progress.DefaultCapacity,
		sendTimeout:     progress.DefaultSendTimeout,
		pulseInterval:   time.Second,
		captionsEnabled: true,
		newID:           uuid.NewString,
		notifier:        notifications.NewService(nil),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "pipeline")
	return o
}

// Busy reports whether another run currently holds the run lock.
func (o *Orchestrator) Busy() bool {
	return o.lock.busy()
}

// Recover marks runs a previous process left running as interrupted. It is a
// no-op while another run holds the lock or when the recorder cannot reset.
func (o *Orchestrator) Recover(ctx context.Context) (int64, error) {
	resetter, ok := o.history.(interface {
		ResetInterrupted(ctx context.Context) (int64, error)
	})
	if !ok {
		return 0, nil
	}
	release, ok := o.lock.tryAcquire()
	if !ok {
		return 0, nil
	}
	defer release()
	n, err := resetter.ResetInterrupted(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.logger.Info("marked interrupted runs", logging.Int64("count", n))
	}
	return n, nil
}

// Run streams the events of one transcription run for a remote reference.
// The sequence ends after exactly one terminal event. Stopping iteration early
// still waits for in-flight work and cleans up temporary audio.
func (o *Orchestrator) Run(ctx context.Context, ref string) iter.Seq[progress.Event] {
	return func(yield func(progress.Event) bool) {
		o.execute(ctx, remoteJob(ref), o.remoteStrategies(), yield)
	}
}

// RunSync runs a transcription without streaming and returns the persisted
// result or the error that ended the run.
func (o *Orchestrator) RunSync(ctx context.Context, ref string) (transcript.Result, error) {
	return o.execute(ctx, remoteJob(ref), o.remoteStrategies(), nil)
}

// TranscribeFile streams the events of transcribing a local media file. The
// file is converted to standardized audio first; the transcript is named by
// the file's stem.
func (o *Orchestrator) TranscribeFile(ctx context.Context, path string) iter.Seq[progress.Event] {
	return func(yield func(progress.Event) bool) {
		o.execute(ctx, fileJob(path), o.fileStrategies(), yield)
	}
}

// TranscribeFileSync is the non-streaming form of TranscribeFile.
func (o *Orchestrator) TranscribeFileSync(ctx context.Context, path string) (transcript.Result, error) {
	return o.execute(ctx, fileJob(path), o.fileStrategies(), nil)
}
