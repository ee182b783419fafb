package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scribe/internal/history"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/progress"
	"scribe/internal/reference"
	"scribe/internal/services"
	"scribe/internal/textutil"
	"scribe/internal/transcript"
)

// errAbandoned records runs whose consumer stopped reading before the end.
var errAbandoned = errors.New("event consumer stopped before the run finished")

// job is the mutable state of one run.
type job struct {
	ref       string
	local     bool
	contentID string
	runID     string

	ctx     context.Context
	logger  *slog.Logger
	yield   func(progress.Event) bool
	stopped bool
	stage   Stage
	span    trace.Span
	started time.Time

	band band
	high int
}

// maxRunningPercent is the highest percent reported before the terminal event.
const maxRunningPercent = 98

// band is the slice of the run's 0..98 scale a phase reports into.
type band struct{ lo, hi int }

var (
	downloadBand   = band{lo: 0, hi: 30}
	transcribeBand = band{lo: 30, hi: maxRunningPercent}
	fullBand       = band{lo: 0, hi: maxRunningPercent}
)

func (b band) scale(percent int) int {
	if b.hi <= b.lo {
		b = fullBand
	}
	return b.lo + percent*(b.hi-b.lo)/100
}

func remoteJob(ref string) *job { return &job{ref: ref} }

func fileJob(path string) *job { return &job{ref: path, local: true} }

// emit forwards ev to the consumer unless it has stopped listening.
// Phase percents are mapped into the current band and never fall below the
// run's high-water mark.
func (j *job) emit(ev progress.Event) {
	if j.stopped || j.yield == nil {
		return
	}
	if pct, ok := ev.PercentValue(); ok && ev.Kind == progress.KindProgress {
		j.high = max(j.high, j.band.scale(pct))
		ev = progress.Progress(ev.Message, j.high)
	}
	if !j.yield(ev) {
		j.stopped = true
	}
}

// recordContext outlives cancellation so the ledger sees the outcome.
func (j *job) recordContext() context.Context {
	return context.WithoutCancel(j.ctx)
}

// identify resolves the content identifier without touching disk or network.
func (j *job) identify() error {
	if !j.local {
		id, err := reference.ExtractID(j.ref)
		if err != nil {
			return err
		}
		j.contentID = id
		return nil
	}
	stem := strings.TrimSuffix(filepath.Base(j.ref), filepath.Ext(j.ref))
	id := textutil.FileToken(stem)
	if id == "" {
		return services.Wrap(services.ErrInvalidReference, string(StageStart), "identify file", j.ref, nil)
	}
	j.contentID = id
	return nil
}

// execute runs strategies in order. yield may be nil for synchronous callers.
func (o *Orchestrator) execute(ctx context.Context, j *job, strategies []strategy, yield func(progress.Event) bool) (transcript.Result, error) {
	j.yield = yield
	j.stage = StageStart
	logger := o.logger

	if err := j.identify(); err != nil {
		logging.WarnWithContext(logger, "reference rejected", "invalid_reference",
			logging.String("reference", j.ref),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "pass a video URL or an existing media file"),
			logging.String(logging.FieldImpact, "run not started"),
		)
		j.emit(progress.Error(err.Error()))
		return transcript.Result{}, err
	}

	j.runID = o.newID()
	j.started = time.Now()
	ctx = services.WithJobID(ctx, j.runID)
	ctx, root := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("scribe.run_id", j.runID),
		attribute.String("scribe.content_id", j.contentID),
		attribute.Bool("scribe.local_file", j.local),
	))
	defer root.End()
	j.ctx = ctx
	j.logger = logging.WithContext(ctx, logger).With(logging.String(logging.FieldContentID, j.contentID))

	if o.lock.busy() {
		j.emit(progress.Status(MessageWaitingForLock))
	}
	release, err := o.lock.acquire(ctx)
	if err != nil {
		o.fail(j, root, err)
		return transcript.Result{}, err
	}
	defer release()

	o.begin(j)

	var lastErr error
	for i, s := range strategies {
		if j.stopped {
			lastErr = errAbandoned
			break
		}
		result, err := s.attempt(j)
		if err == nil {
			o.complete(j, root, result)
			return result, nil
		}
		lastErr = err
		if i == len(strategies)-1 || !s.fallthroughOn(err) {
			break
		}
		j.logger.Info("strategy failed, trying next",
			logging.Args(append(logging.DecisionAttrs("strategy_fallback", strategies[i+1].name, err.Error()),
				logging.String("strategy", s.name))...)...,
		)
		if s.fallbackMessage != "" {
			j.emit(progress.Status(s.fallbackMessage))
		}
	}
	if lastErr == nil {
		lastErr = services.Wrap(services.ErrValidation, string(j.stage), "run", "no strategy configured", nil)
	}
	o.fail(j, root, lastErr)
	return transcript.Result{}, lastErr
}

// enter records a state transition: history row, log line, and a child span.
func (o *Orchestrator) enter(j *job, stage Stage) {
	if j.span != nil {
		j.span.End()
	}
	j.stage = stage
	j.ctx = services.WithStage(j.ctx, string(stage))
	_, j.span = o.tracer.Start(j.ctx, "pipeline."+string(stage))
	j.logger.Debug("stage entered", logging.String(logging.FieldStage, string(stage)))
	if o.history != nil {
		if err := o.history.Stage(j.recordContext(), j.runID, string(stage)); err != nil {
			o.historyWarning(j, "record stage", err)
		}
	}
}

func (o *Orchestrator) endStage(j *job, err error) {
	if j.span == nil {
		return
	}
	if err != nil {
		j.span.RecordError(err)
		j.span.SetStatus(codes.Error, services.Classify(err))
	}
	j.span.End()
	j.span = nil
}

func (o *Orchestrator) begin(j *job) {
	j.logger.Info("transcription run started",
		logging.String("reference", j.ref),
		logging.Bool("local_file", j.local),
	)
	if o.history == nil {
		return
	}
	if err := o.history.Begin(j.recordContext(), history.Run{
		ID:        j.runID,
		Reference: j.ref,
		ContentID: j.contentID,
		Stage:     string(StageStart),
	}); err != nil {
		o.historyWarning(j, "begin run", err)
	}
}

func (o *Orchestrator) complete(j *job, root trace.Span, result transcript.Result) {
	o.endStage(j, nil)
	j.stage = StageComplete
	root.SetAttributes(attribute.String("scribe.method", string(result.Method)))
	j.logger.Info("transcription run complete",
		logging.String("method", string(result.Method)),
		logging.Int("segments", len(result.Segments)),
		logging.String("path", result.PersistedPath),
	)
	if o.history != nil {
		if err := o.history.Finish(j.recordContext(), j.runID, history.Outcome{
			Status:         history.StatusComplete,
			Method:         string(result.Method),
			TranscriptPath: result.PersistedPath,
			Segments:       len(result.Segments),
		}); err != nil {
			o.historyWarning(j, "finish run", err)
		}
	}
	j.emit(progress.Complete(result))
	if err := o.notifier.RunCompleted(j.recordContext(), notifications.Run{
		ContentID: j.contentID,
		Method:    string(result.Method),
		Path:      result.PersistedPath,
		Segments:  len(result.Segments),
		Elapsed:   time.Since(j.started),
	}); err != nil {
		o.notifyWarning(j, err)
	}
}

func (o *Orchestrator) fail(j *job, root trace.Span, err error) {
	o.endStage(j, err)
	failedAt := j.stage
	j.stage = StageFailed
	root.RecordError(err)
	root.SetStatus(codes.Error, services.Classify(err))

	kind := services.Classify(err)
	if errors.Is(err, errAbandoned) {
		kind = "abandoned"
	}
	logging.ErrorWithContext(j.logger, "transcription run failed", "run_failed",
		logging.String("failed_stage", string(failedAt)),
		logging.String("error_kind", kind),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(kind)),
	)
	if o.history != nil && j.runID != "" {
		if herr := o.history.Finish(j.recordContext(), j.runID, history.Outcome{
			Status:       history.StatusFailed,
			ErrorKind:    kind,
			ErrorMessage: err.Error(),
		}); herr != nil {
			o.historyWarning(j, "finish run", herr)
		}
	}
	j.emit(progress.Error(err.Error()))
	if kind == "abandoned" {
		return
	}
	if nerr := o.notifier.RunFailed(j.recordContext(), notifications.Run{
		ContentID: j.contentID,
		Elapsed:   time.Since(j.started),
	}, kind, err); nerr != nil {
		o.notifyWarning(j, nerr)
	}
}

func (o *Orchestrator) notifyWarning(j *job, err error) {
	logging.WarnWithContext(j.logger, "notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "run outcome was not announced"),
	)
}

func (o *Orchestrator) historyWarning(j *job, op string, err error) {
	logging.WarnWithContext(j.logger, "history update failed", "history_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the ledger with scribe history"),
		logging.String(logging.FieldImpact, "run outcome missing from history"),
	)
}

func hintFor(kind string) string {
	switch kind {
	case "download_failed", "artifact_missing", "artifact_empty":
		return "check network access and the yt-dlp version"
	case "transcription_failed":
		return "run scribe doctor to verify the speech model toolchain"
	case "persistence_failed":
		return "check permissions on the storage directory"
	case "not_found", "validation":
		return "verify the input file exists and is audio or video"
	default:
		return "check logs for details"
	}
}
