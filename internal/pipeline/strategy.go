package pipeline

import (
	"errors"
	"time"

	"scribe/internal/fetcher"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/reference"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// strategy is one way of producing a transcript. Strategies run in slice
// order and the first success ends the run.
type strategy struct {
	name            string
	fallbackMessage string
	attempt         func(j *job) (transcript.Result, error)
	// fallthroughOn reports whether the next strategy should be tried after err.
	fallthroughOn func(err error) bool
}

func always(error) bool { return true }

// unlessAbandoned stops the fallback chain once nobody is listening.
func unlessAbandoned(err error) bool { return !errors.Is(err, errAbandoned) }

func (o *Orchestrator) remoteStrategies() []strategy {
	strategies := make([]strategy, 0, 2)
	if o.captionsEnabled && o.captions != nil {
		strategies = append(strategies, o.captionStrategy())
	}
	return append(strategies, o.whisperStrategy())
}

func (o *Orchestrator) fileStrategies() []strategy {
	return []strategy{o.fileStrategy()}
}

// captionStrategy asks the caption source. Any failure, including a
// persistence error, falls through to audio transcription.
func (o *Orchestrator) captionStrategy() strategy {
	return strategy{
		name:            "captions",
		fallbackMessage: MessageCaptionFallback,
		fallthroughOn:   unlessAbandoned,
		attempt: func(j *job) (transcript.Result, error) {
			o.enter(j, StageCaptionLookup)
			j.emit(progress.Status(MessageCaptionLookup))
			result, err := o.captions.Fetch(j.ctx, j.contentID)
			o.endStage(j, err)
			return result, err
		},
	}
}

// whisperStrategy downloads audio and runs the engine on it.
func (o *Orchestrator) whisperStrategy() strategy {
	return strategy{
		name:          "whisper",
		fallthroughOn: always,
		attempt: func(j *job) (transcript.Result, error) {
			o.enter(j, StageDownloadFallback)
			j.emit(progress.Status(MessageDownloading))
			j.band = downloadBand
			artifact, err := o.download(j)
			if err != nil {
				o.endStage(j, err)
				return transcript.Result{}, err
			}
			defer o.cleanup(j, artifact)
			if j.stopped {
				return transcript.Result{}, errAbandoned
			}
			j.band = transcribeBand
			return o.transcribe(j, artifact)
		},
	}
}

// fileStrategy converts a local file and runs the engine on it.
func (o *Orchestrator) fileStrategy() strategy {
	return strategy{
		name:          "file",
		fallthroughOn: always,
		attempt: func(j *job) (transcript.Result, error) {
			o.enter(j, StageConverting)
			j.emit(progress.Status(MessageConverting))
			if o.media == nil {
				return transcript.Result{}, services.Wrap(services.ErrConfiguration, string(StageConverting), "convert", "no media fetcher configured", nil)
			}
			artifact, err := o.convert(j)
			if err != nil {
				o.endStage(j, err)
				return transcript.Result{}, err
			}
			defer o.cleanup(j, artifact)
			if j.stopped {
				return transcript.Result{}, errAbandoned
			}
			j.band = fullBand
			return o.transcribe(j, artifact)
		},
	}
}

// download runs the fetcher on a worker goroutine and relays its progress
// through a bounded bridge until the worker finishes.
func (o *Orchestrator) download(j *job) (fetcher.Artifact, error) {
	if o.media == nil {
		return fetcher.Artifact{}, services.Wrap(services.ErrConfiguration, string(StageDownloadFallback), "download", "no media fetcher configured", nil)
	}
	bridge := progress.NewBridge(o.bridgeCapacity,
		progress.WithSendTimeout(o.sendTimeout),
		progress.WithLogger(j.logger),
	)

	type downloaded struct {
		artifact fetcher.Artifact
		err      error
	}
	done := make(chan downloaded, 1)
	go func() {
		defer bridge.Close()
		artifact, err := o.media.Download(j.ctx, reference.WatchURL(j.contentID), bridge)
		done <- downloaded{artifact: artifact, err: err}
	}()

	for ev := range bridge.Events() {
		j.emit(ev)
	}
	out := <-done
	if dropped := bridge.Dropped(); dropped > 0 {
		j.logger.Debug("download progress events dropped", logging.Int64("dropped", dropped))
	}
	return out.artifact, out.err
}

// convert standardizes a local file on a worker goroutine. Conversion has no
// percent, so the foreground emits pulses until the worker finishes.
func (o *Orchestrator) convert(j *job) (fetcher.Artifact, error) {
	type converted struct {
		artifact fetcher.Artifact
		err      error
	}
	done := make(chan converted, 1)
	go func() {
		artifact, err := o.media.Convert(j.ctx, j.ref)
		done <- converted{artifact: artifact, err: err}
	}()

	ticker := time.NewTicker(o.pulseInterval)
	defer ticker.Stop()
	for {
		select {
		case out := <-done:
			return out.artifact, out.err
		case <-ticker.C:
			j.emit(progress.Pulse(MessageConverting))
		}
	}
}

// transcribe relays engine events, intercepting the engine's Complete so the
// transcript is persisted before the run's own Complete is emitted.
func (o *Orchestrator) transcribe(j *job, artifact fetcher.Artifact) (transcript.Result, error) {
	o.enter(j, StageTranscribing)
	if o.engine == nil {
		err := services.Wrap(services.ErrConfiguration, string(StageTranscribing), "transcribe", "no engine configured", nil)
		o.endStage(j, err)
		return transcript.Result{}, err
	}

	var (
		result   transcript.Result
		finished bool
	)
	for ev, err := range o.engine.TranscribeWithProgress(j.ctx, artifact.Path, o.language) {
		if err != nil {
			o.endStage(j, err)
			return transcript.Result{}, err
		}
		if ev.Kind == progress.KindComplete && ev.Result != nil {
			result = *ev.Result
			finished = true
			continue
		}
		j.emit(ev)
		if j.stopped {
			break
		}
	}
	if !finished {
		var err error = errAbandoned
		if !j.stopped {
			err = services.Wrap(services.ErrTranscriptionFailed, string(StageTranscribing), "transcribe", "engine ended without a result", nil)
		}
		o.endStage(j, err)
		return transcript.Result{}, err
	}

	persisted, err := o.store.Persist(j.contentID, result)
	if err != nil {
		o.endStage(j, err)
		return transcript.Result{}, err
	}
	o.endStage(j, nil)
	return persisted, nil
}

// cleanup deletes a run's temporary audio. Failures are logged only.
func (o *Orchestrator) cleanup(j *job, artifact fetcher.Artifact) {
	if err := artifact.Remove(); err != nil {
		logging.WarnWithContext(j.logger, "audio cleanup failed", "artifact_cleanup_failed",
			logging.String("path", artifact.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file from the work directory manually"),
			logging.String(logging.FieldImpact, "temporary audio left on disk"),
		)
		return
	}
	j.logger.Debug("audio artifact removed", logging.String("path", artifact.Path))
}

