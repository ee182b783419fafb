package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"time"

	"scribe/internal/logging"
	"scribe/internal/media/ffmpeg"
	"scribe/internal/progress"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// emitter guards yield so nothing is sent after the consumer stops or after
// the terminal event.
type emitter struct {
	yield   func(progress.Event, error) bool
	stopped bool
	log     func(progress.Event)
}

func (em *emitter) event(ev progress.Event) bool {
	if em.stopped {
		return false
	}
	em.log(ev)
	if !em.yield(ev, nil) {
		em.stopped = true
	}
	return !em.stopped
}

func (em *emitter) fail(err error) {
	if em.stopped {
		return
	}
	em.stopped = true
	em.yield(progress.Event{}, err)
}

type outcome struct {
	segments []transcript.Segment
	err      error
}

// TranscribeWithProgress streams status, progress and exactly one terminal
// Complete event, or stops at the first error. Inference runs on a worker
// goroutine; its result is always received before this sequence returns, even
// when the consumer stops early.
func (e *Engine) TranscribeWithProgress(ctx context.Context, audio, lang string) iter.Seq2[progress.Event, error] {
	return func(yield func(progress.Event, error) bool) {
		logger := logging.WithContext(ctx, e.logger)
		sampler := logging.NewProgressSampler(e.opts.LogBucketPercent)
		em := &emitter{yield: yield}
		em.log = func(ev progress.Event) {
			if ev.Kind != progress.KindProgress {
				return
			}
			if sampler.ShouldLog(ev.Percent, ev.Message) {
				logger.Info("transcription progress", logging.Args(logging.ProgressAttrs(ev.Percent, ev.Message)...)...)
			}
		}

		if err := checkAudio(audio); err != nil {
			em.fail(err)
			return
		}

		status := MessageWarmStart
		if !e.Warm() {
			status = MessageColdStart
		}
		if !em.event(progress.Status(status)) {
			return
		}

		lang = e.language(lang)
		duration, known := e.probe(ctx, audio)

		var (
			segments []transcript.Segment
			err      error
		)
		if known && duration > float64(e.opts.ChunkSeconds) {
			segments, err = e.runChunked(ctx, audio, lang, duration, em)
		} else {
			segments, err = e.runSingle(ctx, audio, lang, duration, known, em)
		}
		if err != nil {
			logging.ErrorWithContext(logger, "transcription failed", "transcription_failed",
				logging.String("audio", audio),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the speech model installation and audio file"),
			)
			em.fail(err)
			return
		}
		if em.stopped {
			return
		}

		result := transcript.NewResult(transcript.MethodWhisper, segments)
		logger.Info("transcription complete",
			logging.Int("segments", len(result.Segments)),
			logging.Float64("duration_seconds", duration),
		)
		em.event(progress.Complete(result))
	}
}

func (e *Engine) probe(ctx context.Context, audio string) (float64, bool) {
	if e.prober == nil {
		return 0, false
	}
	seconds, ok, err := e.prober.Duration(ctx, audio)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "duration probe failed", "probe_failed",
			logging.String("audio", audio),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify ffprobe is installed"),
			logging.String(logging.FieldImpact, "progress reported without percentages"),
		)
		return 0, false
	}
	return seconds, ok && seconds > 0
}

// start launches inference on a worker goroutine.
func (e *Engine) start(ctx context.Context, audio, lang string) <-chan outcome {
	done := make(chan outcome, 1)
	go func() {
		segments, err := e.call(ctx, audio, lang)
		done <- outcome{segments: segments, err: err}
	}()
	return done
}

// await blocks until the worker finishes, calling tick on every poll interval
// while the consumer is still listening.
func (e *Engine) await(done <-chan outcome, em *emitter, tick func(elapsed time.Duration)) outcome {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()
	started := time.Now()
	for {
		select {
		case out := <-done:
			return out
		case <-ticker.C:
			if !em.stopped {
				tick(time.Since(started))
			}
		}
	}
}

func (e *Engine) runSingle(ctx context.Context, audio, lang string, duration float64, known bool, em *emitter) ([]transcript.Segment, error) {
	last := -1
	pulses := 0
	done := e.start(ctx, audio, lang)
	out := e.await(done, em, func(elapsed time.Duration) {
		if !known {
			em.event(progress.Pulse(pulseMessages[pulses%len(pulseMessages)]))
			pulses++
			return
		}
		pct := estimatePercent(elapsed.Seconds(), duration, e.opts.EstimateMultiplier)
		if pct == last {
			return
		}
		last = pct
		em.event(progress.Progress(MessageWorking, pct))
	})
	if out.err != nil {
		return nil, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "transcribe", audio, out.err)
	}
	return out.segments, nil
}

func (e *Engine) runChunked(ctx context.Context, audio, lang string, duration float64, em *emitter) ([]transcript.Segment, error) {
	logger := logging.WithContext(ctx, e.logger)
	if err := os.MkdirAll(e.opts.WorkDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "chunk", "ensure work dir", err)
	}
	dir, err := os.MkdirTemp(e.opts.WorkDir, "chunks-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "chunk", "create chunk dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.WarnWithContext(logger, "chunk directory cleanup failed", "chunk_cleanup_failed",
				logging.String("dir", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the directory from the work directory manually"),
				logging.String(logging.FieldImpact, "temporary chunks left on disk"),
			)
		}
	}()

	plan := Plan(duration, e.opts.ChunkSeconds)
	logger.Info("transcribing in chunks",
		logging.Int("chunks", len(plan)),
		logging.Int("chunk_seconds", e.opts.ChunkSeconds),
		logging.Float64("duration_seconds", duration),
	)

	var segments []transcript.Segment
	transcribed := 0
	for _, chunk := range plan {
		if em.stopped {
			break
		}
		if e.splitter == nil {
			return nil, services.Wrap(services.ErrConfiguration, "transcribing", "chunk", "no splitter configured", nil)
		}
		dest := ffmpeg.ChunkPath(dir, audio, chunk.Index)
		if err := e.splitter.ExtractChunk(ctx, audio, chunk.Offset, chunk.Length, dest); err != nil {
			removeChunk(logger, dest)
			logging.WarnWithContext(logger, "chunk split failed", "chunk_skipped",
				logging.Int("chunk", chunk.Index),
				logging.Float64("offset_seconds", chunk.Offset),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the source audio with ffprobe"),
				logging.String(logging.FieldImpact, "chunk omitted from transcript"),
			)
			continue
		}

		pct := chunkPercent(chunk.Index, len(plan))
		message := fmt.Sprintf("Transcribing part %d of %d…", chunk.Index+1, len(plan))
		emitted := false
		done := e.start(ctx, dest, lang)
		out := e.await(done, em, func(time.Duration) {
			if emitted {
				return
			}
			emitted = true
			em.event(progress.Progress(message, pct))
		})
		removeChunk(logger, dest)
		if out.err != nil {
			return nil, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "transcribe",
				fmt.Sprintf("chunk %d of %d", chunk.Index+1, len(plan)), out.err)
		}
		segments = append(segments, transcript.Shift(out.segments, chunk.Offset)...)
		transcribed++
	}
	if transcribed == 0 && !em.stopped {
		return nil, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "chunk", "no chunk could be split", nil)
	}
	return segments, nil
}

// removeChunk deletes one chunk file. A file that was never written is fine.
func removeChunk(logger *slog.Logger, path string) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	logging.WarnWithContext(logger, "chunk cleanup failed", "chunk_cleanup_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "remove the file from the work directory manually"),
		logging.String(logging.FieldImpact, "temporary chunk left until the chunk directory is removed"),
	)
}
