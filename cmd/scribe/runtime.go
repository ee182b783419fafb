package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"scribe/internal/captions"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/engine"
	"scribe/internal/fetcher"
	"scribe/internal/history"
	"scribe/internal/logging"
	"scribe/internal/media/ffmpeg"
	"scribe/internal/media/ffprobe"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/services/whisperx"
	"scribe/internal/services/ytdlp"
	"scribe/internal/transcript"
)

// runtime holds the collaborators shared by every command in one process.
type runtime struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *transcript.Store
	history      *history.Store
	captions     *captions.Source
	fetcher      *fetcher.Fetcher
	engine       *engine.Engine
	orchestrator *pipeline.Orchestrator
	notifier     notifications.Notifier
	ytdlp        *ytdlp.Client
	converter    *ffmpeg.Converter
}

func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	store := transcript.NewStore(cfg.Paths.StorageDir)

	hist, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	ytClient := ytdlp.New(cfg.Paths.YtDlpBinary, ytdlp.WithDownloadOptions(ytdlp.DownloadOptions{
		Format:       cfg.Download.Format,
		AudioFormat:  cfg.Download.AudioFormat,
		AudioQuality: cfg.Download.AudioQuality,
	}))

	prefs, err := captions.ParsePreferences(cfg.Captions.PrimaryLanguage, cfg.Captions.SecondaryLanguages)
	if err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("caption preferences: %w", err)
	}
	provider := captions.NewYtDlpProvider(ytClient,
		captions.WithRateLimit(cfg.Captions.RequestsPerSecond),
		captions.WithMaxBytes(cfg.Captions.MaxBytes),
		captions.WithHTTPClient(newHTTPClient(cfg.CaptionTimeout())),
	)
	source := captions.NewSource(provider, store, prefs, captions.WithLogger(logger))

	converter := ffmpeg.New(cfg.Paths.FFmpegBinary)
	media := fetcher.New(ytClient, converter, fetcher.Options{
		WorkDir:  cfg.Paths.WorkDir,
		Attempts: cfg.Download.Attempts,
		Delay:    cfg.RetryDelay(),
		MinBytes: cfg.Download.MinBytes,
	}, fetcher.WithLogger(logger))

	whisperCfg := whisperx.Config{
		Model:       cfg.Engine.Model,
		CUDAEnabled: cfg.Engine.CUDAEnabled,
		VADMethod:   cfg.Engine.VADMethod,
		HFToken:     cfg.Engine.HFToken,
		WorkDir:     cfg.Paths.WorkDir,
	}
	loader := func(ctx context.Context) (engine.Recognizer, error) {
		logging.WithContext(ctx, logger).Info("loading speech model",
			logging.String("model", whisperCfg.Model),
			logging.Bool("cuda", whisperCfg.CUDAEnabled),
		)
		return whisperx.Load(ctx, whisperCfg)
	}
	prober := ffprobe.NewProber(deps.ResolveFFprobe(cfg.Paths.FFmpegBinary, cfg.Paths.FFprobeBinary))
	eng := engine.New(loader, prober, converter, engine.Options{
		ChunkSeconds:       cfg.Engine.ChunkSeconds,
		PollInterval:       cfg.PollInterval(),
		EstimateMultiplier: cfg.Engine.EstimateMultiplier,
		WorkDir:            cfg.Paths.WorkDir,
		Language:           cfg.Engine.Language,
		LogBucketPercent:   cfg.Progress.LogBucketPercent,
		Logger:             logger,
	})

	notifier := notifications.NewService(cfg)
	orch := pipeline.New(source, media, eng, store,
		pipeline.WithLogger(logger),
		pipeline.WithHistory(hist),
		pipeline.WithNotifier(notifier),
		pipeline.WithLockPath(cfg.LockPath()),
		pipeline.WithBridge(cfg.Progress.BridgeCapacity, cfg.SendTimeout()),
		pipeline.WithPulseInterval(cfg.PollInterval()),
		pipeline.WithCaptions(cfg.Captions.Enabled),
	)

	if _, err := orch.Recover(context.Background()); err != nil {
		logging.WarnWithContext(logger, "history recovery failed", "history_recovery_failed", logging.Error(err))
	}

	return &runtime{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		history:      hist,
		captions:     source,
		fetcher:      media,
		engine:       eng,
		orchestrator: orch,
		notifier:     notifier,
		ytdlp:        ytClient,
		converter:    converter,
	}, nil
}

// withOverrides returns an orchestrator honoring per-invocation flags. The
// engine handle is shared so the model is still loaded once per process.
func (r *runtime) withOverrides(lang string, captionsEnabled bool) *pipeline.Orchestrator {
	if lang == "" && captionsEnabled == r.cfg.Captions.Enabled {
		return r.orchestrator
	}
	if lang == "" {
		lang = r.cfg.Engine.Language
	}
	return pipeline.New(r.captions, r.fetcher, r.engine, r.store,
		pipeline.WithLogger(r.logger),
		pipeline.WithHistory(r.history),
		pipeline.WithNotifier(r.notifier),
		pipeline.WithLockPath(r.cfg.LockPath()),
		pipeline.WithBridge(r.cfg.Progress.BridgeCapacity, r.cfg.SendTimeout()),
		pipeline.WithPulseInterval(r.cfg.PollInterval()),
		pipeline.WithCaptions(captionsEnabled),
		pipeline.WithLanguage(lang),
	)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (r *runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.history.Close()
}
