// Package captions implements the provider-caption strategy: it lists the
// caption tracks a video offers, walks an ordered preference list of rules,
// and persists the first usable track as a transcript.
package captions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/ytdlp"
	"scribe/internal/transcript"
)

// Source fetches provider captions for a content identifier.
type Source struct {
	provider Provider
	store    *transcript.Store
	rules    []Rule
	prefs    Preferences
	logger   *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithRules overrides DefaultRules.
func WithRules(rules []Rule) Option {
	return func(s *Source) {
		if len(rules) > 0 {
			s.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSource constructs a caption source that persists results into store.
func NewSource(provider Provider, store *transcript.Store, prefs Preferences, opts ...Option) *Source {
	s := &Source{
		provider: provider,
		store:    store,
		rules:    append([]Rule(nil), DefaultRules...),
		prefs:    prefs,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "captions")
	return s
}

// Fetch returns the persisted transcript of the first rule that yields a
// non-empty track. Listing failures and exhausted rules both surface as
// services.ErrCaptionUnavailable; the caller cannot tell them apart.
func (s *Source) Fetch(ctx context.Context, id string) (transcript.Result, error) {
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldContentID, id))

	tracks, err := s.provider.List(ctx, id)
	if err != nil {
		logger.Info("caption listing failed", logging.Error(err))
		return transcript.Result{}, services.Wrap(services.ErrCaptionUnavailable, "caption_lookup", "list tracks", id, err)
	}
	if len(tracks) == 0 {
		return transcript.Result{}, services.Wrap(services.ErrCaptionUnavailable, "caption_lookup", "list tracks", "no caption tracks offered", nil)
	}

	var lastErr error
	remaining := tracks
	for _, rule := range s.rules {
		track, ok := rule.Select(remaining, s.prefs)
		if !ok {
			continue
		}
		remaining = without(remaining, track)
		segments, err := s.provider.Fetch(ctx, track)
		if err == nil && len(segments) == 0 {
			err = errors.New("track has no text")
		}
		if err != nil {
			lastErr = err
			logger.Debug("caption track rejected",
				logging.String("rule", rule.String()),
				logging.String("language", track.Language),
				logging.Error(err),
			)
			continue
		}

		result := transcript.NewResult(methodFor(track), segments)
		persisted, err := s.store.Persist(id, result)
		if err != nil {
			return transcript.Result{}, err
		}
		logger.Info("captions selected", logging.Args(append(
			logging.DecisionAttrs("caption_track", track.Language, rule.String()),
			logging.String("method", string(persisted.Method)),
			logging.Int("segments", len(segments)),
		)...)...)
		return persisted, nil
	}

	return transcript.Result{}, services.Wrap(services.ErrCaptionUnavailable, "caption_lookup", "select track",
		fmt.Sprintf("no usable track among %d", len(tracks)), lastErr)
}

func methodFor(track ytdlp.Track) transcript.Method {
	if track.Manual {
		return transcript.MethodCaptionsManual
	}
	return transcript.MethodCaptionsAuto
}

func without(tracks []ytdlp.Track, drop ytdlp.Track) []ytdlp.Track {
	out := make([]ytdlp.Track, 0, len(tracks))
	for _, track := range tracks {
		if track != drop {
			out = append(out, track)
		}
	}
	return out
}
