package captions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"scribe/internal/reference"
	"scribe/internal/services/ytdlp"
	"scribe/internal/transcript"
)

// Provider lists and downloads caption tracks for a content identifier.
type Provider interface {
	List(ctx context.Context, id string) ([]ytdlp.Track, error)
	Fetch(ctx context.Context, track ytdlp.Track) ([]transcript.Segment, error)
}

// Lister is the metadata capability of the yt-dlp client.
type Lister interface {
	Info(ctx context.Context, url string) (ytdlp.Info, error)
}

// TrackFormat is the caption rendition the provider requests.
const TrackFormat = "json3"

// YtDlpProvider lists tracks through yt-dlp metadata and downloads json3
// documents over HTTP, throttled by a token bucket.
type YtDlpProvider struct {
	lister   Lister
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
}

// ProviderOption configures a YtDlpProvider.
type ProviderOption func(*YtDlpProvider)

// WithHTTPClient overrides the HTTP client used for track downloads.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *YtDlpProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithRateLimit caps track downloads at rps requests per second.
func WithRateLimit(rps float64) ProviderOption {
	return func(p *YtDlpProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithMaxBytes caps the size of a downloaded caption document.
func WithMaxBytes(n int64) ProviderOption {
	return func(p *YtDlpProvider) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// NewYtDlpProvider constructs a provider backed by lister.
func NewYtDlpProvider(lister Lister, opts ...ProviderOption) *YtDlpProvider {
	p := &YtDlpProvider{
		lister:   lister,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(2), 1),
		maxBytes: 16 << 20,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// List returns json3 tracks, manual first.
func (p *YtDlpProvider) List(ctx context.Context, id string) ([]ytdlp.Track, error) {
	info, err := p.lister.Info(ctx, reference.WatchURL(id))
	if err != nil {
		return nil, err
	}
	return info.Tracks(TrackFormat), nil
}

// Fetch downloads and parses one track.
func (p *YtDlpProvider) Fetch(ctx context.Context, track ytdlp.Track) ([]transcript.Segment, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("caption rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build caption request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch caption track %s: %w", track.Language, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch caption track %s: unexpected status %s", track.Language, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read caption track %s: %w", track.Language, err)
	}
	if int64(len(body)) > p.maxBytes {
		return nil, errors.New("caption track exceeds size limit")
	}
	return ParseJSON3(body)
}
