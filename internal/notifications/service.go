package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
)

const userAgent = "scribe/0.1"

// Notifier reports finished runs.
type Notifier interface {
	RunCompleted(ctx context.Context, run Run) error
	RunFailed(ctx context.Context, run Run, kind string, err error) error
	Test(ctx context.Context) error
}

// Run describes the finished run being announced.
type Run struct {
	ContentID string
	Method    string
	Path      string
	Segments  int
	Elapsed   time.Duration
}

// NewService builds an ntfy notifier for cfg, or a no-op when no topic is set.
func NewService(cfg *config.Config) Notifier {
	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return noopService{}
	}
	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  cfg.Notifications.NtfyTopic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
		onFailure: cfg.Notifications.OnFailure,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
	onFailure bool
}

func (n *ntfyService) RunCompleted(ctx context.Context, run Run) error {
	if !n.onSuccess {
		return nil
	}
	message := fmt.Sprintf("Transcript ready: %s (%s, %d segments)", run.ContentID, run.Method, run.Segments)
	if run.Elapsed > 0 {
		message += " in " + run.Elapsed.Round(time.Second).String()
	}
	if run.Path != "" {
		message += "\nFile: " + run.Path
	}
	return n.send(ctx, payload{
		title:   "Scribe - Transcript Ready",
		message: message,
		tags:    []string{"scribe", run.Method, "completed"},
	})
}

func (n *ntfyService) RunFailed(ctx context.Context, run Run, kind string, err error) error {
	if !n.onFailure {
		return nil
	}
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	if kind == "" {
		kind = "error"
	}
	return n.send(ctx, payload{
		title:    "Scribe - Transcription Failed",
		message:  fmt.Sprintf("Could not transcribe %s (%s): %s", run.ContentID, kind, reason),
		tags:     []string{"scribe", "error", kind},
		priority: "high",
	})
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Scribe - Test",
		message:  "Notification system test",
		tags:     []string{"scribe", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) RunCompleted(context.Context, Run) error               { return nil }
func (noopService) RunFailed(context.Context, Run, string, error) error { return nil }
func (noopService) Test(context.Context) error                          { return nil }
