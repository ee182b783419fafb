package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newServer(t *testing.T, status int) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("denied"))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func configFor(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor(""))
	if err := svc.RunCompleted(context.Background(), notifications.Run{ContentID: "abc"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.RunFailed(context.Background(), notifications.Run{}, "download_failed", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestRunCompletedPayload(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK)
	svc := notifications.NewService(configFor(srv.URL))

	err := svc.RunCompleted(context.Background(), notifications.Run{
		ContentID: "dQw4w9WgXcQ",
		Method:    "whisper",
		Path:      "/data/dQw4w9WgXcQ.txt",
		Segments:  42,
		Elapsed:   95 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunCompleted: %v", err)
	}
	got := requests()
	if len(got) != 1 {
		t.Fatalf("expected one request, got %d", len(got))
	}
	if got[0].title != "Scribe - Transcript Ready" {
		t.Fatalf("unexpected title %q", got[0].title)
	}
	if got[0].tags != "scribe,whisper,completed" {
		t.Fatalf("unexpected tags %q", got[0].tags)
	}
	want := "Transcript ready: dQw4w9WgXcQ (whisper, 42 segments) in 1m35s\nFile: /data/dQw4w9WgXcQ.txt"
	if got[0].body != want {
		t.Fatalf("unexpected body:\n%s\nwant:\n%s", got[0].body, want)
	}
}

func TestRunFailedPayload(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK)
	svc := notifications.NewService(configFor(srv.URL))

	if err := svc.RunFailed(context.Background(), notifications.Run{ContentID: "abc"}, "download_failed", errors.New("HTTP 403")); err != nil {
		t.Fatalf("RunFailed: %v", err)
	}
	got := requests()
	if len(got) != 1 || got[0].priority != "high" {
		t.Fatalf("expected one high priority request, got %+v", got)
	}
	if !strings.Contains(got[0].body, "download_failed") || !strings.Contains(got[0].body, "HTTP 403") {
		t.Fatalf("unexpected body %q", got[0].body)
	}
}

func TestOutcomeToggles(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK)
	cfg := configFor(srv.URL)
	cfg.Notifications.OnSuccess = false
	svc := notifications.NewService(cfg)

	if err := svc.RunCompleted(context.Background(), notifications.Run{ContentID: "abc"}); err != nil {
		t.Fatalf("RunCompleted: %v", err)
	}
	if n := len(requests()); n != 0 {
		t.Fatalf("expected success notifications to be suppressed, got %d", n)
	}
}

func TestErrorStatusIsReported(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(srv.URL))
	err := svc.Test(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
