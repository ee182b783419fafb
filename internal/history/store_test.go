package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/history"
	"scribe/internal/testsupport"
)

func TestBeginStageFinish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	run := history.Run{ID: "run-1", Reference: "https://youtu.be/dQw4w9WgXcQ", ContentID: "dQw4w9WgXcQ"}
	if err := store.Begin(ctx, run); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Stage(ctx, "run-1", "caption_lookup"); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	fetched, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil || fetched.Status != history.StatusRunning || fetched.Stage != "caption_lookup" {
		t.Fatalf("unexpected running row: %#v", fetched)
	}
	if fetched.Duration() != 0 {
		t.Fatalf("running row should have no duration, got %s", fetched.Duration())
	}

	if err := store.Finish(ctx, "run-1", history.Outcome{
		Status:         history.StatusComplete,
		Method:         "captions_manual",
		TranscriptPath: "/tmp/dQw4w9WgXcQ_transcript.txt",
		Segments:       42,
	}); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	fetched, err = store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != history.StatusComplete || fetched.Method != "captions_manual" || fetched.Segments != 42 {
		t.Fatalf("unexpected finished row: %#v", fetched)
	}
	if fetched.FinishedAt.IsZero() {
		t.Fatal("expected finished_at to be set")
	}

	if err := store.Stage(ctx, "run-1", "transcribing"); err == nil {
		t.Fatal("expected stage update on finished run to fail")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	run, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil run, got %#v", run)
	}
}

func TestListOrderAndSummary(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	cases := []struct {
		id      string
		outcome *history.Outcome
	}{
		{"a", &history.Outcome{Status: history.StatusComplete, Method: "whisper"}},
		{"b", &history.Outcome{Status: history.StatusFailed, ErrorKind: "download_failed", ErrorMessage: "boom"}},
		{"c", &history.Outcome{Status: history.StatusComplete, Method: "captions_auto"}},
		{"d", nil},
	}
	for i, tc := range cases {
		if err := store.Begin(ctx, history.Run{ID: tc.id, Reference: "ref", StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Begin %s: %v", tc.id, err)
		}
		if tc.outcome != nil {
			if err := store.Finish(ctx, tc.id, *tc.outcome); err != nil {
				t.Fatalf("Finish %s: %v", tc.id, err)
			}
		}
	}

	runs, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "d" || runs[2].ID != "b" {
		t.Fatalf("unexpected order: %#v", runs)
	}
	if runs[2].ErrorKind != "download_failed" {
		t.Fatalf("expected error kind to round trip, got %q", runs[2].ErrorKind)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Total != 4 || summary.Complete != 2 || summary.Failed != 1 || summary.Running != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if summary.ByMethod["whisper"] != 1 || summary.ByMethod["captions_auto"] != 1 {
		t.Fatalf("unexpected method counts: %#v", summary.ByMethod)
	}
}

func TestResetInterruptedAndClear(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, id := range []string{"x", "y"} {
		if err := store.Begin(ctx, history.Run{ID: id, Reference: "ref"}); err != nil {
			t.Fatalf("Begin: %v", err)
		}
	}
	if err := store.Finish(ctx, "x", history.Outcome{Status: history.StatusComplete}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	n, err := store.ResetInterrupted(ctx)
	if err != nil {
		t.Fatalf("ResetInterrupted: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 interrupted run, got %d", n)
	}
	y, _ := store.Get(ctx, "y")
	if y.Status != history.StatusFailed || y.ErrorKind != history.InterruptedKind {
		t.Fatalf("unexpected interrupted row: %#v", y)
	}

	cleared, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("expected 2 cleared rows, got %d", cleared)
	}
}

func TestFinishRejectsRunningStatus(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if err := store.Finish(context.Background(), "any", history.Outcome{Status: history.StatusRunning}); err == nil {
		t.Fatal("expected invalid final status to be rejected")
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Begin(context.Background(), history.Run{ID: "keep", Reference: "ref"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	run, err := reopened.Get(context.Background(), "keep")
	if err != nil || run == nil {
		t.Fatalf("expected row after reopen, got %#v, %v", run, err)
	}
	if _, err := history.Open(""); err == nil || errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected path error, got %v", err)
	}
}
