package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckReachable(context.Background(), "svc", srv.URL); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckReachable(context.Background(), "svc", srv.URL+"/down"); result.Passed {
		t.Fatal("expected failure for 503")
	}
	if result := CheckReachable(context.Background(), "svc", ""); result.Passed || result.Detail != "missing url" {
		t.Fatalf("unexpected result for empty url: %#v", result)
	}
}

func TestCheckSpeechToken(t *testing.T) {
	cfg := config.Default()
	if r := CheckSpeechToken(&cfg); !r.Passed {
		t.Fatalf("silero should not need a token: %#v", r)
	}
	cfg.Engine.VADMethod = "pyannote"
	if r := CheckSpeechToken(&cfg); r.Passed {
		t.Fatal("pyannote without token should fail")
	}
	cfg.Engine.HFToken = "hf_x"
	if r := CheckSpeechToken(&cfg); !r.Passed {
		t.Fatalf("pyannote with token should pass: %#v", r)
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageDir = filepath.Join(base, "out")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg, Options{})
	if len(results) != 5 {
		t.Fatalf("expected 5 results without network, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
	if RunAll(context.Background(), nil, Options{}) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
