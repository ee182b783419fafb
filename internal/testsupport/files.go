package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// id3Header makes filetype classify the file as audio/mpeg.
var id3Header = []byte("ID3\x04\x00\x00\x00\x00\x00\x00")

// WriteMedia writes an MP3-looking file of at least size bytes: an ID3 tag
// header followed by filler. Parent directories are created.
func WriteMedia(t testing.TB, path string, size int64) {
	t.Helper()

	if size < int64(len(id3Header)) {
		size = int64(len(id3Header))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if _, err := f.Write(id3Header); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}
	remaining := size - int64(len(id3Header))
	for remaining > 0 {
		n := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= n
	}
}

// WriteScript installs an executable shell script named name in dir.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return target
}
