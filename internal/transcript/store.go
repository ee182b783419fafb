package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/services"
)

// FileName returns the transcript file name for a content identifier.
func FileName(id string) string {
	return id + "_transcript.txt"
}

// Store writes transcripts into a single storage directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the destination path for id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, FileName(id))
}

// Persist writes result.Text as UTF-8 to <dir>/<id>_transcript.txt and returns
// the result with PersistedPath set. The file is replaced atomically so a
// reader never observes a partial transcript.
func (s *Store) Persist(id string, result Result) (Result, error) {
	if strings.TrimSpace(id) == "" {
		return result, services.Wrap(services.ErrPersistenceFailed, "persist", "validate", "content id required", nil)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return result, services.Wrap(services.ErrPersistenceFailed, "persist", "ensure storage dir", s.dir, err)
	}
	dest := s.Path(id)
	tmp, err := os.CreateTemp(s.dir, "."+FileName(id)+".*")
	if err != nil {
		return result, services.Wrap(services.ErrPersistenceFailed, "persist", "create temp", dest, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(result.Text); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return result, services.Wrap(services.ErrPersistenceFailed, "persist", "write", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return result, services.Wrap(services.ErrPersistenceFailed, "persist", "close", dest, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return result, services.Wrap(services.ErrPersistenceFailed, "persist", "chmod", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return result, services.Wrap(services.ErrPersistenceFailed, "persist", "rename", fmt.Sprintf("%s -> %s", tmpName, dest), err)
	}
	return result.WithPath(dest), nil
}
