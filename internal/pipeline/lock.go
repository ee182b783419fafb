package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/services"
)

const lockRetryDelay = 250 * time.Millisecond

// runLock serializes runs inside the process with a mutex and across
// processes with an advisory file lock.
type runLock struct {
	mu   sync.Mutex
	file *flock.Flock
}

func newRunLock(path string) *runLock {
	l := &runLock{}
	if path != "" {
		l.file = flock.New(path)
	}
	return l
}

// busy reports whether another holder currently owns the lock.
func (l *runLock) busy() bool {
	if !l.mu.TryLock() {
		return true
	}
	defer l.mu.Unlock()
	if l.file == nil {
		return false
	}
	locked, err := l.file.TryLock()
	if err != nil || !locked {
		return true
	}
	_ = l.file.Unlock()
	return false
}

// acquire blocks until the lock is held or ctx is done.
func (l *runLock) acquire(ctx context.Context) (func(), error) {
	acquired := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-ctx.Done():
		go func() {
			<-acquired
			l.mu.Unlock()
		}()
		return nil, services.Wrap(services.ErrTimeout, string(StageStart), "acquire run lock", "cancelled while waiting", ctx.Err())
	}

	if l.file == nil {
		return l.mu.Unlock, nil
	}
	locked, err := l.file.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		l.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("lock %s not acquired", l.file.Path())
		}
		return nil, services.Wrap(services.ErrTimeout, string(StageStart), "acquire run lock", l.file.Path(), err)
	}
	return func() {
		_ = l.file.Unlock()
		l.mu.Unlock()
	}, nil
}

// tryAcquire takes the lock only if it is free right now.
func (l *runLock) tryAcquire() (func(), bool) {
	if !l.mu.TryLock() {
		return nil, false
	}
	if l.file == nil {
		return l.mu.Unlock, true
	}
	locked, err := l.file.TryLock()
	if err != nil || !locked {
		l.mu.Unlock()
		return nil, false
	}
	return func() {
		_ = l.file.Unlock()
		l.mu.Unlock()
	}, true
}
