package history

import "time"

// Status is the lifecycle state of a run row.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// InterruptedKind is recorded for runs a previous process never finished.
const InterruptedKind = "interrupted"

// Run is one transcription attempt.
type Run struct {
	ID             string
	Reference      string
	ContentID      string
	Status         Status
	Stage          string
	Method         string
	TranscriptPath string
	Segments       int
	ErrorKind      string
	ErrorMessage   string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Duration is the wall time of a finished run, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is what Finish records.
type Outcome struct {
	Status         Status
	Method         string
	TranscriptPath string
	Segments       int
	ErrorKind      string
	ErrorMessage   string
}

// Summary counts runs by status.
type Summary struct {
	Total    int
	Running  int
	Complete int
	Failed   int
	ByMethod map[string]int
}
