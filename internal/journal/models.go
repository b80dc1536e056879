package journal

import "time"

// Kind identifies the operation a run performed.
type Kind string

const (
	KindEncode Kind = "encode"
	KindDecode Kind = "decode"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry is one recorded run.
type Entry struct {
	ID        string
	Kind      Kind
	Status    Status
	Source    string
	RequestID string

	Frames    int
	Chunks    int
	Dropped   int
	Strategy  string
	Found     bool
	Decrypted bool
	BytesIn   int64
	BytesOut  int64

	ErrorKind    string
	ErrorMessage string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took, or 0 while it is running.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
