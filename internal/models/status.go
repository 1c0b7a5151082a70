package models

// JobStatus is the lifecycle state shared by translation requests and erase jobs.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
)

func (s JobStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusDone, StatusFailed:
		return 2
	}
	return -1
}

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo enforces pending -> processing -> {done|failed}. Staying in the
// same non-terminal state is allowed so a poll can refresh UpdatedAt.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !s.Valid() || !next.Valid() || s.IsTerminal() {
		return false
	}
	return next.rank() >= s.rank()
}
