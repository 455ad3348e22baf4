package model

// JobStatus represents the lifecycle state of a download job
type JobStatus string

const (
	// StatusQueued means the job waits for admission
	StatusQueued JobStatus = "queued"

	// StatusPending means the job was admitted and the start call is in flight
	StatusPending JobStatus = "pending"

	// StatusDownloading means the backend confirmed the start
	StatusDownloading JobStatus = "downloading"

	// StatusCompleted means the job finished successfully
	StatusCompleted JobStatus = "completed"

	// StatusError means the job failed
	StatusError JobStatus = "error"
)

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsInFlight returns true for pending and downloading jobs
func (s JobStatus) IsInFlight() bool {
	return s == StatusPending || s == StatusDownloading
}

// IsTerminal returns true if the job can no longer change state
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the known statuses
func (s JobStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusPending, StatusDownloading, StatusCompleted, StatusError:
		return true
	}
	return false
}

func (s JobStatus) stage() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusPending:
		return 1
	case StatusDownloading:
		return 2
	case StatusCompleted, StatusError:
		return 3
	}
	return -1
}

// CanMoveTo reports whether a job in s may take status next. Jobs only move
// forward (queued, pending, downloading, then completed or error) and a
// terminal job never changes.
func (s JobStatus) CanMoveTo(next JobStatus) bool {
	if !next.Valid() || s.IsTerminal() {
		return false
	}
	return next.stage() >= s.stage()
}
