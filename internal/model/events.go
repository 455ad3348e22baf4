package model

// ProgressPayload is the incremental delta carried by download://progress.
// Progress equal to NoProgress leaves the previous value; empty Status and
// DetailedStatus leave theirs.
type ProgressPayload struct {
	ID             string    `json:"id"`
	Progress       float64   `json:"progress"`
	Status         JobStatus `json:"status"`
	DetailedStatus string    `json:"detailed_status,omitempty"`
	Log            string    `json:"log,omitempty"`
	Revision       uint64    `json:"revision,omitempty"`
}

// ErrorPayload is carried by download://error
type ErrorPayload struct {
	ID          string `json:"id"`
	Error       string `json:"error"`
	IsCancelled bool   `json:"is_cancelled"`
	Revision    uint64 `json:"revision,omitempty"`
}

// SetupProgress is carried by setup://progress during first-run initialization
type SetupProgress struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}
