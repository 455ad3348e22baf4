package model

import (
	"fmt"
	"slices"
	"strings"
)

// NoProgress in a progress delta means "keep the previous value"
const NoProgress = -1

// Display fallbacks
const (
	UnknownTitle  = "Unknown Title"
	UnknownArtist = "Unknown Artist"
)

// Metadata describes a single track, fetched before enqueueing
type Metadata struct {
	ID        string  `json:"id"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Album     string  `json:"album,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration,omitempty"` // seconds
}

// DisplayTitle returns "<artist> - <title>", degrading to whatever is known
func (m Metadata) DisplayTitle() string {
	switch {
	case m.Title != "" && m.Artist != "":
		return m.Artist + " - " + m.Title
	case m.Title != "":
		return m.Title
	default:
		return m.URL
	}
}

// DurationString returns the duration formatted as hh:mm:ss or mm:ss, or "—" if unknown
func (m Metadata) DurationString() string {
	if m.Duration <= 0 {
		return "—"
	}

	total := int(m.Duration)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// DownloadJob is one item in the queue or history.
// Logs is append-only; holders of a snapshot may share its backing array, so
// writers must append through AppendLog.
type DownloadJob struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Metadata       Metadata  `json:"metadata"`
	Status         JobStatus `json:"status"`
	Progress       float64   `json:"progress"`
	DetailedStatus string    `json:"detailed_status,omitempty"`
	Logs           []string  `json:"logs"`
	Revision       uint64    `json:"revision,omitempty"`
}

// NewJob creates a job for url with the given metadata and initial status
func NewJob(id, url string, md Metadata, status JobStatus) DownloadJob {
	if md.URL == "" {
		md.URL = url
	}
	return DownloadJob{
		ID:       id,
		Title:    md.DisplayTitle(),
		URL:      url,
		Metadata: md,
		Status:   status,
		Logs:     []string{},
	}
}

// AppendLog returns a copy of the log slice with line appended.
// The existing backing array is never written to.
func (j *DownloadJob) AppendLog(line string) {
	logs := j.Logs[:len(j.Logs):len(j.Logs)]
	j.Logs = append(logs, line)
}

// Clone returns a copy of j that shares no memory with it
func (j DownloadJob) Clone() DownloadJob {
	j.Logs = slices.Clone(j.Logs)
	if j.Logs == nil {
		j.Logs = []string{}
	}
	return j
}

// LastLog returns the most recent log line or ""
func (j DownloadJob) LastLog() string {
	if len(j.Logs) == 0 {
		return ""
	}
	return j.Logs[len(j.Logs)-1]
}

// ProgressString returns progress as a whole percentage, e.g. "42%"
func (j DownloadJob) ProgressString() string {
	p := j.Progress
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return fmt.Sprintf("%d%%", int(p))
}

// StatusLine returns the detailed status when known, the status otherwise
func (j DownloadJob) StatusLine() string {
	if j.DetailedStatus != "" {
		return j.DetailedStatus
	}
	if j.Status == "" {
		return ""
	}
	s := j.Status.String()
	return strings.ToUpper(s[:1]) + s[1:]
}
