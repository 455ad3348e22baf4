package model

import "testing"

func TestMetadata_DisplayTitle(t *testing.T) {
	tests := []struct {
		md       Metadata
		expected string
	}{
		{Metadata{Title: "Song", Artist: "Band"}, "Band - Song"},
		{Metadata{Title: "Song"}, "Song"},
		{Metadata{URL: "https://youtube.com/watch?v=123"}, "https://youtube.com/watch?v=123"},
	}

	for _, test := range tests {
		result := test.md.DisplayTitle()
		if result != test.expected {
			t.Errorf("DisplayTitle() for %+v = '%s', expected '%s'", test.md, result, test.expected)
		}
	}
}

func TestMetadata_DurationString(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{-1, "—"},
		{0, "—"},
		{30, "00:30"},
		{90, "01:30"},
		{3661, "01:01:01"},
	}

	for _, test := range tests {
		result := Metadata{Duration: test.seconds}.DurationString()
		if result != test.expected {
			t.Errorf("DurationString() with %v = %s, expected %s", test.seconds, result, test.expected)
		}
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("a", "https://x/1", Metadata{ID: "a", Title: "T", Artist: "A"}, StatusQueued)

	if job.Title != "A - T" {
		t.Errorf("Title = %s, expected 'A - T'", job.Title)
	}
	if job.Metadata.URL != "https://x/1" {
		t.Errorf("Metadata.URL = %s, expected url fallback", job.Metadata.URL)
	}
	if job.Logs == nil || len(job.Logs) != 0 {
		t.Errorf("Logs must start empty and non-nil")
	}
}

func TestDownloadJob_AppendLogDoesNotShareTail(t *testing.T) {
	base := DownloadJob{Logs: make([]string, 1, 8)}
	base.Logs[0] = "first"

	a := base
	a.AppendLog("a")
	b := base
	b.AppendLog("b")

	if a.LastLog() != "a" || b.LastLog() != "b" {
		t.Errorf("appends leaked between copies: a=%v b=%v", a.Logs, b.Logs)
	}
	if len(base.Logs) != 1 {
		t.Errorf("base logs modified: %v", base.Logs)
	}
}

func TestDownloadJob_ProgressString(t *testing.T) {
	tests := []struct {
		progress float64
		expected string
	}{
		{-1, "0%"},
		{42.7, "42%"},
		{150, "100%"},
	}

	for _, test := range tests {
		result := DownloadJob{Progress: test.progress}.ProgressString()
		if result != test.expected {
			t.Errorf("ProgressString() with %v = %s, expected %s", test.progress, result, test.expected)
		}
	}
}

func TestDownloadJob_StatusLine(t *testing.T) {
	if got := (DownloadJob{Status: StatusQueued}).StatusLine(); got != "Queued" {
		t.Errorf("StatusLine() = %s, expected Queued", got)
	}
	if got := (DownloadJob{Status: StatusDownloading, DetailedStatus: "Extracting Audio"}).StatusLine(); got != "Extracting Audio" {
		t.Errorf("StatusLine() = %s, expected Extracting Audio", got)
	}
}

func TestDownloadJob_Clone(t *testing.T) {
	j := NewJob("a", "https://x", Metadata{}, StatusQueued)
	j.AppendLog("one")

	c := j.Clone()
	c.Logs[0] = "changed"
	if j.Logs[0] != "one" {
		t.Errorf("Clone shares logs with the original")
	}

	if (DownloadJob{}).Clone().Logs == nil {
		t.Errorf("Clone of a job without logs should have empty, non-nil logs")
	}
}
