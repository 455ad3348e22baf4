package backend

import "errors"

var (
	// ErrCancelled is the failure of a job stopped through CancelDownload.
	// Its text is what clients see in the error event.
	ErrCancelled = errors.New("Download cancelled")
	// ErrNoMetadata is returned when yt-dlp lists nothing for a link
	ErrNoMetadata = errors.New("No metadata found")
	// ErrNotConfigured is returned by library and download commands before setup
	ErrNotConfigured = errors.New("library is not configured")
	// ErrSongNotFound is returned when removing an unknown song
	ErrSongNotFound = errors.New("Song not found")
	// ErrNotRunning is returned when cancelling a job that has no process
	ErrNotRunning = errors.New("download is not running")
	// ErrAlreadyQueued is returned when a live job already has the id
	ErrAlreadyQueued = errors.New("download already queued")
)
