// Package backend is the local download engine behind the bridge contract.
// It owns the job list and admits one job at a time. It runs yt-dlp, keeps
// the song library in sqlite and persists the user config. Every change is
// pushed to subscribers as a bridge event.
package backend
