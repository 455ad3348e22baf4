package download

import (
	"context"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// Backend is the part of the engine contract the queue consumes
type Backend interface {
	GetMetadata(ctx context.Context, url string) ([]model.Metadata, error)
	AddToQueue(ctx context.Context, url, id string, md model.Metadata) error
	DownloadAudio(ctx context.Context, url, id string, md model.Metadata) error
	CancelDownload(ctx context.Context, id string) error
	RemoveDownload(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
	ClearQueue(ctx context.Context) error
	GetDownloads(ctx context.Context) ([]model.DownloadJob, error)
	GetSongByID(ctx context.Context, id string) (*model.Song, error)
	ReadFileContent(ctx context.Context, path string) (string, error)
	bridge.Events
}

// Recorder receives queue metrics
type Recorder interface {
	JobEnqueued(mode string)
	JobAdmitted()
	JobFinished(status model.JobStatus)
	NoticeIssued(kind string)
	QueueSize(active, queued, history int)
}

type nopRecorder struct{}

func (nopRecorder) JobEnqueued(string) {}
func (nopRecorder) JobAdmitted() {}
func (nopRecorder) JobFinished(model.JobStatus) {}
func (nopRecorder) NoticeIssued(string) {}
func (nopRecorder) QueueSize(int, int, int) {}
