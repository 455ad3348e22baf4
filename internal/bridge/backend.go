package bridge

import (
	"context"

	"github.com/ytget/synqed/internal/model"
)

// Command names, as used on the invoke endpoint
const (
	CmdGetConfig       = "get_config"
	CmdUpdateConfig    = "update_config"
	CmdInitializeSetup = "initialize_setup"
	CmdGetMetadata     = "get_metadata"
	CmdAddToQueue      = "add_to_queue"
	CmdDownloadAudio   = "download_audio"
	CmdCancelDownload  = "cancel_download"
	CmdRemoveDownload  = "remove_download"
	CmdClearHistory    = "clear_history"
	CmdClearQueue      = "clear_queue"
	CmdGetDownloads    = "get_downloads"
	CmdGetSongs        = "get_songs"
	CmdSearchSongs     = "search_songs"
	CmdGetSongByID     = "get_song_by_id"
	CmdRemoveSong      = "remove_song"
	CmdReadFileContent = "read_file_content"
	CmdCheckHealth     = "check_health"
	CmdFactoryReset    = "factory_reset"
)

// Args is the argument object of an invoke. Only the fields relevant to the
// command are set; names match the engine's invoke payloads.
type Args struct {
	URL         string          `json:"url,omitempty"`
	ID          string          `json:"id,omitempty"`
	Metadata    *model.Metadata `json:"metadata,omitempty"`
	NewConfig   *model.Config   `json:"newConfig,omitempty"`
	LibraryPath string          `json:"libraryPath,omitempty"`
	Query       string          `json:"query,omitempty"`
	Path        string          `json:"path,omitempty"`
}

// Commands is the request/response half of the engine contract
type Commands interface {
	GetConfig(ctx context.Context) (*model.Config, error)
	UpdateConfig(ctx context.Context, cfg model.Config) error
	InitializeSetup(ctx context.Context, libraryPath string) error

	GetMetadata(ctx context.Context, url string) ([]model.Metadata, error)
	AddToQueue(ctx context.Context, url, id string, md model.Metadata) error
	DownloadAudio(ctx context.Context, url, id string, md model.Metadata) error
	CancelDownload(ctx context.Context, id string) error
	RemoveDownload(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
	ClearQueue(ctx context.Context) error
	GetDownloads(ctx context.Context) ([]model.DownloadJob, error)

	GetSongs(ctx context.Context) ([]model.Song, error)
	SearchSongs(ctx context.Context, query string) ([]model.Song, error)
	GetSongByID(ctx context.Context, id string) (*model.Song, error)
	RemoveSong(ctx context.Context, id string) error

	ReadFileContent(ctx context.Context, path string) (string, error)
	CheckHealth(ctx context.Context) (bool, error)
	FactoryReset(ctx context.Context) error
}

// Events is the push half of the engine contract. The returned channel is
// closed once ctx is done.
type Events interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Backend is the full engine contract
type Backend interface {
	Commands
	Events
}

// InvokeError is a failure reported by the engine for a command
type InvokeError struct {
	Command string
	Message string
}

func (e *InvokeError) Error() string {
	return e.Message
}
