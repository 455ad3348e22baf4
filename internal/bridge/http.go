package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/ytget/synqed/internal/model"
)

// API paths served by the engine's HTTP server
const (
	InvokePath = "/api/invoke/"
	EventsPath = "/api/events"
)

// Reconnect backoff for the event stream
const (
	minStreamBackoff = 500 * time.Millisecond
	maxStreamBackoff = 10 * time.Second
)

// Response is the envelope of every invoke response; Code 0 means success
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// HTTPClient implements Backend against a remote engine
type HTTPClient struct {
	client *resty.Client
	bus    *Bus
	log    *zap.Logger

	streamOnce sync.Once
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHTTPClient creates a client for the engine at baseURL
func NewHTTPClient(baseURL string, log *zap.Logger) *HTTPClient {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")

	return &HTTPClient{
		client: client,
		bus:    NewBus(DefaultBusBuffer, log),
		log:    log.Named("bridge"),
		done:   make(chan struct{}),
	}
}

// Close stops the event stream and releases the HTTP client
func (c *HTTPClient) Close() error {
	c.streamOnce.Do(func() { close(c.done) })
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.bus.Close()
	return c.client.Close()
}

func (c *HTTPClient) invoke(ctx context.Context, command string, args Args, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(args).
		Post(InvokePath + command)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", command, err)
	}

	var env Response
	if err := json.Unmarshal([]byte(resp.String()), &env); err != nil {
		return fmt.Errorf("invoke %s: status %d: %w", command, resp.StatusCode(), err)
	}
	if env.Code != 0 {
		return &InvokeError{Command: command, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("invoke %s: decode result: %w", command, err)
	}
	return nil
}

func (c *HTTPClient) GetConfig(ctx context.Context) (*model.Config, error) {
	var cfg *model.Config
	if err := c.invoke(ctx, CmdGetConfig, Args{}, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *HTTPClient) UpdateConfig(ctx context.Context, cfg model.Config) error {
	return c.invoke(ctx, CmdUpdateConfig, Args{NewConfig: &cfg}, nil)
}

func (c *HTTPClient) InitializeSetup(ctx context.Context, libraryPath string) error {
	return c.invoke(ctx, CmdInitializeSetup, Args{LibraryPath: libraryPath}, nil)
}

func (c *HTTPClient) GetMetadata(ctx context.Context, url string) ([]model.Metadata, error) {
	var items []model.Metadata
	if err := c.invoke(ctx, CmdGetMetadata, Args{URL: url}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) AddToQueue(ctx context.Context, url, id string, md model.Metadata) error {
	return c.invoke(ctx, CmdAddToQueue, Args{URL: url, ID: id, Metadata: &md}, nil)
}

func (c *HTTPClient) DownloadAudio(ctx context.Context, url, id string, md model.Metadata) error {
	return c.invoke(ctx, CmdDownloadAudio, Args{URL: url, ID: id, Metadata: &md}, nil)
}

func (c *HTTPClient) CancelDownload(ctx context.Context, id string) error {
	return c.invoke(ctx, CmdCancelDownload, Args{ID: id}, nil)
}

func (c *HTTPClient) RemoveDownload(ctx context.Context, id string) error {
	return c.invoke(ctx, CmdRemoveDownload, Args{ID: id}, nil)
}

func (c *HTTPClient) ClearHistory(ctx context.Context) error {
	return c.invoke(ctx, CmdClearHistory, Args{}, nil)
}

func (c *HTTPClient) ClearQueue(ctx context.Context) error {
	return c.invoke(ctx, CmdClearQueue, Args{}, nil)
}

func (c *HTTPClient) GetDownloads(ctx context.Context) ([]model.DownloadJob, error) {
	var jobs []model.DownloadJob
	if err := c.invoke(ctx, CmdGetDownloads, Args{}, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *HTTPClient) GetSongs(ctx context.Context) ([]model.Song, error) {
	var songs []model.Song
	if err := c.invoke(ctx, CmdGetSongs, Args{}, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

func (c *HTTPClient) SearchSongs(ctx context.Context, query string) ([]model.Song, error) {
	var songs []model.Song
	if err := c.invoke(ctx, CmdSearchSongs, Args{Query: query}, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

func (c *HTTPClient) GetSongByID(ctx context.Context, id string) (*model.Song, error) {
	var song *model.Song
	if err := c.invoke(ctx, CmdGetSongByID, Args{ID: id}, &song); err != nil {
		return nil, err
	}
	return song, nil
}

func (c *HTTPClient) RemoveSong(ctx context.Context, id string) error {
	return c.invoke(ctx, CmdRemoveSong, Args{ID: id}, nil)
}

func (c *HTTPClient) ReadFileContent(ctx context.Context, path string) (string, error) {
	var content string
	if err := c.invoke(ctx, CmdReadFileContent, Args{Path: path}, &content); err != nil {
		return "", err
	}
	return content, nil
}

func (c *HTTPClient) CheckHealth(ctx context.Context) (bool, error) {
	var ok bool
	if err := c.invoke(ctx, CmdCheckHealth, Args{}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *HTTPClient) FactoryReset(ctx context.Context) error {
	return c.invoke(ctx, CmdFactoryReset, Args{}, nil)
}

// Subscribe starts the shared event stream on first use and registers a
// subscriber on it
func (c *HTTPClient) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch, err := c.bus.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	c.streamOnce.Do(func() {
		streamCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		go func() {
			defer close(c.done)
			c.stream(streamCtx)
		}()
	})
	return ch, nil
}

// stream keeps the event stream connected until ctx ends
func (c *HTTPClient) stream(ctx context.Context) {
	backoff := minStreamBackoff
	for {
		connected, err := c.readStream(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = minStreamBackoff
		}
		c.log.Warn("event stream interrupted", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxStreamBackoff)
	}
}

func (c *HTTPClient) readStream(ctx context.Context) (bool, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		Get(EventsPath)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("event stream: unexpected status %d", resp.StatusCode())
	}

	c.log.Debug("event stream connected")
	err = ReadEvents(resp.Body, c.bus.Publish)
	if err == nil {
		err = fmt.Errorf("event stream closed by server")
	}
	return true, err
}
