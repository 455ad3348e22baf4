package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/model"
)

// heartbeatInterval keeps idle event streams open through proxies
const heartbeatInterval = 15 * time.Second

// errMissingArg marks an invoke without a required argument
var errMissingArg = errors.New("missing argument")

type command func(ctx context.Context, args bridge.Args) (any, error)

func requireArg(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", errMissingArg, name)
	}
	return nil
}

func metadataOf(args bridge.Args) model.Metadata {
	if args.Metadata == nil {
		return model.Metadata{}
	}
	return *args.Metadata
}

// commands maps every invoke name to the backend call serving it
func commands(b bridge.Backend) map[string]command {
	return map[string]command{
		bridge.CmdGetConfig: func(ctx context.Context, _ bridge.Args) (any, error) {
			return b.GetConfig(ctx)
		},
		bridge.CmdUpdateConfig: func(ctx context.Context, args bridge.Args) (any, error) {
			if args.NewConfig == nil {
				return nil, fmt.Errorf("%w: newConfig", errMissingArg)
			}
			return nil, b.UpdateConfig(ctx, *args.NewConfig)
		},
		bridge.CmdInitializeSetup: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("libraryPath", args.LibraryPath); err != nil {
				return nil, err
			}
			return nil, b.InitializeSetup(ctx, args.LibraryPath)
		},
		bridge.CmdGetMetadata: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("url", args.URL); err != nil {
				return nil, err
			}
			return b.GetMetadata(ctx, args.URL)
		},
		bridge.CmdAddToQueue: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("url", args.URL); err != nil {
				return nil, err
			}
			return nil, b.AddToQueue(ctx, args.URL, args.ID, metadataOf(args))
		},
		bridge.CmdDownloadAudio: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("url", args.URL); err != nil {
				return nil, err
			}
			return nil, b.DownloadAudio(ctx, args.URL, args.ID, metadataOf(args))
		},
		bridge.CmdCancelDownload: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("id", args.ID); err != nil {
				return nil, err
			}
			return nil, b.CancelDownload(ctx, args.ID)
		},
		bridge.CmdRemoveDownload: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("id", args.ID); err != nil {
				return nil, err
			}
			return nil, b.RemoveDownload(ctx, args.ID)
		},
		bridge.CmdClearHistory: func(ctx context.Context, _ bridge.Args) (any, error) {
			return nil, b.ClearHistory(ctx)
		},
		bridge.CmdClearQueue: func(ctx context.Context, _ bridge.Args) (any, error) {
			return nil, b.ClearQueue(ctx)
		},
		bridge.CmdGetDownloads: func(ctx context.Context, _ bridge.Args) (any, error) {
			return b.GetDownloads(ctx)
		},
		bridge.CmdGetSongs: func(ctx context.Context, _ bridge.Args) (any, error) {
			return b.GetSongs(ctx)
		},
		bridge.CmdSearchSongs: func(ctx context.Context, args bridge.Args) (any, error) {
			return b.SearchSongs(ctx, args.Query)
		},
		bridge.CmdGetSongByID: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("id", args.ID); err != nil {
				return nil, err
			}
			return b.GetSongByID(ctx, args.ID)
		},
		bridge.CmdRemoveSong: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("id", args.ID); err != nil {
				return nil, err
			}
			return nil, b.RemoveSong(ctx, args.ID)
		},
		bridge.CmdReadFileContent: func(ctx context.Context, args bridge.Args) (any, error) {
			if err := requireArg("path", args.Path); err != nil {
				return nil, err
			}
			return b.ReadFileContent(ctx, args.Path)
		},
		bridge.CmdCheckHealth: func(ctx context.Context, _ bridge.Args) (any, error) {
			return b.CheckHealth(ctx)
		},
		bridge.CmdFactoryReset: func(ctx context.Context, _ bridge.Args) (any, error) {
			return nil, b.FactoryReset(ctx)
		},
	}
}

// Invoke handles POST /api/invoke/:command
func (s *Server) Invoke(c *gin.Context) {
	name := c.Param("command")
	cmd, ok := s.commands[name]
	if !ok {
		c.JSON(http.StatusNotFound, failure(CodeNotFound, "unknown command: "+name))
		return
	}

	var args bridge.Args
	if err := c.ShouldBindJSON(&args); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, failure(CodeBadRequest, "invalid arguments: "+err.Error()))
		return
	}

	data, err := cmd(c.Request.Context(), args)
	switch {
	case errors.Is(err, errMissingArg):
		c.JSON(http.StatusBadRequest, failure(CodeBadRequest, err.Error()))
	case err != nil:
		s.log.Warn("command failed", zap.String("command", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, failure(CodeFailed, err.Error()))
	default:
		c.JSON(http.StatusOK, success(data))
	}
}

// Events handles GET /api/events. The stream starts with a comment so
// clients know the subscription is live.
func (s *Server) Events(c *gin.Context) {
	ctx := c.Request.Context()
	ch, err := s.backend.Subscribe(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, failure(CodeFailed, err.Error()))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	_, _ = io.WriteString(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	s.log.Debug("event stream opened", zap.String("remote", c.ClientIP()))
	defer s.log.Debug("event stream closed", zap.String("remote", c.ClientIP()))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			payload := ev.Payload
			if len(payload) == 0 {
				payload = []byte("null")
			}
			c.SSEvent(ev.Name, payload)
			return true
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})
}

// Health handles GET /healthz
func (s *Server) Health(c *gin.Context) {
	ok, err := s.backend.CheckHealth(c.Request.Context())
	if err != nil || !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
