package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/model"
	"github.com/ytget/synqed/internal/platform"
)

// DefaultMetadataTTL is how long fetched metadata is reused
const DefaultMetadataTTL = 10 * time.Minute

// PlaylistSource lists playlist tracks without the yt-dlp binary
type PlaylistSource interface {
	Expand(ctx context.Context, url string) ([]model.Metadata, error)
}

// ytDlpEntry is one object of the --dump-json stream
type ytDlpEntry struct {
	ID         *string  `json:"id"`
	URL        *string  `json:"url"`
	WebpageURL *string  `json:"webpage_url"`
	Title      *string  `json:"title"`
	Artist     *string  `json:"artist"`
	Creator    *string  `json:"creator"`
	Uploader   *string  `json:"uploader"`
	Album      *string  `json:"album"`
	Thumbnail  *string  `json:"thumbnail"`
	Duration   *float64 `json:"duration"`
}

// MetadataFetcher resolves a link to one entry per track, caching results
type MetadataFetcher struct {
	tool      Tool
	playlists PlaylistSource
	cache     *cache.Cache
	log       *zap.Logger
}

// NewMetadataFetcher creates a fetcher. playlists may be nil.
func NewMetadataFetcher(tool Tool, playlists PlaylistSource, ttl time.Duration, log *zap.Logger) *MetadataFetcher {
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MetadataFetcher{
		tool:      tool,
		playlists: playlists,
		cache:     cache.New(ttl, 10*time.Minute),
		log:       log.Named("metadata"),
	}
}

// Fetch returns the tracks behind url. A playlist link yields one entry per
// item; an empty result is ErrNoMetadata.
func (f *MetadataFetcher) Fetch(ctx context.Context, url string) ([]model.Metadata, error) {
	if v, ok := f.cache.Get(url); ok {
		return slices.Clone(v.([]model.Metadata)), nil
	}

	items, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoMetadata
	}

	f.cache.Set(url, items, cache.DefaultExpiration)
	f.log.Debug("metadata fetched", zap.String("url", url), zap.Int("items", len(items)))
	return slices.Clone(items), nil
}

func (f *MetadataFetcher) fetch(ctx context.Context, url string) ([]model.Metadata, error) {
	out, err := f.tool.DumpJSON(ctx, url)
	if err == nil {
		return ParseMetadata(out, url)
	}

	if errors.Is(err, exec.ErrNotFound) && f.playlists != nil && platform.IsPlaylistURL(url) {
		f.log.Warn("yt-dlp unavailable, expanding playlist directly", zap.String("url", url))
		return f.playlists.Expand(ctx, url)
	}
	return nil, err
}

// Flush drops every cached entry
func (f *MetadataFetcher) Flush() {
	f.cache.Flush()
}

// ParseMetadata decodes a --dump-json stream. Missing fields fall back to
// "Unknown Title", artist then creator then uploader then "Unknown Artist",
// the input url and the id "unknown".
func ParseMetadata(data []byte, input string) ([]model.Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var out []model.Metadata
	for {
		var e ytDlpEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
		}

		out = append(out, model.Metadata{
			ID:        firstOf("unknown", e.ID),
			URL:       firstOf(input, e.URL, e.WebpageURL),
			Title:     firstOf(model.UnknownTitle, e.Title),
			Artist:    firstOf(model.UnknownArtist, e.Artist, e.Creator, e.Uploader),
			Album:     firstOf("", e.Album),
			Thumbnail: firstOf("", e.Thumbnail),
			Duration:  valueOr(e.Duration, 0),
		})
	}
	return out, nil
}

func firstOf(fallback string, candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return fallback
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
