package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/synqed/internal/model"
)

// Timeout constants
const (
	DefaultPlaylistParseTimeout = 60 * time.Second
)

// URL parameters
const (
	PlaylistURLParam = "list"
	VideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// IsPlaylistURL reports whether link carries a playlist id
func IsPlaylistURL(link string) bool {
	id, err := ExtractPlaylistID(link)
	return err == nil && id != ""
}

// ExtractPlaylistID returns the list= parameter of a YouTube link. Supported:
//   - https://www.youtube.com/watch?v=VIDEO_ID&list=PLAYLIST_ID&start_radio=1
//   - https://www.youtube.com/playlist?list=PLAYLIST_ID
//   - www.youtube.com/playlist?list=PLAYLIST_ID
func ExtractPlaylistID(link string) (string, error) {
	if strings.HasPrefix(link, "www.") {
		link = "https://" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	id := u.Query().Get(PlaylistURLParam)
	if id == "" {
		return "", fmt.Errorf("URL does not contain playlist parameter")
	}
	return id, nil
}

// VideoURL returns the watch link for a video id
func VideoURL(videoID string) string {
	return fmt.Sprintf(VideoURLTemplate, videoID)
}

// PlaylistExpander lists the tracks of a playlist without the yt-dlp binary
type PlaylistExpander struct {
	timeout time.Duration
}

// NewPlaylistExpander creates an expander with the default timeout
func NewPlaylistExpander() *PlaylistExpander {
	return &PlaylistExpander{timeout: DefaultPlaylistParseTimeout}
}

// SetTimeout sets the timeout for a single expansion
func (p *PlaylistExpander) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// Expand returns one metadata entry per playlist item
func (p *PlaylistExpander) Expand(ctx context.Context, link string) ([]model.Metadata, error) {
	playlistID, err := ExtractPlaylistID(link)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}
	out := make([]model.Metadata, 0, len(items))
	for _, it := range items {
		if md, ok := trackMetadata(it.VideoID, it.Title); ok {
			out = append(out, md)
		}
	}
	return out, nil
}

// trackMetadata builds the metadata of one playlist item; items without a
// video id are skipped
func trackMetadata(videoID, title string) (model.Metadata, bool) {
	if videoID == "" {
		return model.Metadata{}, false
	}
	if title == "" {
		title = model.UnknownTitle
	}
	return model.Metadata{
		ID:     videoID,
		URL:    VideoURL(videoID),
		Title:  title,
		Artist: model.UnknownArtist,
	}, true
}
