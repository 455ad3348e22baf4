package platform

import (
	"testing"
	"time"

	"github.com/ytget/synqed/internal/model"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "playlist page", url: "https://www.youtube.com/playlist?list=PL123", want: "PL123"},
		{name: "watch with list", url: "https://www.youtube.com/watch?v=abc&list=PL456&start_radio=1", want: "PL456"},
		{name: "scheme-less", url: "www.youtube.com/playlist?list=PL789", want: "PL789"},
		{name: "single video", url: "https://www.youtube.com/watch?v=abc", wantErr: true},
		{name: "empty list", url: "https://www.youtube.com/playlist?list=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPlaylistID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got id %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsPlaylistURL(t *testing.T) {
	if !IsPlaylistURL("https://www.youtube.com/playlist?list=PL1") {
		t.Error("playlist link not detected")
	}
	if IsPlaylistURL("https://youtu.be/abc") {
		t.Error("video link detected as playlist")
	}
}

func TestVideoURL(t *testing.T) {
	if got := VideoURL("abc"); got != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("unexpected url %q", got)
	}
}

func TestTrackMetadata(t *testing.T) {
	md, ok := trackMetadata("abc", "")
	if !ok {
		t.Fatal("expected item to be kept")
	}
	if md.Title != model.UnknownTitle || md.Artist != model.UnknownArtist {
		t.Errorf("fallbacks not applied: %+v", md)
	}
	if md.URL != VideoURL("abc") {
		t.Errorf("unexpected url %q", md.URL)
	}

	if _, ok := trackMetadata("", "Deleted video"); ok {
		t.Error("item without id should be skipped")
	}
}

func TestPlaylistExpanderTimeout(t *testing.T) {
	p := NewPlaylistExpander()
	if p.timeout != DefaultPlaylistParseTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultPlaylistParseTimeout, p.timeout)
	}
	p.SetTimeout(5 * time.Second)
	if p.timeout != 5*time.Second {
		t.Errorf("timeout not updated: %v", p.timeout)
	}
}
