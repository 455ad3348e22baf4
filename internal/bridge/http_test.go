package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ytget/synqed/internal/model"
)

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Response{Code: code, Message: message, Data: raw})
}

func newFakeEngine(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc(InvokePath+CmdGetSongs, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 0, "ok", []model.Song{{ID: "s1", Title: "One", Filename: "one.mp3"}})
	})
	mux.HandleFunc(InvokePath+CmdGetSongByID, func(w http.ResponseWriter, r *http.Request) {
		var args Args
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		if args.ID == "missing" {
			writeEnvelope(w, 0, "ok", nil)
			return
		}
		writeEnvelope(w, 0, "ok", model.Song{ID: args.ID})
	})
	mux.HandleFunc(InvokePath+CmdAddToQueue, func(w http.ResponseWriter, r *http.Request) {
		var args Args
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, "https://x/1", args.URL)
		assert.Equal(t, "a", args.ID)
		require.NotNil(t, args.Metadata)
		assert.Equal(t, "Title", args.Metadata.Title)
		writeEnvelope(w, 0, "ok", nil)
	})
	mux.HandleFunc(InvokePath+CmdCancelDownload, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 1, "no active download", nil)
	})
	mux.HandleFunc(EventsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:download://progress\ndata:{\"id\":\"a\",\"progress\":50,\"status\":\"downloading\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_Invoke(t *testing.T) {
	srv := newFakeEngine(t)
	c := NewHTTPClient(srv.URL, zaptest.NewLogger(t))
	defer c.Close()
	ctx := context.Background()

	songs, err := c.GetSongs(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "one.mp3", songs[0].Filename)

	song, err := c.GetSongByID(ctx, "s9")
	require.NoError(t, err)
	require.NotNil(t, song)
	assert.Equal(t, "s9", song.ID)

	song, err = c.GetSongByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, song)

	require.NoError(t, c.AddToQueue(ctx, "https://x/1", "a", model.Metadata{ID: "a", Title: "Title"}))

	err = c.CancelDownload(ctx, "a")
	var invokeErr *InvokeError
	require.ErrorAs(t, err, &invokeErr)
	assert.Equal(t, CmdCancelDownload, invokeErr.Command)
	assert.Equal(t, "no active download", err.Error())
}

func TestHTTPClient_Subscribe(t *testing.T) {
	srv := newFakeEngine(t)
	c := NewHTTPClient(srv.URL, zaptest.NewLogger(t))
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.Subscribe(ctx)
	require.NoError(t, err)

	ev := recv(t, ch)
	assert.Equal(t, EventProgress, ev.Name)

	var p model.ProgressPayload
	require.NoError(t, ev.Decode(&p))
	assert.Equal(t, model.StatusDownloading, p.Status)
	assert.Equal(t, 50.0, p.Progress)
}
