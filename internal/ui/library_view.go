package ui

import (
	"context"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/library"
	"github.com/ytget/synqed/internal/model"
	"github.com/ytget/synqed/internal/platform"
)

// LibraryView lists the downloaded songs with a search box
type LibraryView struct {
	ctx          context.Context
	window       fyne.Window
	songs        *library.Songs
	live         *config.Live
	localization *Localization
	log          *zap.Logger
	// local is true when song files live on this machine
	local bool

	shown []model.Song

	mu          sync.Mutex
	query       string
	searchTimer *time.Timer

	searchEntry *widget.Entry
	list        *widget.List
	emptyLabel  *widget.Label
	content     *fyne.Container
}

// NewLibraryView creates the library tab
func NewLibraryView(ctx context.Context, window fyne.Window, songs *library.Songs, live *config.Live, localization *Localization, local bool, log *zap.Logger) *LibraryView {
	v := &LibraryView{
		ctx:          ctx,
		window:       window,
		songs:        songs,
		live:         live,
		localization: localization,
		log:          log,
		local:        local,
	}

	v.searchEntry = widget.NewEntry()
	v.searchEntry.SetPlaceHolder(localization.GetText(KeySearch))
	v.searchEntry.OnChanged = v.onQueryChanged

	v.list = widget.NewList(
		func() int { return len(v.shown) },
		func() fyne.CanvasObject { return newSongRow(v) },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(v.shown) {
				obj.(*songRow).setSong(v.shown[id])
			}
		},
	)

	v.emptyLabel = widget.NewLabel(localization.GetText(KeyEmptyLibrary))
	v.emptyLabel.Alignment = fyne.TextAlignCenter

	v.content = container.NewBorder(v.searchEntry, nil, nil, nil, container.NewStack(v.list, v.emptyLabel))

	songs.OnChange(func([]model.Song) {
		v.runSearch(v.currentQuery())
	})
	return v
}

// Content returns the tab body
func (v *LibraryView) Content() fyne.CanvasObject {
	return v.content
}

// RefreshTexts re-reads localized strings
func (v *LibraryView) RefreshTexts() {
	v.searchEntry.SetPlaceHolder(v.localization.GetText(KeySearch))
	v.emptyLabel.SetText(v.localization.GetText(KeyEmptyLibrary))
	v.list.Refresh()
}

func (v *LibraryView) currentQuery() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

func (v *LibraryView) onQueryChanged(text string) {
	query := strings.TrimSpace(text)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = query
	if v.searchTimer != nil {
		v.searchTimer.Stop()
	}
	v.searchTimer = time.AfterFunc(SearchDebounce, func() {
		v.runSearch(query)
	})
}

// runSearch fetches matches off the UI goroutine and shows them
func (v *LibraryView) runSearch(query string) {
	go func() {
		songs, err := v.songs.Search(v.ctx, query)
		if err != nil {
			v.log.Warn("song search failed", zap.String("query", query), zap.Error(err))
			return
		}
		fyne.Do(func() {
			if query != v.currentQuery() {
				return
			}
			v.setSongs(songs)
		})
	}()
}

func (v *LibraryView) setSongs(songs []model.Song) {
	v.shown = songs
	if len(songs) == 0 {
		v.emptyLabel.Show()
	} else {
		v.emptyLabel.Hide()
	}
	v.list.Refresh()
}

// songPath resolves a song file, or "" when it is not reachable from here
func (v *LibraryView) songPath(s model.Song) string {
	if !v.local {
		return ""
	}
	cfg := v.live.Config()
	if !cfg.IsConfigured() {
		return ""
	}
	return s.Path(cfg.LibraryPath)
}

func (v *LibraryView) onReveal(s model.Song) {
	if path := v.songPath(s); path != "" {
		if err := platform.OpenFileInManager(path); err != nil {
			dialog.ShowError(err, v.window)
		}
	}
}

func (v *LibraryView) onPlay(s model.Song) {
	if path := v.songPath(s); path != "" {
		if err := platform.OpenFileWithDefaultApp(path); err != nil {
			dialog.ShowError(err, v.window)
		}
	}
}

func (v *LibraryView) onRemove(s model.Song) {
	prompt := v.localization.GetText(KeyRemove) + " " + songTitle(s) + "?"
	dialog.ShowConfirm(v.localization.GetText(KeyRemove), prompt, func(ok bool) {
		if !ok {
			return
		}
		go func() {
			if err := v.songs.Remove(v.ctx, s.ID); err != nil {
				fyne.Do(func() { dialog.ShowError(err, v.window) })
			}
		}()
	}, v.window)
}

func songTitle(s model.Song) string {
	if s.Title == "" {
		return s.Filename
	}
	return model.Metadata{Title: s.Title, Artist: s.Artist}.DisplayTitle()
}

// songRow is one library entry
type songRow struct {
	widget.BaseWidget

	view *LibraryView
	song model.Song

	titleLabel    *widget.Label
	durationLabel *widget.Label
	revealBtn     *widget.Button
	playBtn       *widget.Button
	removeBtn     *widget.Button
}

func newSongRow(v *LibraryView) *songRow {
	r := &songRow{view: v}

	r.titleLabel = widget.NewLabel("")
	r.titleLabel.Truncation = fyne.TextTruncateEllipsis
	r.durationLabel = widget.NewLabel("")

	r.revealBtn = widget.NewButton(IconFolder, func() { v.onReveal(r.song) })
	r.revealBtn.Importance = widget.LowImportance
	r.playBtn = widget.NewButton(IconPlay, func() { v.onPlay(r.song) })
	r.playBtn.Importance = widget.LowImportance
	r.removeBtn = widget.NewButton(IconClose, func() { v.onRemove(r.song) })
	r.removeBtn.Importance = widget.LowImportance

	r.ExtendBaseWidget(r)
	return r
}

func (r *songRow) setSong(s model.Song) {
	r.song = s
	r.titleLabel.SetText(IconMusic + " " + songTitle(s))
	r.durationLabel.SetText(model.Metadata{Duration: s.Duration}.DurationString())

	if r.view.songPath(s) == "" {
		r.revealBtn.Disable()
		r.playBtn.Disable()
	} else {
		r.revealBtn.Enable()
		r.playBtn.Enable()
	}
}

func (r *songRow) CreateRenderer() fyne.WidgetRenderer {
	actions := container.NewHBox(r.durationLabel, r.revealBtn, r.playBtn, r.removeBtn)
	return widget.NewSimpleRenderer(container.NewBorder(nil, nil, nil, actions, r.titleLabel))
}
