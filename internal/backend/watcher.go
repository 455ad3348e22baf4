package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce coalesces bursts of file events into one notification
const DefaultWatchDebounce = 500 * time.Millisecond

// LibraryWatcher reports audio files appearing or disappearing in the songs folder
type LibraryWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	log      *zap.Logger

	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex
}

// NewLibraryWatcher creates a watcher for dir calling onChange after changes settle
func NewLibraryWatcher(dir string, onChange func(), log *zap.Logger) (*LibraryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LibraryWatcher{
		dir:      dir,
		watcher:  w,
		onChange: onChange,
		debounce: DefaultWatchDebounce,
		log:      log.Named("watcher"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching
func (lw *LibraryWatcher) Start() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.watching {
		return fmt.Errorf("watcher for %s already running", lw.dir)
	}
	if _, err := os.Stat(lw.dir); err != nil {
		return fmt.Errorf("songs directory: %w", err)
	}
	if err := lw.watcher.Add(lw.dir); err != nil {
		return fmt.Errorf("watch %s: %w", lw.dir, err)
	}

	lw.watching = true
	lw.wg.Add(1)
	go lw.watchLoop()

	lw.log.Info("library watcher started", zap.String("dir", lw.dir))
	return nil
}

// Stop ends watching and waits for the loop to exit
func (lw *LibraryWatcher) Stop() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if !lw.watching {
		return lw.watcher.Close()
	}

	close(lw.stopCh)
	err := lw.watcher.Close()
	lw.wg.Wait()
	lw.watching = false

	lw.log.Info("library watcher stopped", zap.String("dir", lw.dir))
	return err
}

func (lw *LibraryWatcher) watchLoop() {
	defer lw.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			if !isAudioChange(event) {
				continue
			}
			lw.log.Debug("library file changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			if timer == nil {
				timer = time.NewTimer(lw.debounce)
			} else {
				timer.Reset(lw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			lw.onChange()

		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			lw.log.Warn("library watcher error", zap.Error(err))

		case <-lw.stopCh:
			return
		}
	}
}

func isAudioChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), "."+AudioFormat)
}
