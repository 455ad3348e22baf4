package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ytget/synqed/internal/model"
)

// Library is the song database of one library folder
type Library struct {
	root string
	db   *gorm.DB
	log  *zap.Logger
}

// OpenLibrary creates the library layout under root if needed and opens its database
func OpenLibrary(root string, log *zap.Logger) (*Library, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, dir := range []string{model.SongsDir, model.CoversDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	path := filepath.Join(root, model.DatabaseFile)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&model.Song{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	log.Named("library").Info("library opened", zap.String("path", path))
	return &Library{root: root, db: db, log: log.Named("library")}, nil
}

// Root returns the library folder
func (l *Library) Root() string {
	return l.root
}

// Close closes the database
func (l *Library) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Songs returns every song, newest first
func (l *Library) Songs(ctx context.Context) ([]model.Song, error) {
	var songs []model.Song
	if err := l.db.WithContext(ctx).Order("created_at desc").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

// Search returns songs whose title, artist or album contains query,
// ignoring case and accents
func (l *Library) Search(ctx context.Context, query string) ([]model.Song, error) {
	songs, err := l.Songs(ctx)
	if err != nil {
		return nil, err
	}
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return songs, nil
	}

	out := songs[:0]
	for _, s := range songs {
		if strings.Contains(Fold(s.Title), q) || strings.Contains(Fold(s.Artist), q) || strings.Contains(Fold(s.Album), q) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Song returns the song with id, or nil when there is none
func (l *Library) Song(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	err := l.db.WithContext(ctx).Where("id = ?", id).First(&song).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get song %s: %w", id, err)
	}
	return &song, nil
}

// Add inserts or replaces a song
func (l *Library) Add(ctx context.Context, song model.Song) error {
	if err := l.db.WithContext(ctx).Save(&song).Error; err != nil {
		return fmt.Errorf("save song %s: %w", song.ID, err)
	}
	return nil
}

// Remove deletes the song row, its audio file and its cached cover. A
// missing file is only logged.
func (l *Library) Remove(ctx context.Context, id string) error {
	song, err := l.Song(ctx, id)
	if err != nil {
		return err
	}
	if song == nil {
		return ErrSongNotFound
	}

	for _, path := range []string{song.Path(l.root), song.CoverPath(l.root)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.log.Warn("failed to delete file", zap.String("path", path), zap.Error(err))
		}
	}

	if err := l.db.WithContext(ctx).Delete(&model.Song{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete song %s: %w", id, err)
	}
	return nil
}

// Fold normalizes s for accent and case insensitive matching
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}
