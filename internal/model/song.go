package model

import (
	"path/filepath"
	"time"
)

// Library layout below the configured library path
const (
	SongsDir     = "Songs"
	CoversDir    = "Covers"
	DatabaseFile = "songs.db"
)

// Song is an already downloaded track persisted in the library database
type Song struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist" gorm:"index"`
	Album     string    `json:"album,omitempty"`
	Filename  string    `json:"filename"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Path returns the absolute location of the song file inside library
func (s Song) Path(library string) string {
	return filepath.Join(library, SongsDir, s.Filename)
}

// CoverPath returns the cached cover location inside library
func (s Song) CoverPath(library string) string {
	return filepath.Join(library, CoversDir, s.ID+".jpg")
}
