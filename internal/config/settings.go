package config

import (
	"fyne.io/fyne/v2"

	"github.com/ytget/synqed/internal/platform"
)

// Settings keys for Fyne preferences
const (
	KeyLanguage         = "app_language"
	KeyNotifyOnComplete = "notify_on_complete"
	KeyLastImportDir    = "last_import_directory"
	KeyLastLibraryPath  = "last_library_path"
	KeyRemoteURL        = "remote_backend_url"
)

// Default values
const (
	DefaultLanguage         = "system"
	DefaultNotifyOnComplete = true
)

// Settings keeps desktop-only preferences. Everything the backend needs lives
// in the user config document instead.
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ru":     "Русский",
		"pt":     "Português",
	}
}

// GetNotifyOnComplete returns whether a notification is sent when a job completes
func (s *Settings) GetNotifyOnComplete() bool {
	return s.app.Preferences().BoolWithFallback(KeyNotifyOnComplete, DefaultNotifyOnComplete)
}

// SetNotifyOnComplete sets whether a notification is sent when a job completes
func (s *Settings) SetNotifyOnComplete(notify bool) {
	s.app.Preferences().SetBool(KeyNotifyOnComplete, notify)
}

// GetLastImportDirectory returns the directory of the last imported URL list
func (s *Settings) GetLastImportDirectory() string {
	return s.app.Preferences().String(KeyLastImportDir)
}

// SetLastImportDirectory remembers the directory of the last imported URL list
func (s *Settings) SetLastImportDirectory(dir string) {
	s.app.Preferences().SetString(KeyLastImportDir, dir)
}

// GetSuggestedLibraryPath returns the library path offered by the setup dialog
func (s *Settings) GetSuggestedLibraryPath() string {
	dir := s.app.Preferences().String(KeyLastLibraryPath)
	if dir != "" {
		return dir
	}
	dir, err := platform.GetDefaultMusicDir()
	if err != nil {
		return ""
	}
	return dir
}

// SetSuggestedLibraryPath remembers the last library path picked by the user
func (s *Settings) SetSuggestedLibraryPath(dir string) {
	s.app.Preferences().SetString(KeyLastLibraryPath, dir)
}

// GetRemoteURL returns the remembered remote backend URL, or fallback
func (s *Settings) GetRemoteURL(fallback string) string {
	return s.app.Preferences().StringWithFallback(KeyRemoteURL, fallback)
}

// SetRemoteURL remembers the remote backend URL
func (s *Settings) SetRemoteURL(url string) {
	s.app.Preferences().SetString(KeyRemoteURL, url)
}
