package model

// Config is the persisted, process-wide user configuration
type Config struct {
	LibraryPath   string `json:"library_path" mapstructure:"library_path"`
	AutoUpdate    bool   `json:"auto_update" mapstructure:"auto_update"`
	YtDlpVersion  string `json:"yt_dlp_version" mapstructure:"yt_dlp_version"`
	FfmpegVersion string `json:"ffmpeg_version" mapstructure:"ffmpeg_version"`
}

// IsConfigured reports whether a library has been set up
func (c *Config) IsConfigured() bool {
	return c != nil && c.LibraryPath != ""
}
