package platform

// Package platform contains OS integration and external tooling glue:
// the default music directory, reveal/open in the system file manager,
// playlist URL helpers and playlist expansion through ytdlp.
