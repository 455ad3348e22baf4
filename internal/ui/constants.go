package ui

import "time"

// Icons
const (
	IconSettings = "⚙"
	IconPlay     = "▶"
	IconFolder   = "📁"
	IconLogs     = "☰"
	IconClose    = "×"
	IconError    = "❌"
	IconDone     = "✔"
	IconWaiting  = "⏳"
	IconMusic    = "🎵"
)

// Text fragments
const (
	MiddleDotSeparator = " · "
	DashPlaceholder    = "—"
)

// Layout sizing
const (
	PercentLabelWidth float32 = 48

	RowMinWidth  float32 = 400
	RowMinHeight float32 = 64

	LogoSize float32 = 32

	WindowWidth  float32 = 820
	WindowHeight float32 = 600

	DialogWidth  float32 = 520
	DialogHeight float32 = 360
)

// Timings
const (
	NotificationAutoHide = 5 * time.Second
	SearchDebounce       = 250 * time.Millisecond
)
