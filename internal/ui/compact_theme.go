package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/synqed/internal/model"
)

// CompactTheme is the default theme with tighter spacing and the app palette
type CompactTheme struct{}

// NewCompactTheme creates a new compact theme
func NewCompactTheme() fyne.Theme {
	return &CompactTheme{}
}

// Color returns theme colors
func (t *CompactTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameSuccess:
		return color.RGBA{R: 46, G: 160, B: 67, A: 255}
	case theme.ColorNameError:
		return color.RGBA{R: 198, G: 40, B: 40, A: 255}
	case theme.ColorNameWarning:
		return color.RGBA{R: 245, G: 166, B: 35, A: 255}
	case theme.ColorNamePrimary:
		return color.RGBA{R: 124, G: 77, B: 255, A: 255}
	case theme.ColorNameBackground:
		if variant == theme.VariantDark {
			return color.RGBA{R: 20, G: 18, B: 26, A: 255}
		}
		return color.RGBA{R: 250, G: 249, B: 252, A: 255}
	case theme.ColorNameForeground:
		if variant == theme.VariantDark {
			return color.RGBA{R: 240, G: 240, B: 245, A: 255}
		}
		return color.RGBA{R: 33, G: 33, B: 40, A: 255}
	}

	return theme.DefaultTheme().Color(name, variant)
}

// Font returns theme fonts
func (t *CompactTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

// Icon returns theme icons
func (t *CompactTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size returns theme sizes with compact adjustments
func (t *CompactTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 3
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameLineSpacing:
		return 2
	case theme.SizeNameScrollBar:
		return 12
	case theme.SizeNameText:
		return 13
	case theme.SizeNameHeadingText:
		return 16
	case theme.SizeNameSubHeadingText:
		return 13
	case theme.SizeNameCaptionText:
		return 10
	case theme.SizeNameInputRadius:
		return 3
	case theme.SizeNameSelectionRadius:
		return 2
	}

	return theme.DefaultTheme().Size(name)
}

// statusImportance picks the label colour for a job status
func statusImportance(status model.JobStatus) widget.Importance {
	switch status {
	case model.StatusCompleted:
		return widget.SuccessImportance
	case model.StatusError:
		return widget.DangerImportance
	case model.StatusDownloading:
		return widget.HighImportance
	case model.StatusPending:
		return widget.WarningImportance
	default:
		return widget.MediumImportance
	}
}

// statusIcon prefixes the status text of a row
func statusIcon(status model.JobStatus) string {
	switch status {
	case model.StatusCompleted:
		return IconDone
	case model.StatusError:
		return IconError
	case model.StatusDownloading:
		return IconPlay
	default:
		return IconWaiting
	}
}
