package ui

import (
	"context"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/model"
)

// SetupDialog is the first-run wizard: pick a library folder, then follow
// the engine's setup://progress pushes until it reports 100.
type SetupDialog struct {
	ctx          context.Context
	live         *config.Live
	settings     *config.Settings
	localization *Localization
	window       fyne.Window

	dialog      *dialog.CustomDialog
	pathEntry   *widget.Entry
	browseBtn   *widget.Button
	startBtn    *widget.Button
	progressBar *widget.ProgressBar
	statusLabel *widget.Label

	visible bool
}

// NewSetupDialog creates the wizard; it subscribes to setup progress once
func NewSetupDialog(ctx context.Context, live *config.Live, settings *config.Settings, localization *Localization, window fyne.Window) *SetupDialog {
	sd := &SetupDialog{
		ctx:          ctx,
		live:         live,
		settings:     settings,
		localization: localization,
		window:       window,
	}
	sd.createUI()

	live.OnSetupProgress(func(p model.SetupProgress) {
		fyne.Do(func() { sd.onProgress(p) })
	})
	return sd
}

func (sd *SetupDialog) createUI() {
	l := sd.localization

	sd.pathEntry = widget.NewEntry()
	sd.browseBtn = widget.NewButton(l.GetText(KeyBrowse), func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			sd.pathEntry.SetText(uri.Path())
		}, sd.window)
	})

	sd.startBtn = widget.NewButton(l.GetText(KeyStartSetup), sd.onStart)
	sd.startBtn.Importance = widget.HighImportance

	sd.progressBar = widget.NewProgressBar()
	sd.progressBar.Max = 100
	sd.progressBar.Hide()

	sd.statusLabel = widget.NewLabel("")
	sd.statusLabel.Wrapping = fyne.TextWrapWord

	content := container.NewVBox(
		widget.NewLabel(l.GetText(KeySetupIntro)),
		container.NewBorder(nil, nil, nil, sd.browseBtn, sd.pathEntry),
		sd.progressBar,
		sd.statusLabel,
		container.NewHBox(sd.startBtn),
	)

	sd.dialog = dialog.NewCustomWithoutButtons(l.GetText(KeySetupTitle), content, sd.window)
	sd.dialog.Resize(fyne.NewSize(DialogWidth, DialogHeight/2))
}

// Show opens the wizard unless it is already open
func (sd *SetupDialog) Show() {
	if sd.visible {
		return
	}
	sd.visible = true
	sd.pathEntry.SetText(sd.settings.GetSuggestedLibraryPath())
	sd.setBusy(false)
	sd.progressBar.Hide()
	sd.statusLabel.SetText("")
	sd.dialog.Show()
}

// Hide closes the wizard
func (sd *SetupDialog) Hide() {
	sd.visible = false
	sd.dialog.Hide()
}

func (sd *SetupDialog) setBusy(busy bool) {
	if busy {
		sd.pathEntry.Disable()
		sd.browseBtn.Disable()
		sd.startBtn.Disable()
		return
	}
	sd.pathEntry.Enable()
	sd.browseBtn.Enable()
	sd.startBtn.Enable()
}

func (sd *SetupDialog) onStart() {
	path := strings.TrimSpace(sd.pathEntry.Text)
	if path == "" {
		return
	}
	sd.settings.SetSuggestedLibraryPath(path)
	sd.setBusy(true)
	sd.progressBar.SetValue(0)
	sd.progressBar.Show()

	go func() {
		err := sd.live.InitializeSetup(sd.ctx, path)
		if err == nil {
			return
		}
		fyne.Do(func() {
			sd.setBusy(false)
			sd.progressBar.Hide()
			sd.statusLabel.Importance = widget.DangerImportance
			sd.statusLabel.SetText(err.Error())
		})
	}()
}

func (sd *SetupDialog) onProgress(p model.SetupProgress) {
	if !sd.visible {
		return
	}
	sd.progressBar.Show()
	sd.progressBar.SetValue(clampPercent(p.Progress))
	sd.statusLabel.Importance = widget.MediumImportance
	sd.statusLabel.SetText(p.Status)
}

// Done closes the wizard once a configured library arrives
func (sd *SetupDialog) Done(cfg *model.Config) {
	if sd.visible && cfg.IsConfigured() {
		sd.Hide()
	}
}
