package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/model"
)

// SettingsDialog edits the engine config and the desktop preferences
type SettingsDialog struct {
	ctx          context.Context
	live         *config.Live
	settings     *config.Settings
	commands     bridge.Commands
	localization *Localization
	window       fyne.Window
	dialog       *dialog.ConfirmDialog
	onSaved      func()

	libraryPathEntry *widget.Entry
	autoUpdateCheck  *widget.Check
	notifyCheck      *widget.Check
	languageSelect   *widget.Select
	versionsLabel    *widget.Label

	// languageCodes maps select labels back to codes
	languageCodes map[string]string
}

// NewSettingsDialog creates a new settings dialog
func NewSettingsDialog(ctx context.Context, live *config.Live, settings *config.Settings, commands bridge.Commands, localization *Localization, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		ctx:          ctx,
		live:         live,
		settings:     settings,
		commands:     commands,
		localization: localization,
		window:       window,
		onSaved:      onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	l := sd.localization

	sd.libraryPathEntry = widget.NewEntry()
	browseBtn := widget.NewButton(l.GetText(KeyBrowse), sd.onBrowseDirectory)
	libraryRow := container.NewBorder(nil, nil, nil, browseBtn, sd.libraryPathEntry)

	sd.autoUpdateCheck = widget.NewCheck(l.GetText(KeyAutoUpdate), nil)
	sd.notifyCheck = widget.NewCheck(l.GetText(KeyNotifyOnComplete), nil)

	sd.languageCodes = make(map[string]string)
	var labels []string
	for code, label := range sd.settings.GetLanguageOptions() {
		sd.languageCodes[label] = code
		labels = append(labels, label)
	}
	sort.Strings(labels)
	sd.languageSelect = widget.NewSelect(labels, nil)

	sd.versionsLabel = widget.NewLabel("")
	sd.versionsLabel.Importance = widget.LowImportance

	healthBtn := widget.NewButton(l.GetText(KeyCheckHealth), sd.onCheckHealth)
	resetBtn := widget.NewButton(l.GetText(KeyFactoryReset), sd.onFactoryReset)
	resetBtn.Importance = widget.DangerImportance

	form := container.NewVBox(
		widget.NewLabel(l.GetText(KeyLibraryPath)),
		libraryRow,
		sd.autoUpdateCheck,
		sd.versionsLabel,
		widget.NewSeparator(),
		sd.notifyCheck,
		widget.NewLabel(l.GetText(KeyLanguage)),
		sd.languageSelect,
		widget.NewSeparator(),
		container.NewHBox(healthBtn, resetBtn),
	)

	sd.dialog = dialog.NewCustomConfirm(
		l.GetText(KeySettings),
		l.GetText(KeySave),
		l.GetText(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)
	sd.dialog.Resize(fyne.NewSize(DialogWidth, DialogHeight))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	cfg := sd.live.Config()
	if cfg == nil {
		cfg = &model.Config{}
	}
	sd.libraryPathEntry.SetText(cfg.LibraryPath)
	sd.autoUpdateCheck.SetChecked(cfg.AutoUpdate)
	sd.versionsLabel.SetText(fmt.Sprintf(sd.localization.GetText(KeyVersions), orDash(cfg.YtDlpVersion), orDash(cfg.FfmpegVersion)))

	sd.notifyCheck.SetChecked(sd.settings.GetNotifyOnComplete())
	sd.languageSelect.SetSelected(sd.settings.GetLanguageOptions()[sd.settings.GetLanguage()])
}

func orDash(s string) string {
	if s == "" {
		return DashPlaceholder
	}
	return s
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.libraryPathEntry.SetText(uri.Path())
	}, sd.window)
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	sd.settings.SetNotifyOnComplete(sd.notifyCheck.Checked)
	if code, ok := sd.languageCodes[sd.languageSelect.Selected]; ok {
		sd.settings.SetLanguage(code)
	}

	cfg := model.Config{}
	if current := sd.live.Config(); current != nil {
		cfg = *current
	}
	cfg.LibraryPath = strings.TrimSpace(sd.libraryPathEntry.Text)
	cfg.AutoUpdate = sd.autoUpdateCheck.Checked
	if cfg.LibraryPath != "" {
		sd.settings.SetSuggestedLibraryPath(cfg.LibraryPath)
	}

	go func() {
		err := sd.live.Save(sd.ctx, cfg)
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, sd.window)
				return
			}
			if sd.onSaved != nil {
				sd.onSaved()
			}
		})
	}()
}

func (sd *SettingsDialog) onCheckHealth() {
	go func() {
		ok, err := sd.commands.CheckHealth(sd.ctx)
		fyne.Do(func() {
			switch {
			case err != nil:
				dialog.ShowError(err, sd.window)
			case ok:
				dialog.ShowInformation(sd.localization.GetText(KeyCheckHealth), sd.localization.GetText(KeyHealthy), sd.window)
			default:
				dialog.ShowInformation(sd.localization.GetText(KeyCheckHealth), sd.localization.GetText(KeyUnhealthy), sd.window)
			}
		})
	}()
}

func (sd *SettingsDialog) onFactoryReset() {
	l := sd.localization
	dialog.ShowConfirm(l.GetText(KeyFactoryReset), l.GetText(KeyFactoryResetPrompt), func(ok bool) {
		if !ok {
			return
		}
		sd.dialog.Hide()
		go func() {
			if err := sd.commands.FactoryReset(sd.ctx); err != nil {
				fyne.Do(func() { dialog.ShowError(err, sd.window) })
			}
		}()
	}, sd.window)
}
