package ui

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
	"github.com/ytget/synqed/internal/config"
	"github.com/ytget/synqed/internal/download"
	"github.com/ytget/synqed/internal/library"
	"github.com/ytget/synqed/internal/model"
)

// Deps is what the main window is built from
type Deps struct {
	App      fyne.App
	Window   fyne.Window
	Queue    *download.Queue
	Live     *config.Live
	Songs    *library.Songs
	Settings *config.Settings
	Commands bridge.Commands
	// Local is true when the engine runs in this process, so library files
	// and import lists can be opened directly
	Local  bool
	Logger *zap.Logger
}

// RootUI represents the main UI structure
type RootUI struct {
	ctx          context.Context
	app          fyne.App
	window       fyne.Window
	queue        *download.Queue
	live         *config.Live
	songs        *library.Songs
	settings     *config.Settings
	commands     bridge.Commands
	local        bool
	log          *zap.Logger
	localization *Localization

	urlEntry  *widget.Entry
	addBtn    *widget.Button
	importBtn *widget.Button

	tabs            *container.AppTabs
	queueTab        *container.TabItem
	historyTab      *container.TabItem
	libraryTab      *container.TabItem
	queueList       *widget.List
	historyList     *widget.List
	queueEmpty      *widget.Label
	historyEmpty    *widget.Label
	clearQueueBtn   *widget.Button
	clearHistoryBtn *widget.Button

	// owned by the UI goroutine
	pending []model.DownloadJob
	history []model.DownloadJob

	library *LibraryView
	setup   *SetupDialog

	notificationContainer *fyne.Container
	notificationLabel     *widget.Label
	notificationSpinner   *widget.ProgressBarInfinite
	notificationGen       int
}

// NewRootUI builds the main window content
func NewRootUI(ctx context.Context, d Deps) *RootUI {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	localization := NewLocalization()
	localization.SetLanguage(d.Settings.GetLanguage())

	ui := &RootUI{
		ctx:          ctx,
		app:          d.App,
		window:       d.Window,
		queue:        d.Queue,
		live:         d.Live,
		songs:        d.Songs,
		settings:     d.Settings,
		commands:     d.Commands,
		local:        d.Local,
		log:          d.Logger.Named("ui"),
		localization: localization,
	}

	ui.window.SetTitle(localization.GetText(KeyAppTitle))
	ui.library = NewLibraryView(ctx, ui.window, ui.songs, ui.live, localization, ui.local, ui.log)
	ui.setup = NewSetupDialog(ctx, ui.live, ui.settings, localization, ui.window)

	ui.live.OnChange(func(cfg *model.Config) {
		fyne.Do(func() { ui.onConfig(cfg) })
	})

	ui.setupUI()
	return ui
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	l := ui.localization
	ui.createMenu()

	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder(l.GetText(KeyEnterURL))
	ui.urlEntry.Validator = validateURL
	ui.urlEntry.OnSubmitted = func(string) { ui.onAddClick() }

	ui.addBtn = widget.NewButton(l.GetText(KeyAdd), ui.onAddClick)
	ui.addBtn.Importance = widget.HighImportance
	ui.importBtn = widget.NewButton(l.GetText(KeyImport), ui.onImportClick)

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	left := container.NewHBox(settingsBtn)
	if logo, err := LoadLogoResource(); err == nil {
		img := canvas.NewImageFromResource(logo)
		img.SetMinSize(fyne.NewSize(LogoSize, LogoSize))
		img.FillMode = canvas.ImageFillContain
		left = container.NewHBox(img, settingsBtn)
		ui.window.SetIcon(logo)
	}
	topPanel := container.NewBorder(nil, nil, left, container.NewHBox(ui.addBtn, ui.importBtn), ui.urlEntry)

	ui.notificationLabel = widget.NewLabel("")
	ui.notificationLabel.Truncation = fyne.TextTruncateEllipsis
	ui.notificationSpinner = widget.NewProgressBarInfinite()
	ui.notificationSpinner.Hide()
	ui.notificationContainer = container.NewBorder(nil, nil, ui.notificationSpinner, nil, ui.notificationLabel)
	ui.notificationContainer.Hide()

	ui.queueList = ui.newJobList(func() []model.DownloadJob { return ui.pending })
	ui.historyList = ui.newJobList(func() []model.DownloadJob { return ui.history })

	ui.queueEmpty = widget.NewLabel(l.GetText(KeyEmptyQueue))
	ui.queueEmpty.Alignment = fyne.TextAlignCenter
	ui.historyEmpty = widget.NewLabel(l.GetText(KeyEmptyHistory))
	ui.historyEmpty.Alignment = fyne.TextAlignCenter

	ui.clearQueueBtn = widget.NewButton(l.GetText(KeyClearQueue), func() {
		ui.runAction("clear queue", ui.queue.ClearQueue)
	})
	ui.clearHistoryBtn = widget.NewButton(l.GetText(KeyClearHistory), func() {
		ui.runAction("clear history", ui.queue.ClearHistory)
	})

	queueBody := container.NewBorder(nil, container.NewHBox(ui.clearQueueBtn), nil, nil, container.NewStack(ui.queueList, ui.queueEmpty))
	historyBody := container.NewBorder(nil, container.NewHBox(ui.clearHistoryBtn), nil, nil, container.NewStack(ui.historyList, ui.historyEmpty))

	ui.queueTab = container.NewTabItem(l.GetText(KeyQueue), queueBody)
	ui.historyTab = container.NewTabItem(l.GetText(KeyHistory), historyBody)
	ui.libraryTab = container.NewTabItem(l.GetText(KeyLibrary), ui.library.Content())
	ui.tabs = container.NewAppTabs(ui.queueTab, ui.historyTab, ui.libraryTab)

	ui.setJobs(ui.queue.Jobs())

	content := container.NewBorder(
		container.NewVBox(topPanel, ui.notificationContainer),
		nil,
		nil,
		nil,
		ui.tabs,
	)
	ui.window.SetContent(content)
	ui.window.Resize(fyne.NewSize(WindowWidth, WindowHeight))
}

func (ui *RootUI) newJobList(items func() []model.DownloadJob) *widget.List {
	return widget.NewList(
		func() int { return len(items()) },
		func() fyne.CanvasObject { return NewJobRow(ui.localization, ui.onRemoveJob, ui.onShowLogs) },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			jobs := items()
			if id < len(jobs) {
				obj.(*JobRow).SetJob(jobs[id])
			}
		},
	)
}

// Run renders queue snapshots and notices until ctx ends
func (ui *RootUI) Run(ctx context.Context) {
	snapshots, stop := ui.queue.Subscribe()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case jobs, ok := <-snapshots:
			if !ok {
				return
			}
			fyne.Do(func() { ui.setJobs(jobs) })
		case n := <-ui.queue.Notices():
			ui.onNotice(n)
		}
	}
}

// setJobs splits a snapshot into the queue and history tabs
func (ui *RootUI) setJobs(jobs []model.DownloadJob) {
	active, queued, history := download.Partition(jobs)
	ui.pending = append(active, queued...)
	ui.history = history

	toggle(ui.queueEmpty, len(ui.pending) == 0)
	toggle(ui.historyEmpty, len(ui.history) == 0)
	enable(ui.clearQueueBtn, len(queued) > 0)
	enable(ui.clearHistoryBtn, len(history) > 0)

	ui.queueTab.Text = tabTitle(ui.localization.GetText(KeyQueue), len(ui.pending))
	ui.historyTab.Text = tabTitle(ui.localization.GetText(KeyHistory), len(ui.history))
	ui.tabs.Refresh()
	ui.queueList.Refresh()
	ui.historyList.Refresh()
}

func tabTitle(name string, n int) string {
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, n)
}

func toggle(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}

func enable(w fyne.Disableable, on bool) {
	if on {
		w.Enable()
	} else {
		w.Disable()
	}
}

func (ui *RootUI) onConfig(cfg *model.Config) {
	if cfg.IsConfigured() {
		ui.setup.Done(cfg)
		return
	}
	ui.setup.Show()
}

func (ui *RootUI) onNotice(n download.Notice) {
	l := ui.localization
	var title, body string
	switch n.Kind {
	case download.NoticeCompleted:
		ui.showNotification(IconDone+" "+n.Title, false)
		if !ui.settings.GetNotifyOnComplete() {
			return
		}
		title, body = l.GetText(KeyDownloadCompleted), n.Title
	case download.NoticeFailed:
		title, body = l.GetText(KeyDownloadFailed), n.Title+": "+n.Message
		ui.showNotification(IconError+" "+body, false)
	case download.NoticeStartFailed:
		title, body = l.GetText(KeyStartFailed), n.Title+": "+n.Message
		ui.showNotification(IconError+" "+body, false)
	default:
		return
	}
	fyne.Do(func() {
		ui.app.SendNotification(fyne.NewNotification(title, body))
	})
}

// createMenu creates the application menu
func (ui *RootUI) createMenu() {
	l := ui.localization
	importItem := fyne.NewMenuItem(l.GetText(KeyImport), ui.onImportClick)
	settingsItem := fyne.NewMenuItem(l.GetText(KeySettings), ui.onShowSettings)

	languageMenu := fyne.NewMenu(l.GetText(KeyLanguage))
	for code, name := range l.GetAvailableLanguages() {
		langCode := code
		item := fyne.NewMenuItem(name, func() { ui.onLanguageChange(langCode) })
		item.Checked = l.GetCurrentLanguage() == code
		languageMenu.Items = append(languageMenu.Items, item)
	}

	ui.window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu(l.GetText(KeyFile), importItem, settingsItem),
		languageMenu,
	))
}

func (ui *RootUI) onLanguageChange(langCode string) {
	ui.localization.SetLanguage(langCode)
	ui.settings.SetLanguage(langCode)
	ui.refreshUITexts()
	ui.createMenu()
}

// refreshUITexts updates all UI texts with current language
func (ui *RootUI) refreshUITexts() {
	l := ui.localization
	ui.window.SetTitle(l.GetText(KeyAppTitle))
	ui.urlEntry.SetPlaceHolder(l.GetText(KeyEnterURL))
	ui.addBtn.SetText(l.GetText(KeyAdd))
	ui.importBtn.SetText(l.GetText(KeyImport))
	ui.clearQueueBtn.SetText(l.GetText(KeyClearQueue))
	ui.clearHistoryBtn.SetText(l.GetText(KeyClearHistory))
	ui.queueEmpty.SetText(l.GetText(KeyEmptyQueue))
	ui.historyEmpty.SetText(l.GetText(KeyEmptyHistory))
	ui.libraryTab.Text = l.GetText(KeyLibrary)
	ui.library.RefreshTexts()
	ui.setJobs(ui.queue.Jobs())
}

// validateURL accepts empty input and absolute http(s) links
func validateURL(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

func (ui *RootUI) onAddClick() {
	l := ui.localization
	link := strings.TrimSpace(ui.urlEntry.Text)
	if link == "" {
		ui.showNotification(l.GetText(KeyPleaseEnterURL), false)
		return
	}
	if err := validateURL(link); err != nil {
		ui.showNotification(l.GetText(KeyInvalidURL)+": "+err.Error(), false)
		return
	}

	ui.addBtn.Disable()
	ui.showNotification(l.GetText(KeyFetchingMetadata), true)

	go func() {
		res := ui.queue.QueueURL(ui.ctx, link)
		fyne.Do(func() {
			ui.addBtn.Enable()
			if res.Err != nil {
				ui.log.Warn("add failed", zap.String("url", link), zap.Error(res.Err))
				ui.showNotification(IconError+" "+res.Err.Error(), false)
				return
			}
			ui.urlEntry.SetText("")
			ui.showNotification(fmt.Sprintf(l.GetText(KeyAddedTracks), len(res.Added), res.Skipped), false)
		})
	}()
}

func (ui *RootUI) onImportClick() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		ui.settings.SetLastImportDirectory(filepath.Dir(path))

		if ui.local {
			_ = reader.Close()
			ui.importFile(path)
			return
		}
		content, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		ui.importLinks(download.ImportLines(string(content)))
	}, ui.window)

	fd.SetFilter(storage.NewExtensionFileFilter([]string{".txt"}))
	if dir := ui.settings.GetLastImportDirectory(); dir != "" {
		if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			fd.SetLocation(lister)
		}
	}
	fd.Show()
}

// importFile lets the engine read the list; only valid when it shares our disk
func (ui *RootUI) importFile(path string) {
	ui.showNotification(ui.localization.GetText(KeyFetchingMetadata), true)
	go func() {
		res, err := ui.queue.ImportFile(ui.ctx, path)
		if err != nil {
			ui.showNotification(IconError+" "+err.Error(), false)
			return
		}
		ui.showImportResult(res)
	}()
}

// importLinks queues links read on this side, for a remote engine
func (ui *RootUI) importLinks(links []string) {
	ui.showNotification(ui.localization.GetText(KeyFetchingMetadata), true)
	go func() {
		var res download.ImportResult
		for _, link := range links {
			if ui.ctx.Err() != nil {
				return
			}
			r := ui.queue.QueueURL(ui.ctx, link)
			res.Added = append(res.Added, r.Added...)
			res.Skipped += r.Skipped
			if r.Err != nil {
				res.Failed++
				res.Errors = append(res.Errors, r.Err)
			}
		}
		ui.showImportResult(res)
	}()
}

func (ui *RootUI) showImportResult(res download.ImportResult) {
	for _, err := range res.Errors {
		ui.log.Warn("import entry failed", zap.Error(err))
	}
	msg := fmt.Sprintf(ui.localization.GetText(KeyImportFinished), len(res.Added), res.Skipped, res.Failed)
	ui.showNotification(msg, false)
}

func (ui *RootUI) onRemoveJob(id string) {
	ui.runAction("remove", func(ctx context.Context) error {
		return ui.queue.Remove(ctx, id)
	})
}

// runAction calls a queue command off the UI goroutine and reports failures
func (ui *RootUI) runAction(name string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(ui.ctx); err != nil {
			ui.log.Warn(name+" failed", zap.Error(err))
			ui.showNotification(IconError+" "+err.Error(), false)
		}
	}()
}

func (ui *RootUI) onShowLogs(job model.DownloadJob) {
	logs := widget.NewMultiLineEntry()
	logs.SetText(strings.Join(job.Logs, "\n"))
	logs.Wrapping = fyne.TextWrapBreak
	logs.TextStyle = fyne.TextStyle{Monospace: true}

	d := dialog.NewCustom(job.Title, ui.localization.GetText(KeyCancel), logs, ui.window)
	d.Resize(fyne.NewSize(DialogWidth*1.4, DialogHeight*1.2))
	d.Show()
}

func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.ctx, ui.live, ui.settings, ui.commands, ui.localization, ui.window, func() {
		ui.onLanguageChange(ui.settings.GetLanguage())
		ui.showNotification(ui.localization.GetText(KeySettingsSaved), false)
	}).Show()
}

// showNotification displays a message under the URL input. A spinning
// message stays until replaced; others hide after NotificationAutoHide.
func (ui *RootUI) showNotification(message string, spinning bool) {
	fyne.Do(func() {
		ui.notificationGen++
		gen := ui.notificationGen

		ui.notificationLabel.SetText(message)
		toggle(ui.notificationSpinner, spinning)
		ui.notificationContainer.Show()
		ui.notificationContainer.Refresh()

		if spinning {
			return
		}
		time.AfterFunc(NotificationAutoHide, func() {
			fyne.Do(func() {
				if ui.notificationGen == gen {
					ui.notificationSpinner.Hide()
					ui.notificationContainer.Hide()
				}
			})
		})
	})
}
