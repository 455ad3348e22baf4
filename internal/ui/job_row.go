package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/synqed/internal/model"
)

// JobRow renders one download job: title, status line, progress and the
// per-job actions. Rows are recycled by widget.List, so all state comes from
// the last SetJob call.
type JobRow struct {
	widget.BaseWidget

	job          model.DownloadJob
	localization *Localization

	titleLabel   *widget.Label
	statusLabel  *widget.Label
	percentLabel *widget.Label
	progressBar  *widget.ProgressBar
	logsBtn      *widget.Button
	removeBtn    *widget.Button

	onRemove func(id string)
	onLogs   func(job model.DownloadJob)
}

// NewJobRow creates an empty row
func NewJobRow(localization *Localization, onRemove func(id string), onLogs func(job model.DownloadJob)) *JobRow {
	r := &JobRow{
		localization: localization,
		onRemove:     onRemove,
		onLogs:       onLogs,
	}

	r.titleLabel = widget.NewLabel("")
	r.titleLabel.Truncation = fyne.TextTruncateEllipsis
	r.titleLabel.TextStyle = fyne.TextStyle{Bold: true}

	r.statusLabel = widget.NewLabel("")
	r.statusLabel.Truncation = fyne.TextTruncateEllipsis

	r.percentLabel = widget.NewLabel("")
	r.percentLabel.Alignment = fyne.TextAlignTrailing

	r.progressBar = widget.NewProgressBar()
	r.progressBar.Max = 100
	r.progressBar.TextFormatter = func() string { return "" }

	r.logsBtn = widget.NewButton(IconLogs, func() {
		if r.onLogs != nil && r.job.ID != "" {
			r.onLogs(r.job)
		}
	})
	r.logsBtn.Importance = widget.LowImportance

	r.removeBtn = widget.NewButton(IconClose, func() {
		if r.onRemove != nil && r.job.ID != "" {
			r.onRemove(r.job.ID)
		}
	})
	r.removeBtn.Importance = widget.LowImportance

	r.ExtendBaseWidget(r)
	return r
}

// Job returns the job currently shown
func (r *JobRow) Job() model.DownloadJob {
	return r.job
}

// SetJob shows job in the row
func (r *JobRow) SetJob(job model.DownloadJob) {
	r.job = job
	r.updateFromJob()
	r.Refresh()
}

func (r *JobRow) updateFromJob() {
	title := strings.Join(strings.Fields(r.job.Title), " ")
	if title == "" {
		title = r.job.URL
	}
	r.titleLabel.SetText(title)

	status := statusIcon(r.job.Status) + " " + r.localization.StatusText(r.job.Status)
	if r.job.DetailedStatus != "" && !r.job.Status.IsTerminal() {
		status += MiddleDotSeparator + r.job.DetailedStatus
	}
	r.statusLabel.Importance = statusImportance(r.job.Status)
	r.statusLabel.SetText(status)

	switch {
	case r.job.Status == model.StatusCompleted:
		r.progressBar.SetValue(100)
		r.percentLabel.SetText("")
	case r.job.Status.IsInFlight():
		r.progressBar.SetValue(clampPercent(r.job.Progress))
		r.percentLabel.SetText(r.job.ProgressString())
	default:
		r.progressBar.SetValue(0)
		r.percentLabel.SetText("")
	}

	if r.job.Status == model.StatusQueued {
		r.progressBar.Hide()
	} else {
		r.progressBar.Show()
	}

	r.removeBtn.Enable()
	if len(r.job.Logs) == 0 {
		r.logsBtn.Disable()
	} else {
		r.logsBtn.Enable()
	}
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// CreateRenderer creates the widget renderer
func (r *JobRow) CreateRenderer() fyne.WidgetRenderer {
	percent := container.NewGridWrap(fyne.NewSize(PercentLabelWidth, r.percentLabel.MinSize().Height), r.percentLabel)
	buttons := container.NewHBox(r.logsBtn, r.removeBtn)
	top := container.NewBorder(nil, nil, nil, buttons, r.titleLabel)
	bottom := container.NewBorder(nil, nil, nil, percent, r.progressBar)

	return &jobRowRenderer{layout: container.NewVBox(top, r.statusLabel, bottom)}
}

type jobRowRenderer struct {
	layout *fyne.Container
}

func (rr *jobRowRenderer) Layout(size fyne.Size) {
	rr.layout.Resize(size)
}

func (rr *jobRowRenderer) MinSize() fyne.Size {
	size := rr.layout.MinSize()
	if size.Width < RowMinWidth {
		size.Width = RowMinWidth
	}
	if size.Height < RowMinHeight {
		size.Height = RowMinHeight
	}
	return size
}

func (rr *jobRowRenderer) Refresh() {
	rr.layout.Refresh()
}

func (rr *jobRowRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{rr.layout}
}

func (rr *jobRowRenderer) Destroy() {}
