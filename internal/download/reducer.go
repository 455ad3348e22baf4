package download

import (
	"slices"

	"github.com/ytget/synqed/internal/model"
)

// Reducers never modify their input slice or the jobs in it; published
// snapshots share memory with the store.

func indexOf(jobs []model.DownloadJob, id string) int {
	for i := range jobs {
		if jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(jobs []model.DownloadJob, i int, job model.DownloadJob) []model.DownloadJob {
	out := slices.Clone(jobs)
	out[i] = job
	return out
}

// insertJob appends job. A live job with the same id is a duplicate; a
// terminal one is replaced so ids stay unique.
func insertJob(jobs []model.DownloadJob, job model.DownloadJob) ([]model.DownloadJob, error) {
	if i := indexOf(jobs, job.ID); i >= 0 {
		if !jobs[i].Status.IsTerminal() {
			return jobs, ErrDuplicate
		}
		jobs, _ = removeJob(jobs, job.ID)
	}
	out := make([]model.DownloadJob, 0, len(jobs)+1)
	out = append(out, jobs...)
	return append(out, job), nil
}

// removeJob deletes id, keeping the relative order of the rest
func removeJob(jobs []model.DownloadJob, id string) ([]model.DownloadJob, bool) {
	i := indexOf(jobs, id)
	if i < 0 {
		return jobs, false
	}
	out := make([]model.DownloadJob, 0, len(jobs)-1)
	out = append(out, jobs[:i]...)
	return append(out, jobs[i+1:]...), true
}

func removeWhere(jobs []model.DownloadJob, drop func(model.DownloadJob) bool) ([]model.DownloadJob, int) {
	out := make([]model.DownloadJob, 0, len(jobs))
	for _, j := range jobs {
		if !drop(j) {
			out = append(out, j)
		}
	}
	return out, len(jobs) - len(out)
}

// clearHistory drops completed and failed jobs
func clearHistory(jobs []model.DownloadJob) ([]model.DownloadJob, int) {
	return removeWhere(jobs, func(j model.DownloadJob) bool { return j.Status.IsTerminal() })
}

// clearQueue drops jobs still waiting for admission
func clearQueue(jobs []model.DownloadJob) ([]model.DownloadJob, int) {
	return removeWhere(jobs, func(j model.DownloadJob) bool { return j.Status == model.StatusQueued })
}

// hasInFlight reports whether some job is pending or downloading
func hasInFlight(jobs []model.DownloadJob) bool {
	for _, j := range jobs {
		if j.Status.IsInFlight() {
			return true
		}
	}
	return false
}

// admitNext promotes the earliest queued job to pending when nothing is in
// flight. At most one job is promoted per call.
func admitNext(jobs []model.DownloadJob) ([]model.DownloadJob, model.DownloadJob, bool) {
	if hasInFlight(jobs) {
		return jobs, model.DownloadJob{}, false
	}
	for i, j := range jobs {
		if j.Status == model.StatusQueued {
			j.Status = model.StatusPending
			j.Progress = 0
			return replaceAt(jobs, i, j), j, true
		}
	}
	return jobs, model.DownloadJob{}, false
}

// failStart marks id as failed because the start or enqueue call itself failed
func failStart(jobs []model.DownloadJob, id string, err error) ([]model.DownloadJob, bool) {
	i := indexOf(jobs, id)
	if i < 0 || jobs[i].Status.IsTerminal() {
		return jobs, false
	}
	j := jobs[i]
	j.Status = model.StatusError
	j.Title = "Failed to start: " + err.Error()
	j.AppendLog("Error: " + err.Error())
	return replaceAt(jobs, i, j), true
}

// applyProgress merges a delta into the matching job. Unknown ids and stale
// revisions are ignored, and a status that would move the job backwards is
// not taken. Terminal jobs keep their state but still collect log lines.
func applyProgress(jobs []model.DownloadJob, p model.ProgressPayload) ([]model.DownloadJob, bool) {
	i := indexOf(jobs, p.ID)
	if i < 0 {
		return jobs, false
	}
	j := jobs[i]
	if p.Revision != 0 && p.Revision <= j.Revision {
		return jobs, false
	}

	if !j.Status.IsTerminal() {
		if p.Progress >= 0 {
			j.Progress = p.Progress
		}
		if p.Status != j.Status && j.Status.CanMoveTo(p.Status) {
			j.Status = p.Status
		}
		if p.DetailedStatus != "" {
			j.DetailedStatus = p.DetailedStatus
		}
	}
	if p.Log != "" {
		j.AppendLog(p.Log)
	}
	if p.Revision > j.Revision {
		j.Revision = p.Revision
	}
	return replaceAt(jobs, i, j), true
}

// applyFailure handles an error push. A cancellation removes the job
// silently; any other failure marks it as error and reports notify=true.
// A completed job is never turned into a failure.
func applyFailure(jobs []model.DownloadJob, e model.ErrorPayload) (out []model.DownloadJob, changed, notify bool) {
	i := indexOf(jobs, e.ID)
	if i < 0 {
		return jobs, false, false
	}
	if e.IsCancelled {
		out, _ = removeJob(jobs, e.ID)
		return out, true, false
	}

	j := jobs[i]
	if j.Status == model.StatusCompleted {
		return jobs, false, false
	}
	j.Status = model.StatusError
	j.Title = "Error: " + e.Error
	j.AppendLog("Error: " + e.Error)
	if e.Revision > j.Revision {
		j.Revision = e.Revision
	}
	return replaceAt(jobs, i, j), true, true
}

// applySnapshot replaces the collection with incoming, keyed by id. A local
// job whose revision is newer than the incoming copy wins, and jobs for which
// keep returns true survive even when the snapshot does not list them yet.
func applySnapshot(local, incoming []model.DownloadJob, keep func(id string) bool) []model.DownloadJob {
	out := make([]model.DownloadJob, 0, len(incoming))
	seen := make(map[string]bool, len(incoming))

	for _, in := range incoming {
		if seen[in.ID] {
			continue
		}
		seen[in.ID] = true

		if i := indexOf(local, in.ID); i >= 0 && in.Revision != 0 && local[i].Revision > in.Revision {
			out = append(out, local[i])
			continue
		}
		if in.Logs == nil {
			in.Logs = []string{}
		}
		out = append(out, in)
	}

	if keep != nil {
		for _, j := range local {
			if !seen[j.ID] && keep(j.ID) {
				out = append(out, j)
			}
		}
	}
	return out
}

// newlyFinished returns the jobs of after that are terminal but were not terminal in before
func newlyFinished(before, after []model.DownloadJob) []model.DownloadJob {
	var out []model.DownloadJob
	for _, j := range after {
		if !j.Status.IsTerminal() {
			continue
		}
		if i := indexOf(before, j.ID); i >= 0 && !before[i].Status.IsTerminal() {
			out = append(out, j)
		}
	}
	return out
}

// Partition splits jobs into in-flight, queued and finished, preserving order
func Partition(jobs []model.DownloadJob) (active, queued, history []model.DownloadJob) {
	for _, j := range jobs {
		switch {
		case j.Status.IsInFlight():
			active = append(active, j)
		case j.Status == model.StatusQueued:
			queued = append(queued, j)
		default:
			history = append(history, j)
		}
	}
	return active, queued, history
}
