package download

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/model"
)

// AddResult is the outcome of queueing a single link
type AddResult struct {
	Added   []model.Metadata
	Skipped int
	Err     error
}

// ImportResult is the aggregate outcome of a bulk import
type ImportResult struct {
	Added   []model.Metadata
	Skipped int
	Failed  int
	Errors  []error
}

// QueueURL fetches metadata for url (a playlist expands to many tracks) and
// enqueues every track that is neither in the queue nor in the library.
func (q *Queue) QueueURL(ctx context.Context, url string) AddResult {
	var res AddResult

	items, err := q.backend.GetMetadata(ctx, url)
	if err != nil {
		res.Err = fmt.Errorf("fetch metadata: %w", err)
		return res
	}

	toQueue := make([]model.Metadata, 0, len(items))
	for _, md := range items {
		if md.ID != "" && q.Has(md.ID) {
			res.Skipped++
			continue
		}
		if md.ID != "" {
			song, err := q.backend.GetSongByID(ctx, md.ID)
			if err != nil {
				res.Err = fmt.Errorf("look up %s: %w", md.ID, err)
				return res
			}
			if song != nil {
				res.Skipped++
				continue
			}
		}
		toQueue = append(toQueue, md)
	}

	for _, md := range toQueue {
		link := md.URL
		if link == "" {
			link = url
		}
		if err := q.Enqueue(ctx, link, md); err != nil {
			if errors.Is(err, ErrDuplicate) {
				res.Skipped++
				continue
			}
			res.Err = err
			return res
		}
		res.Added = append(res.Added, md)
	}
	return res
}

// ImportLines returns the lines of content that look like links
func ImportLines(content string) []string {
	var urls []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http") || strings.HasPrefix(line, "www") {
			urls = append(urls, line)
		}
	}
	return urls
}

// ImportFile queues every link listed in the file at path. Failures are
// counted per link and reported once in the result.
func (q *Queue) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	var res ImportResult

	content, err := q.backend.ReadFileContent(ctx, path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	urls := ImportLines(content)
	q.log.Info("importing links", zap.String("path", path), zap.Int("count", len(urls)))

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r := q.QueueURL(ctx, url)
		res.Added = append(res.Added, r.Added...)
		res.Skipped += r.Skipped
		if r.Err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", url, r.Err))
		}
	}

	q.log.Info("import finished",
		zap.Int("added", len(res.Added)),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
