package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portfolio_tracker/internal/services"
)

// BatchIngester is the part of the ingestion service the inbox job needs.
type BatchIngester interface {
	IngestBatch(ctx context.Context, paths []string) (*services.BatchSummary, error)
}

// InboxJob ingests every spreadsheet dropped in the inbox directory and
// moves it to the processed directory. Files whose client failed to store
// stay in the inbox for the next run.
type InboxJob struct {
	ingester  BatchIngester
	inbox     string
	processed string
	log       zerolog.Logger
	now       func() time.Time
}

// NewInboxJob creates an InboxJob.
func NewInboxJob(ingester BatchIngester, inbox, processed string, log zerolog.Logger) *InboxJob {
	return &InboxJob{
		ingester:  ingester,
		inbox:     inbox,
		processed: processed,
		log:       log.With().Str("job", "inbox").Logger(),
		now:       time.Now,
	}
}

// Name returns the job name.
func (j *InboxJob) Name() string { return "inbox" }

// Run processes the inbox once.
func (j *InboxJob) Run(ctx context.Context) error {
	paths, err := ListSpreadsheets(j.inbox)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	summary, err := j.ingester.IngestBatch(ctx, paths)
	if err != nil && summary == nil {
		return err
	}

	moved, mvErr := ArchiveProcessed(paths, summary, j.processed, j.now())
	if mvErr != nil {
		return mvErr
	}

	j.log.Info().Int("files", len(paths)).Int("moved", moved).Str("run_id", summary.RunID).Msg("Inbox processed")
	return err
}

// ArchiveProcessed moves every path the batch handled into dir, except
// files whose client failed to store. Name collisions get a timestamp.
// It returns how many files were moved.
func ArchiveProcessed(paths []string, summary *services.BatchSummary, dir string, now time.Time) (int, error) {
	keep := make(map[string]bool)
	handled := make(map[string]bool, len(summary.Files))
	for _, f := range summary.Files {
		handled[f.File] = true
		if f.Status == services.FileStatusFailed {
			keep[f.File] = true
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating processed dir: %w", err)
	}
	moved := 0
	for _, path := range paths {
		name := filepath.Base(path)
		if keep[name] || !handled[name] {
			continue
		}
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			ext := filepath.Ext(target)
			target = strings.TrimSuffix(target, ext) + "." + now.Format("20060102T150405") + ext
		}
		if err := os.Rename(path, target); err != nil {
			return moved, fmt.Errorf("moving %s: %w", name, err)
		}
		moved++
	}
	return moved, nil
}

// ListSpreadsheets returns the .xlsx files of a directory, sorted by name.
// Office lock files (~$name.xlsx) are ignored.
func ListSpreadsheets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
