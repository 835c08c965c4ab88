package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"portfolio_tracker/internal/classifier"
	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/ingest"
	"portfolio_tracker/internal/logger"
	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
)

// Per-file ingestion outcomes.
const (
	FileStatusOK      = "ok"
	FileStatusRetried = "retried"
	FileStatusFailed  = "failed"
	FileStatusSkipped = "skipped" // parsed, but no client id to store it under
	FileStatusEmpty   = "empty"
)

// FileResult reports what happened to one ingested file.
type FileResult struct {
	File         string         `json:"file"`
	Format       ingest.Format  `json:"format"`
	ClientID     string         `json:"client_id,omitempty"`
	ClientName   string         `json:"client_name,omitempty"`
	Date         string         `json:"date,omitempty"`
	Holdings     int            `json:"holdings"`
	Total        float64        `json:"total"`
	FX           models.FXRates `json:"fx"`
	Unclassified []string       `json:"unclassified,omitempty"`
	Persisted    bool           `json:"persisted"`
	Status       string         `json:"status"`
	Retries      int            `json:"retries"`
	Error        string         `json:"error,omitempty"`
}

// BatchSummary is the outcome of IngestBatch.
type BatchSummary struct {
	RunID          string        `json:"run_id"`
	Status         string        `json:"status"`
	Files          []*FileResult `json:"files"`
	FilesParsed    int           `json:"files_parsed"`
	ClientsOK      int           `json:"clients_ok"`
	ClientsRetried int           `json:"clients_retried"`
	ClientsFailed  int           `json:"clients_failed"`
}

// IngestStores groups the repositories the ingestion service writes to.
type IngestStores struct {
	Snapshots  *repository.SnapshotRepository
	Details    *repository.DetailRepository
	Clients    *repository.ClientRepository
	Runs       *repository.IngestRunRepository
	Mappings   *repository.MappingRepository
	Categories *repository.CategoryRepository
}

// IngestService parses broker exports and stores them as snapshots.
// Batches are serialized; a second caller waits for the first to finish.
type IngestService struct {
	mu       sync.Mutex
	parser   *ingest.Parser
	registry *classifier.Registry
	writer   *repository.ThrottledWriter
	stores   IngestStores
	cooldown time.Duration
	log      zerolog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewIngestService creates a new IngestService. cooldown is the pause
// after a client write gives up on a rate limit.
func NewIngestService(
	parser *ingest.Parser,
	registry *classifier.Registry,
	writer *repository.ThrottledWriter,
	stores IngestStores,
	cooldown time.Duration,
	log zerolog.Logger,
) *IngestService {
	return &IngestService{
		parser:   parser,
		registry: registry,
		writer:   writer,
		stores:   stores,
		cooldown: cooldown,
		log:      logger.Component(log, "ingest"),
		now:      time.Now,
		sleep:    sleepFor,
	}
}

// IngestFile parses and stores a single file.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.process(ctx, path)
	if res.Status == FileStatusFailed {
		return &res.FileResult, apperrors.Wrap(apperrors.ErrInternal, "storing "+res.File, res.err)
	}
	return &res.FileResult, nil
}

// IngestBatch stores every file in order under one ingest run. Context
// cancellation is honored between files only.
func (s *IngestService) IngestBatch(ctx context.Context, paths []string) (*BatchSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &BatchSummary{RunID: uuid.NewString(), Files: make([]*FileResult, 0, len(paths))}
	log := s.log.With().Str("run_id", summary.RunID).Logger()

	if err := s.stores.Runs.Start(summary.RunID, len(paths)); err != nil {
		return nil, err
	}
	log.Info().Int("files", len(paths)).Msg("Ingest run started")

	perClient := make(map[string]string)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			if ferr := s.stores.Runs.Fail(summary.RunID, "cancelled: "+err.Error()); ferr != nil {
				log.Warn().Err(ferr).Msg("Failed to mark run cancelled")
			}
			summary.Status = models.RunStatusError
			return summary, err
		}

		res := s.process(ctx, path)
		summary.Files = append(summary.Files, &res.FileResult)
		if res.Holdings > 0 {
			summary.FilesParsed++
		}
		if res.ClientID != "" && res.Status != FileStatusEmpty && res.Status != FileStatusSkipped {
			perClient[res.ClientID] = res.Status
		}

		if res.Status == FileStatusFailed && res.rateLimited {
			log.Warn().Str("client_id", res.ClientID).Dur("cooldown", s.cooldown).Msg("Rate limited, cooling down")
			if err := s.sleep(ctx, s.cooldown); err != nil {
				log.Warn().Err(err).Msg("Cooldown interrupted")
			}
		}
	}

	for _, status := range perClient {
		switch status {
		case FileStatusOK:
			summary.ClientsOK++
		case FileStatusRetried:
			summary.ClientsRetried++
		case FileStatusFailed:
			summary.ClientsFailed++
		}
	}

	run := &models.IngestRun{
		ID:             summary.RunID,
		FilesTotal:     len(paths),
		FilesParsed:    summary.FilesParsed,
		ClientsOK:      summary.ClientsOK,
		ClientsRetried: summary.ClientsRetried,
		ClientsFailed:  summary.ClientsFailed,
	}
	if err := s.stores.Runs.Complete(run); err != nil {
		return summary, err
	}
	summary.Status = run.Status

	log.Info().
		Str("status", run.Status).
		Int("files", len(paths)).
		Int("parsed", summary.FilesParsed).
		Int("ok", summary.ClientsOK).
		Int("retried", summary.ClientsRetried).
		Int("failed", summary.ClientsFailed).
		Msg("Ingest run completed")
	for _, c := range sortedKeys(perClient) {
		log.Debug().Str("client_id", c).Str("status", perClient[c]).Msg("Client result")
	}
	return summary, nil
}

// Runs lists past ingest runs, newest first.
func (s *IngestService) Runs(p repository.Pagination) (repository.PaginatedResult[*models.IngestRun], error) {
	return s.stores.Runs.List(p)
}

// process parses one file and stores it when a client id is known.
// Caller holds s.mu.
func (s *IngestService) process(ctx context.Context, path string) *fileOutcome {
	parsed := s.parser.ParseFile(path)
	res := &fileOutcome{FileResult: FileResult{
		File:         parsed.SourceFile,
		Format:       parsed.Format,
		Holdings:     len(parsed.Holdings),
		Total:        parsed.Total(),
		FX:           parsed.FX,
		Unclassified: parsed.Unclassified,
	}}
	log := s.log.With().Str("file", parsed.SourceFile).Logger()

	if parsed.Meta.ClientID != nil {
		res.ClientID = *parsed.Meta.ClientID
	}
	if parsed.Meta.ClientName != nil {
		res.ClientName = *parsed.Meta.ClientName
	}

	if len(parsed.Holdings) == 0 {
		res.Status = FileStatusEmpty
		return res
	}
	if res.ClientID == "" {
		log.Warn().Msg("No client id in filename, holdings not stored")
		res.Status = FileStatusSkipped
		return res
	}

	date := dayOf(s.now())
	if parsed.Meta.Date != nil {
		d, err := repository.NormalizeDate(*parsed.Meta.Date)
		if err != nil {
			log.Warn().Err(err).Str("date", *parsed.Meta.Date).Msg("Bad filename date, using today")
		} else {
			date = d
		}
	} else {
		log.Warn().Msg("No date in filename, using today")
	}
	res.Date = repository.FormatDate(date)

	retries, err := s.store(ctx, res, date, parsed)
	res.Retries = retries
	switch {
	case err != nil:
		res.Status = FileStatusFailed
		res.Error = err.Error()
		res.err = err
		res.rateLimited = apperrors.IsRateLimit(err)
		log.Error().Err(err).Str("client_id", res.ClientID).Msg("Failed to store holdings")
	case retries > 0:
		res.Status = FileStatusRetried
		res.Persisted = true
	default:
		res.Status = FileStatusOK
		res.Persisted = true
	}
	return res
}

// store writes the client, snapshot and detail rows. Each step is an
// idempotent unit so the writer can safely retry it.
func (s *IngestService) store(ctx context.Context, res *fileOutcome, date time.Time, parsed *ingest.Result) (int, error) {
	if res.ClientName == "" {
		if existing, err := s.stores.Clients.GetByID(res.ClientID); err == nil && existing != nil {
			res.ClientName = existing.Name
		}
	}

	totals := make(map[models.Category]float64)
	for _, h := range parsed.Holdings {
		totals[h.Category] += h.Value
	}
	total := parsed.Total()

	retries, err := s.writer.Do(ctx, "save_snapshot", res.ClientID, func(ctx context.Context) error {
		if err := s.stores.Clients.Upsert(ctx, &models.Client{ID: res.ClientID, Name: res.ClientName}); err != nil {
			return err
		}
		_, err := s.stores.Snapshots.SaveSnapshot(ctx, res.ClientID, res.ClientName, date, totals, total)
		return err
	})
	if err != nil {
		return retries, err
	}

	more, err := s.writer.Do(ctx, "save_detail", res.ClientID, func(ctx context.Context) error {
		return s.stores.Details.Save(ctx, res.ClientID, res.ClientName, date, parsed.Holdings, parsed.FX)
	})
	return retries + more, err
}

// fileOutcome carries bookkeeping that is not part of the public result.
type fileOutcome struct {
	FileResult
	err         error
	rateLimited bool
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// normalizeName uppercases and trims a category or sector name.
func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
