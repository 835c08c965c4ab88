package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "portfolio_tracker/internal/errors"
	"portfolio_tracker/internal/logger"
	"portfolio_tracker/internal/models"
)

// WriterConfig tunes a ThrottledWriter.
type WriterConfig struct {
	Interval   time.Duration // minimum spacing between writes, 0 disables throttling
	Backoff    time.Duration // first retry delay, doubled per attempt
	MaxRetries int
}

// ThrottledWriter paces store writes and retries the ones the store
// refuses with a rate-limit error.
type ThrottledWriter struct {
	limiter *rate.Limiter
	cfg     WriterConfig
	retries *RetryLogRepository
	log     zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewThrottledWriter creates a ThrottledWriter. retries may be nil.
func NewThrottledWriter(retries *RetryLogRepository, cfg WriterConfig, log zerolog.Logger) *ThrottledWriter {
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &ThrottledWriter{
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		retries: retries,
		log:     logger.Component(log, "writer"),
		sleep:   sleepContext,
	}
}

// Do runs fn once a write slot is available. Rate-limit failures are
// retried with exponential backoff up to MaxRetries times. It returns
// how many retries were needed.
func (w *ThrottledWriter) Do(ctx context.Context, op, clientID string, fn func(ctx context.Context) error) (int, error) {
	var err error
	for attempt := 0; ; attempt++ {
		if werr := w.limiter.Wait(ctx); werr != nil {
			return attempt, werr
		}

		err = mapBusy(op, fn(ctx))
		if err == nil {
			if attempt > 0 {
				w.record(ctx, op, clientID, attempt, models.RetryStatusSuccess, nil)
				w.log.Info().Str("op", op).Str("client_id", clientID).Int("retries", attempt).Msg("Write succeeded after retry")
			}
			return attempt, nil
		}
		if !apperrors.IsRateLimit(err) {
			return attempt, err
		}
		if attempt >= w.cfg.MaxRetries {
			w.record(ctx, op, clientID, attempt, models.RetryStatusFailed, err)
			w.log.Error().Err(err).Str("op", op).Str("client_id", clientID).Int("retries", attempt).Msg("Write failed after retries")
			return attempt, err
		}

		delay := w.cfg.Backoff << attempt
		w.log.Warn().Err(err).Str("op", op).Str("client_id", clientID).
			Int("attempt", attempt+1).Dur("backoff", delay).Msg("Write rate limited, retrying")
		if serr := w.sleep(ctx, delay); serr != nil {
			return attempt, serr
		}
	}
}

func (w *ThrottledWriter) record(ctx context.Context, op, clientID string, attempts int, status string, cause error) {
	if w.retries == nil {
		return
	}
	entry := &models.RetryLogEntry{
		Operation: op,
		ClientID:  clientID,
		Attempts:  attempts,
		Status:    status,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	// the log write is bookkeeping; it must not mask the real outcome
	if err := w.retries.Record(context.WithoutCancel(ctx), entry); err != nil {
		w.log.Warn().Err(err).Msg("Failed to record write retry")
	}
}

// mapBusy turns SQLite busy/locked errors into rate-limit errors.
func mapBusy(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return apperrors.RateLimited(op, err)
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
