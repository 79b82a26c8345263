// Package engine drives the translation state machine for one group table.
//
// A run walks the group's untranslated rows in stable order, feeds them to
// the configured provider batch by batch and commits every outcome to the
// store as it happens. Interrupting a run loses at most the in-flight
// batch; the next run simply picks up the remaining pending and error rows.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
	"github.com/astrateam-net/confluence-localization-toolkit/cache"
	"github.com/astrateam-net/confluence-localization-toolkit/provider"
	"github.com/astrateam-net/confluence-localization-toolkit/store"
)

// DefaultBatchSize is the number of rows sent to the provider per call.
const DefaultBatchSize = 100

// rateLimitRetries bounds how often one batch is retried after 429-class
// responses before its rows are marked error and the run moves on.
const rateLimitRetries = 5

// Deps are the collaborators an Engine needs. Store and Provider are
// required; Cache and Logger are optional.
type Deps struct {
	Store    *store.Store
	Provider provider.Provider
	Cache    cache.TranslationCache
	Logger   *slog.Logger
}

// Engine translates the untranslated rows of a group.
type Engine struct {
	store    *store.Store
	provider provider.Provider
	cache    cache.TranslationCache
	logger   *slog.Logger

	batchSize    int
	backoff      loctool.BackoffConfig
	sourceLocale string
	targetLocale string
	sleep        loctool.SleepFunc
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithBatchSize sets the number of rows per provider call.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithBackoff sets the retry policy for transient provider failures.
func WithBackoff(cfg loctool.BackoffConfig) Option {
	return func(e *Engine) {
		e.backoff = cfg
	}
}

// WithLocales sets the source and target locales.
func WithLocales(source, target string) Option {
	return func(e *Engine) {
		if source != "" {
			e.sourceLocale = source
		}
		if target != "" {
			e.targetLocale = loctool.NormalizeLocale(target)
		}
	}
}

// WithSleep replaces the sleep function used between retries. Tests inject
// a recorder here to run the backoff ladder without real delays.
func WithSleep(sleep loctool.SleepFunc) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// New creates an Engine with the given dependencies.
func New(deps Deps, opts ...Option) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:        deps.Store,
		provider:     deps.Provider,
		cache:        deps.Cache,
		logger:       logger,
		batchSize:    DefaultBatchSize,
		backoff:      loctool.DefaultBackoffConfig(),
		sourceLocale: loctool.DefaultSourceLocale,
		targetLocale: loctool.DefaultTargetLocale,
		sleep:        loctool.Sleep,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run translates all pending and error rows of the given group. It returns
// the per-row outcome counts together with the first abort-class error, if
// any. Authentication and quota failures abort the run; everything already
// committed stays committed.
func (e *Engine) Run(ctx context.Context, groupKey string) (loctool.RunReport, error) {
	var report loctool.RunReport

	info, err := e.store.GetGroup(ctx, groupKey)
	if err != nil {
		return report, err
	}

	log := e.logger.With("group", groupKey, "provider", e.provider.Name(), "target", e.targetLocale)
	log.Info("translation run started")

	statuses := []loctool.Status{loctool.StatusPending, loctool.StatusError}

	// The cursor only moves forward, so a batch whose rows end up marked
	// error is never fetched again within this run.
	var cursor store.Cursor
	for {
		rows, err := e.store.FetchBatchAfter(ctx, info.TableName, statuses, cursor, e.batchSize)
		if err != nil {
			return report, err
		}
		if len(rows) == 0 {
			break
		}

		last := rows[len(rows)-1]
		cursor = store.Cursor{CreatedAt: last.CreatedAt, Key: last.Key}

		report.Batches++
		if err := e.runBatch(ctx, info.TableName, rows, &report, log); err != nil {
			log.Error("translation run aborted", "error", err)
			return report, err
		}

		log.Info("batch done",
			"batch", report.Batches,
			"translated", report.Translated,
			"cached", report.Cached,
			"failed", report.Failed)
	}

	log.Info("translation run finished",
		"batches", report.Batches,
		"translated", report.Translated,
		"cached", report.Cached,
		"failed", report.Failed)
	return report, nil
}

// runBatch resolves one fetched batch: cache hits first, then a single
// provider call with retries for whatever is left. A non-nil error means
// the run must stop; per-row failures are recorded in the store and the
// report instead.
func (e *Engine) runBatch(ctx context.Context, table string, rows []loctool.Row, report *loctool.RunReport, log *slog.Logger) error {
	remaining := make([]loctool.Row, 0, len(rows))
	for _, row := range rows {
		if e.resolveFromCache(ctx, table, row, report) {
			continue
		}
		remaining = append(remaining, row)
	}
	if len(remaining) == 0 {
		return nil
	}

	texts := make([]string, len(remaining))
	for i, row := range remaining {
		texts[i] = row.OriginalText
	}

	results, err := e.translateWithRetry(ctx, texts, log)
	if err != nil {
		var authErr *loctool.AuthError
		if errors.As(err, &authErr) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		// Retry budget exhausted. Mark the rows and move on so one stuck
		// batch cannot stall the rest of the group.
		detail := err.Error()
		for _, row := range remaining {
			if markErr := e.store.MarkError(ctx, table, row.Key, detail); markErr != nil {
				return markErr
			}
			report.Failed++
		}
		return nil
	}

	for i, row := range remaining {
		text := results[i].Text
		if text == "" {
			if err := e.store.MarkError(ctx, table, row.Key, "provider returned empty translation"); err != nil {
				return err
			}
			report.Failed++
			continue
		}

		if err := e.store.MarkTranslated(ctx, table, row.Key, text, results[i].Method); err != nil {
			return err
		}
		report.Translated++

		if e.cache != nil {
			key := loctool.CacheKey(loctool.HashText(row.OriginalText), e.targetLocale)
			if err := e.cache.Set(key, text); err != nil {
				log.Warn("cache write failed", "key", row.Key, "error", err)
			}
		}
	}
	return nil
}

// resolveFromCache commits a cached translation for the row if one exists.
func (e *Engine) resolveFromCache(ctx context.Context, table string, row loctool.Row, report *loctool.RunReport) bool {
	if e.cache == nil {
		return false
	}

	key := loctool.CacheKey(loctool.HashText(row.OriginalText), e.targetLocale)
	text, ok := e.cache.Get(key)
	if !ok || text == "" {
		return false
	}

	if err := e.store.MarkTranslated(ctx, table, row.Key, text, "cache"); err != nil {
		return false
	}
	report.Cached++
	return true
}

// translateWithRetry calls the provider with two separate retry budgets:
// rate-limit responses get the slow fixed ladder, other transient failures
// get exponential backoff. Non-retryable errors surface immediately.
func (e *Engine) translateWithRetry(ctx context.Context, texts []string, log *slog.Logger) ([]provider.Result, error) {
	var lastErr error
	rateAttempts := 0
	transientAttempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, err := e.provider.TranslateBatch(ctx, texts, e.sourceLocale, e.targetLocale)
		if err == nil {
			if len(results) != len(texts) {
				return nil, &loctool.CountMismatchError{Expected: len(texts), Got: len(results)}
			}
			return results, nil
		}
		lastErr = err

		if !loctool.IsRetryable(err) {
			return nil, err
		}

		delay := e.backoff.Delay(transientAttempts)
		if hint, ok := loctool.IsRateLimit(err); ok {
			if rateAttempts >= rateLimitRetries {
				break
			}
			delay = loctool.RateLimitDelay(rateAttempts)
			if hint > delay {
				delay = hint
			}
			rateAttempts++
			log.Warn("provider rate limited", "attempt", rateAttempts, "delay", delay)
		} else {
			if transientAttempts >= e.backoff.MaxRetries {
				break
			}
			transientAttempts++
			log.Warn("provider call failed", "attempt", transientAttempts, "delay", delay, "error", err)
		}

		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}
