package check

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
	"github.com/pawa80/search-intelligence-suite/internal/domain/citation"
	"github.com/pawa80/search-intelligence-suite/internal/metrics"
)

// ItemOutcome is the per-query outcome of a batch run.
type ItemOutcome struct {
	Query domain.Query
	Match domain.MatchResult
	Err   error
}

// PersistFunc stores one successful item as it completes.
// A non-nil error downgrades the item to a failure.
type PersistFunc func(ctx context.Context, q domain.Query, m domain.MatchResult) error

// Runner fans queries out to the answer engine with bounded concurrency.
// One item's failure never aborts the batch: every query produces an outcome.
type Runner struct {
	engine        AnswerEngine
	concurrency   int
	retryAttempts int
	retryBackoff  time.Duration
	logger        *zap.Logger
}

// NewRunner creates a batch runner.
func NewRunner(engine AnswerEngine, concurrency int, logger *zap.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		engine:      engine,
		concurrency: concurrency,
		logger:      logger,
	}
}

// WithRetry enables bounded retry of transient engine errors.
// Backoff grows linearly with the attempt number.
func (r *Runner) WithRetry(attempts int, backoff time.Duration) *Runner {
	if attempts > 0 {
		r.retryAttempts = attempts
		r.retryBackoff = backoff
	}
	return r
}

// Run checks every query against targetDomain and returns one outcome per
// query, in input order. The progress callback is serialized: completed is
// strictly increasing and reaches len(queries) exactly once.
func (r *Runner) Run(
	ctx context.Context,
	queries []domain.Query,
	targetDomain string,
	persist PersistFunc,
	onProgress ProgressFunc,
) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(queries))
	total := len(queries)

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range queries {
		i := i
		g.Go(func() error {
			outcomes[i] = r.runOne(gctx, queries[i], targetDomain, persist)

			mu.Lock()
			completed++
			if onProgress != nil {
				onProgress(completed, total)
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

func (r *Runner) runOne(
	ctx context.Context, q domain.Query, targetDomain string, persist PersistFunc,
) ItemOutcome {
	out := ItemOutcome{Query: q}
	engine := r.engine.Engine()

	// Pending items fail fast on shutdown; in-flight requests finish.
	if err := ctx.Err(); err != nil {
		out.Err = fmt.Errorf("check canceled: %w", err)
		metrics.CitationChecksTotal.WithLabelValues(engine, "failed").Inc()
		return out
	}

	resp, err := r.ask(ctx, q.Text)
	if err != nil {
		out.Err = fmt.Errorf("ask %s: %w", engine, err)
		r.logger.Warn("query check failed",
			zap.String("query_id", q.ID),
			zap.String("engine", engine),
			zap.Error(err))
		metrics.CitationChecksTotal.WithLabelValues(engine, "failed").Inc()
		return out
	}

	out.Match = citation.Match(resp.Sources, targetDomain)

	if persist != nil {
		if err := persist(ctx, q, out.Match); err != nil {
			out.Err = fmt.Errorf("store result: %w", err)
			r.logger.Error("result write failed",
				zap.String("query_id", q.ID),
				zap.Error(err))
			metrics.CitationChecksTotal.WithLabelValues(engine, "failed").Inc()
			return out
		}
	}

	result := "not_cited"
	if out.Match.Appears {
		result = "cited"
	}
	metrics.CitationChecksTotal.WithLabelValues(engine, result).Inc()
	return out
}

// ask submits one query, retrying transient engine errors up to the
// configured attempt count.
func (r *Runner) ask(ctx context.Context, text string) (domain.AnswerResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := r.engine.Ask(ctx, text)
		if err == nil || attempt >= r.retryAttempts || !retryable(err) {
			return resp, err
		}

		r.logger.Debug("retrying query",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return domain.AnswerResponse{}, ctx.Err()
		case <-time.After(r.retryBackoff * time.Duration(attempt+1)):
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrEngineUnavailable)
}
