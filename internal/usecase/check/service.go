package check

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
	"github.com/pawa80/search-intelligence-suite/internal/metrics"
)

// Service orchestrates one citation-check run for a project.
type Service struct {
	projects ProjectReader
	queries  QueryLister
	results  ResultWriter
	engine   AnswerEngine
	store    StorePinger
	runner   *Runner
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a check service.
func New(
	projects ProjectReader, queries QueryLister, results ResultWriter,
	engine AnswerEngine, store StorePinger, runner *Runner, logger *zap.Logger,
) *Service {
	return &Service{
		projects: projects, queries: queries, results: results,
		engine: engine, store: store, runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the run clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Run checks every active query of the project against the answer engine and
// persists one result row per successful item. The check date is stamped once
// from the local clock when the run starts, so a run crossing midnight stays
// on a single date.
func (s *Service) Run(ctx context.Context, projectID string, onProgress ProgressFunc) (domain.RunSummary, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("get project: %w", err)
	}

	queries, err := s.queries.ListActive(ctx, projectID)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("list queries: %w", err)
	}

	checkDate := s.now().Format(domain.DateFormat)
	summary := domain.RunSummary{
		ProjectID: projectID,
		Engine:    s.engine.Engine(),
		CheckDate: checkDate,
	}

	if len(queries) == 0 {
		s.logger.Info("no active queries, skipping run",
			zap.String("project_id", projectID))
		return summary, nil
	}

	// Fatal pre-flight: a bad credential or unreachable storage fails the
	// whole run before any query is attempted.
	if err := s.engine.VerifyCredential(ctx); err != nil {
		metrics.CheckRunsTotal.WithLabelValues(summary.Engine, "fatal").Inc()
		return domain.RunSummary{}, fmt.Errorf("verify credential: %w", err)
	}
	if err := s.store.Ping(ctx); err != nil {
		metrics.CheckRunsTotal.WithLabelValues(summary.Engine, "fatal").Inc()
		return domain.RunSummary{}, fmt.Errorf("ping store: %w: %v", domain.ErrStorageUnavailable, err)
	}

	persist := func(ctx context.Context, q domain.Query, m domain.MatchResult) error {
		return s.results.Upsert(ctx, domain.CheckResult{
			QueryID:     q.ID,
			ProjectID:   projectID,
			Engine:      summary.Engine,
			CheckDate:   checkDate,
			Appears:     m.Appears,
			Position:    m.Position,
			CitationURL: m.CitationURL,
			RawSources:  m.RawSources,
		})
	}

	outcomes := s.runner.Run(ctx, queries, project.Domain, persist, onProgress)

	summary.Attempted = len(outcomes)
	for _, out := range outcomes {
		if out.Err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, domain.ItemFailure{
				QueryID: out.Query.ID,
				Error:   out.Err.Error(),
			})
			continue
		}
		summary.Succeeded++
	}

	status := "ok"
	if summary.Failed > 0 {
		status = "partial"
	}
	metrics.CheckRunsTotal.WithLabelValues(summary.Engine, status).Inc()

	s.logger.Info("check run finished",
		zap.String("project_id", projectID),
		zap.String("check_date", checkDate),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))

	return summary, nil
}
