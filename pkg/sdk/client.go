package geotrack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pawa80/search-intelligence-suite/internal/db"
	dbRedis "github.com/pawa80/search-intelligence-suite/internal/db/redis"
	"github.com/pawa80/search-intelligence-suite/internal/domain"
	projectrepo "github.com/pawa80/search-intelligence-suite/internal/repository/project"
	queryrepo "github.com/pawa80/search-intelligence-suite/internal/repository/query"
	resultrepo "github.com/pawa80/search-intelligence-suite/internal/repository/result"
	"github.com/pawa80/search-intelligence-suite/internal/transport/perplexity"
	checkuc "github.com/pawa80/search-intelligence-suite/internal/usecase/check"
	healthuc "github.com/pawa80/search-intelligence-suite/internal/usecase/health"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for test substitution.
type checkUseCase interface {
	Run(ctx context.Context, projectID string, onProgress checkuc.ProgressFunc) (domain.RunSummary, error)
}

type resultReader interface {
	List(ctx context.Context, projectID, from, to string) ([]domain.CheckResult, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the geotrack SDK entry point.
type Client struct {
	store     db.Store
	checkSvc  checkUseCase
	results   resultReader
	healthSvc healthUseCase
	obs       *observer
}

// New creates a geotrack Client and connects to the result store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL:     "https://api.perplexity.ai",
		model:       "sonar",
		keyPrefix:   "geo:",
		concurrency: 4,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("geotrack: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("geotrack: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("geotrack: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	// Internal services log through zap; the SDK observer owns user-facing
	// logging, so the internal logger stays silent.
	zlog := zap.NewNop()

	engine := perplexity.NewClient(&perplexity.Config{
		APIKey:  cfg.apiKey,
		BaseURL: cfg.baseURL,
		Model:   cfg.model,
		Timeout: cfg.engineTimeout,
		Logger:  zlog,
	})

	projectRepo := projectrepo.New(store, cfg.keyPrefix)
	queryRepo := queryrepo.New(store, cfg.keyPrefix)
	resultRepo := resultrepo.New(store, cfg.keyPrefix)

	runner := checkuc.NewRunner(engine, cfg.concurrency, zlog)
	if cfg.retryAttempts > 0 {
		runner = runner.WithRetry(cfg.retryAttempts, cfg.retryBackoff)
	}
	checkSvc := checkuc.New(projectRepo, queryRepo, resultRepo, engine, store, runner, zlog)
	healthSvc := healthuc.New(store, engine)

	return &Client{
		store:     store,
		checkSvc:  checkSvc,
		results:   resultRepo,
		healthSvc: healthSvc,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks result-store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// RunCheck checks every active query of the project against the answer engine
// and persists the results. onProgress may be nil.
func (c *Client) RunCheck(ctx context.Context, projectID string, onProgress ProgressFunc) (_ RunSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("run_check", start, err) }()

	var cb checkuc.ProgressFunc
	if onProgress != nil {
		cb = func(completed, total int) { onProgress(completed, total) }
	}

	s, err := c.checkSvc.Run(ctx, projectID, cb)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run check: %w", err)
	}
	return summaryFromDomain(s), nil
}

// Results lists persisted check rows for the project over an inclusive
// calendar-date range (YYYY-MM-DD).
func (c *Client) Results(ctx context.Context, projectID, from, to string) (_ []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("results", start, err) }()

	rows, err := c.results.List(ctx, projectID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	out := make([]Result, len(rows))
	for i, row := range rows {
		out[i] = Result{
			ID:          row.ID,
			QueryID:     row.QueryID,
			ProjectID:   row.ProjectID,
			Engine:      row.Engine,
			CheckDate:   row.CheckDate,
			Appears:     row.Appears,
			Position:    row.Position,
			CitationURL: row.CitationURL,
			RawSources:  row.RawSources,
		}
	}
	return out, nil
}

// Health checks the health of all components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

func summaryFromDomain(s domain.RunSummary) RunSummary {
	out := RunSummary{
		ProjectID: s.ProjectID,
		Engine:    s.Engine,
		CheckDate: s.CheckDate,
		Attempted: s.Attempted,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
	}
	if len(s.Failures) > 0 {
		out.Failures = make([]ItemFailure, len(s.Failures))
		for i, f := range s.Failures {
			out.Failures[i] = ItemFailure{QueryID: f.QueryID, Error: f.Error}
		}
	}
	return out
}
