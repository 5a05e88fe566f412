package check

import (
	"context"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
)

// AnswerEngine asks queries of an external answer engine.
type AnswerEngine interface {
	// Engine returns the engine identifier stored with each result row.
	Engine() string
	// Ask submits one query and returns the answer text with its cited sources.
	Ask(ctx context.Context, query string) (domain.AnswerResponse, error)
	// VerifyCredential fails with domain.ErrInvalidCredential when the
	// configured credential is missing or rejected by the engine.
	VerifyCredential(ctx context.Context) error
}

// ProjectReader loads the project under check.
type ProjectReader interface {
	Get(ctx context.Context, id string) (domain.Project, error)
}

// QueryLister lists a project's active tracked queries.
type QueryLister interface {
	ListActive(ctx context.Context, projectID string) ([]domain.Query, error)
}

// ResultWriter persists one check result row.
type ResultWriter interface {
	Upsert(ctx context.Context, res domain.CheckResult) error
}

// StorePinger reports storage reachability before a run starts.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProgressFunc receives (completed, total) after each item finishes.
// Calls are serialized and completed is strictly increasing up to total.
type ProgressFunc func(completed, total int)
