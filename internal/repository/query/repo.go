// Package query reads the tracked queries written by the CRUD subsystem.
// The engine never mutates queries.
package query

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
)

// store is the consumer interface for queries (ISP).
type store interface {
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
}

// Repo implements read-only query access.
type Repo struct {
	store  store
	prefix string
}

// New creates a query repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// ListActive returns a project's active queries in creation order. The
// per-project index is a sorted set scored by created_at, so the order is
// stable across runs.
func (r *Repo) ListActive(ctx context.Context, projectID string) ([]domain.Query, error) {
	indexKey := fmt.Sprintf("%sproject:%s:queries", r.prefix, projectID)

	ids, err := r.store.ZRangeByScore(ctx, indexKey, math.Inf(-1), math.Inf(1))
	if err != nil {
		return nil, fmt.Errorf("list queries for project %s: %w", projectID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("%squery:%s", r.prefix, id)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch queries for project %s: %w", projectID, err)
	}

	queries := make([]domain.Query, 0, len(rows))
	for _, fields := range rows {
		if len(fields) == 0 {
			// Query deleted out of band; index entry is stale.
			continue
		}
		if fields["is_active"] != "true" {
			continue
		}
		q := domain.Query{
			ID:        fields["id"],
			ProjectID: fields["project_id"],
			Text:      fields["query_text"],
			Category:  fields["category"],
			Active:    true,
		}
		if created := fields["created_at"]; created != "" {
			q.CreatedAt, _ = time.Parse(time.RFC3339, created)
		}
		queries = append(queries, q)
	}
	return queries, nil
}
