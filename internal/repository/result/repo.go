// Package result persists check rows with upsert semantics keyed on the
// natural key (query_id, engine, check_date).
package result

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
)

// store is the consumer interface for check results (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
}

// Repo implements the check-result store.
type Repo struct {
	store  store
	prefix string
}

// New creates a result repository. prefix namespaces all keys (e.g. "geo:").
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Upsert writes one check row. The row key is the natural key, so a re-run
// for the same (query, engine, date) replaces the previous row in place
// rather than inserting a duplicate. Every field is written on every upsert
// so no stale value can survive an overwrite.
func (r *Repo) Upsert(ctx context.Context, res domain.CheckResult) error {
	score, err := dateScore(res.CheckDate)
	if err != nil {
		return fmt.Errorf("invalid check_date %q: %w", res.CheckDate, err)
	}

	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	rawSources, err := json.Marshal(res.RawSources)
	if err != nil {
		return fmt.Errorf("marshal raw_sources: %w", err)
	}

	key := r.rowKey(res.QueryID, res.Engine, res.CheckDate)
	fields := map[string]string{
		"id":           res.ID,
		"query_id":     res.QueryID,
		"project_id":   res.ProjectID,
		"engine":       res.Engine,
		"check_date":   res.CheckDate,
		"appears":      strconv.FormatBool(res.Appears),
		"position":     strconv.Itoa(res.Position),
		"citation_url": res.CitationURL,
		"raw_sources":  string(rawSources),
	}

	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("upsert result %s: %w", key, err)
	}

	// Per-project daily index; ZADD re-scoring keeps this idempotent too.
	if err := r.store.ZAdd(ctx, r.indexKey(res.ProjectID), score, key); err != nil {
		return fmt.Errorf("index result %s: %w", key, err)
	}
	return nil
}

// List returns all rows for a project whose check_date falls in [from, to],
// ascending by date. from and to use domain.DateFormat.
func (r *Repo) List(ctx context.Context, projectID, from, to string) ([]domain.CheckResult, error) {
	minScore, err := dateScore(from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	maxScore, err := dateScore(to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date %q: %w", to, err)
	}

	keys, err := r.store.ZRangeByScore(ctx, r.indexKey(projectID), minScore, maxScore)
	if err != nil {
		return nil, fmt.Errorf("range results for project %s: %w", projectID, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch results for project %s: %w", projectID, err)
	}

	out := make([]domain.CheckResult, 0, len(rows))
	for _, fields := range rows {
		if len(fields) == 0 {
			// Dangling index entry; the row was deleted out of band.
			continue
		}
		out = append(out, decodeRow(fields))
	}
	return out, nil
}

func (r *Repo) rowKey(queryID, engine, date string) string {
	return fmt.Sprintf("%sresult:%s:%s:%s", r.prefix, queryID, engine, date)
}

func (r *Repo) indexKey(projectID string) string {
	return fmt.Sprintf("%sproject:%s:results", r.prefix, projectID)
}

// dateScore maps a calendar date to its UTC-midnight Unix timestamp.
func dateScore(date string) (float64, error) {
	t, err := time.ParseInLocation(domain.DateFormat, date, time.UTC)
	if err != nil {
		return 0, err
	}
	return float64(t.Unix()), nil
}

func decodeRow(fields map[string]string) domain.CheckResult {
	res := domain.CheckResult{
		ID:          fields["id"],
		QueryID:     fields["query_id"],
		ProjectID:   fields["project_id"],
		Engine:      fields["engine"],
		CheckDate:   fields["check_date"],
		CitationURL: fields["citation_url"],
	}
	res.Appears, _ = strconv.ParseBool(fields["appears"])
	res.Position, _ = strconv.Atoi(fields["position"])
	if raw := fields["raw_sources"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &res.RawSources)
	}
	return res
}
