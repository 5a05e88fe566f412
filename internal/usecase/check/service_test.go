package check

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
)

func TestService_Run_PersistsResultsAndSummarizes(t *testing.T) {
	ts := newTestService(t, makeQueries(3))
	failText := "question b"
	ts.engine.askFn = func(_ context.Context, query string) (domain.AnswerResponse, error) {
		if query == failText {
			return domain.AnswerResponse{}, domain.ErrEngineUnavailable
		}
		return domain.AnswerResponse{Sources: []string{"https://example.com/docs"}}, nil
	}

	summary, err := ts.svc.Run(context.Background(), "p-1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Attempted != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 3/2/1", summary)
	}
	if summary.Engine != domain.EnginePerplexity || summary.CheckDate != "2026-09-01" {
		t.Errorf("summary engine/date = %s/%s", summary.Engine, summary.CheckDate)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].QueryID != "q-b" {
		t.Errorf("failures = %+v, want one for q-b", summary.Failures)
	}
	if ts.results.rowCount() != 2 {
		t.Errorf("persisted rows = %d, want 2", ts.results.rowCount())
	}
	for _, row := range ts.results.rows {
		if row.ProjectID != "p-1" || row.Engine != domain.EnginePerplexity || row.CheckDate != "2026-09-01" {
			t.Errorf("row %+v missing run attributes", row)
		}
		if !row.Appears || row.Position != 1 || row.CitationURL != "https://example.com/docs" {
			t.Errorf("row %+v: match fields not carried over", row)
		}
	}
}

func TestService_Run_SucceededPlusFailedEqualsAttempted(t *testing.T) {
	ts := newTestService(t, makeQueries(10))
	n := 0
	ts.engine.askFn = func(context.Context, string) (domain.AnswerResponse, error) {
		n++
		if n%3 == 0 {
			return domain.AnswerResponse{}, domain.ErrEngineUnavailable
		}
		return domain.AnswerResponse{Sources: []string{"https://example.com"}}, nil
	}
	// Serialize the engine so the counter above needs no lock.
	ts.svc.runner = NewRunner(ts.engine, 1, zap.NewNop())

	summary, err := ts.svc.Run(context.Background(), "p-1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded+summary.Failed != summary.Attempted {
		t.Errorf("summary %+v: succeeded+failed != attempted", summary)
	}
	if summary.Attempted != 10 {
		t.Errorf("attempted = %d, want 10", summary.Attempted)
	}
	if len(summary.Failures) != summary.Failed {
		t.Errorf("failures len = %d, want %d", len(summary.Failures), summary.Failed)
	}
}

func TestService_Run_EmptyQueriesSkipsEngineAndStorage(t *testing.T) {
	ts := newTestService(t, nil)

	summary, err := ts.svc.Run(context.Background(), "p-1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 0 || summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want zeros", summary)
	}
	if summary.ProjectID != "p-1" || summary.CheckDate != "2026-09-01" {
		t.Errorf("summary = %+v, want project and date stamped", summary)
	}
	if ts.engine.verifyCalls != 0 || ts.engine.askCount() != 0 {
		t.Error("engine should not be touched for an empty query list")
	}
	if ts.results.rowCount() != 0 {
		t.Error("no rows should be written")
	}
}

func TestService_Run_InvalidCredentialIsFatal(t *testing.T) {
	ts := newTestService(t, makeQueries(5))
	ts.engine.verifyErr = domain.ErrInvalidCredential

	_, err := ts.svc.Run(context.Background(), "p-1", nil)
	if !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
	if ts.engine.askCount() != 0 {
		t.Errorf("ask calls = %d, want 0 on fatal pre-flight", ts.engine.askCount())
	}
	if ts.results.rowCount() != 0 {
		t.Error("no rows should be written on fatal pre-flight")
	}
}

func TestService_Run_UnreachableStoreIsFatal(t *testing.T) {
	ts := newTestService(t, makeQueries(2))
	svc := New(
		&mockProjects{project: domain.Project{ID: "p-1", Domain: "example.com"}},
		&mockQueries{list: makeQueries(2)},
		ts.results,
		ts.engine,
		&mockPinger{err: errors.New("connection refused")},
		NewRunner(ts.engine, 2, zap.NewNop()),
		zap.NewNop(),
	)

	_, err := svc.Run(context.Background(), "p-1", nil)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if ts.engine.askCount() != 0 {
		t.Error("no queries should be attempted when storage is down")
	}
}

func TestService_Run_ProjectNotFound(t *testing.T) {
	engine := &mockEngine{}
	svc := New(
		&mockProjects{err: domain.ErrProjectNotFound},
		&mockQueries{},
		&mockResults{},
		engine,
		&mockPinger{},
		NewRunner(engine, 2, zap.NewNop()),
		zap.NewNop(),
	)

	_, err := svc.Run(context.Background(), "missing", nil)
	if !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}

func TestService_Run_QueryListErrorPropagates(t *testing.T) {
	engine := &mockEngine{}
	listErr := errors.New("index read failed")
	svc := New(
		&mockProjects{project: domain.Project{ID: "p-1", Domain: "example.com"}},
		&mockQueries{err: listErr},
		&mockResults{},
		engine,
		&mockPinger{},
		NewRunner(engine, 2, zap.NewNop()),
		zap.NewNop(),
	)

	_, err := svc.Run(context.Background(), "p-1", nil)
	if !errors.Is(err, listErr) {
		t.Fatalf("err = %v, want wrapped list error", err)
	}
	if engine.verifyCalls != 0 {
		t.Error("pre-flight should not run when listing fails")
	}
}

func TestService_Run_StorageWriteFailureIsPerItem(t *testing.T) {
	ts := newTestService(t, makeQueries(3))
	ts.engine.askFn = func(context.Context, string) (domain.AnswerResponse, error) {
		return domain.AnswerResponse{Sources: []string{"https://example.com"}}, nil
	}
	ts.results.upsertFn = func(_ context.Context, res domain.CheckResult) error {
		if res.QueryID == "q-c" {
			return errors.New("redis write timeout")
		}
		return nil
	}

	summary, err := ts.svc.Run(context.Background(), "p-1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 2 succeeded / 1 failed", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].QueryID != "q-c" {
		t.Errorf("failures = %+v, want q-c", summary.Failures)
	}
}

func TestService_Run_ProgressReachesTotal(t *testing.T) {
	ts := newTestService(t, makeQueries(6))

	var last int
	calls := 0
	_, err := ts.svc.Run(context.Background(), "p-1", func(completed, total int) {
		calls++
		if completed <= last {
			t.Errorf("progress not increasing: %d after %d", completed, last)
		}
		last = completed
		if total != 6 {
			t.Errorf("total = %d, want 6", total)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 6 || last != 6 {
		t.Errorf("calls=%d last=%d, want 6/6", calls, last)
	}
}
