package check

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
)

func TestRunner_AllSucceed(t *testing.T) {
	engine := &mockEngine{
		askFn: func(_ context.Context, query string) (domain.AnswerResponse, error) {
			return domain.AnswerResponse{
				Text:    "answer",
				Sources: []string{"https://other.io/a", "https://www.example.com/page"},
			}, nil
		},
	}
	r := NewRunner(engine, 4, zap.NewNop())

	outcomes := r.Run(context.Background(), makeQueries(5), "example.com", nil, nil)

	if len(outcomes) != 5 {
		t.Fatalf("outcomes = %d, want 5", len(outcomes))
	}
	for i, out := range outcomes {
		if out.Err != nil {
			t.Errorf("outcome %d: unexpected error: %v", i, out.Err)
		}
		if !out.Match.Appears || out.Match.Position != 2 {
			t.Errorf("outcome %d: match = %+v, want appears at position 2", i, out.Match)
		}
	}
	// Outcomes keep input order regardless of worker scheduling.
	for i, q := range makeQueries(5) {
		if outcomes[i].Query.ID != q.ID {
			t.Errorf("outcome %d: query %s, want %s", i, outcomes[i].Query.ID, q.ID)
		}
	}
}

func TestRunner_OneFailureDoesNotAbortBatch(t *testing.T) {
	queries := makeQueries(10)
	failID := queries[3].Text

	engine := &mockEngine{
		askFn: func(_ context.Context, query string) (domain.AnswerResponse, error) {
			if query == failID {
				return domain.AnswerResponse{}, domain.ErrEngineUnavailable
			}
			return domain.AnswerResponse{Sources: []string{"https://example.com"}}, nil
		},
	}
	r := NewRunner(engine, 4, zap.NewNop())

	outcomes := r.Run(context.Background(), queries, "example.com", nil, nil)

	var failed, succeeded int
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			if !errors.Is(out.Err, domain.ErrEngineUnavailable) {
				t.Errorf("failure error = %v, want ErrEngineUnavailable", out.Err)
			}
			continue
		}
		succeeded++
	}
	if succeeded != 9 || failed != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 9/1", succeeded, failed)
	}
	if outcomes[3].Err == nil {
		t.Error("outcome 3 should carry the failure")
	}
}

func TestRunner_ProgressMonotonic(t *testing.T) {
	engine := &mockEngine{}
	r := NewRunner(engine, 4, zap.NewNop())

	var mu sync.Mutex
	var seen []int
	onProgress := func(completed, total int) {
		if total != 10 {
			t.Errorf("total = %d, want 10", total)
		}
		mu.Lock()
		seen = append(seen, completed)
		mu.Unlock()
	}

	r.Run(context.Background(), makeQueries(10), "example.com", nil, onProgress)

	if len(seen) != 10 {
		t.Fatalf("progress calls = %d, want 10", len(seen))
	}
	for i, c := range seen {
		if c != i+1 {
			t.Fatalf("progress[%d] = %d, want %d", i, c, i+1)
		}
	}
}

func TestRunner_BoundedConcurrency(t *testing.T) {
	const limit = 3

	var mu sync.Mutex
	inFlight, peak := 0, 0

	engine := &mockEngine{
		askFn: func(context.Context, string) (domain.AnswerResponse, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			// Hold the slot long enough for other workers to pile up.
			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return domain.AnswerResponse{Sources: []string{"https://example.com"}}, nil
		},
	}
	r := NewRunner(engine, limit, zap.NewNop())

	outcomes := r.Run(context.Background(), makeQueries(12), "example.com", nil, nil)

	if len(outcomes) != 12 {
		t.Fatalf("outcomes = %d, want 12", len(outcomes))
	}
	if peak == 0 {
		t.Fatal("engine was never called")
	}
	if peak > limit {
		t.Errorf("peak in-flight asks = %d, want at most %d", peak, limit)
	}
}

func TestRunner_PersistFailureDowngradesItem(t *testing.T) {
	queries := makeQueries(3)
	engine := &mockEngine{
		askFn: func(context.Context, string) (domain.AnswerResponse, error) {
			return domain.AnswerResponse{Sources: []string{"https://example.com"}}, nil
		},
	}
	r := NewRunner(engine, 1, zap.NewNop())

	persist := func(_ context.Context, q domain.Query, _ domain.MatchResult) error {
		if q.ID == queries[1].ID {
			return errors.New("redis write timeout")
		}
		return nil
	}

	outcomes := r.Run(context.Background(), queries, "example.com", persist, nil)

	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("items 0 and 2 should succeed: %v / %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Err == nil {
		t.Fatal("item 1 should fail on persist")
	}
	if !strings.Contains(outcomes[1].Err.Error(), "store result") {
		t.Errorf("error = %v, want store result wrap", outcomes[1].Err)
	}
}

func TestRunner_RetriesTransientErrors(t *testing.T) {
	var attempts int
	engine := &mockEngine{
		askFn: func(context.Context, string) (domain.AnswerResponse, error) {
			attempts++
			if attempts < 3 {
				return domain.AnswerResponse{}, domain.ErrRateLimited
			}
			return domain.AnswerResponse{Sources: []string{"https://example.com"}}, nil
		},
	}
	r := NewRunner(engine, 1, zap.NewNop()).WithRetry(2, time.Millisecond)

	outcomes := r.Run(context.Background(), makeQueries(1), "example.com", nil, nil)

	if outcomes[0].Err != nil {
		t.Fatalf("unexpected error after retries: %v", outcomes[0].Err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunner_NoRetryOnCredentialError(t *testing.T) {
	engine := &mockEngine{
		askFn: func(context.Context, string) (domain.AnswerResponse, error) {
			return domain.AnswerResponse{}, domain.ErrInvalidCredential
		},
	}
	r := NewRunner(engine, 1, zap.NewNop()).WithRetry(3, time.Millisecond)

	outcomes := r.Run(context.Background(), makeQueries(1), "example.com", nil, nil)

	if !errors.Is(outcomes[0].Err, domain.ErrInvalidCredential) {
		t.Fatalf("error = %v, want ErrInvalidCredential", outcomes[0].Err)
	}
	if engine.askCount() != 1 {
		t.Errorf("ask calls = %d, want 1 (no retry)", engine.askCount())
	}
}

func TestRunner_CanceledContextFailsPendingItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &mockEngine{}
	r := NewRunner(engine, 2, zap.NewNop())

	outcomes := r.Run(ctx, makeQueries(4), "example.com", nil, nil)

	for i, out := range outcomes {
		if !errors.Is(out.Err, context.Canceled) {
			t.Errorf("outcome %d: err = %v, want context.Canceled", i, out.Err)
		}
	}
	if engine.askCount() != 0 {
		t.Errorf("ask calls = %d, want 0 after cancel", engine.askCount())
	}
}

func TestRunner_ConcurrencyClampedToOne(t *testing.T) {
	r := NewRunner(&mockEngine{}, 0, zap.NewNop())
	if r.concurrency != 1 {
		t.Errorf("concurrency = %d, want 1", r.concurrency)
	}
}
