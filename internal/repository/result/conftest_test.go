package result

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests. It behaves like a
// tiny in-memory Redis: hashes plus one sorted set per index key.
type mockStore struct {
	hsetFn          func(ctx context.Context, key string, fields map[string]string) error
	zaddFn          func(ctx context.Context, key string, score float64, member string) error
	hgetAllMultiFn  func(ctx context.Context, keys []string) ([]map[string]string, error)
	zrangeByScoreFn func(ctx context.Context, key string, min, max float64) ([]string, error)

	hashes map[string]map[string]string
	zsets  map[string]map[string]float64
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes: make(map[string]map[string]string),
		zsets:  make(map[string]map[string]float64),
	}
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if m.zaddFn != nil {
		return m.zaddFn(ctx, key, score, member)
	}
	z, ok := m.zsets[key]
	if !ok {
		z = make(map[string]float64)
		m.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k] // nil map for missing keys, like an empty HGETALL
	}
	return out, nil
}

func (m *mockStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	if m.zrangeByScoreFn != nil {
		return m.zrangeByScoreFn(ctx, key, min, max)
	}
	var members []string
	for member, score := range m.zsets[key] {
		if score >= min && score <= max {
			members = append(members, member)
		}
	}
	sortByScore(members, m.zsets[key])
	return members, nil
}

func sortByScore(members []string, scores map[string]float64) {
	// Insertion sort: score ascending, member lexicographic on ties,
	// matching ZRANGEBYSCORE ordering.
	for i := 1; i < len(members); i++ {
		for j := i; j > 0; j-- {
			a, b := members[j-1], members[j]
			if scores[a] < scores[b] || (scores[a] == scores[b] && a < b) {
				break
			}
			members[j-1], members[j] = b, a
		}
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return New(ms, "geo:"), ms
}
