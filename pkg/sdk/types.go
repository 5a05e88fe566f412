package geotrack

// RunSummary is the outcome of one check run.
type RunSummary struct {
	ProjectID string
	Engine    string
	CheckDate string // YYYY-MM-DD
	Attempted int
	Succeeded int
	Failed    int
	Failures  []ItemFailure
}

// ItemFailure identifies a query that failed within a run.
type ItemFailure struct {
	QueryID string
	Error   string
}

// Result is one persisted citation-check row.
type Result struct {
	ID          string
	QueryID     string
	ProjectID   string
	Engine      string
	CheckDate   string // YYYY-MM-DD
	Appears     bool
	Position    int    // 1-based citation rank; 0 when not cited
	CitationURL string // empty when not cited
	RawSources  []string
}

// ProgressFunc receives (completed, total) after each item finishes.
type ProgressFunc func(completed, total int)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
