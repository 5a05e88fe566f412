package domain

import "time"

// DateFormat is the calendar-date format used for check_date keys.
const DateFormat = "2006-01-02"

// EnginePerplexity identifies the Perplexity answer engine.
const EnginePerplexity = "perplexity"

// Project is the tracked site. Owned by the CRUD subsystem; read-only here.
type Project struct {
	ID          string
	WorkspaceID string
	Name        string
	Domain      string // match target, e.g. "example.com"
	Country     string
	Language    string
}

// Query is one tracked question. Owned by the CRUD subsystem; read-only here.
type Query struct {
	ID        string
	ProjectID string
	Text      string
	Category  string
	Active    bool
	CreatedAt time.Time
}

// AnswerResponse is what an answer engine returned for one query.
type AnswerResponse struct {
	Text    string
	Sources []string // engine's citation order; index 0 is most prominent
}

// MatchResult is the outcome of matching a response against a project domain.
type MatchResult struct {
	Appears     bool
	Position    int    // 1-based rank of the first matching source; 0 when not cited
	CitationURL string // original URL of the first match; empty when not cited
	RawSources  []string
}

// CheckResult is one persisted check row. Natural key: (QueryID, Engine, CheckDate).
type CheckResult struct {
	ID          string // surrogate row id, reminted on overwrite
	QueryID     string
	ProjectID   string
	Engine      string
	CheckDate   string // DateFormat, caller's clock at run time
	Appears     bool
	Position    int
	CitationURL string
	RawSources  []string
}

// ItemFailure identifies a query that failed within a run.
type ItemFailure struct {
	QueryID string `json:"query_id"`
	Error   string `json:"error"`
}

// RunSummary is the ephemeral outcome of one batch run. Never persisted.
type RunSummary struct {
	ProjectID string        `json:"project_id"`
	Engine    string        `json:"engine"`
	CheckDate string        `json:"check_date"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}
