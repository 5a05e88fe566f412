// Package perplexity calls the Perplexity chat-completions API and extracts
// the answer text plus the ordered source citations.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pawa80/search-intelligence-suite/internal/domain"
	"github.com/pawa80/search-intelligence-suite/internal/metrics"
)

// Client is a stateless answer-engine client. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	logger     *zap.Logger
}

// Config holds the answer-engine settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a Perplexity client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    timeout,
		logger:     logger,
	}
}

// Engine returns the engine identifier persisted with each check row.
func (c *Client) Engine() string { return domain.EnginePerplexity }

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	// Source URLs come back either as a flat citations array or as
	// structured search_results, depending on API vintage.
	Citations     []string `json:"citations"`
	SearchResults []struct {
		URL string `json:"url"`
	} `json:"search_results"`
}

// Ask sends one query to the engine and returns the answer text with the
// ordered source URLs. Each call carries its own timeout so a hung API
// cannot stall a batch worker indefinitely.
func (c *Client) Ask(ctx context.Context, queryText string) (domain.AnswerResponse, error) {
	if queryText == "" {
		return domain.AnswerResponse{}, domain.ErrEmptyQuery
	}
	return c.complete(ctx, chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: queryText}},
	})
}

// VerifyCredential checks the API credential before a batch starts.
// A missing key fails immediately; otherwise a minimal one-token completion
// is sent and only an authentication rejection is treated as fatal — any
// other failure is left to the per-item path.
func (c *Client) VerifyCredential(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("api key is not configured: %w", domain.ErrInvalidCredential)
	}

	_, err := c.complete(ctx, chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	if errors.Is(err, domain.ErrInvalidCredential) {
		return err
	}
	return nil
}

// HealthCheck reports engine availability for the health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("api key is not configured: %w", domain.ErrInvalidCredential)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, reqBody chatRequest) (domain.AnswerResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return domain.AnswerResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return domain.AnswerResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.recordError("transport")
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.AnswerResponse{}, fmt.Errorf("engine call timed out after %s: %w",
				c.timeout, domain.ErrEngineUnavailable)
		}
		return domain.AnswerResponse{}, fmt.Errorf("engine call failed: %w", domain.ErrEngineUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.AnswerResponse{}, c.classifyStatus(resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.recordError("malformed_response")
		return domain.AnswerResponse{}, fmt.Errorf("decode engine response: %w", domain.ErrEngineUnavailable)
	}

	metrics.EngineRequestsTotal.WithLabelValues(c.Engine(), c.model, "success").Inc()
	metrics.EngineRequestDuration.WithLabelValues(c.Engine(), c.model).Observe(duration.Seconds())

	answer := domain.AnswerResponse{Sources: parsed.sources()}
	if len(parsed.Choices) > 0 {
		answer.Text = parsed.Choices[0].Message.Content
	}
	return answer, nil
}

// sources returns the ordered citation URLs, preferring the flat citations
// array and falling back to search_results.
func (r *chatResponse) sources() []string {
	if len(r.Citations) > 0 {
		return r.Citations
	}
	if len(r.SearchResults) == 0 {
		return nil
	}
	urls := make([]string, 0, len(r.SearchResults))
	for _, sr := range r.SearchResults {
		if sr.URL != "" {
			urls = append(urls, sr.URL)
		}
	}
	return urls
}

// classifyStatus maps a non-200 response to the engine error taxonomy.
func (c *Client) classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := extractDetail(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.recordError("auth")
		return fmt.Errorf("engine rejected credential (%d): %s: %w",
			resp.StatusCode, detail, domain.ErrInvalidCredential)
	case http.StatusTooManyRequests:
		c.recordError("rate_limited")
		return fmt.Errorf("engine rate limit (%d): %s: %w",
			resp.StatusCode, detail, domain.ErrRateLimited)
	default:
		c.recordError("api_error")
		return fmt.Errorf("engine error %d: %s: %w",
			resp.StatusCode, detail, domain.ErrEngineUnavailable)
	}
}

func (c *Client) recordError(errorType string) {
	metrics.EngineRequestsTotal.WithLabelValues(c.Engine(), c.model, "error").Inc()
	metrics.EngineErrorsTotal.WithLabelValues(c.Engine(), c.model, errorType).Inc()
}

// extractDetail extracts the error message from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	return string(body)
}
