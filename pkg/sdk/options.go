package geotrack

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string

	apiKey        string
	baseURL       string
	model         string
	engineTimeout time.Duration

	keyPrefix     string
	concurrency   int
	retryAttempts int
	retryBackoff  time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisUsername sets the Redis ACL username.
func WithRedisUsername(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithPerplexity sets the Perplexity API key.
// An empty key is allowed at construction; RunCheck will fail with
// ErrInvalidCredential.
func WithPerplexity(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
	})
}

// WithModel sets the answer-engine model. Default: "sonar".
func WithModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = model
	})
}

// WithEngineTimeout sets the per-query engine call timeout. Default: 30s.
func WithEngineTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.engineTimeout = d
	})
}

// WithKeyPrefix sets the storage key prefix. Default: "geo:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithConcurrency sets the check worker pool size. Default: 4.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithRetry enables bounded retry of transient engine errors
// (rate limits and timeouts). Disabled by default.
func WithRetry(attempts int, backoff time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retryAttempts = attempts
		c.retryBackoff = backoff
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
