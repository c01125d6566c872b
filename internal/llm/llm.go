// Package llm provides the LLM provider clients used for evaluation calls.
//
// Providers speak their native HTTP APIs (Anthropic messages, OpenAI chat
// completions). Every client is wrapped with rate limiting, bounded retries
// with exponential backoff, secret redaction of outbound content, and
// Prometheus instrumentation.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/redact"
)

// Request is one completion request.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int // zero falls back to the configured default
	Temperature float64
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is one completion response.
type Response struct {
	Text       string
	Model      string
	StopReason string
	Usage      Usage
}

// Client generates completions from an LLM provider.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Provider() string
}

// transport is a single-attempt provider call; the retrying client wraps it.
type transport interface {
	complete(ctx context.Context, req Request) (*Response, error)
	provider() string
}

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
	redactor   *redact.Redactor
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger used for retry and redaction events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithRedactor scrubs outbound prompts through the given redactor.
func WithRedactor(r *redact.Redactor) Option {
	return func(o *options) { o.redactor = r }
}

// WithMetrics overrides the Prometheus metrics set.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New builds a Client for the configured provider.
func New(cfg config.LLMConfig, opts ...Option) (Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout.Duration()}
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}

	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}

	var t transport
	switch cfg.Provider {
	case config.ProviderAnthropic:
		t = newAnthropicTransport(cfg, o.httpClient)
	case config.ProviderOpenAI:
		t = newOpenAITransport(cfg, o.httpClient)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	return &client{
		transport:   t,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), cfg.Burst),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff.Duration(),
		maxTokens:   cfg.MaxTokens,
		redactor:    o.redactor,
		metrics:     o.metrics,
		logger:      o.logger,
	}, nil
}
