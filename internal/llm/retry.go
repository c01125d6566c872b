package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/doceval/internal/redact"
)

// client wraps a provider transport with rate limiting, bounded retries,
// redaction, and metrics.
type client struct {
	transport   transport
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	maxTokens   int
	redactor    *redact.Redactor
	metrics     *Metrics
	logger      *zap.Logger
}

var _ Client = (*client)(nil)

// Provider returns the underlying provider name.
func (c *client) Provider() string { return c.transport.provider() }

// Complete sends the request, retrying transient failures up to the
// configured attempt count. Each attempt waits for the shared rate limiter;
// backoff between attempts grows exponentially with jitter and is cut short
// by context cancellation. The outbound prompt and system text pass through
// the redactor first.
func (c *client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("empty prompt")
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}

	if c.redactor != nil {
		var findings []redact.Finding
		req.Prompt, findings = c.redactor.Redact(req.Prompt)
		total := len(findings)
		if req.System != "" {
			req.System, findings = c.redactor.Redact(req.System)
			total += len(findings)
		}
		if total > 0 {
			c.logger.Warn("redacted secrets from outbound prompt",
				zap.String("provider", c.Provider()),
				zap.Int("findings", total))
		}
	}

	provider := c.Provider()
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			c.metrics.retries.WithLabelValues(provider).Inc()
			if err := c.sleepBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		c.metrics.requests.WithLabelValues(provider).Inc()
		resp, err := c.transport.complete(ctx, req)
		if err == nil {
			c.metrics.duration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
			return resp, nil
		}

		lastErr = err
		c.metrics.errors.WithLabelValues(provider).Inc()
		if !isRetryableError(err) {
			return nil, err
		}
		c.logger.Warn("llm call failed, will retry",
			zap.String("provider", provider),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxRetries),
			zap.Error(err))
	}

	c.metrics.duration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	return nil, fmt.Errorf("max retries exceeded after %d attempts: %w", c.maxRetries, lastErr)
}

// sleepBackoff waits base << (retry-1) plus jitter in [0, base/2), or until
// the context is done.
func (c *client) sleepBackoff(ctx context.Context, retry int) error {
	backoff := c.baseBackoff << (retry - 1)
	if half := int64(c.baseBackoff / 2); half > 0 {
		backoff += time.Duration(rand.Int64N(half))
	}

	select {
	case <-time.After(backoff):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryableError marks an error as safe to retry.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// isRetryableError walks the unwrap chain looking for a retryableError.
func isRetryableError(err error) bool {
	for e := err; e != nil; {
		if _, ok := e.(*retryableError); ok {
			return true
		}
		if unwrapper, ok := e.(interface{ Unwrap() error }); ok {
			e = unwrapper.Unwrap()
		} else {
			break
		}
	}
	return false
}
