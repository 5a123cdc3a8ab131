package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BackoffConfig controls the exponential retry around a provider call
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	// Retryable decides whether an error is worth another attempt.
	// Nil retries everything except context cancellation.
	Retryable func(error) bool
}

// DefaultBackoffConfig doubles from one second and gives up once the next
// delay would exceed a minute
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial: time.Second,
		Max:     60 * time.Second,
	}
}

// RetryClient wraps a Client with exponential backoff
type RetryClient struct {
	Client
	cfg    BackoffConfig
	logger *zap.Logger
}

// WithBackoff wraps c so failed calls are retried on the configured schedule
func WithBackoff(c Client, cfg BackoffConfig, logger *zap.Logger) *RetryClient {
	if cfg.Initial <= 0 {
		cfg.Initial = time.Second
	}
	if cfg.Max <= 0 {
		cfg.Max = 60 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryClient{Client: c, cfg: cfg, logger: logger}
}

// Complete calls the wrapped client until it succeeds or the delay passes the
// ceiling. The last provider error is returned.
func (r *RetryClient) Complete(ctx context.Context, req Request) (string, error) {
	delay := r.cfg.Initial
	for attempt := 1; ; attempt++ {
		text, err := r.Client.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		if !r.retryable(err) {
			return "", err
		}
		if delay > r.cfg.Max {
			return "", fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		r.logger.Warn("llm call failed, backing off",
			zap.String("provider", string(r.Provider())),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := r.cfg.Sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
}

func (r *RetryClient) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if r.cfg.Retryable != nil {
		return r.cfg.Retryable(err)
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
