package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/search-wizard/internal/llm"
	"github.com/jonathan/search-wizard/internal/llm/llmtest"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestWithBackoff_SucceedsAfterFailures(t *testing.T) {
	fake := llmtest.New(
		llmtest.Reply{Err: errors.New("503")},
		llmtest.Reply{Err: errors.New("503")},
		llmtest.Reply{Text: "ok"},
	)
	rec := &sleepRecorder{}
	cfg := llm.DefaultBackoffConfig()
	cfg.Sleep = rec.sleep

	text, err := llm.WithBackoff(fake, cfg, nil).Complete(context.Background(), llm.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestWithBackoff_GivesUpPastCeiling(t *testing.T) {
	fake := llmtest.New(llmtest.Reply{Err: errors.New("rate limited")})
	rec := &sleepRecorder{}
	cfg := llm.DefaultBackoffConfig()
	cfg.Sleep = rec.sleep

	_, err := llm.WithBackoff(fake, cfg, nil).Complete(context.Background(), llm.Request{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 16 * time.Second, 32 * time.Second,
	}, rec.delays)
	assert.Equal(t, 7, fake.Calls())
}

func TestWithBackoff_DoesNotRetryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := llmtest.Text("never")
	rec := &sleepRecorder{}
	cfg := llm.DefaultBackoffConfig()
	cfg.Sleep = rec.sleep

	_, err := llm.WithBackoff(fake, cfg, nil).Complete(ctx, llm.Request{Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.delays)
}

func TestWithBackoff_RetryablePredicate(t *testing.T) {
	permanent := errors.New("invalid api key")
	fake := llmtest.New(llmtest.Reply{Err: permanent})
	cfg := llm.DefaultBackoffConfig()
	cfg.Sleep = (&sleepRecorder{}).sleep
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	_, err := llm.WithBackoff(fake, cfg, nil).Complete(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, fake.Calls())
}

func TestWithBackoff_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	fake := llmtest.New(llmtest.Reply{Err: errors.New("boom")})
	cfg := llm.BackoffConfig{Initial: time.Hour, Max: 2 * time.Hour}

	start := time.Now()
	_, err := llm.WithBackoff(fake, cfg, nil).Complete(ctx, llm.Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Minute)
}
