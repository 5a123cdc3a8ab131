// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/search-wizard/internal/llm"
)

// Reply is one scripted response
type Reply struct {
	Text string
	Err  error
}

// Fake replays scripted replies in order and records every request.
// Once the script is exhausted the last reply repeats.
type Fake struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request
	provider llm.Provider
}

// New creates a Fake with the given replies
func New(replies ...Reply) *Fake {
	return &Fake{replies: replies, provider: llm.ProviderGemini}
}

// Text is shorthand for a Fake that always answers text
func Text(text string) *Fake {
	return New(Reply{Text: text})
}

// Complete returns the next scripted reply
func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		return "", errors.New("llmtest: no scripted reply")
	}

	idx := min(len(f.requests), len(f.replies)) - 1
	r := f.replies[idx]
	return r.Text, r.Err
}

// Requests returns a copy of the recorded requests
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Calls returns how many times Complete ran
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Provider reports the configured provider
func (f *Fake) Provider() llm.Provider {
	return f.provider
}

// GetModel returns a fixed model name
func (f *Fake) GetModel(tier llm.ModelTier) string {
	return "fake-" + string(tier)
}

// Close does nothing
func (f *Fake) Close() error {
	return nil
}
