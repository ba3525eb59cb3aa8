package classifier

import (
	"context"
	"sync"
	"time"
)

// FakeProvider is a scriptable provider for tests.
type FakeProvider struct {
	Response string
	Err      error
	Delay    time.Duration

	mu         sync.Mutex
	calls      int
	lastSystem string
	lastUser   string
}

// Complete returns the scripted response after an optional delay,
// honoring context cancellation so timeout paths are testable.
func (f *FakeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}

// Calls reports how many times Complete ran.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastUser returns the most recent user prompt.
func (f *FakeProvider) LastUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUser
}

// LastSystem returns the most recent system prompt.
func (f *FakeProvider) LastSystem() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSystem
}
