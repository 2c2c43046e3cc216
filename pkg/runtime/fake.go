package runtime

import (
	"context"
	"fmt"
	"sync"
)

// FakeResult scripts the outcome of one fake container run.
type FakeResult struct {
	ExitCode int64
	Logs     string
}

// FakeRuntime is an in-memory Runtime for tests. Outcomes are scripted per
// image; every start is recorded so tests can assert on what ran.
type FakeRuntime struct {
	mu sync.Mutex

	// Results maps image name to the scripted outcome.
	Results map[string]FakeResult

	// Started records the options of every Start call in order.
	Started []StartOptions
}

// NewFakeRuntime creates an empty fake runtime.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{Results: make(map[string]FakeResult)}
}

// Start implements Runtime.
func (f *FakeRuntime) Start(_ context.Context, opts StartOptions) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Started = append(f.Started, opts)

	result, ok := f.Results[opts.Image]
	if !ok {
		return nil, fmt.Errorf("no such image: %s", opts.Image)
	}
	return &fakeHandle{result: result}, nil
}

// StartCount returns how many containers were started.
func (f *FakeRuntime) StartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Started)
}

type fakeHandle struct {
	result FakeResult
}

func (h *fakeHandle) Wait(_ context.Context) (int64, error) {
	return h.result.ExitCode, nil
}

func (h *fakeHandle) Logs(_ context.Context) ([]byte, error) {
	return []byte(h.result.Logs), nil
}
