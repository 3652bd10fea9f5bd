package scheduler

import (
	"context"
	"sync"

	"github.com/coreybb/thermowatch/thingspeak"
)

// FakeSource returns scripted batches for tests and dry runs.
type FakeSource struct {
	mu sync.Mutex

	// Batches are returned in order; the last one repeats once exhausted.
	Batches [][]thingspeak.Entry

	// FetchError, if set, is returned instead of a batch.
	FetchError error

	// Calls counts FetchBatch invocations.
	Calls int

	// Sizes records the requested batch sizes.
	Sizes []int
}

// FetchBatch returns the next scripted batch.
func (f *FakeSource) FetchBatch(ctx context.Context, size int) ([]thingspeak.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls++
	f.Sizes = append(f.Sizes, size)
	if f.FetchError != nil {
		return nil, f.FetchError
	}
	if len(f.Batches) == 0 {
		return nil, nil
	}
	idx := f.Calls - 1
	if idx >= len(f.Batches) {
		idx = len(f.Batches) - 1
	}
	return f.Batches[idx], nil
}
