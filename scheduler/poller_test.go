package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coreybb/thermowatch/memstore"
	"github.com/coreybb/thermowatch/models"
	"github.com/coreybb/thermowatch/thingspeak"
	"github.com/coreybb/thermowatch/webutil"
)

// hookedStore runs before on every AppendIfAbsent and, like a database
// driver, refuses work once ctx is done.
type hookedStore struct {
	*memstore.ReadingStore
	before func(elementID string) error
}

func (s *hookedStore) AppendIfAbsent(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, bool, error) {
	if s.before != nil {
		if err := s.before(elementID); err != nil {
			return models.Reading{}, false, err
		}
	}
	if err := ctx.Err(); err != nil {
		return models.Reading{}, false, err
	}
	return s.ReadingStore.AppendIfAbsent(ctx, elementID, temperatureC, recordedAt)
}

// hangingSource blocks until its context gives up.
type hangingSource struct{}

func (hangingSource) FetchBatch(ctx context.Context, size int) ([]thingspeak.Entry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func entry(id int64, createdAt string, fields map[int]any) thingspeak.Entry {
	return thingspeak.Entry{EntryID: id, CreatedAt: createdAt, Fields: fields}
}

func sampleBatch() []thingspeak.Entry {
	return []thingspeak.Entry{
		entry(1, "2026-03-09T08:00:00Z", map[int]any{1: "36.4", 2: "37.0"}),
		entry(2, "2026-03-09T08:00:30Z", map[int]any{1: "36.6"}),
		entry(3, "not a time", map[int]any{1: "40"}),
		entry(4, "2026-03-09T08:01:00Z", map[int]any{3: "n/a", 4: 38.2}),
	}
}

func TestProcessBatchIsIdempotent(t *testing.T) {
	store := memstore.NewReadingStore()
	p := NewPoller(&FakeSource{}, store, Config{}, nil)
	ctx := context.Background()

	first := p.ProcessBatch(ctx, sampleBatch())
	if first.Added != 4 {
		t.Fatalf("expected 4 readings added, got %+v", first)
	}
	if first.SkippedEntries != 1 || first.SkippedFields != 1 {
		t.Errorf("expected 1 skipped entry and 1 skipped field, got %+v", first)
	}

	second := p.ProcessBatch(ctx, sampleBatch())
	if second.Added != 0 || second.Duplicates != 4 {
		t.Errorf("expected all duplicates on re-run, got %+v", second)
	}
	if store.Len() != 4 {
		t.Errorf("expected 4 stored readings, got %d", store.Len())
	}
}

func TestProcessBatchOverlappingWindows(t *testing.T) {
	store := memstore.NewReadingStore()
	p := NewPoller(&FakeSource{}, store, Config{}, nil)
	ctx := context.Background()

	batch := sampleBatch()
	p.ProcessBatch(ctx, batch[:2])
	res := p.ProcessBatch(ctx, batch[1:])
	if res.Added != 1 || res.Duplicates != 1 {
		t.Errorf("expected 1 added and 1 duplicate, got %+v", res)
	}
}

func TestProcessEntryMalformedTimestamp(t *testing.T) {
	p := NewPoller(&FakeSource{}, memstore.NewReadingStore(), Config{}, nil)
	_, err := p.ProcessEntry(context.Background(), entry(9, "", map[int]any{1: "36"}))
	if !errors.Is(err, ErrMalformedEntry) {
		t.Errorf("expected ErrMalformedEntry, got %v", err)
	}
}

func TestProcessEntryContinuesPastStoreFailure(t *testing.T) {
	store := &hookedStore{
		ReadingStore: memstore.NewReadingStore(),
		before: func(elementID string) error {
			if elementID == "2" {
				return errors.New("disk full")
			}
			return nil
		},
	}
	p := NewPoller(&FakeSource{}, store, Config{}, nil)

	res, err := p.ProcessEntry(context.Background(), entry(1, "2026-03-09T08:00:00Z", map[int]any{1: "36.4", 2: "37.0", 3: "36.8"}))
	if err == nil {
		t.Fatal("expected store error")
	}
	if res.Added != 2 || res.FailedFields != 1 {
		t.Errorf("expected 2 added and 1 failed, got %+v", res)
	}
	if store.Len() != 2 {
		t.Errorf("expected sibling fields stored, got %d readings", store.Len())
	}

	batch := p.ProcessBatch(context.Background(), []thingspeak.Entry{entry(2, "2026-03-09T08:05:00Z", map[int]any{2: "37.1", 4: "36.9"})})
	if batch.Added != 1 || batch.FailedFields != 1 || batch.SkippedEntries != 0 {
		t.Errorf("unexpected batch result %+v", batch)
	}
}

func TestProcessEntryStoresUTCTimestamp(t *testing.T) {
	store := memstore.NewReadingStore()
	p := NewPoller(&FakeSource{}, store, Config{}, nil)
	ctx := context.Background()

	p.ProcessEntry(ctx, entry(1, "2026-03-09T09:00:00+01:00", map[int]any{5: "37.5"}))
	latest, _ := store.Latest(ctx, "5")
	if latest == nil {
		t.Fatal("expected reading for element 5")
	}
	want := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	if !latest.RecordedAt.Equal(want) || latest.TemperatureC != 37.5 {
		t.Errorf("unexpected reading %+v", latest)
	}
}

func TestSyncOnceFetchFailure(t *testing.T) {
	source := &FakeSource{FetchError: errors.New("connection refused")}
	p := NewPoller(source, memstore.NewReadingStore(), Config{BatchSize: 100}, nil)

	result, err := p.SyncOnce(context.Background())
	if !errors.Is(err, ErrFetchFailure) {
		t.Fatalf("expected ErrFetchFailure, got %v", err)
	}
	if result.Error == "" || result.FinishedAt.IsZero() {
		t.Errorf("expected recorded failure, got %+v", result)
	}
	if p.State() != StateIdle {
		t.Errorf("expected idle after failure, got %s", p.State())
	}
	if source.Sizes[0] != 100 {
		t.Errorf("expected batch size 100, got %v", source.Sizes)
	}
}

func TestSyncOnceRecordsLastResult(t *testing.T) {
	source := &FakeSource{Batches: [][]thingspeak.Entry{sampleBatch()}}
	p := NewPoller(source, memstore.NewReadingStore(), Config{}, nil)

	if p.LastResult() != nil {
		t.Fatal("expected no result before first cycle")
	}
	result, err := p.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	last := p.LastResult()
	if last == nil || last.CycleID != result.CycleID || last.Added != 4 {
		t.Errorf("unexpected last result %+v", last)
	}
}

func TestConcurrentSyncOnceDoesNotDuplicate(t *testing.T) {
	store := memstore.NewReadingStore()
	source := &FakeSource{Batches: [][]thingspeak.Entry{sampleBatch()}}
	p := NewPoller(source, store, Config{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.SyncOnce(context.Background())
		}()
	}
	wg.Wait()

	if store.Len() != 4 {
		t.Errorf("expected 4 readings after concurrent cycles, got %d", store.Len())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &FakeSource{FetchError: errors.New("offline")}
	p := NewPoller(source, memstore.NewReadingStore(), Config{Interval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(55 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if p.State() != StateStopped {
		t.Errorf("expected stopped state, got %s", p.State())
	}
	source.mu.Lock()
	calls := source.Calls
	source.mu.Unlock()
	// Repeated failures keep the configured pace: roughly one call per interval.
	if calls < 2 || calls > 10 {
		t.Errorf("expected a handful of fetches, got %d", calls)
	}
}

func TestRunFinishesBatchAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	store := &hookedStore{
		ReadingStore: memstore.NewReadingStore(),
		before: func(string) error {
			once.Do(cancel)
			return nil
		},
	}
	source := &FakeSource{Batches: [][]thingspeak.Entry{sampleBatch()}}
	p := NewPoller(source, store, Config{Interval: time.Hour}, nil)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if store.Len() != 4 {
		t.Errorf("expected the in-flight batch to finish with 4 readings, got %d", store.Len())
	}
	if p.State() != StateStopped {
		t.Errorf("expected stopped state, got %s", p.State())
	}
	source.mu.Lock()
	calls := source.Calls
	source.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected no fetch after cancel, got %d", calls)
	}
}

func TestSyncOnceFetchTimeout(t *testing.T) {
	timeout := 50 * time.Millisecond
	p := NewPoller(hangingSource{}, memstore.NewReadingStore(), Config{FetchTimeout: timeout}, nil)

	start := time.Now()
	result, err := p.SyncOnce(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrFetchFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected fetch timeout, got %v", err)
	}
	if elapsed < timeout || elapsed > 2*time.Second {
		t.Errorf("fetch bounded at %v, configured %v", elapsed, timeout)
	}
	if result.Error == "" || p.State() != StateIdle {
		t.Errorf("expected recorded failure and idle state, got %+v in %s", result, p.State())
	}
}

func TestHandleTick(t *testing.T) {
	source := &FakeSource{Batches: [][]thingspeak.Entry{sampleBatch()}}
	p := NewPoller(source, memstore.NewReadingStore(), Config{}, nil)
	handler := webutil.MakeHandler(p.HandleTick)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/scheduler/tick", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	source.FetchError = errors.New("down")
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/scheduler/tick", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 on fetch failure, got %d", rec.Code)
	}
}
