// Package scheduler runs the reconciliation poller that merges externally
// fetched telemetry into the reading store without duplicating readings.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreybb/thermowatch/ingestion"
	"github.com/coreybb/thermowatch/models"
	"github.com/coreybb/thermowatch/thingspeak"
	"github.com/google/uuid"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultFetchTimeout = 10 * time.Second
	DefaultBatchSize    = 1
)

var (
	// ErrFetchFailure ends the current cycle; the next scheduled cycle runs normally.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrMalformedEntry marks an entry skipped because its timestamp could not be parsed.
	ErrMalformedEntry = errors.New("malformed entry")
)

// State is the poller's position in its cycle.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
	StateStopped    State = "stopped"
)

// FeedSource fetches a batch of external entries.
type FeedSource interface {
	FetchBatch(ctx context.Context, size int) ([]thingspeak.Entry, error)
}

// Config controls the poller schedule.
type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	BatchSize    int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// CycleResult summarises one reconciliation cycle.
type CycleResult struct {
	CycleID        string    `json:"cycle_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Fetched        int       `json:"fetched"`
	Added          int       `json:"added"`
	Duplicates     int       `json:"duplicates"`
	SkippedEntries int       `json:"skipped_entries"`
	SkippedFields  int       `json:"skipped_fields"`
	FailedFields   int       `json:"failed_fields"`
	Error          string    `json:"error,omitempty"`
}

// EntryResult counts what happened to one entry's fields.
type EntryResult struct {
	Added         int
	Duplicates    int
	SkippedFields int
	FailedFields  int
}

// Poller pulls external telemetry on a fixed interval. Cycles never overlap.
type Poller struct {
	source FeedSource
	store  models.ReadingStore
	cfg    Config
	logger *slog.Logger

	cycleMu sync.Mutex

	mu    sync.RWMutex
	state State
	last  *CycleResult
}

// NewPoller creates a Poller. A nil logger uses slog.Default().
func NewPoller(source FeedSource, store models.ReadingStore, cfg Config, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source: source,
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the current poller state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// LastResult returns the most recent finished cycle, or nil before the first one.
func (p *Poller) LastResult() *CycleResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	r := *p.last
	return &r
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run performs a cycle immediately and then one per interval until ctx is
// cancelled. A cycle in progress is always finished before Run returns.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting reconciliation poller",
		"interval", p.cfg.Interval,
		"batch_size", p.cfg.BatchSize,
		"fetch_timeout", p.cfg.FetchTimeout,
	)
	p.setState(StateIdle)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.runScheduledCycle(ctx)

		select {
		case <-ctx.Done():
			p.setState(StateStopped)
			p.logger.Info("Reconciliation poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) runScheduledCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := p.SyncOnce(ctx)
	if err != nil {
		p.logger.Warn("Reconciliation cycle ended early", "cycle_id", result.CycleID, "error", err)
	}
}

// SyncOnce fetches one batch and merges it into the store.
// A fetch failure returns ErrFetchFailure; per-entry problems are counted, not returned.
func (p *Poller) SyncOnce(ctx context.Context) (result CycleResult, err error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	result = CycleResult{CycleID: uuid.NewString(), StartedAt: time.Now().UTC()}
	defer func() {
		result.FinishedAt = time.Now().UTC()
		p.mu.Lock()
		p.state = StateIdle
		last := result
		p.last = &last
		p.mu.Unlock()
	}()

	p.setState(StateFetching)
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	entries, fetchErr := p.source.FetchBatch(fetchCtx, p.cfg.BatchSize)
	cancel()
	if fetchErr != nil {
		err = fmt.Errorf("%w: %w", ErrFetchFailure, fetchErr)
		result.Error = err.Error()
		return result, err
	}
	result.Fetched = len(entries)

	// The batch is finished even if ctx is cancelled meanwhile.
	p.setState(StateProcessing)
	p.processBatch(context.WithoutCancel(ctx), entries, &result)

	p.logger.Info("Reconciliation cycle finished",
		"cycle_id", result.CycleID,
		"fetched", result.Fetched,
		"added", result.Added,
		"duplicates", result.Duplicates,
		"skipped_entries", result.SkippedEntries,
		"failed_fields", result.FailedFields,
	)
	return result, nil
}

// ProcessBatch merges entries into the store outside the schedule.
func (p *Poller) ProcessBatch(ctx context.Context, entries []thingspeak.Entry) CycleResult {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	result := CycleResult{CycleID: uuid.NewString(), StartedAt: time.Now().UTC(), Fetched: len(entries)}
	p.processBatch(ctx, entries, &result)
	result.FinishedAt = time.Now().UTC()
	return result
}

func (p *Poller) processBatch(ctx context.Context, entries []thingspeak.Entry, result *CycleResult) {
	for _, entry := range entries {
		res, err := p.ProcessEntry(ctx, entry)
		result.Added += res.Added
		result.Duplicates += res.Duplicates
		result.SkippedFields += res.SkippedFields
		result.FailedFields += res.FailedFields
		switch {
		case errors.Is(err, ErrMalformedEntry):
			result.SkippedEntries++
			p.logger.Warn("Skipping feed entry", "entry_id", entry.EntryID, "error", err)
		case err != nil:
			p.logger.Error("Failed to store feed entry fields", "entry_id", entry.EntryID, "failed", res.FailedFields, "error", err)
		}
	}
}

// ProcessEntry stores every usable numbered field of entry as a reading
// unless a reading with the same element and timestamp already exists.
// A field the store rejects does not stop its siblings; the failures are
// joined into the returned error.
func (p *Poller) ProcessEntry(ctx context.Context, entry thingspeak.Entry) (EntryResult, error) {
	var res EntryResult
	var errs []error

	recordedAt, err := entry.Timestamp()
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}

	for _, n := range entry.FieldNumbers() {
		elementID := fmt.Sprint(n)
		temp, err := ingestion.ParseTemperature(entry.Fields[n])
		if err != nil {
			res.SkippedFields++
			p.logger.Debug("Skipping unparsable field", "entry_id", entry.EntryID, "field", n, "error", err)
			continue
		}

		reading, created, err := p.store.AppendIfAbsent(ctx, elementID, temp, recordedAt)
		if err != nil {
			res.FailedFields++
			errs = append(errs, fmt.Errorf("failed to store element %s at %s: %w", elementID, recordedAt.Format(time.RFC3339), err))
			continue
		}
		if !created {
			res.Duplicates++
			continue
		}
		res.Added++
		p.logger.Debug("Added reading", "id", reading.ID, "element_id", elementID, "temperature_c", temp, "recorded_at", recordedAt)
	}
	return res, errors.Join(errs...)
}
