package projection

import (
	"context"
	"testing"
	"time"

	"github.com/coreybb/thermowatch/checkin"
	"github.com/coreybb/thermowatch/dayclock"
	"github.com/coreybb/thermowatch/memstore"
)

func setup(t *testing.T, now time.Time) (*Projector, *checkin.Registry, *memstore.ReadingStore) {
	t.Helper()
	clock := dayclock.New(time.FixedZone("WAT", 3600), func() time.Time { return now })
	readings := memstore.NewReadingStore()
	registry := checkin.NewRegistry(memstore.NewCheckinStore(), clock, nil)
	return NewProjector(registry, readings, clock), registry, readings
}

func TestProjectTodayNoReadings(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	p, registry, _ := setup(t, now)
	ctx := context.Background()

	if _, err := registry.CheckIn(ctx, "W1", "3", "Ada Obi"); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	got, err := p.ProjectToday(ctx)
	if err != nil {
		t.Fatalf("ProjectToday: %v", err)
	}
	entry, ok := got["W1"]
	if !ok {
		t.Fatal("expected entry for W1")
	}
	if entry.TemperatureC != nil || entry.RecordedLocal != nil {
		t.Errorf("expected absent reading, got %+v", entry)
	}
}

func TestProjectTodayUsesNewestReading(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	p, registry, readings := setup(t, now)
	ctx := context.Background()

	registry.CheckIn(ctx, "W1", "3", "Ada Obi")
	t1 := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 9, 8, 30, 15, 0, time.UTC)
	readings.Append(ctx, "3", 39.1, t2)
	readings.Append(ctx, "3", 36.5, t1)

	got, err := p.ProjectToday(ctx)
	if err != nil {
		t.Fatalf("ProjectToday: %v", err)
	}
	entry := got["W1"]
	if entry.TemperatureC == nil || *entry.TemperatureC != 39.1 {
		t.Fatalf("expected t2 temperature 39.1, got %+v", entry)
	}
	if entry.RecordedLocal == nil || *entry.RecordedLocal != "09:30:15" {
		t.Errorf("expected local time 09:30:15, got %v", entry.RecordedLocal)
	}
}

func TestProjectTodayIgnoresOtherDays(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	p, registry, _ := setup(t, now)
	ctx := context.Background()

	registry.Bind(ctx, "2026-03-08", "W0", "1", "Yesterday")
	registry.CheckIn(ctx, "W1", "2", "Today")

	got, _ := p.ProjectToday(ctx)
	if _, ok := got["W0"]; ok {
		t.Error("did not expect yesterday's worker")
	}
	if len(got) != 1 {
		t.Errorf("expected 1 worker, got %d", len(got))
	}
}
