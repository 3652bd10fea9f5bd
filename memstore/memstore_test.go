package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coreybb/thermowatch/models"
)

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	s := NewReadingStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	a, _ := s.Append(ctx, "1", 36.5, now)
	b, _ := s.Append(ctx, "1", 36.5, now)
	if b.ID <= a.ID {
		t.Errorf("expected increasing ids, got %d then %d", a.ID, b.ID)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 readings, got %d", s.Len())
	}
}

func TestLatestPrefersNewestThenHighestID(t *testing.T) {
	s := NewReadingStore()
	ctx := context.Background()
	t1 := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	s.Append(ctx, "3", 37.0, t2)
	s.Append(ctx, "3", 36.0, t1)
	tie, _ := s.Append(ctx, "3", 38.0, t2)

	latest, err := s.Latest(ctx, "3")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ID != tie.ID {
		t.Fatalf("expected tie broken by highest id %d, got %+v", tie.ID, latest)
	}

	none, _ := s.Latest(ctx, "9")
	if none != nil {
		t.Errorf("expected nil for unknown element, got %+v", none)
	}
}

func TestAppendIfAbsentConcurrent(t *testing.T) {
	s := NewReadingStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, _ := s.AppendIfAbsent(ctx, "2", 36.6, ts)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 || s.Len() != 1 {
		t.Errorf("expected exactly one reading, created=%d len=%d", created, s.Len())
	}
}

func TestListByElementNewestFirst(t *testing.T) {
	s := NewReadingStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Append(ctx, "1", float64(30+i), base.Add(time.Duration(i)*time.Minute))
	}

	got, _ := s.ListByElement(ctx, "1", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if got[0].TemperatureC != 34 || got[1].TemperatureC != 33 {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestCreateCheckinConflicts(t *testing.T) {
	s := NewCheckinStore()
	ctx := context.Background()

	if err := s.CreateCheckin(ctx, &models.DailyCheckin{Day: "2026-03-09", WorkerID: "W1", ElementID: "E1"}); err != nil {
		t.Fatalf("first checkin: %v", err)
	}
	// Both worker and element collide; worker is reported.
	err := s.CreateCheckin(ctx, &models.DailyCheckin{Day: "2026-03-09", WorkerID: "W1", ElementID: "E1"})
	if !errors.Is(err, models.ErrWorkerAlreadyBound) {
		t.Errorf("expected ErrWorkerAlreadyBound, got %v", err)
	}
	err = s.CreateCheckin(ctx, &models.DailyCheckin{Day: "2026-03-09", WorkerID: "W2", ElementID: "E1"})
	if !errors.Is(err, models.ErrElementAlreadyBound) {
		t.Errorf("expected ErrElementAlreadyBound, got %v", err)
	}
	if err := s.CreateCheckin(ctx, &models.DailyCheckin{Day: "2026-03-10", WorkerID: "W1", ElementID: "E1"}); err != nil {
		t.Errorf("next day checkin: %v", err)
	}

	day, _ := s.ListCheckinsForDay(ctx, "2026-03-09")
	if len(day) != 1 {
		t.Errorf("expected 1 checkin on 2026-03-09, got %d", len(day))
	}
}
