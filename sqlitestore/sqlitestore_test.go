package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coreybb/thermowatch/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "instance", "app.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	t1 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	if _, err := store.Append(ctx, "E1", 36.6, t1); err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := store.Append(ctx, "E1", 37.1, t2)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	latest, err := store.Latest(ctx, "E1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != second.ID || latest.TemperatureC != 37.1 {
		t.Fatalf("latest = %+v, want %+v", latest, second)
	}
	if !latest.RecordedAt.Equal(t2) || latest.RecordedAt.Location() != time.UTC {
		t.Errorf("recorded_at = %v, want %v in UTC", latest.RecordedAt, t2)
	}

	missing, err := store.Latest(ctx, "E2")
	if err != nil || missing != nil {
		t.Errorf("latest for unknown element = %+v, %v", missing, err)
	}
}

func TestLatestTieGoesToHighestID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	store.Append(ctx, "E1", 30, at)
	last, _ := store.Append(ctx, "E1", 31, at)

	latest, err := store.Latest(ctx, "E1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != last.ID {
		t.Errorf("latest id = %d, want %d", latest.ID, last.ID)
	}
}

func TestAppendIfAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := store.AppendIfAbsent(ctx, "E1", 36.6, at)
			if err != nil {
				t.Errorf("append if absent: %v", err)
				return
			}
			results <- created
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for ok := range results {
		if ok {
			created++
		}
	}
	if created != 1 {
		t.Errorf("created %d readings, want 1", created)
	}

	exists, err := store.Exists(ctx, "E1", at)
	if err != nil || !exists {
		t.Errorf("exists = %v, %v", exists, err)
	}
	list, _ := store.ListByElement(ctx, "E1", 10)
	if len(list) != 1 {
		t.Errorf("stored %d readings, want 1", len(list))
	}
}

func TestCheckinConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	create := func(id, day, worker, element string) error {
		return store.CreateCheckin(ctx, &models.DailyCheckin{
			ID: id, Day: day, WorkerID: worker, ElementID: element, FullName: "Worker " + worker, CreatedAt: now,
		})
	}

	if err := create("a", "2025-05-01", "W1", "E1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := create("b", "2025-05-01", "W1", "E2"); !errors.Is(err, models.ErrWorkerAlreadyBound) {
		t.Errorf("worker conflict err = %v", err)
	}
	if err := create("c", "2025-05-01", "W2", "E1"); !errors.Is(err, models.ErrElementAlreadyBound) {
		t.Errorf("element conflict err = %v", err)
	}
	if err := create("d", "2025-05-01", "W1", "E1"); !errors.Is(err, models.ErrWorkerAlreadyBound) {
		t.Errorf("both conflict err = %v, want worker conflict", err)
	}
	if err := create("e", "2025-05-02", "W1", "E1"); err != nil {
		t.Errorf("next day: %v", err)
	}
	if err := create("f", "2025-05-01", "W2", "E2"); err != nil {
		t.Fatalf("create second: %v", err)
	}

	list, err := store.ListCheckinsForDay(ctx, "2025-05-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "f" {
		t.Errorf("list = %+v", list)
	}

	empty, err := store.ListCheckinsForDay(ctx, "2024-01-01")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("empty day = %v, %v", empty, err)
	}
}

func TestMapUniqueViolation(t *testing.T) {
	err := mapUniqueViolation(errors.New("UNIQUE constraint failed: daily_checkins.day, daily_checkins.element_id"))
	if !errors.Is(err, models.ErrElementAlreadyBound) {
		t.Errorf("err = %v", err)
	}
	err = mapUniqueViolation(errors.New("disk I/O error"))
	if errors.Is(err, models.ErrElementAlreadyBound) || errors.Is(err, models.ErrWorkerAlreadyBound) {
		t.Errorf("unexpected conflict for %v", err)
	}
}
