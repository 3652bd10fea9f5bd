// Package memstore keeps readings and check-ins in process memory.
// Nothing survives a restart; it backs tests and the "memory" store driver.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coreybb/thermowatch/models"
)

type readingKey struct {
	elementID  string
	recordedAt int64
}

// ReadingStore is an in-memory models.ReadingStore.
type ReadingStore struct {
	mu        sync.RWMutex
	nextID    int64
	byElement map[string][]models.Reading
	seen      map[readingKey]struct{}
}

// NewReadingStore creates an empty ReadingStore.
func NewReadingStore() *ReadingStore {
	return &ReadingStore{
		byElement: make(map[string][]models.Reading),
		seen:      make(map[readingKey]struct{}),
	}
}

func keyOf(elementID string, recordedAt time.Time) readingKey {
	return readingKey{elementID: elementID, recordedAt: recordedAt.UTC().UnixNano()}
}

func (s *ReadingStore) appendLocked(elementID string, temperatureC float64, recordedAt time.Time) models.Reading {
	s.nextID++
	r := models.Reading{
		ID:           s.nextID,
		ElementID:    elementID,
		TemperatureC: temperatureC,
		RecordedAt:   recordedAt.UTC(),
	}
	s.byElement[elementID] = append(s.byElement[elementID], r)
	s.seen[keyOf(elementID, recordedAt)] = struct{}{}
	return r
}

func (s *ReadingStore) Append(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(elementID, temperatureC, recordedAt), nil
}

func (s *ReadingStore) Exists(ctx context.Context, elementID string, recordedAt time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[keyOf(elementID, recordedAt)]
	return ok, nil
}

func (s *ReadingStore) AppendIfAbsent(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (models.Reading, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[keyOf(elementID, recordedAt)]; ok {
		return models.Reading{}, false, nil
	}
	return s.appendLocked(elementID, temperatureC, recordedAt), true, nil
}

func (s *ReadingStore) Latest(ctx context.Context, elementID string) (*models.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Reading
	for i := range s.byElement[elementID] {
		r := s.byElement[elementID][i]
		if latest == nil || r.RecordedAt.After(latest.RecordedAt) ||
			(r.RecordedAt.Equal(latest.RecordedAt) && r.ID > latest.ID) {
			latest = &r
		}
	}
	return latest, nil
}

func (s *ReadingStore) ListByElement(ctx context.Context, elementID string, limit int) ([]models.Reading, error) {
	s.mu.RLock()
	readings := append([]models.Reading(nil), s.byElement[elementID]...)
	s.mu.RUnlock()

	sort.Slice(readings, func(i, j int) bool {
		if readings[i].RecordedAt.Equal(readings[j].RecordedAt) {
			return readings[i].ID > readings[j].ID
		}
		return readings[i].RecordedAt.After(readings[j].RecordedAt)
	})
	if limit > 0 && len(readings) > limit {
		readings = readings[:limit]
	}
	if readings == nil {
		readings = []models.Reading{}
	}
	return readings, nil
}

// Len returns the number of stored readings.
func (s *ReadingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.nextID)
}

// CheckinStore is an in-memory models.CheckinStore partitioned by day.
type CheckinStore struct {
	mu    sync.Mutex
	byDay map[string][]models.DailyCheckin
}

// NewCheckinStore creates an empty CheckinStore.
func NewCheckinStore() *CheckinStore {
	return &CheckinStore{byDay: make(map[string][]models.DailyCheckin)}
}

func (s *CheckinStore) CreateCheckin(ctx context.Context, checkin *models.DailyCheckin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.byDay[checkin.Day]
	for _, c := range day {
		if c.WorkerID == checkin.WorkerID {
			return models.ErrWorkerAlreadyBound
		}
	}
	for _, c := range day {
		if c.ElementID == checkin.ElementID {
			return models.ErrElementAlreadyBound
		}
	}
	s.byDay[checkin.Day] = append(day, *checkin)
	return nil
}

func (s *CheckinStore) ListCheckinsForDay(ctx context.Context, day string) ([]models.DailyCheckin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	checkins := make([]models.DailyCheckin, len(s.byDay[day]))
	copy(checkins, s.byDay[day])
	return checkins, nil
}
