package models

import (
	"context"
	"time"
)

// ReadingStore is the append-only time series of readings.
type ReadingStore interface {
	// Append stores a new reading and assigns it the next identity.
	Append(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (Reading, error)
	// Exists reports whether a reading with the same element and timestamp is stored.
	Exists(ctx context.Context, elementID string, recordedAt time.Time) (bool, error)
	// AppendIfAbsent runs Exists and Append under one exclusion scope.
	// The returned bool is false when the reading was already present.
	AppendIfAbsent(ctx context.Context, elementID string, temperatureC float64, recordedAt time.Time) (Reading, bool, error)
	// Latest returns the newest reading for the element, or nil when there is none.
	Latest(ctx context.Context, elementID string) (*Reading, error)
	// ListByElement returns up to limit readings for the element, newest first.
	ListByElement(ctx context.Context, elementID string, limit int) ([]Reading, error)
}

// CheckinStore persists day-scoped check-ins.
type CheckinStore interface {
	// CreateCheckin inserts the check-in unless its worker or element is already
	// bound for the same day. The worker conflict is reported first.
	CreateCheckin(ctx context.Context, checkin *DailyCheckin) error
	// ListCheckinsForDay returns the day's check-ins in insertion order.
	ListCheckinsForDay(ctx context.Context, day string) ([]DailyCheckin, error)
}
