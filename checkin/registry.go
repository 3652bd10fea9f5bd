// Package checkin maintains the day-scoped worker to element bindings.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreybb/thermowatch/dayclock"
	"github.com/coreybb/thermowatch/models"
	"github.com/google/uuid"
)

// ErrInvalidCheckin is returned when a required field is blank or the day is malformed.
var ErrInvalidCheckin = errors.New("invalid check-in")

// Registry binds workers to elements for a single day.
type Registry struct {
	store  models.CheckinStore
	clock  *dayclock.Clock
	logger *slog.Logger
}

// NewRegistry creates a Registry. A nil logger uses slog.Default().
func NewRegistry(store models.CheckinStore, clock *dayclock.Clock, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, clock: clock, logger: logger}
}

// CurrentDay returns today's date in the configured time zone.
func (r *Registry) CurrentDay() string {
	return r.clock.Today()
}

// Bind creates the check-in for day. The worker conflict takes precedence
// over the element conflict when both apply.
func (r *Registry) Bind(ctx context.Context, day, workerID, elementID, fullName string) (models.DailyCheckin, error) {
	workerID = strings.TrimSpace(workerID)
	elementID = strings.TrimSpace(elementID)
	fullName = strings.TrimSpace(fullName)

	if workerID == "" || elementID == "" || fullName == "" {
		return models.DailyCheckin{}, fmt.Errorf("%w: worker_id, element_id and full_name are required", ErrInvalidCheckin)
	}
	if !dayclock.ValidDay(day) {
		return models.DailyCheckin{}, fmt.Errorf("%w: malformed day %q", ErrInvalidCheckin, day)
	}

	checkin := models.DailyCheckin{
		ID:        uuid.NewString(),
		Day:       day,
		WorkerID:  workerID,
		ElementID: elementID,
		FullName:  fullName,
		CreatedAt: r.clock.Now(),
	}
	if err := r.store.CreateCheckin(ctx, &checkin); err != nil {
		if errors.Is(err, models.ErrWorkerAlreadyBound) || errors.Is(err, models.ErrElementAlreadyBound) {
			r.logger.Info("Check-in rejected", "day", day, "worker_id", workerID, "element_id", elementID, "reason", err)
			return models.DailyCheckin{}, err
		}
		return models.DailyCheckin{}, fmt.Errorf("failed to create check-in for worker %s: %w", workerID, err)
	}

	r.logger.Info("Worker checked in", "day", day, "worker_id", workerID, "element_id", elementID)
	return checkin, nil
}

// CheckIn binds the worker for the current day.
func (r *Registry) CheckIn(ctx context.Context, workerID, elementID, fullName string) (models.DailyCheckin, error) {
	return r.Bind(ctx, r.CurrentDay(), workerID, elementID, fullName)
}

// ListForDay returns the day's bindings in insertion order.
func (r *Registry) ListForDay(ctx context.Context, day string) ([]models.DailyCheckin, error) {
	checkins, err := r.store.ListCheckinsForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins for %s: %w", day, err)
	}
	if checkins == nil {
		checkins = []models.DailyCheckin{}
	}
	return checkins, nil
}

// ListToday returns the current day's bindings.
func (r *Registry) ListToday(ctx context.Context) ([]models.DailyCheckin, error) {
	return r.ListForDay(ctx, r.CurrentDay())
}

// ConflictMessage renders a binding conflict the way the check-in desk shows it.
func ConflictMessage(err error, workerID, elementID string) string {
	switch {
	case errors.Is(err, models.ErrWorkerAlreadyBound):
		return fmt.Sprintf("Worker %s already checked in today.", workerID)
	case errors.Is(err, models.ErrElementAlreadyBound):
		return fmt.Sprintf("Element ID %s is already taken today.", elementID)
	}
	return ""
}
