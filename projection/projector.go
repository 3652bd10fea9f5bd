// Package projection joins today's check-ins with the latest reading per element.
package projection

import (
	"context"
	"fmt"

	"github.com/coreybb/thermowatch/dayclock"
	"github.com/coreybb/thermowatch/models"
)

// WorkerLatest is the newest reading attributed to a worker.
// Both fields are nil when the bound element has no readings.
type WorkerLatest struct {
	TemperatureC  *float64 `json:"temperature_c"`
	RecordedLocal *string  `json:"recorded_local"`
}

// CheckinLister lists check-ins for a day.
type CheckinLister interface {
	ListForDay(ctx context.Context, day string) ([]models.DailyCheckin, error)
}

// LatestReader resolves the newest reading for an element.
type LatestReader interface {
	Latest(ctx context.Context, elementID string) (*models.Reading, error)
}

// Projector is read-only over the registry and the store.
type Projector struct {
	checkins CheckinLister
	readings LatestReader
	clock    *dayclock.Clock
}

func NewProjector(checkins CheckinLister, readings LatestReader, clock *dayclock.Clock) *Projector {
	return &Projector{checkins: checkins, readings: readings, clock: clock}
}

// ProjectToday maps each worker checked in today to their latest reading.
func (p *Projector) ProjectToday(ctx context.Context) (map[string]WorkerLatest, error) {
	return p.ProjectDay(ctx, p.clock.Today())
}

// ProjectDay maps each worker checked in on day to their latest reading.
func (p *Projector) ProjectDay(ctx context.Context, day string) (map[string]WorkerLatest, error) {
	checkins, err := p.checkins.ListForDay(ctx, day)
	if err != nil {
		return nil, err
	}

	result := make(map[string]WorkerLatest, len(checkins))
	for _, c := range checkins {
		latest, err := p.readings.Latest(ctx, c.ElementID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest reading for element %s: %w", c.ElementID, err)
		}
		if latest == nil {
			result[c.WorkerID] = WorkerLatest{}
			continue
		}
		temp := latest.TemperatureC
		local := p.clock.LocalTimeOfDay(latest.RecordedAt)
		result[c.WorkerID] = WorkerLatest{TemperatureC: &temp, RecordedLocal: &local}
	}
	return result, nil
}
