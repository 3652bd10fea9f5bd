// Package dayclock resolves the business "day" in a fixed time zone.
package dayclock

import (
	"fmt"
	"time"

	"github.com/coreybb/thermowatch/models"
)

// DefaultTimezone is the zone check-in days are anchored to.
const DefaultTimezone = "Africa/Lagos"

// LocalTimeLayout is the time-of-day format shown on the dashboard.
const LocalTimeLayout = "15:04:05"

// Clock converts wall-clock time into the configured location.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Clock for loc. A nil now uses time.Now.
func New(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

// Load creates a Clock for the named IANA zone.
func Load(name string) (*Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return New(loc, nil), nil
}

// Location returns the configured location.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in UTC.
func (c *Clock) Now() time.Time {
	return c.now().UTC()
}

// Today returns the current calendar date in the configured location.
func (c *Clock) Today() string {
	return c.DayOf(c.now())
}

// DayOf returns the calendar date of t in the configured location.
func (c *Clock) DayOf(t time.Time) string {
	return t.In(c.loc).Format(models.DayLayout)
}

// LocalTimeOfDay renders t as a local time-of-day string.
func (c *Clock) LocalTimeOfDay(t time.Time) string {
	return t.In(c.loc).Format(LocalTimeLayout)
}

// ValidDay reports whether day is a well-formed calendar date.
func ValidDay(day string) bool {
	_, err := time.Parse(models.DayLayout, day)
	return err == nil
}
