package models

import "time"

// RecordedAtLayout renders UTC timestamps with an explicit Z marker.
const RecordedAtLayout = "2006-01-02T15:04:05.999999Z"

// Reading is one timestamped temperature observation for an element.
// RecordedAt is always UTC.
type Reading struct {
	ID           int64     `json:"id"`
	ElementID    string    `json:"element_id"`
	TemperatureC float64   `json:"temperature_c"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// RecordedAtUTC formats RecordedAt the way API responses expose it.
func (r Reading) RecordedAtUTC() string {
	return r.RecordedAt.UTC().Format(RecordedAtLayout)
}
