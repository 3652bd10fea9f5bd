package models

import "time"

// DayLayout is the calendar-date format used for check-in days.
const DayLayout = "2006-01-02"

// DailyCheckin binds one worker to one element for a single day.
type DailyCheckin struct {
	ID        string    `json:"id"`
	Day       string    `json:"day"`
	WorkerID  string    `json:"worker_id"`
	ElementID string    `json:"element_id"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}
