package models

import "errors"

var (
	// ErrWorkerAlreadyBound is returned when the worker already has a check-in for the day.
	ErrWorkerAlreadyBound = errors.New("worker already bound for day")
	// ErrElementAlreadyBound is returned when the element is already taken for the day.
	ErrElementAlreadyBound = errors.New("element already bound for day")
)
