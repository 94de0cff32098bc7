package models

import "time"

// TrackedEvent is the flattened form of a NotificationEvent kept in the
// event history. Weekday, Hour and Month describe the observation time.
type TrackedEvent struct {
	ID             int64
	CheckNumber    int
	Kind           EventKind
	LocationID     string
	LocationName   string
	Previous       string
	Current        string
	TimeDeltaHours *float64
	Weekday        string
	Hour           int
	Month          string
	ObservedAt     time.Time
}

// NewTrackedEvent flattens ev for the given check cycle.
func NewTrackedEvent(ev NotificationEvent, checkNumber int) TrackedEvent {
	return TrackedEvent{
		CheckNumber:    checkNumber,
		Kind:           ev.Kind,
		LocationID:     ev.LocationID,
		LocationName:   ev.LocationName,
		Previous:       ev.Previous,
		Current:        ev.Current,
		TimeDeltaHours: ev.TimeDeltaHours,
		Weekday:        ev.ObservedAt.Weekday().String(),
		Hour:           ev.ObservedAt.Hour(),
		Month:          ev.ObservedAt.Month().String(),
		ObservedAt:     ev.ObservedAt,
	}
}
