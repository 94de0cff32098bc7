package models

import "time"

// StatusRow describes the recorded availability of one monitored location.
type StatusRow struct {
	ID       string
	Name     string
	Recorded string
	Lapsed   bool
	// HoursUntil is nil when nothing concrete is recorded.
	HoursUntil *float64
}

// StatusReport summarises the persisted state for the status command.
type StatusReport struct {
	GeneratedAt time.Time
	Rows        []StatusRow
	Tracked     int
	Lapsed      int
	Earliest    *StatusRow
}
