package models

import "time"

// Sentinel phrases the booking site shows instead of a date.
const (
	NoAppointments       = "No Appointments"
	NoDateFound          = "No Date Found"
	LocationNotAvailable = "Location Not Available"
)

// Location is one entry of the full location catalog.
type Location struct {
	ID          string `json:"id"`
	DisplayName string `json:"service_center"`
}

// LocationSnapshot holds one location's availability as read from the site.
// EarliestAvailable is kept verbatim: a date, a date with time, or a sentinel.
type LocationSnapshot struct {
	ID                string
	DisplayName       string
	EarliestAvailable string
}

// State maps a location id to the last recorded canonical availability string.
type State map[string]string

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// DateStatus tells whether a ParsedDate carries a usable date.
type DateStatus int

const (
	// DateNone means no appointment was found, or the string could not be parsed.
	DateNone DateStatus = iota
	// DateUnavailable means the location is temporarily offline.
	DateUnavailable
	// DateConcrete means Time holds the appointment.
	DateConcrete
)

// ParsedDate is the normalized form of a raw availability string.
type ParsedDate struct {
	Status       DateStatus
	Time         time.Time
	HasTimeOfDay bool
}

// IsConcrete reports whether the value carries a date.
func (p ParsedDate) IsConcrete() bool {
	return p.Status == DateConcrete
}

// EventKind classifies the outcome of comparing a location against its state.
type EventKind string

const (
	EventFirstAppointment   EventKind = "first_appointment"
	EventEarlierAppointment EventKind = "earlier_appointment"
	EventExpiredReplaced    EventKind = "expired_replaced"
	EventNewAvailability    EventKind = "new_availability"
	EventNoChange           EventKind = "no_change"
	EventInitialPopulation  EventKind = "initial_population"
)

// Notifies reports whether events of this kind are pushed to the user.
// no_change and initial_population are only tracked.
func (k EventKind) Notifies() bool {
	switch k {
	case EventFirstAppointment, EventEarlierAppointment, EventExpiredReplaced, EventNewAvailability:
		return true
	default:
		return false
	}
}

// NotificationEvent is produced by the diff engine for one location.
type NotificationEvent struct {
	Kind         EventKind
	LocationID   string
	LocationName string

	// Previous is the recorded value before this cycle, empty when there was none.
	Previous string
	// Current is the canonical value observed this cycle.
	Current      string
	CurrentTime  time.Time
	HasTimeOfDay bool

	// TimeDeltaHours is nil when there is no previous date to compare with.
	TimeDeltaHours *float64

	// Display is the human readable rendering of Current.
	Display    string
	ObservedAt time.Time
}
