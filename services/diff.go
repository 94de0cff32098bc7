package services

import (
	"fmt"
	"runtime/debug"
	"time"

	"appointment-monitor/models"
	"appointment-monitor/utils"
)

// DiffEngine compares a fresh snapshot with the recorded state and decides
// what changed for every location.
type DiffEngine struct {
	parser *DateParser
	logger *utils.Logger
}

// NewDiffEngine creates a DiffEngine using parser for all date handling.
func NewDiffEngine(parser *DateParser, logger *utils.Logger) *DiffEngine {
	return &DiffEngine{parser: parser, logger: logger}
}

// classification is the outcome of the ordered rules for one location.
// An empty kind means the location is skipped: no event, no state change.
type classification struct {
	kind  models.EventKind
	delta *float64
}

func (c classification) skipped() bool {
	return c.kind == ""
}

func (c classification) mutatesState() bool {
	return !c.skipped() && c.kind != models.EventNoChange
}

// classify applies the decision rules in order; the first match wins.
//
//  1. current is the "unavailable" sentinel: skip, the prior value is kept.
//  2. current has no date and nothing is recorded: skip.
//  3. recorded date has lapsed and current has a date: expired_replaced.
//  4. current date is later than the recorded one: new_availability.
//  5. nothing usable recorded, or current is earlier: first/earlier_appointment.
//  6. otherwise: no_change.
func classify(current, prior models.ParsedDate, hasPrior bool, now time.Time) classification {
	if current.Status == models.DateUnavailable {
		return classification{}
	}
	if !current.IsConcrete() && !hasPrior {
		return classification{}
	}

	priorConcrete := hasPrior && prior.IsConcrete()

	if current.IsConcrete() && priorConcrete {
		switch {
		case prior.Time.Before(now):
			return classification{kind: models.EventExpiredReplaced, delta: hoursBetween(prior.Time, current.Time)}
		case current.Time.After(prior.Time):
			return classification{kind: models.EventNewAvailability, delta: hoursBetween(prior.Time, current.Time)}
		case current.Time.Before(prior.Time):
			return classification{kind: models.EventEarlierAppointment, delta: hoursBetween(current.Time, prior.Time)}
		}
	}

	// A recorded value that does not parse counts as no record at all.
	if current.IsConcrete() && !priorConcrete {
		return classification{kind: models.EventFirstAppointment}
	}

	return classification{kind: models.EventNoChange}
}

// hoursBetween returns (to - from) in hours.
func hoursBetween(from, to time.Time) *float64 {
	h := to.Sub(from).Hours()
	return &h
}

// Evaluate classifies every snapshot against prior and returns the new state
// together with the resulting events. prior is not modified.
//
// When prior is empty the incremental rules are skipped entirely: every
// location with a date is recorded and reported as initial_population.
func (e *DiffEngine) Evaluate(snapshots []models.LocationSnapshot, prior models.State, now time.Time, dir *LocationDirectory) (models.State, []models.NotificationEvent) {
	next := prior.Clone()
	events := make([]models.NotificationEvent, 0, len(snapshots))
	bootstrap := len(prior) == 0

	if bootstrap {
		e.logger.Info("[diff] State was empty. Populating with earliest available appointments.")
	}

	for _, snap := range snapshots {
		var (
			ev  *models.NotificationEvent
			err error
		)
		if bootstrap {
			ev, err = e.populate(snap, next, now, dir)
		} else {
			ev, err = e.evaluateOne(snap, prior, next, now, dir)
		}
		if err != nil {
			e.logger.Error("[diff] Skipping location %s: %v", snap.ID, err)
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}

	return next, events
}

func (e *DiffEngine) evaluateOne(snap models.LocationSnapshot, prior, next models.State, now time.Time, dir *LocationDirectory) (ev *models.NotificationEvent, err error) {
	defer recoverLocation(&err)

	name := e.nameFor(snap, dir)
	current := e.parser.Parse(snap.EarliestAvailable)
	previousRaw, hasPrior := prior[snap.ID]
	var previous models.ParsedDate
	if hasPrior {
		previous = e.parser.Parse(previousRaw)
	}

	c := classify(current, previous, hasPrior, now)
	if c.skipped() {
		if current.Status == models.DateUnavailable {
			e.logger.Info("[diff] Location %s (ID: %s) is currently not available. Preserving previous appointment data.", name, snap.ID)
		} else {
			e.logger.Info("[diff] No appointments found for %s (ID: %s).", name, snap.ID)
		}
		return nil, nil
	}

	event := e.newEvent(c.kind, snap, name, current, now)
	event.Previous = previousRaw
	event.TimeDeltaHours = c.delta

	if c.mutatesState() {
		next[snap.ID] = event.Current
	}

	switch c.kind {
	case models.EventExpiredReplaced:
		e.logger.Info("[diff] Last known appointment at %s has passed (was: %s). Updating state with new data: %s", name, previousRaw, event.Current)
	case models.EventNewAvailability:
		e.logger.Info("[diff] Location %s (ID: %s) became available again. Previous: %s, New: %s", name, snap.ID, previousRaw, event.Current)
	case models.EventFirstAppointment, models.EventEarlierAppointment:
		e.logger.Info("[diff] New earliest appointment at %s (ID: %s): %s", name, snap.ID, event.Current)
	case models.EventNoChange:
		e.logger.Info("[diff] No change for %s. Earliest is still %s", name, previousRaw)
	}
	return &event, nil
}

func (e *DiffEngine) populate(snap models.LocationSnapshot, next models.State, now time.Time, dir *LocationDirectory) (ev *models.NotificationEvent, err error) {
	defer recoverLocation(&err)

	current := e.parser.Parse(snap.EarliestAvailable)
	if !current.IsConcrete() {
		return nil, nil
	}

	name := e.nameFor(snap, dir)
	event := e.newEvent(models.EventInitialPopulation, snap, name, current, now)
	next[snap.ID] = event.Current
	e.logger.Info("[diff] Added %s to state: %s", name, event.Current)
	return &event, nil
}

func (e *DiffEngine) newEvent(kind models.EventKind, snap models.LocationSnapshot, name string, current models.ParsedDate, now time.Time) models.NotificationEvent {
	ev := models.NotificationEvent{
		Kind:         kind,
		LocationID:   snap.ID,
		LocationName: name,
		Current:      snap.EarliestAvailable,
		HasTimeOfDay: current.HasTimeOfDay,
		ObservedAt:   now,
	}
	if current.IsConcrete() {
		ev.Current = e.parser.Canonical(current)
		ev.CurrentTime = current.Time
		ev.Display = e.parser.Display(current)
	}
	return ev
}

// nameFor prefers the directory name, then the name shown on the page, then
// the "ID-<id>" fallback.
func (e *DiffEngine) nameFor(snap models.LocationSnapshot, dir *LocationDirectory) string {
	if name, ok := dir.Lookup(snap.ID); ok {
		return name
	}
	if snap.DisplayName != "" {
		return snap.DisplayName
	}
	return dir.Resolve(snap.ID)
}

func recoverLocation(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
	}
}
