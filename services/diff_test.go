package services

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-monitor/models"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *DiffEngine {
	return NewDiffEngine(newTestParser(), newTestLogger())
}

func newTestDirectory() *LocationDirectory {
	return NewLocationDirectory(map[string]string{
		"1": "Attleboro",
		"3": "Boston",
		"5": "Braintree",
		"7": "Brockton",
	}, newTestLogger())
}

func snap(id, raw string) models.LocationSnapshot {
	return models.LocationSnapshot{ID: id, EarliestAvailable: raw}
}

// seeded keeps prior non-empty so the incremental rules run.
func seeded(entries map[string]string) models.State {
	s := models.State{"99": "Fri Dec 20, 2024"}
	for k, v := range entries {
		s[k] = v
	}
	return s
}

func eventFor(t *testing.T, events []models.NotificationEvent, id string) models.NotificationEvent {
	t.Helper()
	for _, ev := range events {
		if ev.LocationID == id {
			return ev
		}
	}
	t.Fatalf("no event for location %s in %+v", id, events)
	return models.NotificationEvent{}
}

func TestEvaluateExpiredReplaced(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{"5": "Mon Jan 01, 2024, 09:00 AM"})

	next, events := e.Evaluate([]models.LocationSnapshot{snap("5", "Mon Jun 10, 2024, 10:30 AM")}, prior, testNow, newTestDirectory())

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, models.EventExpiredReplaced, ev.Kind)
	assert.Equal(t, "Braintree", ev.LocationName)
	assert.Equal(t, "Mon Jan 01, 2024, 09:00 AM", ev.Previous)
	assert.Equal(t, "Mon Jun 10, 2024, 10:30 AM", next["5"])
	require.NotNil(t, ev.TimeDeltaHours)
	assert.InDelta(t, 161*24+1.5, *ev.TimeDeltaHours, 1e-9)
	assert.True(t, ev.Kind.Notifies())
}

func TestEvaluateLapsedTakesPrecedence(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{"5": "Mon Jan 01, 2024"})

	next, events := e.Evaluate([]models.LocationSnapshot{snap("5", "Sun Dec 31, 2023")}, prior, testNow, newTestDirectory())

	ev := eventFor(t, events, "5")
	assert.Equal(t, models.EventExpiredReplaced, ev.Kind)
	assert.Equal(t, "Sun Dec 31, 2023", next["5"])
	require.NotNil(t, ev.TimeDeltaHours)
	assert.InDelta(t, -24, *ev.TimeDeltaHours, 1e-9)
}

func TestEvaluateInitialPopulation(t *testing.T) {
	e := newTestEngine()

	next, events := e.Evaluate([]models.LocationSnapshot{snap("7", "Tue Jul 02, 2024")}, models.State{}, testNow, newTestDirectory())

	require.Len(t, events, 1)
	assert.Equal(t, models.EventInitialPopulation, events[0].Kind)
	assert.Nil(t, events[0].TimeDeltaHours)
	assert.Empty(t, events[0].Previous)
	assert.False(t, events[0].Kind.Notifies())
	if diff := cmp.Diff(models.State{"7": "Tue Jul 02, 2024"}, next); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateBootstrapSkipsIncrementalRules(t *testing.T) {
	e := newTestEngine()
	snapshots := []models.LocationSnapshot{
		snap("1", "Mon Jun 10, 2024, 10:30 AM"),
		snap("3", models.NoAppointments),
		snap("5", models.LocationNotAvailable),
		snap("7", "garbage"),
	}

	next, events := e.Evaluate(snapshots, nil, testNow, newTestDirectory())

	require.Len(t, events, 1)
	assert.Equal(t, models.EventInitialPopulation, events[0].Kind)
	assert.Equal(t, "1", events[0].LocationID)
	if diff := cmp.Diff(models.State{"1": "Mon Jun 10, 2024, 10:30 AM"}, next); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateUnavailablePreservesState(t *testing.T) {
	e := newTestEngine()

	t.Run("with prior", func(t *testing.T) {
		prior := models.State{"3": "Wed Aug 14, 2024"}
		next, events := e.Evaluate([]models.LocationSnapshot{snap("3", models.LocationNotAvailable)}, prior, testNow, newTestDirectory())

		assert.Empty(t, events)
		assert.Equal(t, "Wed Aug 14, 2024", next["3"])
	})

	t.Run("without prior", func(t *testing.T) {
		prior := seeded(nil)
		next, events := e.Evaluate([]models.LocationSnapshot{snap("3", models.LocationNotAvailable)}, prior, testNow, newTestDirectory())

		assert.Empty(t, events)
		_, ok := next["3"]
		assert.False(t, ok)
	})
}

func TestEvaluateNoAppointmentWithoutPrior(t *testing.T) {
	e := newTestEngine()
	prior := seeded(nil)

	next, events := e.Evaluate([]models.LocationSnapshot{snap("1", models.NoDateFound)}, prior, testNow, newTestDirectory())

	assert.Empty(t, events)
	if diff := cmp.Diff(prior, next); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}
}

func TestEvaluateNoAppointmentWithPriorIsNoChange(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{"1": "Mon Jun 10, 2024"})

	next, events := e.Evaluate([]models.LocationSnapshot{snap("1", models.NoAppointments)}, prior, testNow, newTestDirectory())

	ev := eventFor(t, events, "1")
	assert.Equal(t, models.EventNoChange, ev.Kind)
	assert.Equal(t, "Mon Jun 10, 2024", next["1"])
}

func TestEvaluateFirstAppointment(t *testing.T) {
	e := newTestEngine()
	prior := seeded(nil)

	next, events := e.Evaluate([]models.LocationSnapshot{snap("1", "Mon Jun 3, 2024, 9:05 AM")}, prior, testNow, newTestDirectory())

	ev := eventFor(t, events, "1")
	assert.Equal(t, models.EventFirstAppointment, ev.Kind)
	assert.Nil(t, ev.TimeDeltaHours)
	assert.Equal(t, "Attleboro", ev.LocationName)
	assert.Equal(t, "Mon Jun 03, 2024, 09:05 AM", next["1"])
	assert.Equal(t, "Mon, Jun 03, 2024 at 09:05 AM", ev.Display)
}

func TestEvaluateEarlierAppointment(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{"1": "Fri Jun 14, 2024"})

	next, events := e.Evaluate([]models.LocationSnapshot{snap("1", "Mon Jun 10, 2024, 10:30 AM")}, prior, testNow, newTestDirectory())

	ev := eventFor(t, events, "1")
	assert.Equal(t, models.EventEarlierAppointment, ev.Kind)
	require.NotNil(t, ev.TimeDeltaHours)
	assert.InDelta(t, 85.5, *ev.TimeDeltaHours, 1e-9)
	assert.Greater(t, *ev.TimeDeltaHours, 0.0)
	assert.Equal(t, "Mon Jun 10, 2024, 10:30 AM", next["1"])
}

func TestEvaluateNewAvailability(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{"1": "Mon Jun 10, 2024"})

	next, events := e.Evaluate([]models.LocationSnapshot{snap("1", "Mon Jun 17, 2024, 09:00 AM")}, prior, testNow, newTestDirectory())

	ev := eventFor(t, events, "1")
	assert.Equal(t, models.EventNewAvailability, ev.Kind)
	require.NotNil(t, ev.TimeDeltaHours)
	assert.InDelta(t, 177, *ev.TimeDeltaHours, 1e-9)
	assert.Equal(t, "Mon Jun 17, 2024, 09:00 AM", next["1"])
}

func TestEvaluateUnparseablePriorCountsAsFirst(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{"1": "corrupted"})

	next, events := e.Evaluate([]models.LocationSnapshot{snap("1", "Mon Jun 10, 2024")}, prior, testNow, newTestDirectory())

	ev := eventFor(t, events, "1")
	assert.Equal(t, models.EventFirstAppointment, ev.Kind)
	assert.Equal(t, "corrupted", ev.Previous)
	assert.Nil(t, ev.TimeDeltaHours)
	assert.Equal(t, "Mon Jun 10, 2024", next["1"])
}

func TestEvaluateDateOnlyStaysDateOnly(t *testing.T) {
	e := newTestEngine()
	prior := seeded(nil)

	next, events := e.Evaluate([]models.LocationSnapshot{snap("7", "Tue Jul 2, 2024")}, prior, testNow, newTestDirectory())

	ev := eventFor(t, events, "7")
	assert.False(t, ev.HasTimeOfDay)
	assert.Equal(t, "Tue Jul 02, 2024", next["7"])
	assert.Equal(t, "Tue, Jul 02, 2024", ev.Display)
	assert.NotContains(t, ev.Display, "at")
}

func TestEvaluateIdempotent(t *testing.T) {
	e := newTestEngine()
	snapshots := []models.LocationSnapshot{
		snap("1", "Mon Jun 10, 2024, 10:30 AM"),
		snap("3", "Tue Jul 02, 2024"),
		snap("5", models.NoAppointments),
		snap("7", models.LocationNotAvailable),
	}

	first, _ := e.Evaluate(snapshots, seeded(nil), testNow, newTestDirectory())
	second, events := e.Evaluate(snapshots, first, testNow, newTestDirectory())

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("state changed on second run (-first +second):\n%s", diff)
	}
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, models.EventNoChange, ev.Kind, ev.LocationID)
	}
}

func TestEvaluateDoesNotModifyPrior(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{"1": "Fri Jun 14, 2024"})

	_, _ = e.Evaluate([]models.LocationSnapshot{snap("1", "Mon Jun 10, 2024")}, prior, testNow, newTestDirectory())

	assert.Equal(t, "Fri Jun 14, 2024", prior["1"])
}

func TestEvaluateNameFallbacks(t *testing.T) {
	e := newTestEngine()
	snapshots := []models.LocationSnapshot{
		{ID: "40", DisplayName: "Worcester", EarliestAvailable: "Mon Jun 10, 2024"},
		{ID: "41", EarliestAvailable: "Mon Jun 10, 2024"},
	}

	_, events := e.Evaluate(snapshots, seeded(nil), testNow, newTestDirectory())

	assert.Equal(t, "Worcester", eventFor(t, events, "40").LocationName)
	assert.Equal(t, "ID-41", eventFor(t, events, "41").LocationName)
}

func TestEvaluateRecoversPerLocation(t *testing.T) {
	broken := NewDiffEngine(nil, newTestLogger())
	prior := seeded(map[string]string{"1": "Fri Jun 14, 2024"})

	var (
		next   models.State
		events []models.NotificationEvent
	)
	assert.NotPanics(t, func() {
		next, events = broken.Evaluate([]models.LocationSnapshot{snap("1", "Mon Jun 10, 2024"), snap("3", "Mon Jun 10, 2024")}, prior, testNow, nil)
	})
	assert.Empty(t, events)
	if diff := cmp.Diff(prior, next); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}
}

func TestEvaluateGarbageDoesNotAffectNeighbours(t *testing.T) {
	e := newTestEngine()
	prior := seeded(map[string]string{
		"1": "corrupted",
		"3": "Fri Jun 14, 2024",
		"5": "not a date",
	})
	snapshots := []models.LocationSnapshot{
		snap("1", "garbage"),
		snap("3", "Mon Jun 10, 2024"),
		snap("5", "Tue Jun 11, 2024"),
	}

	next, events := e.Evaluate(snapshots, prior, testNow, newTestDirectory())

	boston := eventFor(t, events, "3")
	assert.Equal(t, models.EventEarlierAppointment, boston.Kind)
	require.NotNil(t, boston.TimeDeltaHours)
	assert.InDelta(t, 96, *boston.TimeDeltaHours, 1e-9)

	braintree := eventFor(t, events, "5")
	assert.Equal(t, models.EventFirstAppointment, braintree.Kind)
	assert.Equal(t, "not a date", braintree.Previous)

	assert.Equal(t, models.EventNoChange, eventFor(t, events, "1").Kind)

	want := models.State{
		"1":  "corrupted",
		"3":  "Mon Jun 10, 2024",
		"5":  "Tue Jun 11, 2024",
		"99": "Fri Dec 20, 2024",
	}
	if diff := cmp.Diff(want, next); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyOrder(t *testing.T) {
	p := newTestParser()
	past := p.Parse("Mon Jan 01, 2024")
	future := p.Parse("Mon Jun 10, 2024")
	later := p.Parse("Mon Jun 17, 2024")
	none := p.Parse(models.NoAppointments)
	offline := p.Parse(models.LocationNotAvailable)

	tests := []struct {
		name     string
		current  models.ParsedDate
		prior    models.ParsedDate
		hasPrior bool
		want     models.EventKind
	}{
		{"offline with prior", offline, future, true, ""},
		{"offline without prior", offline, models.ParsedDate{}, false, ""},
		{"none without prior", none, models.ParsedDate{}, false, ""},
		{"lapsed prior, later current", later, past, true, models.EventExpiredReplaced},
		{"later current", later, future, true, models.EventNewAvailability},
		{"earlier current", future, later, true, models.EventEarlierAppointment},
		{"no prior", future, models.ParsedDate{}, false, models.EventFirstAppointment},
		{"equal", future, future, true, models.EventNoChange},
		{"none with prior", none, future, true, models.EventNoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.current, tt.prior, tt.hasPrior, testNow)
			assert.Equal(t, tt.want, got.kind)
		})
	}
}
