package services

import (
	"context"
	"errors"
	"sync"

	"appointment-monitor/models"
	"appointment-monitor/storage"
	"appointment-monitor/utils"
)

// Session is the tracking context of one monitor run. It numbers check
// cycles and hands every event to the configured recorders. It is opened
// once at startup and must be closed on every exit path.
type Session struct {
	recorders []storage.EventRecorder
	metrics   utils.Metrics
	logger    *utils.Logger

	mu          sync.Mutex
	checkNumber int
	closed      bool
}

// NewSession creates a session writing to recorders. metrics may be nil.
func NewSession(logger *utils.Logger, metrics utils.Metrics, recorders ...storage.EventRecorder) *Session {
	if metrics == nil {
		metrics = utils.NewMetrics(false)
	}
	return &Session{recorders: recorders, metrics: metrics, logger: logger}
}

// BeginCycle advances and returns the check number.
func (s *Session) BeginCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkNumber++
	return s.checkNumber
}

// CheckNumber returns the number of the current cycle.
func (s *Session) CheckNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkNumber
}

// Track records events, including no_change and initial_population.
// Recorder failures are logged and never interrupt the cycle.
func (s *Session) Track(ctx context.Context, events []models.NotificationEvent) {
	if len(events) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("[session] Dropping %d events: session closed", len(events))
		return
	}

	tracked := make([]models.TrackedEvent, 0, len(events))
	for _, ev := range events {
		s.metrics.IncEvents(string(ev.Kind))
		tracked = append(tracked, models.NewTrackedEvent(ev, s.checkNumber))
	}

	for _, rec := range s.recorders {
		if err := rec.Record(ctx, tracked); err != nil {
			s.logger.Error("[session] Error recording events: %v", err)
			continue
		}
	}
	s.logger.Debug("[session] Recorded %d events for check %d", len(tracked), s.checkNumber)
}

// Close closes every recorder once. Later calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, rec := range s.recorders {
		if err := rec.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info("[session] Tracking session closed after %d checks", s.checkNumber)
	return errors.Join(errs...)
}
