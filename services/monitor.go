package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"appointment-monitor/models"
	"appointment-monitor/notify"
	"appointment-monitor/storage"
	"appointment-monitor/utils"
)

// Fetcher returns the current availability of the given locations.
type Fetcher interface {
	Fetch(ctx context.Context, ids []string) ([]models.LocationSnapshot, error)
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	LocationIDs []string
	Destination string
	Footer      string
	Interval    time.Duration
	RateLimitMs int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Monitor drives check cycles: fetch, classify, persist, record, notify.
// Only one cycle runs at a time.
type Monitor struct {
	fetcher Fetcher
	cleaner *Cleaner
	engine  *DiffEngine
	store   storage.StateStore
	dir     *LocationDirectory
	sink    notify.Sink
	session *Session
	metrics utils.Metrics
	logger  *utils.Logger
	opts    MonitorOptions

	cycleMu sync.Mutex
	state   models.State
}

// MonitorDeps groups the collaborators of a Monitor.
type MonitorDeps struct {
	Fetcher   Fetcher
	Engine    *DiffEngine
	Store     storage.StateStore
	Directory *LocationDirectory
	Sink      notify.Sink
	Session   *Session
	Metrics   utils.Metrics
	Logger    *utils.Logger
}

// NewMonitor loads the persisted state and returns a ready Monitor.
func NewMonitor(deps MonitorDeps, opts MonitorOptions) (*Monitor, error) {
	state, err := deps.Store.LoadState()
	if err != nil {
		return nil, fmt.Errorf("monitor: load state: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = utils.NewMetrics(false)
	}
	if deps.Session == nil {
		deps.Session = NewSession(deps.Logger, deps.Metrics)
	}
	return &Monitor{
		fetcher: deps.Fetcher,
		cleaner: NewCleaner(deps.Logger),
		engine:  deps.Engine,
		store:   deps.Store,
		dir:     deps.Directory,
		sink:    deps.Sink,
		session: deps.Session,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		opts:    opts,
		state:   state,
	}, nil
}

// State returns a copy of the in-memory state.
func (m *Monitor) State() models.State {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.state.Clone()
}

// RunCycle performs one complete check. An empty fetch leaves the state
// untouched. Panics are converted into errors.
func (m *Monitor) RunCycle(ctx context.Context) (err error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor: cycle panicked: %v\n%s", r, debug.Stack())
		}
		m.metrics.ObserveCycleDuration(time.Since(start))
		if err != nil {
			m.metrics.IncCycles("error")
		}
	}()

	check := m.session.BeginCycle()
	m.logger.Info("--- Running appointment check #%d ---", check)

	snapshots, err := m.fetcher.Fetch(ctx, m.opts.LocationIDs)
	if err != nil {
		return fmt.Errorf("monitor: fetch: %w", err)
	}
	if len(snapshots) == 0 {
		m.logger.Warn("[monitor] Could not fetch live appointment data.")
		m.metrics.IncCycles("empty")
		return nil
	}

	snapshots = m.cleaner.Clean(snapshots, m.opts.LocationIDs)
	next, events := m.engine.Evaluate(snapshots, m.state, m.opts.Now(), m.dir)

	m.state = next
	if err := m.store.SaveState(next); err != nil {
		m.logger.Error("[monitor] Could not save state: %v", err)
	}
	m.metrics.SetTrackedLocations(len(next))

	m.session.Track(ctx, events)
	m.deliver(ctx, events)

	m.metrics.IncCycles("ok")
	return nil
}

// deliver sends notifying events through a rate-limited pool. Send
// failures are logged; they never fail the cycle.
func (m *Monitor) deliver(ctx context.Context, events []models.NotificationEvent) {
	pool := utils.NewWorkerPool(1, m.opts.RateLimitMs)
	for _, ev := range events {
		if !ev.Kind.Notifies() {
			continue
		}
		message := notify.FormatMessage(ev, m.opts.Footer)
		m.logger.Info("[monitor] Preparing notification for %s (ID: %s): %s", ev.LocationName, ev.LocationID, message)

		pool.Submit(func() {
			if err := m.sink.Send(ctx, m.opts.Destination, message); err != nil {
				m.logger.Error("[monitor] Error sending notification: %v", err)
				m.metrics.IncNotifications("error")
				return
			}
			m.metrics.IncNotifications("sent")
		})
	}
	pool.Wait()
}

// Run performs a check immediately and then on every interval until ctx is
// cancelled. Cycle errors are logged and the schedule continues.
func (m *Monitor) Run(ctx context.Context) error {
	if m.opts.Interval <= 0 {
		return errors.New("monitor: interval must be positive")
	}

	job := cron.FuncJob(func() { m.runLogged(ctx) })
	c := cron.New(cron.WithChain(
		cron.Recover(m.logger.CronLogger()),
		cron.SkipIfStillRunning(m.logger.CronLogger()),
	))
	if _, err := c.AddJob("@every "+m.opts.Interval.String(), job); err != nil {
		return fmt.Errorf("monitor: schedule: %w", err)
	}

	m.runLogged(ctx)
	if ctx.Err() != nil {
		return nil
	}

	m.logger.Info("[monitor] Next check in %v", m.opts.Interval)
	c.Start()
	<-ctx.Done()

	m.logger.Info("[monitor] Shutting down, waiting for running check")
	<-c.Stop().Done()
	return nil
}

func (m *Monitor) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := m.RunCycle(ctx); err != nil {
		m.logger.Error("[monitor] An unexpected error occurred in the main loop: %v", err)
	}
}
