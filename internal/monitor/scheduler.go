// Package monitor polls the display topology and dispatches the mapped action
// whenever the screen context changes.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/dispatch"
	"github.com/hyprpal/autolayout/internal/metrics"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/util"
)

// InitialDelay is the wait before the first tick of every run.
const InitialDelay = 2 * time.Second

// ConfigSource provides a fresh configuration view per tick.
type ConfigSource interface {
	Snapshot() config.MonitorConfig
}

// Executor runs the action mapped to a context.
type Executor interface {
	Execute(ctx context.Context, req dispatch.Request) dispatch.Result
}

// Deps are the collaborators of a Scheduler.
type Deps struct {
	Config     ConfigSource
	Topology   screen.Provider
	Dispatcher Executor
	Metrics    *metrics.Collector
	Logger     *util.Logger
}

// run is one scheduled task. Cancelling it stops future ticks only.
type run struct {
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
	started  time.Time
}

// Observation is the result of the latest detection.
type Observation struct {
	At       time.Time       `json:"at"`
	Topology screen.Topology `json:"topology"`
	Context  screen.Context  `json:"context"`
	Error    string          `json:"error,omitempty"`
}

// Scheduler owns the recurring poll. Start and Stop are safe for concurrent
// use; at most one run is live at a time.
type Scheduler struct {
	root context.Context
	deps Deps

	initialDelay time.Duration
	handle       atomic.Pointer[run]

	// tickMu serialises tick bodies, including a tick of a replaced run that
	// is still finishing.
	tickMu       sync.Mutex
	lastObserved *screen.Context

	mu          sync.RWMutex
	observation *Observation
	history     *history
}

// New returns a stopped scheduler. root is the process lifetime: once it is
// done Start becomes a no-op, and in-flight ticks run under it.
func New(root context.Context, deps Deps) *Scheduler {
	return &Scheduler{
		root:         root,
		deps:         deps,
		initialDelay: InitialDelay,
		history:      newHistory(historyLimit),
	}
}

// Start cancels any scheduled task and schedules a new one using the polling
// interval read now. It reports whether a task was scheduled.
func (s *Scheduler) Start() bool {
	if s.root.Err() != nil {
		return false
	}
	interval := time.Duration(config.ClampPollingSeconds(s.deps.Config.Snapshot().PollIntervalSeconds)) * time.Second
	ctx, cancel := context.WithCancel(s.root)
	next := &run{cancel: cancel, done: make(chan struct{}), interval: interval, started: time.Now()}
	if prev := s.handle.Swap(next); prev != nil {
		prev.cancel()
	}
	go s.loop(ctx, next)
	s.infof("monitor started (interval %s)", interval)
	return true
}

// Stop cancels the scheduled task. It is idempotent.
func (s *Scheduler) Stop() {
	if prev := s.handle.Swap(nil); prev != nil {
		prev.cancel()
		s.infof("monitor stopped")
	}
}

// Dispose is the teardown hook. The scheduler may be started again later.
func (s *Scheduler) Dispose() {
	s.Stop()
}

// Running reports whether a task is scheduled.
func (s *Scheduler) Running() bool {
	return s.handle.Load() != nil
}

// Interval returns the interval of the scheduled task, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	if r := s.handle.Load(); r != nil {
		return r.interval
	}
	return 0
}

func (s *Scheduler) loop(ctx context.Context, r *run) {
	defer close(r.done)
	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.tick()
		timer.Reset(r.interval)
	}
}

// tick runs one detection cycle under the process context.
func (s *Scheduler) tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	ctx := s.root
	snap := s.deps.Config.Snapshot()
	if !snap.Enabled {
		s.tracef("tick skipped: disabled")
		return
	}
	obs := s.observe(ctx)
	current := obs.Context
	if s.lastObserved != nil && *s.lastObserved == current {
		s.tracef("tick: %s unchanged", current)
		return
	}
	prev := s.lastObserved
	s.lastObserved = &current
	s.transition(ctx, prev, current, snap)
}

func (s *Scheduler) observe(ctx context.Context) Observation {
	obs := Observation{At: time.Now()}
	topo, err := s.deps.Topology.CurrentTopology(ctx)
	if err != nil {
		s.warnf("topology unavailable, assuming %s: %v", screen.LaptopOnly, err)
		obs.Context = screen.LaptopOnly
		obs.Error = err.Error()
	} else {
		obs.Topology = topo
		obs.Context = screen.Classify(topo)
	}
	s.mu.Lock()
	s.observation = &obs
	s.mu.Unlock()
	return obs
}

func (s *Scheduler) transition(ctx context.Context, prev *screen.Context, current screen.Context, snap config.MonitorConfig) {
	key := snap.Key(current)
	entry := Transition{ID: uuid.New(), At: time.Now(), To: current, Key: key, Status: StatusDispatching}
	if prev != nil {
		from := *prev
		entry.From = &from
		s.infof("screen context changed %s -> %s", from, current)
	} else {
		s.infof("screen context is %s", current)
	}
	s.history.add(entry)
	s.deps.Metrics.RecordTransition(current)

	res := s.deps.Dispatcher.Execute(ctx, dispatch.Request{ID: entry.ID, Key: key, Context: current})
	s.history.update(entry.ID, func(t *Transition) {
		if t.Status != StatusDispatching {
			// completion already recorded
			return
		}
		t.Status = statusFor(res.Outcome)
		if res.Err != nil {
			t.Error = res.Err.Error()
		}
		if res.Outcome != dispatch.OutcomeQueued {
			t.Finished = time.Now()
		}
	})
}

func statusFor(o dispatch.Outcome) TransitionStatus {
	switch o {
	case dispatch.OutcomeSkipped:
		return StatusSkipped
	case dispatch.OutcomeUnresolved:
		return StatusUnresolved
	case dispatch.OutcomeNoSession:
		return StatusNoSession
	default:
		return StatusQueued
	}
}

// Complete records the asynchronous end of a dispatched transition. It is
// meant to be registered with dispatch.Dispatcher.OnComplete.
func (s *Scheduler) Complete(c dispatch.Completion) {
	s.history.update(c.ID, func(t *Transition) {
		t.Finished = time.Now()
		if c.Err != nil {
			t.Status = StatusFailed
			t.Error = c.Err.Error()
			return
		}
		t.Status = StatusApplied
	})
}

// Detect samples and classifies the topology without touching the debounce
// state.
func (s *Scheduler) Detect(ctx context.Context) Observation {
	obs := Observation{At: time.Now()}
	topo, err := s.deps.Topology.CurrentTopology(ctx)
	if err != nil {
		obs.Context = screen.LaptopOnly
		obs.Error = err.Error()
		return obs
	}
	obs.Topology = topo
	obs.Context = screen.Classify(topo)
	return obs
}

// LastObservation returns the latest tick's detection, if any.
func (s *Scheduler) LastObservation() *Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.observation == nil {
		return nil
	}
	cp := *s.observation
	return &cp
}

// LastContext returns the debounced context, if one was observed.
func (s *Scheduler) LastContext() (screen.Context, bool) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.lastObserved == nil {
		return screen.LaptopOnly, false
	}
	return *s.lastObserved, true
}

// History returns the retained transitions, oldest first.
func (s *Scheduler) History() []Transition {
	return s.history.snapshot()
}

func (s *Scheduler) infof(format string, args ...any) {
	if s.deps.Logger != nil {
		s.deps.Logger.Infof(format, args...)
	}
}

func (s *Scheduler) warnf(format string, args ...any) {
	if s.deps.Logger != nil {
		s.deps.Logger.Warnf(format, args...)
	}
}

func (s *Scheduler) tracef(format string, args ...any) {
	if s.deps.Logger != nil {
		s.deps.Logger.Tracef(format, args...)
	}
}
