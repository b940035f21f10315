package metrics

import (
	"sync"
	"time"

	"github.com/hyprpal/autolayout/internal/screen"
)

// Collector aggregates in-memory counters per screen context. Nothing is
// persisted.
type Collector struct {
	mu       sync.RWMutex
	enabled  bool
	started  time.Time
	contexts map[screen.Context]*ContextMetrics
}

// ContextMetrics captures the counters tracked for one screen context.
type ContextMetrics struct {
	Context        screen.Context `json:"context"`
	Transitions    uint64         `json:"transitions"`
	Queued         uint64         `json:"queued"`
	Applied        uint64         `json:"applied"`
	Failed         uint64         `json:"failed"`
	Unresolved     uint64         `json:"unresolved"`
	NoSession      uint64         `json:"noSession"`
	LastTransition time.Time      `json:"lastTransition,omitempty"`
	LastApplied    time.Time      `json:"lastApplied,omitempty"`
	LastFailed     time.Time      `json:"lastFailed,omitempty"`
}

// Totals aggregates counters across all contexts in a snapshot.
type Totals struct {
	Transitions uint64 `json:"transitions"`
	Applied     uint64 `json:"applied"`
	Failed      uint64 `json:"failed"`
	Unresolved  uint64 `json:"unresolved"`
	NoSession   uint64 `json:"noSession"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled  bool             `json:"enabled"`
	Started  time.Time        `json:"started,omitempty"`
	Totals   Totals           `json:"totals"`
	Contexts []ContextMetrics `json:"contexts,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.contexts = nil
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.contexts = make(map[screen.Context]*ContextMetrics)
}

// RecordTransition counts a detected context change.
func (c *Collector) RecordTransition(ctx screen.Context) {
	c.update(ctx, func(m *ContextMetrics, now time.Time) {
		m.Transitions++
		m.LastTransition = now
	})
}

// RecordQueued counts a command handed to the apply queue.
func (c *Collector) RecordQueued(ctx screen.Context) {
	c.update(ctx, func(m *ContextMetrics, _ time.Time) { m.Queued++ })
}

// RecordApplied counts a command that completed successfully.
func (c *Collector) RecordApplied(ctx screen.Context) {
	c.update(ctx, func(m *ContextMetrics, now time.Time) {
		m.Applied++
		m.LastApplied = now
	})
}

// RecordFailed counts a command that returned an error or panicked.
func (c *Collector) RecordFailed(ctx screen.Context) {
	c.update(ctx, func(m *ContextMetrics, now time.Time) {
		m.Failed++
		m.LastFailed = now
	})
}

// RecordUnresolved counts a key that matched neither a layout nor an action.
func (c *Collector) RecordUnresolved(ctx screen.Context) {
	c.update(ctx, func(m *ContextMetrics, _ time.Time) { m.Unresolved++ })
}

// RecordNoSession counts a layout request without an active session.
func (c *Collector) RecordNoSession(ctx screen.Context) {
	c.update(ctx, func(m *ContextMetrics, _ time.Time) { m.NoSession++ })
}

func (c *Collector) update(ctx screen.Context, mutate func(*ContextMetrics, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.contexts == nil {
		c.contexts = make(map[screen.Context]*ContextMetrics)
	}
	metrics, exists := c.contexts[ctx]
	if !exists {
		metrics = &ContextMetrics{Context: ctx}
		c.contexts[ctx] = metrics
	}
	mutate(metrics, now)
}

// Snapshot returns the current counters for serialization or display.
// Contexts are listed in declaration order.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	for _, sc := range screen.All {
		metrics, ok := c.contexts[sc]
		if !ok || metrics == nil {
			continue
		}
		clone := *metrics
		snap.Contexts = append(snap.Contexts, clone)
		snap.Totals.Transitions += clone.Transitions
		snap.Totals.Applied += clone.Applied
		snap.Totals.Failed += clone.Failed
		snap.Totals.Unresolved += clone.Unresolved
		snap.Totals.NoSession += clone.NoSession
	}
	return snap
}
