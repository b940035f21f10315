package config

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/screen"
)

// MonitorConfig is the per-tick view of the configuration.
type MonitorConfig struct {
	Enabled             bool
	PollIntervalSeconds int
	Notify              bool
	Mapping             map[screen.Context]actionkey.Key
}

// PollInterval returns the interval as a duration.
func (m MonitorConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

// Key returns the key mapped to ctx, or the empty key.
func (m MonitorConfig) Key(ctx screen.Context) actionkey.Key {
	if m.Mapping == nil {
		return actionkey.None
	}
	return m.Mapping[ctx]
}

// Store holds the live configuration. Reloads swap the document; readers take
// a fresh snapshot every time.
type Store struct {
	mu  sync.RWMutex
	cfg *Config

	suppressed atomic.Bool
}

// NewStore returns a store seeded with cfg (defaults when nil).
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: cfg}
}

// Config returns a copy of the current document.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *s.cfg
	return &cp
}

// Set replaces the document. A document that shows notifications lifts any
// suppression recorded at runtime.
func (s *Store) Set(cfg *Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	if cfg.ShowNotifications {
		s.suppressed.Store(false)
	}
}

// Snapshot builds a fresh MonitorConfig from the current document.
func (s *Store) Snapshot() MonitorConfig {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()
	return MonitorConfig{
		Enabled:             cfg.Enabled,
		PollIntervalSeconds: ClampPollingSeconds(cfg.PollingSeconds),
		Notify:              cfg.ShowNotifications && !s.suppressed.Load(),
		Mapping:             cfg.Mapping(),
	}
}

// Enabled reports whether monitoring is switched on.
func (s *Store) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Enabled
}

// PollingSeconds returns the clamped polling interval.
func (s *Store) PollingSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ClampPollingSeconds(s.cfg.PollingSeconds)
}

// NotificationsEnabled reports whether notifications should be shown.
func (s *Store) NotificationsEnabled() bool {
	s.mu.RLock()
	show := s.cfg.ShowNotifications
	s.mu.RUnlock()
	return show && !s.suppressed.Load()
}

// SuppressNotifications records the "don't show again" choice for the rest
// of the process or until notifications are re-enabled.
func (s *Store) SuppressNotifications() {
	s.suppressed.Store(true)
}

// SetNotifications toggles notifications at runtime. Turning them on also
// forces showNotifications in the live document.
func (s *Store) SetNotifications(on bool) {
	if !on {
		s.suppressed.Store(true)
		return
	}
	s.mu.Lock()
	if !s.cfg.ShowNotifications {
		cp := *s.cfg
		cp.ShowNotifications = true
		s.cfg = &cp
	}
	s.mu.Unlock()
	s.suppressed.Store(false)
}

// Suppressed reports whether notifications are muted at runtime.
func (s *Store) Suppressed() bool {
	return s.suppressed.Load()
}

// SetEnabled toggles monitoring in the live document.
func (s *Store) SetEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.cfg
	cp.Enabled = on
	s.cfg = &cp
}
