package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/util"
)

// Scheduler is restarted when the polling interval changes.
type Scheduler interface {
	Start() bool
	Running() bool
}

// ActionConfigurer rebuilds the action registry.
type ActionConfigurer interface {
	Configure(cfgs []config.ActionConfig)
}

// LayoutStore receives shared matcher profiles and is re-read on reload.
type LayoutStore interface {
	Path() string
	Reload() error
	SetSharedProfiles(p config.MatcherProfiles)
}

// MetricsToggle switches telemetry.
type MetricsToggle interface {
	SetEnabled(enabled bool)
}

// NotifyTimeout updates the notification display time.
type NotifyTimeout interface {
	SetTimeout(d time.Duration)
}

type configReloader struct {
	mu sync.Mutex

	path      string
	logger    *util.Logger
	store     *config.Store
	actions   ActionConfigurer
	layouts   LayoutStore
	metrics   MetricsToggle
	notifier  NotifyTimeout
	scheduler Scheduler

	lastConfig     *config.Config
	lastSerialized []byte
}

func newConfigReloader(path string, logger *util.Logger, store *config.Store, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		store:          store,
		lastConfig:     store.Config(),
		lastSerialized: append([]byte(nil), serialized...),
	}
}

// Reload re-reads the config file and applies it. A rejected document leaves
// the running configuration untouched.
func (r *configReloader) Reload(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
		r.logger.Warnf("config %s not found, using defaults", r.path)
		raw = nil
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		r.logDiff(raw)
		return err
	}
	if lintErrs := cfg.Lint(); len(lintErrs) > 0 {
		r.logLintErrors(lintErrs)
		r.logDiff(raw)
		return lintErrs[0]
	}
	for _, warn := range cfg.Warnings() {
		r.logger.Warnf("config: %s", warn.Error())
	}
	r.apply(cfg)
	r.lastConfig = cfg
	r.lastSerialized = append([]byte(nil), raw...)
	return nil
}

func (r *configReloader) apply(cfg *config.Config) {
	prev := r.lastConfig
	if r.actions != nil {
		r.actions.Configure(cfg.Actions)
	}
	if r.layouts != nil {
		r.layouts.SetSharedProfiles(cfg.Profiles)
		if want := cfg.ResolveLayoutsFile(r.path); want != r.layouts.Path() {
			r.logger.Warnf("layoutsFile changed to %s; restart to switch files", want)
		}
		if err := r.layouts.Reload(); err != nil {
			r.logger.Warnf("reload layouts: %v", err)
		}
	}
	if r.metrics != nil {
		r.metrics.SetEnabled(cfg.Telemetry.Enabled)
	}
	if r.notifier != nil {
		r.notifier.SetTimeout(time.Duration(cfg.NotificationTimeoutMs) * time.Millisecond)
	}
	if prev != nil && prev.Dispatch != cfg.Dispatch {
		r.logger.Warnf("dispatch strategy changed to %q; restart to apply", cfg.Dispatch)
	}

	prevInterval := r.store.PollingSeconds()
	r.store.Set(cfg)
	next := config.ClampPollingSeconds(cfg.PollingSeconds)
	if r.scheduler != nil && r.scheduler.Running() && next != prevInterval {
		r.logger.Infof("polling interval changed %ds -> %ds, restarting monitor", prevInterval, next)
		r.scheduler.Start()
	}
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}

func (r *configReloader) logLintErrors(errs []config.LintError) {
	r.logger.Warnf("config validation failed with %d issue(s):", len(errs))
	for _, lintErr := range errs {
		if lintErr.Path != "" {
			r.logger.Warnf(" - %s: %s", lintErr.Path, lintErr.Message)
			continue
		}
		r.logger.Warnf(" - %s", lintErr.Message)
	}
}
