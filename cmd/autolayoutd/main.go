package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hyprpal/autolayout/internal/actions"
	"github.com/hyprpal/autolayout/internal/applier"
	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/control"
	"github.com/hyprpal/autolayout/internal/dispatch"
	"github.com/hyprpal/autolayout/internal/ipc"
	"github.com/hyprpal/autolayout/internal/layout"
	"github.com/hyprpal/autolayout/internal/layouts"
	"github.com/hyprpal/autolayout/internal/metrics"
	"github.com/hyprpal/autolayout/internal/monitor"
	"github.com/hyprpal/autolayout/internal/notify"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/util"
)

type options struct {
	configPath string
	logLevel   string
	dryRun     bool
	dispatch   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "autolayoutd",
		Short:         "Switch Hyprland layouts when the display setup changes",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "path to YAML config")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "log dispatches instead of sending them")
	flags.StringVar(&opts.dispatch, "dispatch", "", "dispatch strategy (socket|hyprctl); overrides the config")
	return cmd
}

func run(parent context.Context, opts options) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := util.NewLogger(util.ParseLogLevel(opts.logLevel))

	cfgPath, err := filepath.Abs(opts.configPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	cfgPath = filepath.Clean(cfgPath)
	cfg, raw, err := loadInitialConfig(cfgPath, logger)
	if err != nil {
		return err
	}

	strategy, err := selectStrategy(opts.dispatch, cfg.Dispatch)
	if err != nil {
		return err
	}
	hypr, strategy, err := ipc.NewHypr(logger, strategy)
	if err != nil {
		return fmt.Errorf("configure dispatch strategy: %w", err)
	}
	logger.Infof("using %s dispatch strategy", strategy)
	if opts.dryRun {
		logger.Infof("dry run: dispatches are logged, not sent")
		hypr = hypr.WithDispatcher(layout.DryRunDispatcher{Logger: logger})
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	store := config.NewStore(cfg)
	collector := metrics.NewCollector(cfg.Telemetry.Enabled)

	layoutsPath := cfg.ResolveLayoutsFile(cfgPath)
	layoutStore, err := layouts.Open(layoutsPath)
	if err != nil {
		return fmt.Errorf("open layouts: %w", err)
	}
	layoutStore.SetSharedProfiles(cfg.Profiles)
	manager := layouts.NewManager(layoutStore, hypr, hypr, logger)
	logger.Infof("loaded %d layout(s) from %s", len(layoutStore.Names()), layoutsPath)

	registry := actions.NewRegistry(hypr, hypr, logger)
	registry.Configure(cfg.Actions)
	cat := catalog.New(registry, layoutStore)

	notifier := notify.NewHyprland(hypr, store, logger, time.Duration(cfg.NotificationTimeoutMs)*time.Millisecond)
	queue := applier.New(logger)
	dispatcher := dispatch.New(dispatch.Deps{
		Resolver: cat,
		Actions:  registry,
		Layouts:  manager,
		Session: func(ctx context.Context) (layouts.Session, error) {
			return layouts.ActiveSession(ctx, hypr)
		},
		Queue:    queue,
		Notifier: notifier,
		Metrics:  collector,
		Logger:   logger,
	})
	scheduler := monitor.New(ctx, monitor.Deps{
		Config:     store,
		Topology:   screen.NewHyprProvider(hypr),
		Dispatcher: dispatcher,
		Metrics:    collector,
		Logger:     logger,
	})
	dispatcher.OnComplete(scheduler.Complete)

	reloader := newConfigReloader(cfgPath, logger, store, raw)
	reloader.actions = registry
	reloader.layouts = layoutStore
	reloader.metrics = collector
	reloader.notifier = notifier
	reloader.scheduler = scheduler

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()
	targets := map[string]string{cfgPath: reloadConfig, filepath.Clean(layoutsPath): reloadLayouts}
	for target := range targets {
		if err := watcher.Add(filepath.Dir(target)); err != nil {
			logger.Debugf("unable to watch %s: %v", filepath.Dir(target), err)
		}
	}
	reloadRequests := make(chan string, len(targets))
	go watchFiles(logger, watcher, targets, reloadRequests)

	ctrlSrv, err := control.NewServer(control.Deps{
		Config:     store,
		Scheduler:  scheduler,
		Catalog:    cat,
		Layouts:    manager,
		Dispatcher: dispatcher,
		Queue:      queue,
		Metrics:    collector,
		Reload:     reloader.Reload,
		DryRun:     opts.dryRun,
	}, logger)
	if err != nil {
		return fmt.Errorf("start control server: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	errs := make(chan error, 2)
	go func() {
		errs <- queue.Run(ctx)
	}()
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()
	scheduler.Start()
	defer scheduler.Dispose()

	for {
		select {
		case err := <-errs:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("daemon exited: %w", err)
			}
			logger.Infof("daemon stopped")
			return nil
		case target := <-reloadRequests:
			switch target {
			case reloadConfig:
				if err := reloader.Reload("config file updated"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			case reloadLayouts:
				if err := layoutStore.Reload(); err != nil {
					logger.Errorf("reload layouts failed: %v", err)
					continue
				}
				logger.Infof("layouts reloaded (%d)", len(layoutStore.Names()))
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if err := reloader.Reload("received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				scheduler.Dispose()
				cancel()
			}
		}
	}
}

// loadInitialConfig reads the config at path. A missing file yields defaults.
func loadInitialConfig(path string, logger *util.Logger) (*config.Config, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Infof("no config at %s, using defaults", path)
			return config.Default(), nil, nil
		}
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	for _, warn := range cfg.Warnings() {
		logger.Warnf("config: %s", warn.Error())
	}
	return cfg, raw, nil
}

func selectStrategy(flagValue, configValue string) (ipc.DispatchStrategy, error) {
	value := strings.ToLower(strings.TrimSpace(flagValue))
	if value == "" {
		value = strings.ToLower(strings.TrimSpace(configValue))
	}
	if value == "" {
		return ipc.DispatchStrategySocket, nil
	}
	strategy := ipc.DispatchStrategy(value)
	switch strategy {
	case ipc.DispatchStrategySocket, ipc.DispatchStrategyHyprctl:
		return strategy, nil
	default:
		return "", fmt.Errorf("unsupported dispatch strategy %q", value)
	}
}

const (
	reloadConfig  = "config"
	reloadLayouts = "layouts"
)

// watchFiles debounces writes to the watched targets and requests a reload
// of the matching kind once the burst settles.
func watchFiles(logger *util.Logger, watcher *fsnotify.Watcher, targets map[string]string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending = map[string]bool{}
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			kind, watched := targets[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending[kind] = true
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			for kind := range pending {
				select {
				case reloadRequests <- kind:
				default:
				}
				delete(pending, kind)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}
