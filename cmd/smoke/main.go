package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/actions"
	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/ipc"
	"github.com/hyprpal/autolayout/internal/layouts"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/state"
	"github.com/hyprpal/autolayout/internal/util"
)

// recorder collects dispatches instead of sending them.
type recorder struct {
	commands [][]string
}

func (r *recorder) Dispatch(args ...string) error {
	r.commands = append(r.commands, append([]string(nil), args...))
	return nil
}

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "path to YAML config")
	logLevel := flag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	contextName := flag.String("context", "", "evaluate this context instead of the detected one (laptop|single|multi)")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			exitErr(fmt.Errorf("load config: %w", err))
		}
		logger.Warnf("no config at %s, using defaults", *cfgPath)
		cfg = config.Default()
	}

	client := ipc.NewClient()
	rec := &recorder{}

	layoutsPath := cfg.ResolveLayoutsFile(*cfgPath)
	store, err := layouts.Open(layoutsPath)
	if err != nil {
		exitErr(fmt.Errorf("open layouts: %w", err))
	}
	store.SetSharedProfiles(cfg.Profiles)
	manager := layouts.NewManager(store, client, rec, logger)
	registry := actions.NewRegistry(client, rec, logger)
	registry.Configure(cfg.Actions)
	cat := catalog.New(registry, store)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	fmt.Printf("Loaded config from %s\n", *cfgPath)
	fmt.Println("\n=== Configuration ===")
	if err := marshalYAML(cfg); err != nil {
		logger.Warnf("failed to print config: %v", err)
	}

	topo, err := screen.NewHyprProvider(client).CurrentTopology(ctx)
	if err != nil {
		exitErr(fmt.Errorf("capture topology: %w", err))
	}
	fmt.Println("\n=== Topology ===")
	if err := marshalJSON(topo); err != nil {
		logger.Warnf("failed to print topology: %v", err)
	}

	world, err := state.NewWorld(ctx, client)
	if err != nil {
		exitErr(fmt.Errorf("snapshot world: %w", err))
	}
	fmt.Printf("\nWorld: %d client(s), %d workspace(s), %d monitor(s)\n", len(world.Clients), len(world.Workspaces), len(world.Monitors))
	if mon := world.ActiveMonitor(); mon != nil {
		fmt.Printf("Active monitor: %s (workspace %d)\n", mon.Identity(), world.ActiveWorkspaceID)
	}

	sc := screen.Classify(topo)
	if *contextName != "" {
		if sc, err = screen.ParseContext(*contextName); err != nil {
			exitErr(err)
		}
	}
	fmt.Printf("\nContext: %s (%s)\n", sc.DisplayName(), sc)
	fmt.Printf("Layouts in %s: %s\n", layoutsPath, strings.Join(store.Names(), ", "))

	key := cfg.Mapping()[sc]
	if key.IsEmpty() {
		fmt.Println("\nNothing mapped; no commands would be sent.")
		return
	}
	ref, err := cat.Resolve(key)
	if err != nil {
		exitErr(err)
	}
	fmt.Printf("Key %s resolves to %s\n", key.Encode(), ref.Label)

	switch ref.Kind {
	case actionkey.NamedLayout:
		session, err := layouts.ActiveSession(ctx, client)
		if err != nil {
			exitErr(err)
		}
		fmt.Printf("Session: workspace %d on %s\n", session.WorkspaceID, session.Monitor)
		err = manager.Activate(ctx, ref.Name, session)
		if err != nil {
			exitErr(fmt.Errorf("plan layout: %w", err))
		}
	default:
		if err := registry.Invoke(ctx, ref.Name, sc); err != nil {
			exitErr(fmt.Errorf("plan action: %w", err))
		}
	}

	if len(rec.commands) == 0 {
		fmt.Println("\nNo planned commands for current snapshot.")
		return
	}
	fmt.Println("\n=== Planned Commands ===")
	for _, cmd := range rec.commands {
		fmt.Printf("dispatch: %s\n", formatCommand(cmd))
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func marshalYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func marshalJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func formatCommand(parts []string) string {
	return strings.Join(parts, " ")
}

