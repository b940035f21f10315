package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/control/client"
	"github.com/hyprpal/autolayout/internal/ui/tui"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globals struct {
	socket  string
	timeout time.Duration
	json    bool
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "alctl",
		Short:         "Control the autolayout daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.socket, "socket", "", "path to autolayout control socket")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 3*time.Second, "control request timeout")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "print raw JSON payloads")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show monitor state, mapping and recent transitions",
			Args:  cobra.NoArgs,
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, _ []string) error {
				status, err := cli.Status(ctx)
				if err != nil {
					return err
				}
				if g.json {
					return printJSON(cmd.OutOrStdout(), status)
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "detect",
			Short: "Sample the display topology without switching",
			Args:  cobra.NoArgs,
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, _ []string) error {
				obs, err := cli.Detect(ctx)
				if err != nil {
					return err
				}
				if g.json {
					return printJSON(cmd.OutOrStdout(), obs)
				}
				printObservation(cmd.OutOrStdout(), obs)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "choices",
			Short: "List the keys each context can be mapped to",
			Args:  cobra.NoArgs,
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, _ []string) error {
				choices, err := cli.Choices(ctx)
				if err != nil {
					return err
				}
				if g.json {
					return printJSON(cmd.OutOrStdout(), choices)
				}
				printChoices(cmd.OutOrStdout(), choices)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "reload",
			Short: "Trigger a live config reload",
			Args:  cobra.NoArgs,
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, _ []string) error {
				if err := cli.Reload(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reload requested")
				return nil
			}),
		},
		&cobra.Command{
			Use:       "notify on|off",
			Short:     "Unmute or mute notifications",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"on", "off"},
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, args []string) error {
				var on bool
				switch strings.ToLower(args[0]) {
				case "on":
					on = true
				case "off":
				default:
					return fmt.Errorf("notify expects on or off, got %q", args[0])
				}
				if err := cli.SetNotifications(ctx, on); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Notifications %s\n", args[0])
				return nil
			}),
		},
		newLayoutCommand(g),
		newRunCommand(g),
		&cobra.Command{
			Use:   "pause",
			Short: "Stop polling until resumed",
			Args:  cobra.NoArgs,
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, _ []string) error {
				if _, err := cli.Pause(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Monitor paused")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "resume",
			Short: "Restart polling",
			Args:  cobra.NoArgs,
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, _ []string) error {
				state, err := cli.Resume(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Monitor running every %ds\n", state.IntervalSeconds)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "tui",
			Short: "Launch the live status dashboard",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cli, err := client.New(g.socket)
				if err != nil {
					return fmt.Errorf("create client: %w", err)
				}
				return runTUI(cli, cmd.OutOrStdout())
			},
		},
		newCheckCommand(),
	)
	return root
}

func newRunCommand(g *globals) *cobra.Command {
	var screenContext string
	cmd := &cobra.Command{
		Use:   "run KEY",
		Short: "Dispatch a key now (e.g. namedLayout:Focus or RestoreDefaultLayout)",
		Args:  cobra.ExactArgs(1),
		RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, args []string) error {
			res, err := cli.Run(ctx, args[0], screenContext)
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s for %s", res.Outcome, res.Context.DisplayName())
			if res.Reference != nil {
				fmt.Fprintf(out, ": %s", res.Reference.Label)
			}
			if res.Error != "" {
				fmt.Fprintf(out, " (%s)", res.Error)
			}
			fmt.Fprintln(out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&screenContext, "context", "", "screen context to report (laptop|single|multi)")
	return cmd
}

func newLayoutCommand(g *globals) *cobra.Command {
	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Manage named layouts",
	}
	layoutCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved layouts",
			Args:  cobra.NoArgs,
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, _ []string) error {
				names, err := cli.Layouts(ctx)
				if err != nil {
					return err
				}
				if g.json {
					return printJSON(cmd.OutOrStdout(), names)
				}
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No layouts saved")
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "save NAME",
			Short: "Save the current window arrangement as a layout",
			Args:  cobra.ExactArgs(1),
			RunE: g.withClient(func(ctx context.Context, cmd *cobra.Command, cli *client.Client, args []string) error {
				summary, err := cli.SaveLayout(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved layout %s (%d placement(s)); map it as namedLayout:%s\n", summary.Name, summary.Placements, summary.Name)
				return nil
			}),
		},
	)
	return layoutCmd
}

func newCheckCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				configPath = config.DefaultPath()
			}
			return runCheck(configPath, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to configuration file (default: user config)")
	return cmd
}

type clientFunc func(ctx context.Context, cmd *cobra.Command, cli *client.Client, args []string) error

func (g *globals) withClient(fn clientFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cli, err := client.New(g.socket)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return fn(ctx, cmd, cli, args)
	}
}

func runCheck(path string, stdout io.Writer, stderr io.Writer) error {
	lintErrs, warns, err := config.LintFile(path)
	if err != nil {
		return err
	}
	for _, warn := range warns {
		fmt.Fprintf(stderr, "warning: %s\n", warn.Error())
	}
	if len(lintErrs) == 0 {
		fmt.Fprintln(stdout, "Configuration OK")
		return nil
	}

	fmt.Fprintf(stderr, "Configuration has %d issue(s):\n", len(lintErrs))
	for _, lintErr := range lintErrs {
		fmt.Fprintf(stderr, "- %s\n", lintErr.Error())
	}
	return fmt.Errorf("configuration validation failed")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(w io.Writer, status client.Status) {
	state := "running"
	if !status.Running {
		state = "paused"
	}
	if !status.Enabled {
		state += " (disabled in config)"
	}
	fmt.Fprintf(w, "Monitor: %s, every %ds\n", state, status.IntervalSeconds)
	if status.Context != nil {
		fmt.Fprintf(w, "Context: %s\n", status.Context.DisplayName())
	} else {
		fmt.Fprintln(w, "Context: (not observed yet)")
	}
	notifications := "on"
	switch {
	case status.Suppressed:
		notifications = "muted"
	case !status.Notifications:
		notifications = "off"
	}
	fmt.Fprintf(w, "Notifications: %s\n", notifications)
	if status.DryRun {
		fmt.Fprintln(w, "Dry run: dispatches are logged only")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Context\tKey\tAction")
	for _, m := range status.Mapping {
		key := m.Key
		if key == "" {
			key = "<Do nothing>"
		}
		label := m.Label
		if !m.Resolved {
			label = "(unavailable)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Context.DisplayName(), key, label)
	}
	tw.Flush()

	if len(status.History) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Time\tChange\tKey\tStatus")
	for _, h := range status.History {
		from := "-"
		if h.From != nil {
			from = h.From.Slug()
		}
		result := string(h.Status)
		if h.Error != "" {
			result += ": " + h.Error
		}
		fmt.Fprintf(tw, "%s\t%s -> %s\t%s\t%s\n", h.At.Format("15:04:05"), from, h.To.Slug(), h.Key.Encode(), result)
	}
	tw.Flush()
}

func printObservation(w io.Writer, obs client.Observation) {
	fmt.Fprintf(w, "Context: %s\n", obs.Context.DisplayName())
	if obs.Error != "" {
		fmt.Fprintf(w, "Detection failed: %s\n", obs.Error)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Display\tMode\tBounds")
	for _, d := range obs.Topology.Displays {
		b := d.Bounds
		fmt.Fprintf(tw, "%s\t%dx%d\t%.0fx%.0f @ %.0f,%.0f\n", d.ID, d.Width, d.Height, b.Width, b.Height, b.X, b.Y)
	}
	tw.Flush()
	if c := obs.Topology.ActiveCenter; c != nil {
		fmt.Fprintf(w, "Active window centre: %.0f,%.0f\n", c.X, c.Y)
	}
}

func printChoices(w io.Writer, choices client.Choices) {
	for i, opt := range choices.Options {
		value := opt.Value
		if value == "" {
			value = `""`
		}
		fmt.Fprintf(w, "%2d  %-32s %s\n", i, value, opt.Label)
	}
	fmt.Fprintln(w)
	for _, sel := range choices.Selections {
		label := "?"
		if sel.Selected >= 0 && sel.Selected < len(choices.Options) {
			label = choices.Options[sel.Selected].Label
		}
		fmt.Fprintf(w, "%s: %s\n", sel.Context.DisplayName(), label)
	}
}

func runTUI(cli *client.Client, w io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	renderer := tui.New(cli, w)
	if err := renderer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
