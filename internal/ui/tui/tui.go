// Package tui renders a live status dashboard from the daemon's control socket.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/hyprpal/autolayout/internal/control/client"
	"github.com/hyprpal/autolayout/internal/layout"
	"github.com/hyprpal/autolayout/internal/monitor"
	"github.com/hyprpal/autolayout/internal/screen"
)

const (
	defaultRefresh = time.Second
	idWidth        = 40
	historyRows    = 10
)

var (
	borderColor = lipgloss.Color("#363646")
	mutedColor  = lipgloss.Color("#727169")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7E9CD8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#98BB6C"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF9E3B"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5D62"))
)

// Renderer periodically polls the daemon and renders a textual dashboard.
type Renderer struct {
	Client  *client.Client
	Writer  io.Writer
	Refresh time.Duration
}

// New returns a renderer configured with sensible defaults.
func New(cli *client.Client, w io.Writer) *Renderer {
	return &Renderer{Client: cli, Writer: w, Refresh: defaultRefresh}
}

// Run starts the render loop until the context is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Writer == nil {
		r.Writer = os.Stdout
	}
	if r.Client == nil {
		return fmt.Errorf("tui renderer requires a control client")
	}

	refresh := r.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	fmt.Fprint(r.Writer, "\033[?25l")
	defer fmt.Fprint(r.Writer, "\033[?25h")

	r.render(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.render(ctx)
		}
	}
}

func (r *Renderer) render(ctx context.Context) {
	status, err := r.Client.Status(ctx)

	var buf bytes.Buffer
	buf.WriteString("\033[H\033[2J")
	buf.WriteString(titleStyle.Render("autolayout status"))
	buf.WriteString(mutedStyle.Render("  Ctrl+C to exit"))
	buf.WriteByte('\n')
	buf.WriteString(time.Now().Format(time.RFC1123))
	buf.WriteString("\n\n")

	if err != nil {
		buf.WriteString(errStyle.Render(fmt.Sprintf("error: %v", err)))
		buf.WriteByte('\n')
		fmt.Fprint(r.Writer, buf.String())
		return
	}
	buf.WriteString(Render(status))
	fmt.Fprint(r.Writer, buf.String())
}

// Render formats a status payload.
func Render(status client.Status) string {
	var b strings.Builder
	b.WriteString(renderSummary(status))
	b.WriteString("\n\n")
	b.WriteString(renderMapping(status.Mapping, status.Context))
	b.WriteString("\n\n")
	b.WriteString(renderDisplays(status.Observation))
	b.WriteString("\n\n")
	b.WriteString(renderHistory(status.History))
	b.WriteByte('\n')
	return b.String()
}

func renderSummary(status client.Status) string {
	var lines []string
	monitorState := okStyle.Render("running")
	if !status.Running {
		monitorState = warnStyle.Render("paused")
	}
	if !status.Enabled {
		monitorState += mutedStyle.Render(" (disabled in config)")
	}
	lines = append(lines, fmt.Sprintf("Monitor:       %s every %ds", monitorState, status.IntervalSeconds))

	current := mutedStyle.Render("(not observed yet)")
	if status.Context != nil {
		current = titleStyle.Render(status.Context.DisplayName())
	}
	lines = append(lines, "Context:       "+current)

	notifications := okStyle.Render("on")
	switch {
	case status.Suppressed:
		notifications = warnStyle.Render("muted")
	case !status.Notifications:
		notifications = mutedStyle.Render("off")
	}
	lines = append(lines, "Notifications: "+notifications)
	if status.DryRun {
		lines = append(lines, "Mode:          "+warnStyle.Render("dry run"))
	}
	q := status.Queue
	lines = append(lines, fmt.Sprintf("Queue:         %d pending, %d applied, %d failed", q.Pending, q.Applied, q.Failed))
	return strings.Join(lines, "\n")
}

func renderMapping(mapping []client.MappingEntry, current *screen.Context) string {
	rows := make([][]string, 0, len(mapping))
	for _, m := range mapping {
		name := m.Context.DisplayName()
		if current != nil && *current == m.Context {
			name = "* " + name
		}
		key := m.Key
		if key == "" {
			key = "<Do nothing>"
		}
		label := m.Label
		if !m.Resolved {
			label = errStyle.Render("unavailable")
		}
		rows = append(rows, []string{name, key, label})
	}
	return section("Mapping", newTable("Context", "Key", "Action").Rows(rows...).String())
}

func renderDisplays(obs *monitor.Observation) string {
	if obs == nil {
		return section("Displays", mutedStyle.Render("  waiting for first detection"))
	}
	if obs.Error != "" {
		return section("Displays", errStyle.Render("  "+obs.Error))
	}
	rows := make([][]string, 0, len(obs.Topology.Displays))
	for _, d := range obs.Topology.Displays {
		kind := "external"
		if screen.IsLaptopLike(d) {
			kind = "laptop"
		}
		active := ""
		if c := obs.Topology.ActiveCenter; c != nil && d.Bounds.Contains(*c) {
			active = "*"
		}
		rows = append(rows, []string{active + truncate(d.ID, idWidth), fmt.Sprintf("%dx%d", d.Width, d.Height), formatRect(d.Bounds), kind})
	}
	t := newTable("Display", "Mode", "Bounds", "Kind").Rows(rows...)
	return section(fmt.Sprintf("Displays (%s)", obs.Context.DisplayName()), t.String())
}

func renderHistory(history []monitor.Transition) string {
	if len(history) == 0 {
		return section("Transitions", mutedStyle.Render("  (none)"))
	}
	if len(history) > historyRows {
		history = history[len(history)-historyRows:]
	}
	rows := make([][]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		from := "-"
		if h.From != nil {
			from = h.From.Slug()
		}
		status := string(h.Status)
		switch h.Status {
		case monitor.StatusApplied:
			status = okStyle.Render(status)
		case monitor.StatusFailed, monitor.StatusUnresolved, monitor.StatusNoSession:
			status = errStyle.Render(status)
		}
		if h.Error != "" {
			status += " " + mutedStyle.Render(truncate(h.Error, idWidth))
		}
		rows = append(rows, []string{h.At.Format("15:04:05"), from + " -> " + h.To.Slug(), h.Key.Encode(), status})
	}
	return section("Transitions", newTable("Time", "Change", "Key", "Status").Rows(rows...).String())
}

func newTable(headers ...string) *ltable.Table {
	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func section(title, body string) string {
	return titleStyle.Render(title) + "\n" + body
}

func formatRect(rect layout.Rect) string {
	return fmt.Sprintf("%.0fx%.0f @ %.0f,%.0f", rect.Width, rect.Height, rect.X, rect.Y)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
