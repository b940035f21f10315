package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyprpal/autolayout/internal/control/client"
	"github.com/hyprpal/autolayout/internal/layout"
	"github.com/hyprpal/autolayout/internal/monitor"
	"github.com/hyprpal/autolayout/internal/screen"
)

func TestRenderIncludesSections(t *testing.T) {
	single := screen.SingleExternal
	laptop := screen.LaptopOnly
	status := client.Status{
		Enabled:         true,
		Running:         true,
		IntervalSeconds: 4,
		Notifications:   true,
		Context:         &single,
		Mapping: []client.MappingEntry{
			{Context: screen.LaptopOnly, Resolved: true},
			{Context: screen.SingleExternal, Key: "namedLayout:Focus", Label: "Focus", Resolved: true},
			{Context: screen.MultiExternal, Key: "Gone"},
		},
		Observation: &monitor.Observation{
			Context: screen.SingleExternal,
			Topology: screen.Topology{
				Displays: []screen.Display{
					{ID: "eDP-1 Built-in Display", Width: 2560, Height: 1600, Bounds: layout.Rect{Width: 1280, Height: 800}},
					{ID: "DP-1 Dell U2720Q", Width: 3840, Height: 2160, Bounds: layout.Rect{X: 1280, Width: 2560, Height: 1440}},
				},
				ActiveCenter: &layout.Point{X: 2000, Y: 400},
			},
		},
		History: []monitor.Transition{
			{At: time.Now(), From: &laptop, To: screen.SingleExternal, Status: monitor.StatusApplied},
		},
	}

	out := Render(status)
	for _, want := range []string{
		"Single external display",
		"<Do nothing>",
		"namedLayout:Focus",
		"unavailable",
		"*DP-1 Dell U2720Q",
		"laptop",
		"laptop -> single",
		"applied",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderWithoutObservation(t *testing.T) {
	out := Render(client.Status{IntervalSeconds: 4, Suppressed: true})
	for _, want := range []string{"paused", "not observed yet", "muted", "waiting for first detection", "(none)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderDetectionError(t *testing.T) {
	out := renderDisplays(&monitor.Observation{Error: errors.New("hyprctl missing").Error()})
	if !strings.Contains(out, "hyprctl missing") {
		t.Fatalf("expected error in output: %s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected truncate result %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Fatalf("unexpected truncate result %q", got)
	}
}
