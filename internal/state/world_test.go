package state

import (
	"context"
	"testing"

	"github.com/hyprpal/autolayout/internal/layout"
)

type fakeSource struct {
	clients    []Client
	workspaces []Workspace
	monitors   []Monitor
	activeWS   int
	active     string
}

func (f fakeSource) ListClients(context.Context) ([]Client, error)       { return f.clients, nil }
func (f fakeSource) ListWorkspaces(context.Context) ([]Workspace, error) { return f.workspaces, nil }
func (f fakeSource) ListMonitors(context.Context) ([]Monitor, error)     { return f.monitors, nil }
func (f fakeSource) ActiveWorkspaceID(context.Context) (int, error)      { return f.activeWS, nil }
func (f fakeSource) ActiveClientAddress(context.Context) (string, error) { return f.active, nil }

func TestNewWorldFillsClientMonitor(t *testing.T) {
	src := fakeSource{
		clients:    []Client{{Address: "0x1", WorkspaceID: 2}},
		workspaces: []Workspace{{ID: 2, MonitorName: "DP-1"}},
		monitors:   []Monitor{{Name: "DP-1", Rectangle: layout.Rect{Width: 2560, Height: 1440}}},
		activeWS:   2,
		active:     "0x1",
	}
	world, err := NewWorld(context.Background(), src)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	if got := world.Clients[0].MonitorName; got != "DP-1" {
		t.Fatalf("expected monitor name from workspace, got %q", got)
	}
	if c := world.ActiveClient(); c == nil || c.Address != "0x1" {
		t.Fatalf("unexpected active client %+v", c)
	}
	if mon := world.ActiveMonitor(); mon == nil || mon.Name != "DP-1" {
		t.Fatalf("unexpected active monitor %+v", mon)
	}
}

func TestActiveMonitorFallsBackToFocused(t *testing.T) {
	world := &World{
		Monitors: []Monitor{{Name: "eDP-1"}, {Name: "HDMI-A-1", Focused: true}},
	}
	if mon := world.ActiveMonitor(); mon == nil || mon.Name != "HDMI-A-1" {
		t.Fatalf("unexpected active monitor %+v", mon)
	}
}

func TestMonitorIdentity(t *testing.T) {
	m := Monitor{Name: "eDP-1", Description: "BOE 0x0BCA"}
	if got := m.Identity(); got != "eDP-1 BOE 0x0BCA" {
		t.Fatalf("unexpected identity %q", got)
	}
	if got := (Monitor{Name: "DP-2"}).Identity(); got != "DP-2" {
		t.Fatalf("unexpected identity %q", got)
	}
}

func TestNewWorldResolvesNumericMonitorIDs(t *testing.T) {
	src := fakeSource{
		clients:  []Client{{Address: "0x1", WorkspaceID: -99, MonitorName: "1"}},
		monitors: []Monitor{{ID: 0, Name: "eDP-1"}, {ID: 1, Name: "DP-1"}},
	}
	world, err := NewWorld(context.Background(), src)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	if got := world.Clients[0].MonitorName; got != "DP-1" {
		t.Fatalf("expected numeric monitor id to resolve to DP-1, got %q", got)
	}
}
