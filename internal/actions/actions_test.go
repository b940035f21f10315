package actions

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/state"
)

type fakeSource struct {
	clients []state.Client
	active  string
}

func (f fakeSource) ListClients(context.Context) ([]state.Client, error)       { return f.clients, nil }
func (f fakeSource) ListWorkspaces(context.Context) ([]state.Workspace, error) { return nil, nil }
func (f fakeSource) ListMonitors(context.Context) ([]state.Monitor, error)     { return nil, nil }
func (f fakeSource) ActiveWorkspaceID(context.Context) (int, error)            { return 1, nil }
func (f fakeSource) ActiveClientAddress(context.Context) (string, error)       { return f.active, nil }

type recordingDispatcher struct {
	dispatched [][]string
}

func (r *recordingDispatcher) Dispatch(args ...string) error {
	r.dispatched = append(r.dispatched, append([]string(nil), args...))
	return nil
}

func TestRestoreDefaultTilesAndLeavesFullscreen(t *testing.T) {
	src := fakeSource{
		clients: []state.Client{
			{Address: "a", WorkspaceID: 1, Floating: true},
			{Address: "b", WorkspaceID: 2, FullscreenMode: 2},
			{Address: "c", WorkspaceID: 1},
			{Address: "d", WorkspaceID: -98, Floating: true},
		},
		active: "c",
	}
	disp := &recordingDispatcher{}
	reg := NewRegistry(src, disp, nil)

	if err := reg.Invoke(context.Background(), catalog.RestoreDefaultID, screen.MultiExternal); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	want := [][]string{
		{"settiled", "address:a"},
		{"focuswindow", "address:b"},
		{"fullscreenstate", "0", "0"},
		{"focuswindow", "address:c"},
	}
	if !reflect.DeepEqual(disp.dispatched, want) {
		t.Fatalf("unexpected dispatches: %#v", disp.dispatched)
	}
}

func TestConfiguredActionSubstitutesContext(t *testing.T) {
	disp := &recordingDispatcher{}
	reg := NewRegistry(fakeSource{}, disp, nil)
	reg.Configure([]config.ActionConfig{{
		ID:    "Announce",
		Label: "Announce context",
		Dispatch: []config.DispatchCommand{
			{"exec", "notify-send {context}"},
			{"workspace", "1"},
		},
	}})

	ref, ok := reg.Lookup("Announce")
	if !ok || ref.Label != "Announce context" {
		t.Fatalf("unexpected lookup result %+v %v", ref, ok)
	}
	if err := reg.Invoke(context.Background(), "Announce", screen.SingleExternal); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if disp.dispatched[0][1] != "notify-send single" {
		t.Fatalf("context not substituted: %#v", disp.dispatched)
	}
}

func TestConfiguredActionOverridesBuiltin(t *testing.T) {
	reg := NewRegistry(fakeSource{}, &recordingDispatcher{}, nil)
	reg.Configure([]config.ActionConfig{{ID: catalog.RestoreDefaultID, Dispatch: []config.DispatchCommand{{"workspace", "1"}}}})

	ref, ok := reg.Lookup(catalog.RestoreDefaultID)
	if !ok || ref.Label != catalog.RestoreDefaultID {
		t.Fatalf("expected user override, got %+v", ref)
	}
	if got := len(reg.List()); got != 1 {
		t.Fatalf("expected a single listed action, got %d", got)
	}

	reg.Configure(nil)
	ref, _ = reg.Lookup(catalog.RestoreDefaultID)
	if ref.Label != "Restore Default Layout" {
		t.Fatalf("expected built-in after reconfigure, got %+v", ref)
	}
}

func TestInvokeUnknownAction(t *testing.T) {
	reg := NewRegistry(fakeSource{}, &recordingDispatcher{}, nil)
	err := reg.Invoke(context.Background(), "Missing", screen.LaptopOnly)
	if !errors.Is(err, catalog.ErrUnresolvedActionKey) {
		t.Fatalf("expected unresolved error, got %v", err)
	}
}
