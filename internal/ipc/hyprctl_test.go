package ipc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyprpal/autolayout/internal/layout"
)

const monitorsFixture = `[
  {"id":0,"name":"eDP-1","description":"BOE 0x0BCA","make":"BOE","model":"0x0BCA",
   "width":2880,"height":1800,"x":0,"y":0,"scale":2.0,"transform":0,"focused":false,
   "activeWorkspace":{"id":1},"focusedWorkspace":{"id":1}},
  {"id":1,"name":"DP-1","description":"Dell Inc. DELL U2720Q","make":"Dell Inc.","model":"DELL U2720Q",
   "width":3840,"height":2160,"x":1440,"y":0,"scale":1.5,"transform":1,"focused":true,
   "activeWorkspace":{"id":2},"focusedWorkspace":{"id":2}}
]`

func TestDecodeMonitorsUsesLogicalBounds(t *testing.T) {
	monitors, err := decodeMonitors([]byte(monitorsFixture))
	if err != nil {
		t.Fatalf("decodeMonitors: %v", err)
	}
	if len(monitors) != 2 {
		t.Fatalf("expected 2 monitors, got %d", len(monitors))
	}
	laptop := monitors[0]
	if laptop.Rectangle != (layout.Rect{X: 0, Y: 0, Width: 1440, Height: 900}) {
		t.Fatalf("unexpected laptop rect %+v", laptop.Rectangle)
	}
	if laptop.PixelWidth != 2880 || laptop.PixelHeight != 1800 {
		t.Fatalf("pixel size lost: %+v", laptop)
	}
	rotated := monitors[1]
	if rotated.Rectangle != (layout.Rect{X: 1440, Y: 0, Width: 1440, Height: 2560}) {
		t.Fatalf("unexpected rotated rect %+v", rotated.Rectangle)
	}
	if !rotated.Focused || rotated.Identity() != "DP-1 Dell Inc. DELL U2720Q" {
		t.Fatalf("unexpected rotated monitor %+v", rotated)
	}
}

// fakeHyprctl writes a shell script that answers queries from fixtures and
// appends every invocation to a log file.
func fakeHyprctl(t *testing.T, fixtures map[string]string) (*Client, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("echo \"$@\" >> " + logPath + "\n")
	b.WriteString("case \"$2\" in\n")
	for topic, body := range fixtures {
		fixture := filepath.Join(dir, topic+".json")
		if err := os.WriteFile(fixture, []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		b.WriteString("  " + topic + ") cat " + fixture + " ;;\n")
	}
	b.WriteString("esac\n")
	script := filepath.Join(dir, "hyprctl")
	if err := os.WriteFile(script, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return &Client{Binary: script}, logPath
}

func TestClientQueriesThroughHyprctl(t *testing.T) {
	client, logPath := fakeHyprctl(t, map[string]string{
		"monitors":        monitorsFixture,
		"activewindow":    `{"address":"0xbeef","at":[1500,40],"size":[800,600]}`,
		"activeworkspace": `{"id":2,"monitor":"DP-1"}`,
	})
	ctx := context.Background()

	monitors, err := client.ListMonitors(ctx)
	if err != nil || len(monitors) != 2 {
		t.Fatalf("ListMonitors: %v (%d)", err, len(monitors))
	}
	win, err := client.ActiveWindow(ctx)
	if err != nil {
		t.Fatalf("ActiveWindow: %v", err)
	}
	if win.Address != "0xbeef" || win.Geometry != (layout.Rect{X: 1500, Y: 40, Width: 800, Height: 600}) {
		t.Fatalf("unexpected active window %+v", win)
	}
	ws, err := client.ActiveWorkspaceID(ctx)
	if err != nil || ws != 2 {
		t.Fatalf("ActiveWorkspaceID = %d, %v", ws, err)
	}
	if err := client.Notify(ctx, IconWarning, 3000, "", "hello world"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	calls, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(calls), "notify 0 3000 0 hello world") {
		t.Fatalf("notify invocation missing from %q", calls)
	}
}

func TestActiveWindowEmptyObject(t *testing.T) {
	client, _ := fakeHyprctl(t, map[string]string{"activewindow": `{}`})
	win, err := client.ActiveWindow(context.Background())
	if err != nil {
		t.Fatalf("ActiveWindow: %v", err)
	}
	if win.Address != "" {
		t.Fatalf("expected no focused window, got %+v", win)
	}
}
