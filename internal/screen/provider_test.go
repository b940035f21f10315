package screen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyprpal/autolayout/internal/ipc"
	"github.com/hyprpal/autolayout/internal/layout"
	"github.com/hyprpal/autolayout/internal/state"
)

type fakeHypr struct {
	monitors  []state.Monitor
	window    ipc.ActiveWindow
	err       error
	windowErr error
}

func (f fakeHypr) ListMonitors(context.Context) ([]state.Monitor, error) {
	return f.monitors, f.err
}

func (f fakeHypr) ActiveWindow(context.Context) (ipc.ActiveWindow, error) {
	return f.window, f.windowErr
}

func TestHyprProviderBuildsTopology(t *testing.T) {
	src := fakeHypr{
		monitors: []state.Monitor{
			{Name: "eDP-1", Description: "BOE 0x0BCA", PixelWidth: 2880, PixelHeight: 1800, Rectangle: layout.Rect{Width: 1440, Height: 900}},
			{Name: "DP-1", Description: "Dell U2720Q", PixelWidth: 3840, PixelHeight: 2160, Rectangle: layout.Rect{X: 1440, Width: 2560, Height: 1440}},
			{Name: "HDMI-A-1", Disabled: true},
		},
		window: ipc.ActiveWindow{Address: "0x1", Geometry: layout.Rect{X: 1500, Y: 100, Width: 400, Height: 200}},
	}
	topo, err := NewHyprProvider(src).CurrentTopology(context.Background())
	require.NoError(t, err)
	require.Len(t, topo.Displays, 2)
	assert.Equal(t, "eDP-1 BOE 0x0BCA", topo.Displays[0].ID)
	assert.Equal(t, 2880, topo.Displays[0].Width)
	require.NotNil(t, topo.ActiveCenter)
	assert.Equal(t, layout.Point{X: 1700, Y: 200}, *topo.ActiveCenter)
	// 2880x1800 is above the resolution cutoff and the description carries no keyword.
	assert.Equal(t, MultiExternal, Classify(topo))
}

func TestHyprProviderWithoutActiveWindow(t *testing.T) {
	src := fakeHypr{
		monitors:  []state.Monitor{{Name: "eDP-1", PixelWidth: 1920, PixelHeight: 1200}},
		windowErr: errors.New("no window"),
	}
	topo, err := NewHyprProvider(src).CurrentTopology(context.Background())
	require.NoError(t, err)
	assert.Nil(t, topo.ActiveCenter)
}

func TestHyprProviderPropagatesMonitorErrors(t *testing.T) {
	_, err := NewHyprProvider(fakeHypr{err: errors.New("boom")}).CurrentTopology(context.Background())
	assert.Error(t, err)
}
