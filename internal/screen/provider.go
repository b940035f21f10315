package screen

import (
	"context"
	"fmt"

	"github.com/hyprpal/autolayout/internal/ipc"
	"github.com/hyprpal/autolayout/internal/state"
)

// Provider captures the current display topology.
type Provider interface {
	CurrentTopology(ctx context.Context) (Topology, error)
}

// HyprSource is the subset of the Hyprland client needed to sample topology.
type HyprSource interface {
	ListMonitors(ctx context.Context) ([]state.Monitor, error)
	ActiveWindow(ctx context.Context) (ipc.ActiveWindow, error)
}

// HyprProvider samples topology from Hyprland.
type HyprProvider struct {
	src HyprSource
}

// NewHyprProvider returns a provider backed by src.
func NewHyprProvider(src HyprSource) *HyprProvider {
	return &HyprProvider{src: src}
}

// CurrentTopology implements Provider. Disabled outputs are skipped. A failed
// active-window query leaves the centre unknown rather than failing.
func (p *HyprProvider) CurrentTopology(ctx context.Context) (Topology, error) {
	monitors, err := p.src.ListMonitors(ctx)
	if err != nil {
		return Topology{}, fmt.Errorf("list monitors: %w", err)
	}
	topo := Topology{Displays: make([]Display, 0, len(monitors))}
	for _, m := range monitors {
		if m.Disabled {
			continue
		}
		topo.Displays = append(topo.Displays, Display{
			ID:     m.Identity(),
			Width:  m.PixelWidth,
			Height: m.PixelHeight,
			Bounds: m.Rectangle,
		})
	}
	win, err := p.src.ActiveWindow(ctx)
	if err == nil && win.Address != "" && win.Geometry.Width > 0 && win.Geometry.Height > 0 {
		center := win.Geometry.Center()
		topo.ActiveCenter = &center
	}
	return topo, nil
}

var _ Provider = (*HyprProvider)(nil)
