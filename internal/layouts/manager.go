package layouts

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/layout"
	"github.com/hyprpal/autolayout/internal/state"
	"github.com/hyprpal/autolayout/internal/util"
)

// placementTolerancePx is the slack within which a client already counts as placed.
const placementTolerancePx = 2.0

// Manager activates and captures layouts against Hyprland.
type Manager struct {
	store      *Store
	source     state.DataSource
	dispatcher layout.Dispatcher
	logger     *util.Logger
}

// NewManager returns a manager over store.
func NewManager(store *Store, source state.DataSource, dispatcher layout.Dispatcher, logger *util.Logger) *Manager {
	return &Manager{store: store, source: source, dispatcher: dispatcher, logger: logger}
}

// Store returns the backing store.
func (m *Manager) Store() *Store {
	return m.store
}

// Names implements catalog.LayoutStore.
func (m *Manager) Names() []string {
	return m.store.Names()
}

// Activate applies the named layout to session.
func (m *Manager) Activate(ctx context.Context, name string, session Session) error {
	l, err := m.store.Get(name)
	if err != nil {
		return err
	}
	world, err := state.NewWorld(ctx, m.source)
	if err != nil {
		return fmt.Errorf("snapshot world: %w", err)
	}
	plan, err := m.Plan(world, l, session)
	if err != nil {
		return err
	}
	if plan.Empty() {
		if m.logger != nil {
			m.logger.Infof("layout %s already in place", l.Name)
		}
		return nil
	}
	if m.logger != nil {
		m.logger.Debugf("layout %s: %d dispatch(es) on workspace %d", l.Name, len(plan.Commands), session.WorkspaceID)
	}
	return plan.Apply(m.dispatcher)
}

// Plan computes the dispatches that move world into layout l. Each client is
// claimed by the first placement that matches it.
func (m *Manager) Plan(world *state.World, l Layout, session Session) (layout.Plan, error) {
	sessionMonitor := world.MonitorByName(session.Monitor)
	if sessionMonitor == nil {
		return layout.Plan{}, fmt.Errorf("%w: monitor %s is gone", ErrNoActiveSession, session.Monitor)
	}
	claimed := map[string]bool{}
	var plan layout.Plan
	for i, p := range l.Placements {
		match, err := m.store.matcher(p.Match)
		if err != nil {
			return layout.Plan{}, fmt.Errorf("layout %s placement %d: %w", l.Name, i, err)
		}
		workspace := p.Workspace
		if workspace == 0 {
			workspace = session.WorkspaceID
		}
		monitor := targetMonitor(world, p, workspace, sessionMonitor)
		count := 0
		for _, c := range world.Clients {
			if p.Limit > 0 && count >= p.Limit {
				break
			}
			if claimed[c.Address] || c.WorkspaceID < 0 || !match(c) {
				continue
			}
			claimed[c.Address] = true
			count++
			plan.Merge(placeClient(c, p, workspace, monitor))
		}
	}
	return plan, nil
}

// targetMonitor prefers the configured monitor when attached, then the monitor
// showing the workspace, then the session monitor.
func targetMonitor(world *state.World, p Placement, workspace int, fallback *state.Monitor) *state.Monitor {
	if p.Monitor != "" {
		if mon := world.MonitorByName(p.Monitor); mon != nil && !mon.Disabled {
			return mon
		}
	}
	if mon, err := world.MonitorForWorkspace(workspace); err == nil {
		return mon
	}
	return fallback
}

func placeClient(c state.Client, p Placement, workspace int, monitor *state.Monitor) layout.Plan {
	var plan layout.Plan
	if c.WorkspaceID != workspace {
		plan.Merge(layout.MoveToWorkspace(c.Address, workspace))
	}
	isFullscreen := c.FullscreenMode != 0
	if isFullscreen && !p.Fullscreen {
		plan.Merge(layout.Fullscreen(c.Address, false))
	}
	switch {
	case p.Floating && p.Rect != nil:
		target := p.Rect.Resolve(monitor.Rectangle)
		if !c.Floating || !layout.ApproximatelyEqual(c.Geometry, target, placementTolerancePx) {
			plan.Merge(layout.FloatAndPlace(c.Address, target))
		}
	case p.Floating:
		if !c.Floating {
			plan.Add("setfloating", "address:"+c.Address)
		}
	case c.Floating:
		plan.Merge(layout.Tile(c.Address))
	}
	if p.Fullscreen && !isFullscreen {
		plan.Merge(layout.Fullscreen(c.Address, true))
	}
	return plan
}

// Capture records the current arrangement of regular workspaces as layout
// name and saves it.
func (m *Manager) Capture(ctx context.Context, name string) (Layout, error) {
	world, err := state.NewWorld(ctx, m.source)
	if err != nil {
		return Layout{}, fmt.Errorf("snapshot world: %w", err)
	}
	l := CaptureWorld(world, name)
	if err := m.store.Put(l); err != nil {
		return Layout{}, err
	}
	if m.logger != nil {
		m.logger.Infof("saved layout %s with %d placement(s)", l.Name, len(l.Placements))
	}
	return l, nil
}

// CaptureWorld converts a world snapshot into a layout. Clients are matched
// by class; floating clients keep their geometry relative to their monitor.
func CaptureWorld(world *state.World, name string) Layout {
	clients := append([]state.Client(nil), world.Clients...)
	sort.SliceStable(clients, func(i, j int) bool {
		if clients[i].WorkspaceID != clients[j].WorkspaceID {
			return clients[i].WorkspaceID < clients[j].WorkspaceID
		}
		return clients[i].Class < clients[j].Class
	})
	l := Layout{Name: name}
	for _, c := range clients {
		if c.WorkspaceID <= 0 || c.Class == "" {
			continue
		}
		p := Placement{
			Match:      config.MatcherConfig{Class: c.Class},
			Workspace:  c.WorkspaceID,
			Monitor:    c.MonitorName,
			Floating:   c.Floating,
			Fullscreen: c.FullscreenMode != 0,
			Limit:      1,
		}
		if c.Floating {
			if mon := world.MonitorByName(c.MonitorName); mon != nil {
				rect := layout.RelativeTo(c.Geometry, mon.Rectangle)
				p.Rect = &rect
			}
		}
		l.Placements = append(l.Placements, p)
	}
	return l
}
