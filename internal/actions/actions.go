// Package actions holds the registry of invokable actions: user defined
// dispatch sequences and the built-in RestoreDefaultLayout.
package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/layout"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/state"
	"github.com/hyprpal/autolayout/internal/util"
)

// Env is passed to actions when they are planned.
type Env struct {
	Context screen.Context
	// World captures a snapshot of Hyprland on demand.
	World func(ctx context.Context) (*state.World, error)
}

// Action produces the dispatches for one invocation.
type Action interface {
	ID() string
	Label() string
	Plan(ctx context.Context, env Env) (layout.Plan, error)
}

// Registry maps action ids to actions. Configured actions replace built-ins
// with the same id.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]Action
	user     map[string]Action

	source     state.DataSource
	dispatcher layout.Dispatcher
	logger     *util.Logger
}

// NewRegistry returns a registry with the built-in actions registered.
func NewRegistry(source state.DataSource, dispatcher layout.Dispatcher, logger *util.Logger) *Registry {
	r := &Registry{
		builtins:   map[string]Action{},
		user:       map[string]Action{},
		source:     source,
		dispatcher: dispatcher,
		logger:     logger,
	}
	r.builtins[catalog.RestoreDefaultID] = RestoreDefault{}
	return r
}

// Configure replaces the user actions with cfgs.
func (r *Registry) Configure(cfgs []config.ActionConfig) {
	user := make(map[string]Action, len(cfgs))
	for _, ac := range cfgs {
		if ac.ID == "" {
			continue
		}
		user[ac.ID] = newDispatchAction(ac)
	}
	r.mu.Lock()
	r.user = user
	r.mu.Unlock()
}

// Get returns the action registered under id.
func (r *Registry) Get(id string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.user[id]; ok {
		return a, true
	}
	a, ok := r.builtins[id]
	return a, ok
}

// Lookup implements catalog.ActionRegistry.
func (r *Registry) Lookup(id string) (catalog.ActionRef, bool) {
	a, ok := r.Get(id)
	if !ok {
		return catalog.ActionRef{}, false
	}
	return catalog.ActionRef{ID: a.ID(), Label: a.Label()}, true
}

// List returns every registered action sorted by id.
func (r *Registry) List() []catalog.ActionRef {
	r.mu.RLock()
	seen := map[string]Action{}
	for id, a := range r.builtins {
		seen[id] = a
	}
	for id, a := range r.user {
		seen[id] = a
	}
	r.mu.RUnlock()
	refs := make([]catalog.ActionRef, 0, len(seen))
	for _, a := range seen {
		refs = append(refs, catalog.ActionRef{ID: a.ID(), Label: a.Label()})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// Invoke plans and applies the action registered under id.
func (r *Registry) Invoke(ctx context.Context, id string, sc screen.Context) error {
	a, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: action %q", catalog.ErrUnresolvedActionKey, id)
	}
	env := Env{
		Context: sc,
		World: func(ctx context.Context) (*state.World, error) {
			return state.NewWorld(ctx, r.source)
		},
	}
	plan, err := a.Plan(ctx, env)
	if err != nil {
		return fmt.Errorf("plan %s: %w", id, err)
	}
	if plan.Empty() {
		if r.logger != nil {
			r.logger.Debugf("action %s produced no dispatches", id)
		}
		return nil
	}
	if r.logger != nil {
		r.logger.Debugf("action %s: %d dispatch(es)", id, len(plan.Commands))
	}
	return plan.Apply(r.dispatcher)
}

// dispatchAction sends a fixed list of dispatches. "{context}" in an
// argument is replaced with the context slug.
type dispatchAction struct {
	id       string
	label    string
	commands [][]string
}

func newDispatchAction(ac config.ActionConfig) *dispatchAction {
	label := strings.TrimSpace(ac.Label)
	if label == "" {
		label = ac.ID
	}
	commands := make([][]string, 0, len(ac.Dispatch))
	for _, cmd := range ac.Dispatch {
		commands = append(commands, append([]string(nil), cmd...))
	}
	return &dispatchAction{id: ac.ID, label: label, commands: commands}
}

func (a *dispatchAction) ID() string    { return a.id }
func (a *dispatchAction) Label() string { return a.label }

func (a *dispatchAction) Plan(_ context.Context, env Env) (layout.Plan, error) {
	var plan layout.Plan
	for _, cmd := range a.commands {
		args := make([]string, len(cmd))
		for i, arg := range cmd {
			args[i] = strings.ReplaceAll(arg, "{context}", env.Context.Slug())
		}
		plan.Add(args...)
	}
	return plan, nil
}

// RestoreDefault returns every window to the tiling layout: fullscreen is
// left and floating windows are tiled.
type RestoreDefault struct{}

func (RestoreDefault) ID() string    { return catalog.RestoreDefaultID }
func (RestoreDefault) Label() string { return "Restore Default Layout" }

func (RestoreDefault) Plan(ctx context.Context, env Env) (layout.Plan, error) {
	world, err := env.World(ctx)
	if err != nil {
		return layout.Plan{}, err
	}
	var plan layout.Plan
	for _, c := range world.Clients {
		if c.WorkspaceID <= 0 {
			// special and scratchpad workspaces keep their floating state
			continue
		}
		if c.FullscreenMode != 0 {
			plan.Merge(layout.Fullscreen(c.Address, false))
		}
		if c.Floating {
			plan.Merge(layout.Tile(c.Address))
		}
	}
	if active := world.ActiveClient(); active != nil && !plan.Empty() {
		plan.Merge(layout.Focus(active.Address))
	}
	return plan, nil
}

var _ catalog.ActionRegistry = (*Registry)(nil)
