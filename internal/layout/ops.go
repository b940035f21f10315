package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyprpal/autolayout/internal/util"
)

// Dispatcher executes hyprctl dispatch commands.
type Dispatcher interface {
	Dispatch(args ...string) error
}

// BatchDispatcher can send several dispatches in one round trip.
type BatchDispatcher interface {
	DispatchBatch(commands [][]string) error
}

// ErrBatchUnsupported is returned when the active dispatcher cannot batch.
var ErrBatchUnsupported = errors.New("batch dispatch unsupported")

// Plan is a collection of sequential hyprctl dispatch commands.
type Plan struct {
	Commands [][]string
}

// Add appends a dispatch invocation.
func (p *Plan) Add(args ...string) {
	p.Commands = append(p.Commands, args)
}

// Merge merges other plan into this one.
func (p *Plan) Merge(other Plan) {
	p.Commands = append(p.Commands, other.Commands...)
}

// Empty reports whether the plan has no commands.
func (p Plan) Empty() bool {
	return len(p.Commands) == 0
}

func addressArg(address string) string {
	return fmt.Sprintf("address:%s", address)
}

// FloatAndPlace ensures the client is floating and resized/moved to rect.
func FloatAndPlace(address string, rect Rect) Plan {
	var p Plan
	addr := addressArg(address)
	p.Add("setfloating", addr)
	p.Add("movewindowpixel", fmt.Sprintf("exact %d %d,%s", int(rect.X), int(rect.Y), addr))
	p.Add("resizewindowpixel", fmt.Sprintf("exact %d %d,%s", int(rect.Width), int(rect.Height), addr))
	return p
}

// Tile returns the client to the tiling layout.
func Tile(address string) Plan {
	var p Plan
	p.Add("settiled", addressArg(address))
	return p
}

// MoveToWorkspace moves the client without following it.
func MoveToWorkspace(address string, workspace int) Plan {
	var p Plan
	p.Add("movetoworkspacesilent", fmt.Sprintf("%d,%s", workspace, addressArg(address)))
	return p
}

// Focus focuses the provided client address.
func Focus(address string) Plan {
	var p Plan
	p.Add("focuswindow", addressArg(address))
	return p
}

// Fullscreen sets the fullscreen state of a client.
func Fullscreen(address string, enable bool) Plan {
	p := Focus(address)
	state := "0"
	if enable {
		state = "2"
	}
	p.Add("fullscreenstate", state, state)
	return p
}

// Execute applies the plan sequentially using dispatcher.
func (p Plan) Execute(d Dispatcher) error {
	for _, cmd := range p.Commands {
		if err := d.Dispatch(cmd...); err != nil {
			return fmt.Errorf("dispatch %s: %w", strings.Join(cmd, " "), err)
		}
	}
	return nil
}

// Apply sends the plan as one batch when the dispatcher supports it and falls
// back to sequential dispatches otherwise.
func (p Plan) Apply(d Dispatcher) error {
	if p.Empty() {
		return nil
	}
	if batcher, ok := d.(BatchDispatcher); ok && len(p.Commands) > 1 {
		err := batcher.DispatchBatch(p.Commands)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrBatchUnsupported) {
			return fmt.Errorf("dispatch batch: %w", err)
		}
	}
	return p.Execute(d)
}

// DryRunDispatcher logs dispatches instead of sending them.
type DryRunDispatcher struct {
	Logger *util.Logger
}

// Dispatch implements Dispatcher.
func (d DryRunDispatcher) Dispatch(args ...string) error {
	if d.Logger != nil {
		d.Logger.Infof("dry-run dispatch: %s", strings.Join(args, " "))
	}
	return nil
}
