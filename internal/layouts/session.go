package layouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyprpal/autolayout/internal/state"
)

// ErrNoActiveSession is returned when no workspace is focused on an attached
// monitor.
var ErrNoActiveSession = errors.New("no active session")

// Session is the target of a layout activation: the focused workspace and
// the monitor showing it.
type Session struct {
	WorkspaceID int    `json:"workspace"`
	Monitor     string `json:"monitor"`
}

// SessionSource is the subset of the Hyprland client used to find the session.
type SessionSource interface {
	ActiveWorkspaceID(ctx context.Context) (int, error)
	ListMonitors(ctx context.Context) ([]state.Monitor, error)
}

// ActiveSession returns the current session or ErrNoActiveSession.
func ActiveSession(ctx context.Context, src SessionSource) (Session, error) {
	id, err := src.ActiveWorkspaceID(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoActiveSession, err)
	}
	if id <= 0 {
		return Session{}, fmt.Errorf("%w: workspace %d is not a regular workspace", ErrNoActiveSession, id)
	}
	monitors, err := src.ListMonitors(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoActiveSession, err)
	}
	for _, m := range monitors {
		if m.Disabled {
			continue
		}
		if m.ActiveWorkspaceID == id || m.FocusedWorkspaceID == id {
			return Session{WorkspaceID: id, Monitor: m.Name}, nil
		}
	}
	return Session{}, fmt.Errorf("%w: workspace %d is not shown on any monitor", ErrNoActiveSession, id)
}
