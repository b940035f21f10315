package control

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/metrics"
	"github.com/hyprpal/autolayout/internal/monitor"
	"github.com/hyprpal/autolayout/internal/screen"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionStatus        = "status"
	ActionDetect        = "detect"
	ActionChoices       = "choices"
	ActionReload        = "reload"
	ActionNotifySet     = "notify.set"
	ActionLayoutList    = "layout.list"
	ActionLayoutSave    = "layout.save"
	ActionRun           = "run"
	ActionMonitorPause  = "monitor.pause"
	ActionMonitorResume = "monitor.resume"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// MappingEntry describes the key configured for one context.
type MappingEntry struct {
	Context  screen.Context `json:"context"`
	Key      string         `json:"key"`
	Label    string         `json:"label,omitempty"`
	Resolved bool           `json:"resolved"`
}

// QueueStatus reports the apply queue counters.
type QueueStatus struct {
	Pending int    `json:"pending"`
	Applied uint64 `json:"applied"`
	Failed  uint64 `json:"failed"`
}

// Status is the daemon overview returned by ActionStatus.
type Status struct {
	Enabled         bool                 `json:"enabled"`
	Running         bool                 `json:"running"`
	IntervalSeconds int                  `json:"intervalSeconds"`
	Notifications   bool                 `json:"notifications"`
	Suppressed      bool                 `json:"suppressed"`
	DryRun          bool                 `json:"dryRun"`
	Context         *screen.Context      `json:"context,omitempty"`
	Observation     *monitor.Observation `json:"observation,omitempty"`
	Mapping         []MappingEntry       `json:"mapping"`
	History         []monitor.Transition `json:"history,omitempty"`
	Queue           QueueStatus          `json:"queue"`
	Metrics         metrics.Snapshot     `json:"metrics"`
	Time            time.Time            `json:"time"`
}

// Selection is the option index chosen for a context's configured key.
type Selection struct {
	Context  screen.Context `json:"context"`
	Value    string         `json:"value"`
	Selected int            `json:"selected"`
}

// Choices lists the selectable keys and the current selection per context.
type Choices struct {
	Options    []catalog.Option `json:"options"`
	Selections []Selection      `json:"selections"`
}

// LayoutSummary describes a saved layout.
type LayoutSummary struct {
	Name       string `json:"name"`
	Placements int    `json:"placements"`
	Path       string `json:"path,omitempty"`
}

// RunResult reports a manual dispatch.
type RunResult struct {
	ID        string             `json:"id"`
	Context   screen.Context     `json:"context"`
	Outcome   string             `json:"outcome"`
	Reference *catalog.Reference `json:"reference,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// MonitorState is returned by pause and resume.
type MonitorState struct {
	Running         bool `json:"running"`
	IntervalSeconds int  `json:"intervalSeconds"`
}

// DefaultSocketPath returns the expected location of the autolayout control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("AUTOLAYOUT_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "autolayout", SocketFileName), nil
}
