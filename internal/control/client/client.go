package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hyprpal/autolayout/internal/control"
	"github.com/hyprpal/autolayout/internal/monitor"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// Client talks to the running autolayout daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	// Status is the daemon overview.
	Status = control.Status
	// MappingEntry describes the key configured for one context.
	MappingEntry = control.MappingEntry
	// Choices lists the selectable keys and the current selections.
	Choices = control.Choices
	// LayoutSummary describes a saved layout.
	LayoutSummary = control.LayoutSummary
	// RunResult reports a manual dispatch.
	RunResult = control.RunResult
	// MonitorState reports whether the scheduler is running.
	MonitorState = control.MonitorState
	// Observation is a single topology detection.
	Observation = monitor.Observation
)

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Status retrieves the daemon overview.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	if err := c.do(ctx, control.Request{Action: control.ActionStatus}, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Detect asks the daemon to sample the topology without dispatching.
func (c *Client) Detect(ctx context.Context) (Observation, error) {
	var obs Observation
	if err := c.do(ctx, control.Request{Action: control.ActionDetect}, &obs); err != nil {
		return Observation{}, err
	}
	return obs, nil
}

// Choices retrieves the selectable keys.
func (c *Client) Choices(ctx context.Context) (Choices, error) {
	var choices Choices
	if err := c.do(ctx, control.Request{Action: control.ActionChoices}, &choices); err != nil {
		return Choices{}, err
	}
	return choices, nil
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionReload}, nil)
}

// SetNotifications mutes or unmutes daemon notifications.
func (c *Client) SetNotifications(ctx context.Context, on bool) error {
	params := map[string]any{"enabled": on}
	return c.do(ctx, control.Request{Action: control.ActionNotifySet, Params: params}, nil)
}

// Layouts lists the saved layout names.
func (c *Client) Layouts(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.do(ctx, control.Request{Action: control.ActionLayoutList}, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// SaveLayout captures the current arrangement as name.
func (c *Client) SaveLayout(ctx context.Context, name string) (LayoutSummary, error) {
	if name == "" {
		return LayoutSummary{}, errors.New("layout name cannot be empty")
	}
	params := map[string]any{"name": name}
	var summary LayoutSummary
	if err := c.do(ctx, control.Request{Action: control.ActionLayoutSave, Params: params}, &summary); err != nil {
		return LayoutSummary{}, err
	}
	return summary, nil
}

// Run dispatches key. An empty screenContext lets the daemon pick the current one.
func (c *Client) Run(ctx context.Context, key, screenContext string) (RunResult, error) {
	if key == "" {
		return RunResult{}, errors.New("key cannot be empty")
	}
	params := map[string]any{"key": key}
	if screenContext != "" {
		params["context"] = screenContext
	}
	var result RunResult
	if err := c.do(ctx, control.Request{Action: control.ActionRun, Params: params}, &result); err != nil {
		return RunResult{}, err
	}
	return result, nil
}

// Pause stops the monitor schedule.
func (c *Client) Pause(ctx context.Context) (MonitorState, error) {
	return c.monitor(ctx, control.ActionMonitorPause)
}

// Resume restarts the monitor schedule.
func (c *Client) Resume(ctx context.Context) (MonitorState, error) {
	return c.monitor(ctx, control.ActionMonitorResume)
}

func (c *Client) monitor(ctx context.Context, action string) (MonitorState, error) {
	var state MonitorState
	if err := c.do(ctx, control.Request{Action: action}, &state); err != nil {
		return MonitorState{}, err
	}
	return state, nil
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
