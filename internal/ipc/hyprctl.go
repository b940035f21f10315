package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hyprpal/autolayout/internal/layout"
	"github.com/hyprpal/autolayout/internal/state"
	"github.com/hyprpal/autolayout/internal/util"
)

// Client wraps hyprctl shell-outs.
type Client struct {
	Binary string
}

// NewClient returns a hyprctl client using the binary on PATH.
func NewClient() *Client {
	return &Client{Binary: "hyprctl"}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("hyprctl %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (c *Client) queryJSON(ctx context.Context, topic string) ([]byte, error) {
	return c.run(ctx, "-j", topic)
}

// ListClients returns all clients.
func (c *Client) ListClients(ctx context.Context) ([]state.Client, error) {
	data, err := c.queryJSON(ctx, "clients")
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Address   string `json:"address"`
		Class     string `json:"class"`
		Title     string `json:"title"`
		Workspace struct {
			ID int `json:"id"`
		} `json:"workspace"`
		Monitor        any       `json:"monitor"`
		Floating       bool      `json:"floating"`
		At             []float64 `json:"at"`
		Size           []float64 `json:"size"`
		FocusHistoryID int       `json:"focusHistoryID"`
		Fullscreen     any       `json:"fullscreen"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode clients: %w", err)
	}
	clients := make([]state.Client, 0, len(raw))
	for _, cl := range raw {
		clients = append(clients, state.Client{
			Address:        cl.Address,
			Class:          cl.Class,
			Title:          cl.Title,
			WorkspaceID:    cl.Workspace.ID,
			MonitorName:    monitorRef(cl.Monitor),
			Floating:       cl.Floating,
			Geometry:       rectFrom(cl.At, cl.Size),
			Focused:        cl.FocusHistoryID == 0,
			FullscreenMode: fullscreenMode(cl.Fullscreen),
		})
	}
	return clients, nil
}

// monitorRef normalises the client monitor field, which older Hyprland
// releases report as a name and newer ones as a numeric id.
func monitorRef(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case float64:
		return strconv.Itoa(int(m))
	}
	return ""
}

// fullscreenMode accepts both the legacy boolean and the numeric state.
func fullscreenMode(v any) int {
	switch f := v.(type) {
	case bool:
		if f {
			return 1
		}
	case float64:
		return int(f)
	}
	return 0
}

func rectFrom(at, size []float64) layout.Rect {
	rect := layout.Rect{}
	if len(at) == 2 {
		rect.X = at[0]
		rect.Y = at[1]
	}
	if len(size) == 2 {
		rect.Width = size[0]
		rect.Height = size[1]
	}
	return rect
}

// ListWorkspaces returns workspaces.
func (c *Client) ListWorkspaces(ctx context.Context) ([]state.Workspace, error) {
	data, err := c.queryJSON(ctx, "workspaces")
	if err != nil {
		return nil, err
	}
	var raw []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		MonitorName string `json:"monitor"`
		Windows     int    `json:"windows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode workspaces: %w", err)
	}
	workspaces := make([]state.Workspace, 0, len(raw))
	for _, ws := range raw {
		workspaces = append(workspaces, state.Workspace{
			ID:          ws.ID,
			Name:        ws.Name,
			MonitorName: ws.MonitorName,
			Windows:     ws.Windows,
		})
	}
	return workspaces, nil
}

// ListMonitors returns monitor snapshots. Rectangles are converted to logical
// coordinates so they share a space with client geometry.
func (c *Client) ListMonitors(ctx context.Context) ([]state.Monitor, error) {
	data, err := c.queryJSON(ctx, "monitors")
	if err != nil {
		return nil, err
	}
	return decodeMonitors(data)
}

func decodeMonitors(data []byte) ([]state.Monitor, error) {
	var raw []struct {
		ID              int     `json:"id"`
		Name            string  `json:"name"`
		Description     string  `json:"description"`
		Make            string  `json:"make"`
		Model           string  `json:"model"`
		X               float64 `json:"x"`
		Y               float64 `json:"y"`
		Width           int     `json:"width"`
		Height          int     `json:"height"`
		Scale           float64 `json:"scale"`
		Transform       int     `json:"transform"`
		Disabled        bool    `json:"disabled"`
		Focused         bool    `json:"focused"`
		ActiveWorkspace struct {
			ID int `json:"id"`
		} `json:"activeWorkspace"`
		FocusedWorkspace struct {
			ID int `json:"id"`
		} `json:"focusedWorkspace"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode monitors: %w", err)
	}
	monitors := make([]state.Monitor, 0, len(raw))
	for _, m := range raw {
		monitors = append(monitors, state.Monitor{
			ID:                 m.ID,
			Name:               m.Name,
			Description:        strings.TrimSpace(m.Description),
			Make:               m.Make,
			Model:              m.Model,
			Rectangle:          logicalRect(m.X, m.Y, m.Width, m.Height, m.Scale, m.Transform),
			PixelWidth:         m.Width,
			PixelHeight:        m.Height,
			Scale:              m.Scale,
			Transform:          m.Transform,
			Disabled:           m.Disabled,
			Focused:            m.Focused,
			ActiveWorkspaceID:  m.ActiveWorkspace.ID,
			FocusedWorkspaceID: m.FocusedWorkspace.ID,
		})
	}
	return monitors, nil
}

// logicalRect divides the pixel mode by the scale and swaps the axes for
// rotated outputs (odd transforms).
func logicalRect(x, y float64, width, height int, scale float64, transform int) layout.Rect {
	if scale <= 0 {
		scale = 1
	}
	w := math.Round(float64(width) / scale)
	h := math.Round(float64(height) / scale)
	if transform%2 == 1 {
		w, h = h, w
	}
	return layout.Rect{X: x, Y: y, Width: w, Height: h}
}

// ActiveWorkspaceID returns currently focused workspace id.
func (c *Client) ActiveWorkspaceID(ctx context.Context) (int, error) {
	data, err := c.queryJSON(ctx, "activeworkspace")
	if err != nil {
		return 0, err
	}
	var payload struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, fmt.Errorf("decode activeworkspace: %w", err)
	}
	return payload.ID, nil
}

// ActiveClientAddress returns active client address.
func (c *Client) ActiveClientAddress(ctx context.Context) (string, error) {
	win, err := c.ActiveWindow(ctx)
	if err != nil {
		return "", err
	}
	return win.Address, nil
}

// ActiveWindow describes the focused client. Address is empty when nothing
// has focus.
type ActiveWindow struct {
	Address  string
	Geometry layout.Rect
}

// ActiveWindow returns the focused client and its geometry.
func (c *Client) ActiveWindow(ctx context.Context) (ActiveWindow, error) {
	data, err := c.queryJSON(ctx, "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}
	// hyprctl prints an empty object when no window is focused.
	if len(bytes.TrimSpace(data)) == 0 {
		return ActiveWindow{}, nil
	}
	var payload struct {
		Address string    `json:"address"`
		At      []float64 `json:"at"`
		Size    []float64 `json:"size"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode activewindow: %w", err)
	}
	return ActiveWindow{Address: payload.Address, Geometry: rectFrom(payload.At, payload.Size)}, nil
}

// Notification icons understood by `hyprctl notify`.
const (
	IconWarning = 0
	IconInfo    = 1
	IconHint    = 2
	IconError   = 3
	IconConfuse = 4
	IconOK      = 5
)

// Notify shows an on-screen notification for timeout milliseconds. An empty
// color keeps the compositor default.
func (c *Client) Notify(ctx context.Context, icon int, timeoutMS int, color, message string) error {
	if color == "" {
		color = "0"
	}
	_, err := c.run(ctx, "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, message)
	return err
}

// Dispatch invokes `hyprctl dispatch`.
func (c *Client) Dispatch(args ...string) error {
	ctx := context.Background()
	dispatchArgs := append([]string{"dispatch"}, args...)
	_, err := c.run(ctx, dispatchArgs...)
	return err
}

var _ state.DataSource = (*Client)(nil)
var _ layout.Dispatcher = (*Client)(nil)

// DispatchStrategy describes how dispatch commands are issued to Hyprland.
type DispatchStrategy string

const (
	// DispatchStrategySocket uses the Hyprland command socket directly.
	DispatchStrategySocket DispatchStrategy = "socket"
	// DispatchStrategyHyprctl shells out to the hyprctl binary.
	DispatchStrategyHyprctl DispatchStrategy = "hyprctl"
)

// Hypr combines the hyprctl data source with the selected dispatch strategy.
type Hypr struct {
	*Client
	dispatcher layout.Dispatcher
}

// Dispatch forwards dispatch requests to the active dispatcher.
func (c *Hypr) Dispatch(args ...string) error {
	if c.dispatcher != nil {
		return c.dispatcher.Dispatch(args...)
	}
	return c.Client.Dispatch(args...)
}

// DispatchBatch attempts to batch dispatches when supported by the active dispatcher.
func (c *Hypr) DispatchBatch(commands [][]string) error {
	if c.dispatcher == nil {
		return layout.ErrBatchUnsupported
	}
	if batcher, ok := c.dispatcher.(layout.BatchDispatcher); ok {
		return batcher.DispatchBatch(commands)
	}
	return layout.ErrBatchUnsupported
}

// WithDispatcher returns a copy that sends dispatches through d. Used for
// dry runs.
func (c *Hypr) WithDispatcher(d layout.Dispatcher) *Hypr {
	return &Hypr{Client: c.Client, dispatcher: d}
}

// NewHypr returns a client using the requested strategy when possible.
func NewHypr(logger *util.Logger, requested DispatchStrategy) (*Hypr, DispatchStrategy, error) {
	base := NewClient()
	switch requested {
	case DispatchStrategySocket:
		disp, err := newSocketDispatcher()
		if err != nil {
			if logger != nil {
				logger.Warnf("falling back to hyprctl dispatch: %v", err)
			}
			return &Hypr{Client: base}, DispatchStrategyHyprctl, nil
		}
		if logger != nil {
			logger.Debugf("using socket dispatch at %s", disp.DispatchSocketPath())
		}
		return &Hypr{Client: base, dispatcher: disp}, DispatchStrategySocket, nil
	case DispatchStrategyHyprctl:
		return &Hypr{Client: base}, DispatchStrategyHyprctl, nil
	default:
		return nil, "", fmt.Errorf("unknown dispatch strategy %q", requested)
	}
}

var _ layout.Dispatcher = (*Hypr)(nil)
var _ layout.BatchDispatcher = (*Hypr)(nil)
