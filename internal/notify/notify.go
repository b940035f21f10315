// Package notify shows user-facing notifications through Hyprland.
package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hyprpal/autolayout/internal/ipc"
	"github.com/hyprpal/autolayout/internal/util"
)

// Level is the notification severity.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Sink shows notifications.
type Sink interface {
	Show(ctx context.Context, level Level, message string)
	// Suppress mutes every later notification until re-enabled through
	// configuration.
	Suppress()
}

// Sender delivers a notification to the compositor.
type Sender interface {
	Notify(ctx context.Context, icon int, timeoutMS int, color, message string) error
}

// Gate decides whether notifications are shown and records suppression.
type Gate interface {
	NotificationsEnabled() bool
	SuppressNotifications()
}

const sendTimeout = 2 * time.Second

// Hyprland is a Sink backed by `hyprctl notify`.
type Hyprland struct {
	sender  Sender
	gate    Gate
	logger  *util.Logger
	timeout atomic.Int64
}

// NewHyprland returns a sink that shows notifications for timeout.
func NewHyprland(sender Sender, gate Gate, logger *util.Logger, timeout time.Duration) *Hyprland {
	h := &Hyprland{sender: sender, gate: gate, logger: logger}
	h.SetTimeout(timeout)
	return h
}

// SetTimeout changes how long notifications stay on screen.
func (h *Hyprland) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = 4 * time.Second
	}
	h.timeout.Store(int64(d))
}

// Show implements Sink. Every message is logged; delivery failures are logged
// and otherwise ignored.
func (h *Hyprland) Show(ctx context.Context, level Level, message string) {
	if h.logger != nil {
		switch level {
		case Info:
			h.logger.Infof("notify: %s", message)
		default:
			h.logger.Warnf("notify: %s", message)
		}
	}
	if h.gate != nil && !h.gate.NotificationsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	ms := int(time.Duration(h.timeout.Load()) / time.Millisecond)
	if err := h.sender.Notify(ctx, icon(level), ms, "", "autolayout: "+message); err != nil && h.logger != nil {
		h.logger.Warnf("notification failed: %v", err)
	}
}

// Suppress implements Sink.
func (h *Hyprland) Suppress() {
	if h.gate != nil {
		h.gate.SuppressNotifications()
	}
}

func icon(level Level) int {
	switch level {
	case Warning:
		return ipc.IconWarning
	case Error:
		return ipc.IconError
	default:
		return ipc.IconOK
	}
}

var _ Sink = (*Hyprland)(nil)
