package ipc

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyprpal/autolayout/internal/layout"
)

const socketTimeout = 2 * time.Second

type socketDispatcher struct {
	path string
}

func newSocketDispatcher() (*socketDispatcher, error) {
	path, err := dispatchSocketPath()
	if err != nil {
		return nil, err
	}
	return &socketDispatcher{path: path}, nil
}

func (d *socketDispatcher) Dispatch(args ...string) error {
	if len(args) == 0 {
		return nil
	}
	return d.DispatchBatch([][]string{args})
}

// DispatchBatch sends the commands in a single request. Multiple commands use
// the [[BATCH]] framing understood by the Hyprland command socket.
func (d *socketDispatcher) DispatchBatch(commands [][]string) error {
	lines := make([]string, 0, len(commands))
	for _, cmd := range commands {
		if len(cmd) == 0 {
			continue
		}
		parts := append([]string{"dispatch"}, cmd...)
		lines = append(lines, strings.Join(parts, " "))
	}
	if len(lines) == 0 {
		return nil
	}
	payload := lines[0]
	if len(lines) > 1 {
		payload = "[[BATCH]]" + strings.Join(lines, ";")
	}

	conn, err := net.DialTimeout("unix", d.path, socketTimeout)
	if err != nil {
		return fmt.Errorf("connect dispatch socket: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(socketTimeout))

	if _, err := io.WriteString(conn, payload); err != nil {
		return fmt.Errorf("write dispatch payload: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}
	reply, err := io.ReadAll(conn)
	if err != nil {
		return fmt.Errorf("read dispatch reply: %w", err)
	}
	return checkReply(string(reply))
}

// checkReply fails on any non-empty reply line other than "ok".
func checkReply(reply string) error {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "ok" {
			continue
		}
		return fmt.Errorf("dispatch rejected: %s", line)
	}
	return nil
}

func (d *socketDispatcher) DispatchSocketPath() string {
	return d.path
}

func dispatchSocketPath() (string, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE not set")
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtimeDir, "hypr", sig, ".socket.sock"), nil
}

var _ layout.BatchDispatcher = (*socketDispatcher)(nil)
