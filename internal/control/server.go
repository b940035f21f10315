package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/dispatch"
	"github.com/hyprpal/autolayout/internal/layouts"
	"github.com/hyprpal/autolayout/internal/metrics"
	"github.com/hyprpal/autolayout/internal/monitor"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/util"
)

// Scheduler is the monitor surface exposed over the socket.
type Scheduler interface {
	Start() bool
	Stop()
	Running() bool
	Interval() time.Duration
	Detect(ctx context.Context) monitor.Observation
	LastObservation() *monitor.Observation
	LastContext() (screen.Context, bool)
	History() []monitor.Transition
}

// Catalog resolves and lists keys.
type Catalog interface {
	Resolve(key actionkey.Key) (catalog.Reference, error)
	Options(configured ...string) []catalog.Option
}

// Layouts lists and captures named layouts.
type Layouts interface {
	Names() []string
	Capture(ctx context.Context, name string) (layouts.Layout, error)
}

// Executor runs a key for a context.
type Executor interface {
	Execute(ctx context.Context, req dispatch.Request) dispatch.Result
}

// QueueStats reports apply queue counters.
type QueueStats interface {
	Pending() int
	Stats() (applied, failed uint64)
}

// Deps are the daemon components served over the socket.
type Deps struct {
	Config     *config.Store
	Scheduler  Scheduler
	Catalog    Catalog
	Layouts    Layouts
	Dispatcher Executor
	Queue      QueueStats
	Metrics    *metrics.Collector
	Reload     func(reason string) error
	DryRun     bool
}

// Server hosts the autolayout control socket and serves requests.
type Server struct {
	deps       Deps
	logger     *util.Logger
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new control server on the default socket path.
func NewServer(deps Deps, logger *util.Logger) (*Server, error) {
	path, err := DefaultSocketPath()
	if err != nil {
		return nil, err
	}
	return NewServerAt(path, deps, logger), nil
}

// NewServerAt creates a control server listening on path.
func NewServerAt(path string, deps Deps, logger *util.Logger) *Server {
	return &Server{
		deps:       deps,
		logger:     logger,
		socketPath: path,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("control server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept error: %v", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove control socket: %v", err)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	s.logger.Debugf("control request %s", req.Action)
	switch req.Action {
	case ActionStatus:
		s.writeOK(conn, s.status())
	case ActionDetect:
		s.writeOK(conn, s.deps.Scheduler.Detect(ctx))
	case ActionChoices:
		s.writeOK(conn, s.choices())
	case ActionReload:
		s.handleReload(conn)
	case ActionNotifySet:
		s.handleNotifySet(conn, req.Params)
	case ActionLayoutList:
		s.writeOK(conn, s.deps.Layouts.Names())
	case ActionLayoutSave:
		s.handleLayoutSave(ctx, conn, req.Params)
	case ActionRun:
		s.handleRun(ctx, conn, req.Params)
	case ActionMonitorPause:
		s.deps.Scheduler.Stop()
		s.writeOK(conn, s.monitorState())
	case ActionMonitorResume:
		if !s.deps.Scheduler.Start() {
			s.writeError(conn, errors.New("daemon is shutting down"))
			return
		}
		s.writeOK(conn, s.monitorState())
	default:
		s.writeError(conn, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) status() Status {
	snap := s.deps.Config.Snapshot()
	st := Status{
		Enabled:         snap.Enabled,
		Running:         s.deps.Scheduler.Running(),
		IntervalSeconds: int(s.deps.Scheduler.Interval() / time.Second),
		Notifications:   snap.Notify,
		Suppressed:      s.deps.Config.Suppressed(),
		DryRun:          s.deps.DryRun,
		Observation:     s.deps.Scheduler.LastObservation(),
		History:         s.deps.Scheduler.History(),
		Metrics:         s.deps.Metrics.Snapshot(),
		Time:            time.Now(),
	}
	if !st.Running {
		st.IntervalSeconds = snap.PollIntervalSeconds
	}
	if current, ok := s.deps.Scheduler.LastContext(); ok {
		st.Context = &current
	}
	for _, sc := range screen.All {
		key := snap.Key(sc)
		entry := MappingEntry{Context: sc, Key: key.Encode()}
		if key.IsEmpty() {
			entry.Resolved = true
		} else if ref, err := s.deps.Catalog.Resolve(key); err == nil {
			entry.Label = ref.Label
			entry.Resolved = true
		}
		st.Mapping = append(st.Mapping, entry)
	}
	if s.deps.Queue != nil {
		applied, failed := s.deps.Queue.Stats()
		st.Queue = QueueStatus{Pending: s.deps.Queue.Pending(), Applied: applied, Failed: failed}
	}
	return st
}

func (s *Server) choices() Choices {
	cfg := s.deps.Config.Config()
	configured := make([]string, 0, len(screen.All))
	for _, sc := range screen.All {
		configured = append(configured, cfg.ActionID(sc))
	}
	out := Choices{Options: s.deps.Catalog.Options(configured...)}
	for i, sc := range screen.All {
		out.Selections = append(out.Selections, Selection{
			Context:  sc,
			Value:    configured[i],
			Selected: catalog.Select(out.Options, configured[i]),
		})
	}
	return out
}

func (s *Server) handleReload(conn net.Conn) {
	if s.deps.Reload == nil {
		s.writeError(conn, errors.New("reload not supported"))
		return
	}
	if err := s.deps.Reload("control request"); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func (s *Server) handleNotifySet(conn net.Conn, params map[string]any) {
	on, ok := params["enabled"].(bool)
	if !ok {
		s.writeError(conn, errors.New("missing enabled flag"))
		return
	}
	s.deps.Config.SetNotifications(on)
	s.logger.Infof("notifications %s via control socket", onOff(on))
	s.writeOK(conn, nil)
}

func (s *Server) handleLayoutSave(ctx context.Context, conn net.Conn, params map[string]any) {
	name, _ := params["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		s.writeError(conn, errors.New("missing layout name"))
		return
	}
	l, err := s.deps.Layouts.Capture(ctx, name)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, LayoutSummary{Name: l.Name, Placements: len(l.Placements)})
}

func (s *Server) handleRun(ctx context.Context, conn net.Conn, params map[string]any) {
	raw, _ := params["key"].(string)
	key, err := actionkey.Decode(raw)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	if key.IsEmpty() {
		s.writeError(conn, errors.New("missing key"))
		return
	}
	sc, err := s.runContext(ctx, params)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	res := s.deps.Dispatcher.Execute(ctx, dispatch.Request{Key: key, Context: sc})
	out := RunResult{ID: res.ID.String(), Context: sc, Outcome: res.Outcome.String()}
	if res.Outcome == dispatch.OutcomeQueued {
		ref := res.Reference
		out.Reference = &ref
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	s.writeOK(conn, out)
}

// runContext picks the context a manual run is attributed to: the explicit
// parameter, then the last observed context, then a fresh detection.
func (s *Server) runContext(ctx context.Context, params map[string]any) (screen.Context, error) {
	if raw, _ := params["context"].(string); raw != "" {
		return screen.ParseContext(raw)
	}
	if current, ok := s.deps.Scheduler.LastContext(); ok {
		return current, nil
	}
	return s.deps.Scheduler.Detect(ctx).Context, nil
}

func (s *Server) monitorState() MonitorState {
	return MonitorState{
		Running:         s.deps.Scheduler.Running(),
		IntervalSeconds: int(s.deps.Scheduler.Interval() / time.Second),
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (s *Server) writeOK(conn net.Conn, data any) {
	resp := Response{Status: StatusOK}
	if data != nil {
		resp.Data = data
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) writeError(conn net.Conn, err error) {
	resp := Response{Status: StatusError}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(resp)
}
