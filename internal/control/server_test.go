package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/config"
	"github.com/hyprpal/autolayout/internal/dispatch"
	"github.com/hyprpal/autolayout/internal/layouts"
	"github.com/hyprpal/autolayout/internal/metrics"
	"github.com/hyprpal/autolayout/internal/monitor"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/util"
)

type fakeScheduler struct {
	mu       sync.Mutex
	running  bool
	starts   int
	last     *screen.Context
	detected screen.Context
}

func (f *fakeScheduler) Start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
	return true
}

func (f *fakeScheduler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeScheduler) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeScheduler) Interval() time.Duration {
	if f.Running() {
		return 4 * time.Second
	}
	return 0
}

func (f *fakeScheduler) Detect(context.Context) monitor.Observation {
	return monitor.Observation{Context: f.detected}
}

func (f *fakeScheduler) LastObservation() *monitor.Observation { return nil }

func (f *fakeScheduler) LastContext() (screen.Context, bool) {
	if f.last == nil {
		return screen.LaptopOnly, false
	}
	return *f.last, true
}

func (f *fakeScheduler) History() []monitor.Transition { return nil }

type fakeRegistry map[string]string

func (f fakeRegistry) Lookup(id string) (catalog.ActionRef, bool) {
	label, ok := f[id]
	return catalog.ActionRef{ID: id, Label: label}, ok
}

type fakeLayouts struct {
	names    []string
	captured []string
}

func (f *fakeLayouts) Names() []string { return f.names }

func (f *fakeLayouts) Capture(_ context.Context, name string) (layouts.Layout, error) {
	f.captured = append(f.captured, name)
	return layouts.Layout{Name: name, Placements: make([]layouts.Placement, 3)}, nil
}

type fakeExecutor struct {
	requests []dispatch.Request
}

func (f *fakeExecutor) Execute(_ context.Context, req dispatch.Request) dispatch.Result {
	f.requests = append(f.requests, req)
	return dispatch.Result{ID: uuid.New(), Outcome: dispatch.OutcomeQueued, Reference: catalog.Reference{Name: "Focus", Label: "Focus"}}
}

type fixture struct {
	srv       *Server
	store     *config.Store
	scheduler *fakeScheduler
	layouts   *fakeLayouts
	exec      *fakeExecutor
	reloads   []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.SingleExternalActionID = "namedLayout:Focus"
	cfg.LaptopActionID = "name:Gone"
	f := &fixture{
		store:     config.NewStore(cfg),
		scheduler: &fakeScheduler{running: true, detected: screen.MultiExternal},
		layouts:   &fakeLayouts{names: []string{"Focus", "code"}},
		exec:      &fakeExecutor{},
	}
	cat := catalog.New(fakeRegistry{catalog.RestoreDefaultID: "Restore Default Layout"}, f.layouts)
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	f.srv = NewServerAt("", Deps{
		Config:     f.store,
		Scheduler:  f.scheduler,
		Catalog:    cat,
		Layouts:    f.layouts,
		Dispatcher: f.exec,
		Metrics:    metrics.NewCollector(true),
		Reload: func(reason string) error {
			f.reloads = append(f.reloads, reason)
			return nil
		},
	}, logger)
	return f
}

func (f *fixture) call(t *testing.T, req Request, out any) Response {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	var (
		wg   sync.WaitGroup
		resp Response
		raw  json.RawMessage
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := json.NewEncoder(clientConn).Encode(req); err != nil {
			t.Errorf("encode request: %v", err)
			return
		}
		var envelope struct {
			Response
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(clientConn).Decode(&envelope); err != nil {
			t.Errorf("decode response: %v", err)
			return
		}
		resp = envelope.Response
		raw = envelope.Data
	}()

	f.srv.handle(context.Background(), serverConn)
	wg.Wait()
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}
	return resp
}

func TestStatusReportsMapping(t *testing.T) {
	f := newFixture(t)
	single := screen.SingleExternal
	f.scheduler.last = &single

	var st Status
	resp := f.call(t, Request{Action: ActionStatus}, &st)
	if resp.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%s)", resp.Status, resp.Error)
	}
	if !st.Running || st.IntervalSeconds != 4 || !st.Enabled {
		t.Fatalf("unexpected monitor state: %+v", st)
	}
	if st.Context == nil || *st.Context != screen.SingleExternal {
		t.Fatalf("expected SINGLE_EXTERNAL context, got %v", st.Context)
	}
	if len(st.Mapping) != 3 {
		t.Fatalf("expected three mapping entries, got %d", len(st.Mapping))
	}
	laptop, single2, multi := st.Mapping[0], st.Mapping[1], st.Mapping[2]
	if laptop.Key != "namedLayout:Gone" || laptop.Resolved {
		t.Fatalf("expected unresolved legacy key, got %+v", laptop)
	}
	if single2.Label != "Focus" || !single2.Resolved {
		t.Fatalf("expected resolved Focus layout, got %+v", single2)
	}
	if multi.Key != catalog.RestoreDefaultID || multi.Label != "Restore Default Layout" {
		t.Fatalf("expected default multi action, got %+v", multi)
	}
}

func TestChoicesIncludesUnavailableKeys(t *testing.T) {
	f := newFixture(t)
	var choices Choices
	if resp := f.call(t, Request{Action: ActionChoices}, &choices); resp.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%s)", resp.Status, resp.Error)
	}
	last := choices.Options[len(choices.Options)-1]
	if last.Value != "name:Gone" || last.Available {
		t.Fatalf("expected unavailable legacy option last, got %+v", last)
	}
	if len(choices.Selections) != 3 {
		t.Fatalf("expected three selections, got %d", len(choices.Selections))
	}
	single := choices.Selections[1]
	if choices.Options[single.Selected].Value != "namedLayout:Focus" {
		t.Fatalf("unexpected selection for single: %+v", single)
	}
}

func TestNotifySetTogglesSuppression(t *testing.T) {
	f := newFixture(t)
	if resp := f.call(t, Request{Action: ActionNotifySet, Params: map[string]any{"enabled": false}}, nil); resp.Status != StatusOK {
		t.Fatalf("notify off failed: %s", resp.Error)
	}
	if f.store.NotificationsEnabled() {
		t.Fatalf("expected notifications to be suppressed")
	}
	if resp := f.call(t, Request{Action: ActionNotifySet, Params: map[string]any{"enabled": true}}, nil); resp.Status != StatusOK {
		t.Fatalf("notify on failed: %s", resp.Error)
	}
	if !f.store.NotificationsEnabled() {
		t.Fatalf("expected notifications to be enabled")
	}
	if resp := f.call(t, Request{Action: ActionNotifySet}, nil); resp.Status != StatusError {
		t.Fatalf("expected error without flag")
	}
}

func TestRunUsesDetectedContextWhenNoneObserved(t *testing.T) {
	f := newFixture(t)
	var res RunResult
	resp := f.call(t, Request{Action: ActionRun, Params: map[string]any{"key": "name:Focus"}}, &res)
	if resp.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%s)", resp.Status, resp.Error)
	}
	if len(f.exec.requests) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(f.exec.requests))
	}
	req := f.exec.requests[0]
	if req.Key.Encode() != "namedLayout:Focus" || req.Context != screen.MultiExternal {
		t.Fatalf("unexpected request: %+v", req)
	}
	if res.Outcome != "queued" || res.Reference == nil || res.Reference.Label != "Focus" {
		t.Fatalf("unexpected run result: %+v", res)
	}
}

func TestRunRejectsEmptyKey(t *testing.T) {
	f := newFixture(t)
	if resp := f.call(t, Request{Action: ActionRun, Params: map[string]any{"key": "  "}}, nil); resp.Status != StatusError {
		t.Fatalf("expected error for empty key")
	}
	if resp := f.call(t, Request{Action: ActionRun, Params: map[string]any{"key": "namedLayout:"}}, nil); resp.Status != StatusError {
		t.Fatalf("expected error for invalid key")
	}
	if len(f.exec.requests) != 0 {
		t.Fatalf("expected no dispatches, got %d", len(f.exec.requests))
	}
}

func TestPauseAndResume(t *testing.T) {
	f := newFixture(t)
	var state MonitorState
	f.call(t, Request{Action: ActionMonitorPause}, &state)
	if state.Running || f.scheduler.Running() {
		t.Fatalf("expected paused monitor")
	}
	f.call(t, Request{Action: ActionMonitorResume}, &state)
	if !state.Running || state.IntervalSeconds != 4 {
		t.Fatalf("expected running monitor, got %+v", state)
	}
	if f.scheduler.starts != 1 {
		t.Fatalf("expected one start, got %d", f.scheduler.starts)
	}
}

func TestLayoutSaveAndReload(t *testing.T) {
	f := newFixture(t)
	var summary LayoutSummary
	if resp := f.call(t, Request{Action: ActionLayoutSave, Params: map[string]any{"name": " desk "}}, &summary); resp.Status != StatusOK {
		t.Fatalf("save failed: %s", resp.Error)
	}
	if summary.Name != "desk" || summary.Placements != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if resp := f.call(t, Request{Action: ActionLayoutSave}, nil); resp.Status != StatusError {
		t.Fatalf("expected error without name")
	}
	if resp := f.call(t, Request{Action: ActionReload}, nil); resp.Status != StatusOK {
		t.Fatalf("reload failed: %s", resp.Error)
	}
	if len(f.reloads) != 1 || f.reloads[0] != "control request" {
		t.Fatalf("unexpected reloads: %v", f.reloads)
	}
}

func TestReloadErrorIsReported(t *testing.T) {
	f := newFixture(t)
	f.srv.deps.Reload = func(string) error { return errors.New("invalid config") }
	resp := f.call(t, Request{Action: ActionReload}, nil)
	if resp.Status != StatusError || resp.Error != "invalid config" {
		t.Fatalf("expected reload error, got %+v", resp)
	}
}

func TestUnknownAction(t *testing.T) {
	f := newFixture(t)
	resp := f.call(t, Request{Action: "mode.set"}, nil)
	if resp.Status != StatusError {
		t.Fatalf("expected error for unknown action")
	}
}
