package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/applier"
	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/layouts"
	"github.com/hyprpal/autolayout/internal/metrics"
	"github.com/hyprpal/autolayout/internal/notify"
	"github.com/hyprpal/autolayout/internal/screen"
)

type shown struct {
	level   notify.Level
	message string
}

type fakeSink struct {
	mu    sync.Mutex
	shown []shown
}

func (f *fakeSink) Show(_ context.Context, level notify.Level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, shown{level: level, message: message})
}

func (f *fakeSink) Suppress() {}

type fakeActions struct {
	labels  map[string]string
	invoked []string
	err     error
}

func (f *fakeActions) Lookup(id string) (catalog.ActionRef, bool) {
	label, ok := f.labels[id]
	return catalog.ActionRef{ID: id, Label: label}, ok
}

func (f *fakeActions) Invoke(_ context.Context, id string, sc screen.Context) error {
	f.invoked = append(f.invoked, id+"@"+sc.Slug())
	return f.err
}

type fakeLayouts struct {
	names     []string
	activated []string
	sessions  []layouts.Session
}

func (f *fakeLayouts) Names() []string { return f.names }

func (f *fakeLayouts) Activate(_ context.Context, name string, session layouts.Session) error {
	f.activated = append(f.activated, name)
	f.sessions = append(f.sessions, session)
	return nil
}

// inlineQueue applies commands on the submitting goroutine.
type inlineQueue struct {
	submitted []applier.Command
}

func (q *inlineQueue) Submit(cmd applier.Command) uuid.UUID {
	q.submitted = append(q.submitted, cmd)
	var res applier.Result
	res.ID = cmd.ID
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Err = errors.New("panic")
				res.Panicked = true
			}
		}()
		res.Err = cmd.Run(context.Background())
	}()
	cmd.Done(res)
	return cmd.ID
}

type harness struct {
	dispatcher *Dispatcher
	sink       *fakeSink
	actions    *fakeActions
	layouts    *fakeLayouts
	queue      *inlineQueue
	metrics    *metrics.Collector
	done       []Completion
}

func newHarness(sessionErr error) *harness {
	h := &harness{
		sink:    &fakeSink{},
		actions: &fakeActions{labels: map[string]string{catalog.RestoreDefaultID: "Restore Default Layout"}},
		layouts: &fakeLayouts{names: []string{"Focus"}},
		queue:   &inlineQueue{},
		metrics: metrics.NewCollector(true),
	}
	h.dispatcher = New(Deps{
		Resolver: catalog.New(h.actions, h.layouts),
		Actions:  h.actions,
		Layouts:  h.layouts,
		Session: func(context.Context) (layouts.Session, error) {
			if sessionErr != nil {
				return layouts.Session{}, sessionErr
			}
			return layouts.Session{WorkspaceID: 3, Monitor: "DP-1"}, nil
		},
		Queue:    h.queue,
		Notifier: h.sink,
		Metrics:  h.metrics,
	})
	h.dispatcher.OnComplete(func(c Completion) { h.done = append(h.done, c) })
	return h
}

func TestExecuteEmptyKeyIsSilent(t *testing.T) {
	h := newHarness(nil)
	res := h.dispatcher.Execute(context.Background(), Request{Key: actionkey.None, Context: screen.LaptopOnly})
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.NotEqual(t, uuid.Nil, res.ID)
	assert.Empty(t, h.sink.shown)
	assert.Empty(t, h.queue.submitted)
}

func TestExecuteUnresolvedKeyWarnsOnce(t *testing.T) {
	h := newHarness(nil)
	res := h.dispatcher.Execute(context.Background(), Request{Key: actionkey.Layout("DoesNotExist"), Context: screen.SingleExternal})

	assert.Equal(t, OutcomeUnresolved, res.Outcome)
	assert.ErrorIs(t, res.Err, catalog.ErrUnresolvedActionKey)
	require.Len(t, h.sink.shown, 1)
	assert.Equal(t, notify.Warning, h.sink.shown[0].level)
	assert.Equal(t, "No matching layout/action found for Single external display.", h.sink.shown[0].message)
	assert.Empty(t, h.actions.invoked)
	assert.Empty(t, h.layouts.activated)
	assert.Equal(t, uint64(1), h.metrics.Snapshot().Totals.Unresolved)
}

func TestExecuteNamedLayoutWithoutSession(t *testing.T) {
	h := newHarness(errors.New("nothing focused"))
	res := h.dispatcher.Execute(context.Background(), Request{Key: actionkey.Layout("focus"), Context: screen.SingleExternal})

	assert.Equal(t, OutcomeNoSession, res.Outcome)
	assert.ErrorIs(t, res.Err, layouts.ErrNoActiveSession)
	require.Len(t, h.sink.shown, 1)
	assert.Equal(t, "Can't apply 'Focus': no active session.", h.sink.shown[0].message)
	assert.Empty(t, h.queue.submitted)
}

func TestExecuteNamedLayoutQueuesActivation(t *testing.T) {
	h := newHarness(nil)
	id := uuid.New()
	res := h.dispatcher.Execute(context.Background(), Request{ID: id, Key: actionkey.Layout("Focus"), Context: screen.SingleExternal})

	assert.Equal(t, OutcomeQueued, res.Outcome)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, []string{"Focus"}, h.layouts.activated)
	assert.Equal(t, layouts.Session{WorkspaceID: 3, Monitor: "DP-1"}, h.layouts.sessions[0])
	require.Len(t, h.sink.shown, 1)
	assert.Equal(t, notify.Info, h.sink.shown[0].level)
	assert.Equal(t, "Switched Single external display -> Focus", h.sink.shown[0].message)
	require.Len(t, h.done, 1)
	assert.Equal(t, id, h.done[0].ID)
	assert.NoError(t, h.done[0].Err)
}

func TestExecuteUnprefixedKeyPrefersLayout(t *testing.T) {
	h := newHarness(nil)
	h.actions.labels["Focus"] = "Focus action"
	res := h.dispatcher.Execute(context.Background(), Request{Key: actionkey.Action("Focus"), Context: screen.SingleExternal})

	assert.Equal(t, OutcomeQueued, res.Outcome)
	assert.Equal(t, []string{"Focus"}, h.layouts.activated)
	assert.Empty(t, h.actions.invoked)
}

func TestExecuteRawActionInvokesRegistry(t *testing.T) {
	h := newHarness(errors.New("sessions are not needed for actions"))
	res := h.dispatcher.Execute(context.Background(), Request{Key: actionkey.Action(catalog.RestoreDefaultID), Context: screen.MultiExternal})

	assert.Equal(t, OutcomeQueued, res.Outcome)
	assert.Equal(t, []string{"RestoreDefaultLayout@multi"}, h.actions.invoked)
	require.Len(t, h.sink.shown, 1)
	assert.Equal(t, "Switched Multiple external displays -> Restore Default Layout", h.sink.shown[0].message)
	assert.Equal(t, uint64(1), h.metrics.Snapshot().Totals.Applied)
}

func TestExecuteReportsApplyFailure(t *testing.T) {
	h := newHarness(nil)
	h.actions.err = errors.New("dispatch rejected")
	res := h.dispatcher.Execute(context.Background(), Request{Key: actionkey.Action(catalog.RestoreDefaultID), Context: screen.LaptopOnly})

	assert.Equal(t, OutcomeQueued, res.Outcome)
	require.Len(t, h.sink.shown, 1)
	assert.Equal(t, notify.Error, h.sink.shown[0].level)
	assert.Contains(t, h.sink.shown[0].message, "dispatch rejected")
	require.Len(t, h.done, 1)
	assert.Error(t, h.done[0].Err)
	assert.Equal(t, uint64(1), h.metrics.Snapshot().Totals.Failed)
}

func TestExecuteWithRealQueueDoesNotBlock(t *testing.T) {
	h := newHarness(nil)
	q := applier.New(nil)
	h.dispatcher.deps.Queue = q

	res := h.dispatcher.Execute(context.Background(), Request{Key: actionkey.Layout("Focus"), Context: screen.SingleExternal})
	assert.Equal(t, OutcomeQueued, res.Outcome)
	assert.Equal(t, 1, q.Pending())
	assert.Empty(t, h.layouts.activated, "activation must wait for the consumer")
}
