// Package dispatch executes the action mapped to a screen context.
// Resolution happens on the caller's goroutine; the mutation itself is handed
// to the apply queue and completes asynchronously.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/applier"
	"github.com/hyprpal/autolayout/internal/catalog"
	"github.com/hyprpal/autolayout/internal/layouts"
	"github.com/hyprpal/autolayout/internal/metrics"
	"github.com/hyprpal/autolayout/internal/notify"
	"github.com/hyprpal/autolayout/internal/screen"
	"github.com/hyprpal/autolayout/internal/util"
)

// Outcome is the synchronous result of Execute.
type Outcome int

const (
	// OutcomeSkipped means the key was empty.
	OutcomeSkipped Outcome = iota
	// OutcomeUnresolved means no layout or action matched the key.
	OutcomeUnresolved
	// OutcomeNoSession means a layout was requested without an active session.
	OutcomeNoSession
	// OutcomeQueued means a command was handed to the apply queue.
	OutcomeQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnresolved:
		return "unresolved"
	case OutcomeNoSession:
		return "no-session"
	case OutcomeQueued:
		return "queued"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Request asks for the action mapped to Context. A zero ID is replaced.
type Request struct {
	ID      uuid.UUID
	Key     actionkey.Key
	Context screen.Context
}

// Result describes what Execute did.
type Result struct {
	ID        uuid.UUID
	Outcome   Outcome
	Reference catalog.Reference
	Err       error
}

// Completion reports the asynchronous end of a queued command.
type Completion struct {
	ID        uuid.UUID
	Context   screen.Context
	Reference catalog.Reference
	Err       error
	Panicked  bool
	Duration  time.Duration
}

// Resolver turns keys into references.
type Resolver interface {
	Resolve(key actionkey.Key) (catalog.Reference, error)
}

// ActionInvoker runs registered actions.
type ActionInvoker interface {
	Invoke(ctx context.Context, id string, sc screen.Context) error
}

// LayoutActivator applies named layouts.
type LayoutActivator interface {
	Activate(ctx context.Context, name string, session layouts.Session) error
}

// SessionFunc returns the active session or layouts.ErrNoActiveSession.
type SessionFunc func(ctx context.Context) (layouts.Session, error)

// Submitter accepts commands without blocking.
type Submitter interface {
	Submit(cmd applier.Command) uuid.UUID
}

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Resolver Resolver
	Actions  ActionInvoker
	Layouts  LayoutActivator
	Session  SessionFunc
	Queue    Submitter
	Notifier notify.Sink
	Metrics  *metrics.Collector
	Logger   *util.Logger
}

// Dispatcher executes mapped actions.
type Dispatcher struct {
	deps       Deps
	onComplete func(Completion)
}

// New returns a dispatcher over deps.
func New(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// OnComplete registers fn to be called on the apply goroutine after each
// queued command finishes. It must be set before the first Execute.
func (d *Dispatcher) OnComplete(fn func(Completion)) {
	d.onComplete = fn
}

// Execute resolves req.Key and queues the resulting command. It never blocks
// on the apply queue and never returns an error to the caller; failures are
// reported through notifications and the Result.
func (d *Dispatcher) Execute(ctx context.Context, req Request) Result {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	res := Result{ID: req.ID}
	if req.Key.IsEmpty() {
		res.Outcome = OutcomeSkipped
		d.debugf("%s: nothing mapped", req.Context)
		return res
	}

	ref, err := d.deps.Resolver.Resolve(req.Key)
	if err != nil {
		res.Outcome = OutcomeUnresolved
		res.Err = err
		d.deps.Metrics.RecordUnresolved(req.Context)
		d.warnf("%s: %v", req.Context, err)
		d.show(ctx, notify.Warning, fmt.Sprintf("No matching layout/action found for %s.", req.Context.DisplayName()))
		return res
	}
	res.Reference = ref

	var run func(ctx context.Context) error
	switch ref.Kind {
	case actionkey.NamedLayout:
		session, err := d.session(ctx)
		if err != nil {
			res.Outcome = OutcomeNoSession
			res.Err = err
			d.deps.Metrics.RecordNoSession(req.Context)
			d.warnf("%s: layout %s: %v", req.Context, ref.Name, err)
			d.show(ctx, notify.Warning, fmt.Sprintf("Can't apply '%s': no active session.", ref.Label))
			return res
		}
		run = func(ctx context.Context) error {
			return d.deps.Layouts.Activate(ctx, ref.Name, session)
		}
	default:
		run = func(ctx context.Context) error {
			return d.deps.Actions.Invoke(ctx, ref.Name, req.Context)
		}
	}

	d.deps.Queue.Submit(applier.Command{
		ID:   req.ID,
		Name: ref.Key.Encode(),
		Run:  run,
		Done: func(r applier.Result) { d.complete(ctx, req, ref, r) },
	})
	d.deps.Metrics.RecordQueued(req.Context)
	res.Outcome = OutcomeQueued
	d.debugf("%s: queued %s (%s)", req.Context, ref.Key.Encode(), req.ID)
	return res
}

func (d *Dispatcher) session(ctx context.Context) (layouts.Session, error) {
	if d.deps.Session == nil {
		return layouts.Session{}, layouts.ErrNoActiveSession
	}
	session, err := d.deps.Session(ctx)
	if err != nil && !errors.Is(err, layouts.ErrNoActiveSession) {
		err = fmt.Errorf("%w: %v", layouts.ErrNoActiveSession, err)
	}
	return session, err
}

func (d *Dispatcher) complete(ctx context.Context, req Request, ref catalog.Reference, r applier.Result) {
	if r.Err != nil {
		d.deps.Metrics.RecordFailed(req.Context)
		d.show(ctx, notify.Error, fmt.Sprintf("Failed to apply '%s' for %s: %v", ref.Label, req.Context.DisplayName(), firstLine(r.Err)))
	} else {
		d.deps.Metrics.RecordApplied(req.Context)
		d.show(ctx, notify.Info, fmt.Sprintf("Switched %s -> %s", req.Context.DisplayName(), ref.Label))
	}
	if d.onComplete != nil {
		d.onComplete(Completion{
			ID:        req.ID,
			Context:   req.Context,
			Reference: ref,
			Err:       r.Err,
			Panicked:  r.Panicked,
			Duration:  r.Duration,
		})
	}
}

// firstLine trims panic stacks out of user-facing messages.
func firstLine(err error) string {
	msg := err.Error()
	for i, r := range msg {
		if r == '\n' {
			return msg[:i]
		}
	}
	return msg
}

func (d *Dispatcher) show(ctx context.Context, level notify.Level, message string) {
	if d.deps.Notifier == nil {
		return
	}
	d.deps.Notifier.Show(ctx, level, message)
}

func (d *Dispatcher) debugf(format string, args ...any) {
	if d.deps.Logger != nil {
		d.deps.Logger.Debugf(format, args...)
	}
}

func (d *Dispatcher) warnf(format string, args ...any) {
	if d.deps.Logger != nil {
		d.deps.Logger.Warnf(format, args...)
	}
}
