// Package applier serialises mutations of the desktop onto a single consumer
// goroutine. Producers never block.
package applier

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyprpal/autolayout/internal/util"
)

// Command is a unit of work applied on the consumer goroutine.
type Command struct {
	ID   uuid.UUID
	Name string
	Run  func(ctx context.Context) error
	// Done, when set, is called on the consumer goroutine after Run returns.
	Done func(Result)
}

// Result reports how a command finished.
type Result struct {
	ID       uuid.UUID
	Name     string
	Err      error
	Panicked bool
	Started  time.Time
	Duration time.Duration
}

// Queue is an unbounded single-consumer command queue.
type Queue struct {
	logger *util.Logger

	mu      sync.Mutex
	pending []Command
	wake    chan struct{}
	applied uint64
	failed  uint64
	running bool
}

// New returns an idle queue. Call Run to start consuming.
func New(logger *util.Logger) *Queue {
	return &Queue{logger: logger, wake: make(chan struct{}, 1)}
}

// Submit enqueues cmd and returns its id. A zero id is replaced with a new
// random one.
func (q *Queue) Submit(cmd Command) uuid.UUID {
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return cmd.ID
}

// Pending returns the number of commands waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stats returns how many commands succeeded and failed so far.
func (q *Queue) Stats() (applied, failed uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.applied, q.failed
}

// Run consumes commands until ctx is cancelled. Commands still queued at that
// point are dropped. Only one Run may be active at a time.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("apply queue already running")
	}
	q.running = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.running = false
		dropped := len(q.pending)
		q.pending = nil
		q.mu.Unlock()
		if dropped > 0 && q.logger != nil {
			q.logger.Warnf("apply queue stopped with %d pending command(s)", dropped)
		}
	}()

	for {
		cmd, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.wake:
				continue
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		q.apply(ctx, cmd)
	}
}

func (q *Queue) pop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Command{}, false
	}
	cmd := q.pending[0]
	q.pending[0] = Command{}
	q.pending = q.pending[1:]
	return cmd, true
}

func (q *Queue) apply(ctx context.Context, cmd Command) {
	res := Result{ID: cmd.ID, Name: cmd.Name, Started: time.Now()}
	res.Err, res.Panicked = runGuarded(ctx, cmd)
	res.Duration = time.Since(res.Started)

	q.mu.Lock()
	if res.Err != nil {
		q.failed++
	} else {
		q.applied++
	}
	q.mu.Unlock()

	if q.logger != nil {
		if res.Err != nil {
			q.logger.Errorf("apply %s (%s) failed after %s: %v", cmd.Name, cmd.ID, res.Duration, res.Err)
		} else {
			q.logger.Debugf("applied %s (%s) in %s", cmd.Name, cmd.ID, res.Duration)
		}
	}
	if cmd.Done != nil {
		func() {
			defer func() {
				if r := recover(); r != nil && q.logger != nil {
					q.logger.Errorf("completion hook for %s panicked: %v", cmd.Name, r)
				}
			}()
			cmd.Done(res)
		}()
	}
}

func runGuarded(ctx context.Context, cmd Command) (err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			panicked = true
		}
	}()
	if cmd.Run == nil {
		return nil, false
	}
	return cmd.Run(ctx), false
}
