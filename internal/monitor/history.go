package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/screen"
)

const historyLimit = 128

// TransitionStatus tracks a transition from detection to completion.
type TransitionStatus string

const (
	StatusDispatching TransitionStatus = "dispatching"
	StatusSkipped     TransitionStatus = "skipped"
	StatusUnresolved  TransitionStatus = "unresolved"
	StatusNoSession   TransitionStatus = "no-session"
	StatusQueued      TransitionStatus = "queued"
	StatusApplied     TransitionStatus = "applied"
	StatusFailed      TransitionStatus = "failed"
)

// Transition records one observed context change.
type Transition struct {
	ID       uuid.UUID        `json:"id"`
	At       time.Time        `json:"at"`
	From     *screen.Context  `json:"from,omitempty"`
	To       screen.Context   `json:"to"`
	Key      actionkey.Key    `json:"key"`
	Status   TransitionStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
	Finished time.Time        `json:"finished,omitempty"`
}

// history is a fixed-size ring of transitions, oldest first.
type history struct {
	mu       sync.Mutex
	buf      []Transition
	start    int
	count    int
	capacity int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = historyLimit
	}
	return &history{buf: make([]Transition, limit), capacity: limit}
}

func (h *history) add(t Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count < h.capacity {
		h.buf[(h.start+h.count)%h.capacity] = t
		h.count++
		return
	}
	h.buf[h.start] = t
	h.start = (h.start + 1) % h.capacity
}

// update applies mutate to the transition with id, if it is still retained.
func (h *history) update(id uuid.UUID, mutate func(*Transition)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := 0; i < h.count; i++ {
		idx := (h.start + i) % h.capacity
		if h.buf[idx].ID == id {
			mutate(&h.buf[idx])
			return true
		}
	}
	return false
}

func (h *history) snapshot() []Transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return nil
	}
	out := make([]Transition, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.start+i)%h.capacity]
		if from := out[i].From; from != nil {
			cp := *from
			out[i].From = &cp
		}
	}
	return out
}
