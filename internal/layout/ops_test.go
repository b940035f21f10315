package layout

import (
	"errors"
	"reflect"
	"testing"
)

type recordingDispatcher struct {
	dispatched [][]string
	batches    int
	batchErr   error
}

func (r *recordingDispatcher) Dispatch(args ...string) error {
	r.dispatched = append(r.dispatched, append([]string(nil), args...))
	return nil
}

type recordingBatcher struct {
	recordingDispatcher
}

func (r *recordingBatcher) DispatchBatch(commands [][]string) error {
	r.batches++
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, cmd := range commands {
		_ = r.Dispatch(cmd...)
	}
	return nil
}

func TestFloatAndPlaceCommands(t *testing.T) {
	plan := FloatAndPlace("0xabc", Rect{X: 10, Y: 20, Width: 300, Height: 400})
	want := [][]string{
		{"setfloating", "address:0xabc"},
		{"movewindowpixel", "exact 10 20,address:0xabc"},
		{"resizewindowpixel", "exact 300 400,address:0xabc"},
	}
	if !reflect.DeepEqual(plan.Commands, want) {
		t.Fatalf("unexpected commands: %#v", plan.Commands)
	}
}

func TestApplyPrefersBatch(t *testing.T) {
	var plan Plan
	plan.Merge(Tile("a"))
	plan.Merge(MoveToWorkspace("a", 3))

	d := &recordingBatcher{}
	if err := plan.Apply(d); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if d.batches != 1 || len(d.dispatched) != 2 {
		t.Fatalf("expected one batch with two commands, got batches=%d dispatched=%d", d.batches, len(d.dispatched))
	}
}

func TestApplyFallsBackWhenBatchUnsupported(t *testing.T) {
	var plan Plan
	plan.Add("workspace", "1")
	plan.Add("workspace", "2")

	d := &recordingBatcher{}
	d.batchErr = ErrBatchUnsupported
	if err := plan.Apply(d); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(d.dispatched) != 2 {
		t.Fatalf("expected sequential fallback, got %#v", d.dispatched)
	}
}

func TestApplyReturnsBatchErrors(t *testing.T) {
	var plan Plan
	plan.Add("workspace", "1")
	plan.Add("workspace", "2")

	boom := errors.New("boom")
	d := &recordingBatcher{}
	d.batchErr = boom
	if err := plan.Apply(d); !errors.Is(err, boom) {
		t.Fatalf("expected batch error, got %v", err)
	}
}
