package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/googlesky/ipacctd/internal/capture"
	"github.com/googlesky/ipacctd/internal/model"
	"github.com/googlesky/ipacctd/internal/report"
)

// fakeSource is a minimal capture.Source stand-in: it returns each frame
// in sequence, then a caller-supplied terminal error once the sequence is
// exhausted.
type fakeSource struct {
	frames   []capture.Frame
	i        int
	finalErr error
}

func (f *fakeSource) ReadFrame() (capture.Frame, error) {
	if f.i < len(f.frames) {
		frame := f.frames[f.i]
		f.i++
		return frame, nil
	}
	return capture.Frame{}, f.finalErr
}

func (f *fakeSource) Stats() (received, dropped uint64, err error) { return 0, 0, nil }
func (f *fakeSource) Close() error                                 { return nil }

// TestMaybeRollWindowBackwardClockIsFatal is the regression test for the
// wall-clock-went-backward check: the very first processPacket comparison
// ip_counts.c performs on every packet, mirrored here exactly as the
// interface-statistics-went-backward check at runWindow already is.
func TestMaybeRollWindowBackwardClockIsFatal(t *testing.T) {
	d := &Daemon{}

	if err := d.maybeRollWindow(time.Unix(1000, 0)); err != nil {
		t.Fatalf("first call: got error %v, want nil (establishes the starting window)", err)
	}

	err := d.maybeRollWindow(time.Unix(999, 0))
	if err == nil {
		t.Fatal("maybeRollWindow with an earlier second: want a *FatalError, got nil")
	}
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("maybeRollWindow with an earlier second: got %v (%T), want *FatalError", err, err)
	}
}

// TestMaybeRollWindowSameSecondIsNoop confirms the same-second case (the
// normal case: several packets can arrive within one wall-clock second)
// is not mistaken for a backward jump.
func TestMaybeRollWindowSameSecondIsNoop(t *testing.T) {
	d := &Daemon{}

	if err := d.maybeRollWindow(time.Unix(1000, 0)); err != nil {
		t.Fatalf("first call: got error %v, want nil", err)
	}
	if err := d.maybeRollWindow(time.Unix(1000, 500000)); err != nil {
		t.Fatalf("second call within the same second: got error %v, want nil", err)
	}
	if d.lastWindowSecond != 1000 {
		t.Errorf("lastWindowSecond = %d, want 1000 unchanged", d.lastWindowSecond)
	}
}

// TestRunExitsCleanlyOnSourceTermination exercises Run's other exit path:
// any source error besides capture.ErrTimeout is treated as external
// termination and returns a nil error (spec.md: exit code 0 only happens
// on external termination), not a *FatalError.
func TestRunExitsCleanlyOnSourceTermination(t *testing.T) {
	state := model.NewGlobalState(&model.NetworkTable{})
	source := &fakeSource{finalErr: errors.New("source closed")}

	d := New(source, "eth0", model.DirectionIn, model.CountDestination, state, report.FormatText, nil, nil)

	if err := d.Run(); err != nil {
		t.Fatalf("Run() = %v, want nil on source termination", err)
	}
}
