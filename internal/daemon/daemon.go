// Package daemon wires the capture source, classifier, interface-stats
// reader, reconciler, and reporter into spec.md section 5's
// single-threaded cooperative loop: a frame drives classification; when
// its wall-clock second crosses a boundary, the same call runs the
// reconcile/report/roll sequence before returning to the capture read.
package daemon

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/googlesky/ipacctd/internal/capture"
	"github.com/googlesky/ipacctd/internal/classify"
	"github.com/googlesky/ipacctd/internal/ifstats"
	"github.com/googlesky/ipacctd/internal/model"
	"github.com/googlesky/ipacctd/internal/reconcile"
	"github.com/googlesky/ipacctd/internal/report"
)

// FatalError wraps any condition spec.md section 7 classifies as fatal:
// environmental regressions, resource errors encountered mid-loop, and
// write errors. The caller maps it to a non-zero process exit status.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string { return "ipacctd: fatal: " + e.Cause.Error() }
func (e *FatalError) Unwrap() error { return e.Cause }

func fatalf(format string, args ...any) *FatalError {
	return &FatalError{Cause: fmt.Errorf(format, args...)}
}

// Daemon owns every collaborator for one run.
type Daemon struct {
	source     capture.Source
	classifier *classify.Classifier
	ifstats    *ifstats.Reader
	state      *model.GlobalState
	format     report.Format
	out        io.Writer
	logger     *log.Logger

	lastWindowSecond int64
	lastCapReceived  uint64
	lastCapDropped   uint64
	started          bool
}

// New assembles a Daemon. state must already own a populated
// NetworkTable; New does not build one.
func New(source capture.Source, iface string, dir model.Direction, axis model.CountAxis, state *model.GlobalState, format report.Format, out io.Writer, logger *log.Logger) *Daemon {
	d := &Daemon{
		source:  source,
		ifstats: ifstats.NewReader(iface, dir),
		state:   state,
		format:  format,
		out:     out,
		logger:  logger,
	}
	d.classifier = classify.New(state, axis, d.warn)
	return d
}

// Start reads the interface counters once to anchor the reconciler's
// adjust_packets/adjust_bytes comparison for the whole run (spec.md
// 4.4 step 4: "ifstats_start_* ... captured at process start"). It must
// be called exactly once, before Run.
func (d *Daemon) Start() error {
	if err := d.ifstats.Read(&d.state.Iface); err != nil {
		return &FatalError{Cause: err}
	}
	d.state.IfaceStartPackets = d.state.Iface.Total.Packets.End
	d.state.IfaceStartBytes = d.state.Iface.Total.Bytes.End
	d.state.Iface.Roll()
	return nil
}

func (d *Daemon) warn(msg string) {
	if d.logger != nil {
		d.logger.Println(msg)
	}
}

// Run drives the capture loop until a fatal condition occurs or ctx-free
// external termination stops the capture source out from under it (the
// source then returns a non-ErrTimeout error, which Run treats as the
// signal to exit cleanly — spec.md: "exit code 0 ... only happens on
// external termination").
//
// The ErrTimeout branch also calls maybeRollWindow, so an idle 100ms
// poll tick can itself drive the reconcile/report/roll pass, not just
// frame arrival as spec.md's own framing puts it: this keeps reports
// flowing once a second even across a silent interface.
func (d *Daemon) Run() error {
	for {
		frame, err := d.source.ReadFrame()
		now := time.Now()

		if err != nil {
			if err == capture.ErrTimeout {
				if fatal := d.maybeRollWindow(now); fatal != nil {
					return fatal
				}
				continue
			}
			return nil
		}

		d.classifier.Classify(classify.Frame{Data: frame.Data, Len: frame.Len}, now)

		if fatal := d.maybeRollWindow(now); fatal != nil {
			return fatal
		}
	}
}

// maybeRollWindow runs the once-per-second reconcile/report/roll sequence
// when now's wall-clock second has advanced past the last window's. A
// second strictly less than the last window's is a backward clock jump,
// not a same-second no-op, and is as fatal as the interface counters
// themselves going backward.
func (d *Daemon) maybeRollWindow(now time.Time) error {
	second := now.Unix()
	if !d.started {
		d.started = true
		d.lastWindowSecond = second
		return nil
	}
	if second < d.lastWindowSecond {
		return fatalf("wall clock went backward")
	}
	if second == d.lastWindowSecond {
		return nil
	}
	start := time.Unix(d.lastWindowSecond, 0)
	windowErr := d.runWindow(start, now)
	d.lastWindowSecond = second
	return windowErr
}

func (d *Daemon) runWindow(start, end time.Time) error {
	if err := d.ifstats.Read(&d.state.Iface); err != nil {
		return &FatalError{Cause: err}
	}
	if d.state.Iface.IsBackward() {
		return fatalf("interface statistics went backward")
	}

	received, dropped, err := d.source.Stats()
	if err != nil {
		return &FatalError{Cause: err}
	}
	d.state.Capture.Received.End += int64(wrappingDelta32(uint32(received), uint32(d.lastCapReceived)))
	d.state.Capture.Dropped.End += int64(wrappingDelta32(uint32(dropped), uint32(d.lastCapDropped)))
	d.lastCapReceived = received
	d.lastCapDropped = dropped

	res := reconcile.Run(d.state)

	snap := report.Build(d.state, res, start, end)
	if err := report.Write(d.out, d.format, snap); err != nil {
		return &FatalError{Cause: fmt.Errorf("write report: %w", err)}
	}
	if f, ok := d.out.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return &FatalError{Cause: fmt.Errorf("flush report: %w", err)}
		}
	}

	d.state.Roll()
	return nil
}

// wrappingDelta32 computes current-last as unsigned 32-bit subtraction,
// so a single wrap of the underlying (typically 32-bit) capture-library
// counter doesn't read back as a large negative delta.
func wrappingDelta32(current, last uint32) uint32 {
	return current - last
}
