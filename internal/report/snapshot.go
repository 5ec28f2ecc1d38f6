// Package report serializes one reporting-window snapshot of the counter
// tree in either of the two wire formats spec.md section 6 defines: a
// human-readable key=value text form, or a fixed big-endian binary form.
package report

import (
	"time"

	"github.com/googlesky/ipacctd/internal/model"
	"github.com/googlesky/ipacctd/internal/reconcile"
)

// ProtocolVersion is the only value the binary/text records ever carry;
// anything else would be a programming error, not a runtime condition.
const ProtocolVersion = 1

// NetworkSnapshot is one Network's reporting-window view: its own delta
// totals plus every host bucket's delta, in declaration/index order.
type NetworkSnapshot struct {
	Address model.IPv4
	Prefix  uint8
	Total   model.ProtocolBucket
	Hosts   []model.ProtocolBucket
}

// Snapshot is everything one reporting window emits. It must be built
// from a GlobalState after the reconciliation pass and before
// GlobalState.Roll, since Roll zeroes every delta.
type Snapshot struct {
	Start time.Time
	End   time.Time

	IfaceDropped    int64
	IfaceErrors     int64
	IfaceFifoErrors int64

	CapReceived int64
	CapDropped  int64

	IfaceTotalPackets, IfaceTotalBytes     int64
	CapturedPackets, CapturedBytes         int64
	ExtrapolatedPackets, ExtrapolatedBytes int64

	UnparseablePackets, UnparseableBytes int64
	OtherNetwork                         model.ProtocolBucket

	Networks []NetworkSnapshot
}

// Build assembles a Snapshot from the current (pre-roll) state of a
// GlobalState and the Result of this window's reconciliation pass.
func Build(state *model.GlobalState, res reconcile.Result, start, end time.Time) Snapshot {
	ifacePackets, ifaceBytes := state.Iface.Total.Delta()
	extraPackets, extraBytes := state.Total.Delta()
	unparseablePackets, unparseableBytes := state.Unparseable.Delta()

	snap := Snapshot{
		Start: start,
		End:   end,

		IfaceDropped:    state.Iface.Dropped.Delta(),
		IfaceErrors:     state.Iface.Errors.Delta(),
		IfaceFifoErrors: state.Iface.FifoErrors.Delta(),

		CapReceived: state.Capture.Received.Delta(),
		CapDropped:  state.Capture.Dropped.Delta(),

		IfaceTotalPackets: ifacePackets,
		IfaceTotalBytes:   ifaceBytes,

		CapturedPackets: res.CapturedPackets,
		CapturedBytes:   res.CapturedBytes,

		ExtrapolatedPackets: extraPackets,
		ExtrapolatedBytes:   extraBytes,

		UnparseablePackets: unparseablePackets,
		UnparseableBytes:   unparseableBytes,
		OtherNetwork:       state.OtherNetwork,

		Networks: make([]NetworkSnapshot, len(state.Networks.Networks)),
	}

	for i, n := range state.Networks.Networks {
		ns := NetworkSnapshot{
			Address: n.Address,
			Prefix:  n.Prefix,
			Total:   n.Total,
			Hosts:   make([]model.ProtocolBucket, len(n.Hosts)),
		}
		copy(ns.Hosts, n.Hosts)
		snap.Networks[i] = ns
	}

	return snap
}
