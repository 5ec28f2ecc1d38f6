// Package reconcile implements the once-per-second extrapolation pass:
// it compares the core's own captured totals against the authoritative
// interface counters and proportionally redistributes the discrepancy
// across every leaf bucket in the counter tree, so that after the pass
// the tree's sums reconcile exactly with the interface.
package reconcile

import "github.com/googlesky/ipacctd/internal/model"

// Result carries the captured (pre-extrapolation) total, for the reporter
// and for tests. The adjustments applied are not recorded in it.
type Result struct {
	CapturedPackets int64
	CapturedBytes   int64
}

// Run performs one reconciliation pass against state. It must be called
// after state.Total has already absorbed every frame for this window, and
// before state.Roll(). The caller is responsible for having already
// updated state.Iface and state.Capture with this second's readings.
func Run(state *model.GlobalState) Result {
	capturedPackets, capturedBytes := state.Total.Delta()
	state.Captured = state.Total

	adjustPackets := state.Iface.Total.Packets.End - state.IfaceStartPackets - state.Total.Packets.End
	adjustBytes := state.Iface.Total.Bytes.End - state.IfaceStartBytes - state.Total.Bytes.End

	if adjustPackets == 0 && adjustBytes == 0 {
		return Result{CapturedPackets: capturedPackets, CapturedBytes: capturedBytes}
	}

	totalDeltaPackets, totalDeltaBytes := state.Total.Delta()

	if totalDeltaPackets == 0 && totalDeltaBytes == 0 {
		return Result{CapturedPackets: capturedPackets, CapturedBytes: capturedBytes}
	}

	// Never drive a bucket's delta negative: clamp a negative adjustment to
	// at most the total delta itself.
	if adjustPackets < 0 && -adjustPackets > totalDeltaPackets {
		adjustPackets = -totalDeltaPackets
	}
	if adjustBytes < 0 && -adjustBytes > totalDeltaBytes {
		adjustBytes = -totalDeltaBytes
	}

	w := &walk{
		totalPacketsAdjust: adjustPackets,
		totalBytesAdjust:   adjustBytes,
		totalPacketsDelta:  totalDeltaPackets,
		totalBytesDelta:    totalDeltaBytes,
		total:              &state.Total,
	}

	// Visit order is part of the contract: unparseable, then
	// other_network's four protocol buckets, then each network in
	// declaration order, each host bucket's four protocol buckets.
	w.countPair(nil, &state.Unparseable)
	w.protocolBucket(nil, &state.OtherNetwork)
	for _, n := range state.Networks.Networks {
		for i := range n.Hosts {
			w.protocolBucket(&n.Total, &n.Hosts[i])
		}
	}

	return Result{CapturedPackets: capturedPackets, CapturedBytes: capturedBytes}
}

// walk carries the running totalAdjust/totalDelta state across the leaf
// visit so each leaf's proportional share shrinks the remaining pool the
// same way the original's adjustSample does.
type walk struct {
	totalPacketsAdjust int64
	totalBytesAdjust   int64
	totalPacketsDelta  int64
	totalBytesDelta    int64
	total              *model.CountPair
}

// countPair reconciles one leaf CountPair's packets and bytes
// independently. parent, when non-nil, is the enclosing network's total
// CountPair, which also receives the adjustment (so the network's own
// subtotal stays consistent with the sum of its hosts).
func (w *walk) countPair(parent *model.CountPair, leaf *model.CountPair) {
	w.sample(&w.totalPacketsDelta, &w.totalPacketsAdjust, &w.total.Packets, parentCounter(parent, true), &leaf.Packets)
	w.sample(&w.totalBytesDelta, &w.totalBytesAdjust, &w.total.Bytes, parentCounter(parent, false), &leaf.Bytes)
}

func parentCounter(parent *model.CountPair, packets bool) *model.Counter {
	if parent == nil {
		return nil
	}
	if packets {
		return &parent.Packets
	}
	return &parent.Bytes
}

// protocolBucket reconciles all four protocol slots of a leaf bucket,
// attributing each to the optional parent network total.
func (w *walk) protocolBucket(parentTotal *model.ProtocolBucket, leaf *model.ProtocolBucket) {
	leafPairs := leaf.Pairs()
	var parentPairs [4]*model.CountPair
	if parentTotal != nil {
		parentPairs = parentTotal.Pairs()
	}
	for i, lp := range leafPairs {
		var pp *model.CountPair
		if parentTotal != nil {
			pp = parentPairs[i]
		}
		w.countPair(pp, lp)
	}
}

// sample is the single-dimension (one of packets or bytes) redistribution
// step: adjust the leaf in proportion to its share of the remaining
// total_delta, decrementing the running pools as we go so the last
// nonzero leaf absorbs the truncation residue.
func (w *walk) sample(totalDelta, totalAdjust *int64, totalCounter, parentCounter *model.Counter, leaf *model.Counter) {
	leafDelta := leaf.Delta()
	if leafDelta == 0 {
		return
	}
	leafAdjust := *totalAdjust * leafDelta / *totalDelta
	if leafAdjust != 0 {
		leaf.End += leafAdjust
		totalCounter.End += leafAdjust
		if parentCounter != nil {
			parentCounter.End += leafAdjust
		}
		*totalAdjust -= leafAdjust
	}
	*totalDelta -= leafDelta
}
