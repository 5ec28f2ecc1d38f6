package model

// Direction selects which pcap-style direction of traffic a run accounts
// for: "in" reads rx_ interface counters and inbound-only frames, "out"
// reads tx_ and outbound-only frames.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

// CountAxis selects whether the classifier attributes a frame by its
// source or destination address.
type CountAxis int

const (
	CountSource CountAxis = iota
	CountDestination
)

// IfaceStats mirrors the five counters spec.md section 6 reads from
// /sys/class/net/<iface>/statistics per direction.
type IfaceStats struct {
	Total      CountPair // packets, bytes (bytes includes the 24B/packet overhead)
	Dropped    Counter
	Errors     Counter
	FifoErrors Counter
}

// IsBackward reports whether any interface counter moved backward. This
// is fatal for the whole process (spec.md section 7).
func (s IfaceStats) IsBackward() bool {
	return s.Total.IsBackward() || s.Dropped.IsBackward() || s.Errors.IsBackward() || s.FifoErrors.IsBackward()
}

// Roll advances every interface counter.
func (s *IfaceStats) Roll() {
	s.Total.Roll()
	s.Dropped.Roll()
	s.Errors.Roll()
	s.FifoErrors.Roll()
}

// CaptureStats holds the capture library's own received/dropped counters,
// maintained as rolling 64-bit totals fed by unsigned 32-bit subtraction
// (so a single 32-bit wrap of the underlying kernel counter doesn't lose
// counts; see internal/daemon).
type CaptureStats struct {
	Received Counter
	Dropped  Counter
}

// Roll advances both capture-library counters.
func (s *CaptureStats) Roll() {
	s.Received.Roll()
	s.Dropped.Roll()
}

// GlobalState is the single owned counter tree for one run: total,
// captured (pre-extrapolation snapshot), unparseable, other-network, and
// the per-network/per-host tree inside Networks.
type GlobalState struct {
	Networks *NetworkTable

	Total        CountPair
	Captured     CountPair // snapshot of Total taken just before reconciliation
	Unparseable  CountPair
	OtherNetwork ProtocolBucket

	Iface   IfaceStats
	Capture CaptureStats

	// IfaceStartPackets/IfaceStartBytes anchor the reconciler's adjustment
	// math to the values observed at process start (spec.md 4.4 step 4),
	// not merely the last window's start.
	IfaceStartPackets int64
	IfaceStartBytes   int64
}

// NewGlobalState constructs a GlobalState over the given, already-built
// NetworkTable.
func NewGlobalState(networks *NetworkTable) *GlobalState {
	return &GlobalState{Networks: networks}
}

// Roll advances every counter in the tree for the next reporting window:
// total, unparseable, other-network, interface stats, capture stats, and
// every network/host bucket.
func (g *GlobalState) Roll() {
	g.Total.Roll()
	g.Unparseable.Roll()
	g.OtherNetwork.Roll()
	g.Iface.Roll()
	g.Capture.Roll()
	g.Networks.Roll()
}
