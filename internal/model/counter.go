// Package model holds the hierarchical counter tree shared by the
// classifier, reconciler, and reporter: Counter -> CountPair ->
// ProtocolBucket -> Network -> NetworkTable -> GlobalState.
package model

import "fmt"

// Counter is a cumulative (start, end) pair. Delta is the current
// reporting window's value; Roll advances the window by copying End into
// Start.
type Counter struct {
	Start int64
	End   int64
}

// Add increments the end value by n.
func (c *Counter) Add(n int64) {
	c.End += n
}

// Delta returns End - Start for the current window.
func (c Counter) Delta() int64 {
	return c.End - c.Start
}

// Roll advances the window: Start becomes the current End.
func (c *Counter) Roll() {
	c.Start = c.End
}

// IsBackward reports whether End has moved behind Start. Authoritative
// sources (interface statistics, the capture library's own stats) must
// never observe this; it is fatal when they do.
func (c Counter) IsBackward() bool {
	return c.End < c.Start
}

// CountPair is a (packets, bytes) pair of Counters.
type CountPair struct {
	Packets Counter
	Bytes   Counter
}

// Add adds one packet and n bytes to the pair.
func (c *CountPair) Add(bytes int64) {
	c.Packets.Add(1)
	c.Bytes.Add(bytes)
}

// Delta returns the (packets, bytes) delta pair.
func (c CountPair) Delta() (packets, bytes int64) {
	return c.Packets.Delta(), c.Bytes.Delta()
}

// Roll advances both counters in the pair.
func (c *CountPair) Roll() {
	c.Packets.Roll()
	c.Bytes.Roll()
}

// IsBackward reports whether either counter in the pair went backward.
func (c CountPair) IsBackward() bool {
	return c.Packets.IsBackward() || c.Bytes.IsBackward()
}

// DeltaString renders the pair's delta in "packets/bytes" form. The text
// reporter does not call it: it writes packets and bytes as separate
// key=value lines.
func (c CountPair) DeltaString() string {
	p, b := c.Delta()
	return fmt.Sprintf("%d/%d", p, b)
}
