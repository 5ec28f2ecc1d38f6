// Package classify turns a captured Ethernet frame into updates against
// the counter tree in internal/model. It never casts a pointer over the
// buffer: every field is read by explicit byte offset and bounds-checked
// against the captured length. Counting a frame allocates nothing; a frame
// that matches no network or cannot be parsed allocates its warning text,
// which is built before the rate limit decides whether to emit it.
package classify

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/googlesky/ipacctd/internal/model"
)

// Minimum bytes needed to have a full Ethernet header (14) plus the
// smallest possible IPv4 header (20).
const (
	ethernetHeaderLen = 14
	minIPv4HeaderLen  = 20
	minCaptureLen     = ethernetHeaderLen + minIPv4HeaderLen
)

const warningIntervalSeconds = 10

// Frame is one captured Ethernet frame as the classifier sees it.
type Frame struct {
	// Data holds CapLen bytes starting at the Ethernet header.
	Data []byte
	// Len is the on-wire frame length as reported by the capture source,
	// independent of how much of it was actually captured.
	Len int
}

// Classifier applies frames to a GlobalState using a fixed count axis
// (source or destination address).
type Classifier struct {
	state *model.GlobalState
	axis  model.CountAxis

	lastWarning time.Time
	warn        func(string)
}

// New returns a Classifier that attributes frames by axis and writes
// rate-limited warnings through warn (nil disables warnings).
func New(state *model.GlobalState, axis model.CountAxis, warn func(string)) *Classifier {
	return &Classifier{state: state, axis: axis, warn: warn}
}

// Classify applies one frame to the counter tree. now is the wall-clock
// time of capture, threaded in by the caller so the classifier never
// reads the clock itself.
func (c *Classifier) Classify(f Frame, now time.Time) {
	physicalLen := int64(f.Len) + model.FrameAdditionalBytes
	c.state.Total.Add(physicalLen)

	if len(f.Data) < minCaptureLen {
		c.markUnparseable(f, physicalLen, now)
		return
	}

	versionByte := f.Data[ethernetHeaderLen]
	version := versionByte >> 4
	if version != 4 {
		c.markUnparseable(f, physicalLen, now)
		return
	}

	header := f.Data[ethernetHeaderLen : ethernetHeaderLen+minIPv4HeaderLen]
	transportByte := header[9]

	var addr model.IPv4
	if c.axis == model.CountSource {
		addr = model.IPv4FromBytes(header[12:16])
	} else {
		addr = model.IPv4FromBytes(header[16:20])
	}

	network, hostIdx, ok := c.state.Networks.Find(addr)
	if !ok {
		c.state.OtherNetwork.Add(transportByte, physicalLen)
		c.warnRateLimited(now, fmt.Sprintf("Network not found: %s", addr))
		return
	}

	network.Total.Add(transportByte, physicalLen)
	network.Hosts[hostIdx].Add(transportByte, physicalLen)
}

func (c *Classifier) markUnparseable(f Frame, physicalLen int64, now time.Time) {
	c.state.Unparseable.Add(physicalLen)
	c.warnRateLimited(now, "Unparseable: "+hex.EncodeToString(f.Data))
}

func (c *Classifier) warnRateLimited(now time.Time, msg string) {
	if c.warn == nil {
		return
	}
	if !c.lastWarning.IsZero() && now.Unix() < c.lastWarning.Unix()+warningIntervalSeconds {
		return
	}
	c.lastWarning = now
	c.warn(msg)
}
