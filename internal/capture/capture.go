// Package capture reads raw Ethernet frames off a live interface.
package capture

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Source.ReadFrame when no frame arrived within
// the read timeout. It is not a fatal condition: the caller uses it as
// the cooperative-scheduling tick that drives the once-per-second
// reconcile/report check even during quiet traffic.
var ErrTimeout = errors.New("capture: read timeout")

// Frame is one captured frame, direction-tagged by the driver.
type Frame struct {
	Data     []byte // CapLen bytes starting at the Ethernet header
	Len      int    // on-wire length as reported by the kernel
	Outbound bool
}

// Source is a live packet-capture handle. Implementations must honor a
// bounded read timeout (spec.md: 100ms) so the daemon loop can perform
// its once-per-second housekeeping even when no traffic arrives.
type Source interface {
	// ReadFrame blocks for at most the configured timeout and returns the
	// next frame, or ErrTimeout if none arrived.
	ReadFrame() (Frame, error)

	// Stats returns the capture library's own cumulative received/dropped
	// counters (spec.md 4.7), for the daemon to fold into CaptureStats.
	Stats() (received, dropped uint64, err error)

	Close() error
}

// ReadTimeout is the capture read timeout spec.md section 6 mandates.
const ReadTimeout = 100 * time.Millisecond

// CaptureLen is the fixed snapshot length: Ethernet header (14) plus the
// minimum IPv4 header (20).
const CaptureLen = 14 + 20
