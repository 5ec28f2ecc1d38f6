// Package ifstats reads the authoritative per-interface counters the
// reconciler measures against: the five files /sys/class/net/<iface>
// /statistics/<prefix>_* exposes per direction.
package ifstats

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/googlesky/ipacctd/internal/model"
)

const defaultBasePath = "/sys/class/net"

// Reader reads one interface's statistics for a fixed direction.
type Reader struct {
	iface    string
	prefix   string // "rx" or "tx"
	basePath string
}

// NewReader returns a Reader for iface in the given direction.
func NewReader(iface string, dir model.Direction) *Reader {
	prefix := "rx"
	if dir == model.DirectionOut {
		prefix = "tx"
	}
	return &Reader{iface: iface, prefix: prefix, basePath: defaultBasePath}
}

// Read populates into.Total, into.Dropped, into.Errors, into.FifoErrors'
// End values from the five sysfs files, in the exact order the original
// daemon reads them: packets, bytes, dropped, errors, fifo_errors. Bytes
// gets model.FrameAdditionalBytes folded in per packet, since the kernel
// counter does not include Ethernet framing overhead but the rest of the
// counter tree measures physical frame length.
func (r *Reader) Read(into *model.IfaceStats) error {
	packets, err := r.readStat("packets")
	if err != nil {
		return err
	}
	bytes, err := r.readStat("bytes")
	if err != nil {
		return err
	}
	bytes += packets * model.FrameAdditionalBytes

	dropped, err := r.readStat("dropped")
	if err != nil {
		return err
	}
	errs, err := r.readStat("errors")
	if err != nil {
		return err
	}
	fifoErrors, err := r.readStat("fifo_errors")
	if err != nil {
		return err
	}

	into.Total.Packets.End = packets
	into.Total.Bytes.End = bytes
	into.Dropped.End = dropped
	into.Errors.End = errs
	into.FifoErrors.End = fifoErrors
	return nil
}

func (r *Reader) readStat(name string) (int64, error) {
	path := fmt.Sprintf("%s/%s/statistics/%s_%s", r.basePath, r.iface, r.prefix, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("ifstats: read %s: %w", path, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ifstats: parse %s: %w", path, err)
	}
	return int64(v), nil
}
