package report

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/googlesky/ipacctd/internal/model"
)

// WriteBinary renders snap per spec.md section 6's protocol-1 binary
// layout: all multi-byte integers big-endian, every 64-bit value written
// as two 32-bit halves, high half first (byte-identical to a single
// 8-byte big-endian write, so binary.BigEndian.PutUint64 does the right
// thing directly).
func WriteBinary(w io.Writer, snap Snapshot) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}

	e.byte(ProtocolVersion)
	e.int64(snap.Start.Unix())
	e.uint32(uint32(snap.Start.Nanosecond() / 1000))
	e.int64(snap.End.Unix())
	e.uint32(uint32(snap.End.Nanosecond() / 1000))

	e.int64(snap.IfaceDropped)
	e.int64(snap.IfaceErrors)
	e.int64(snap.IfaceFifoErrors)

	e.int64(snap.CapReceived)
	e.int64(snap.CapDropped)

	e.int64(snap.IfaceTotalPackets)
	e.int64(snap.IfaceTotalBytes)

	e.int64(snap.CapturedPackets)
	e.int64(snap.CapturedBytes)

	e.int64(snap.ExtrapolatedPackets)
	e.int64(snap.ExtrapolatedBytes)

	e.int64(snap.UnparseablePackets)
	e.int64(snap.UnparseableBytes)

	e.protocolBucket(snap.OtherNetwork)

	e.uint32(uint32(len(snap.Networks)))
	for _, n := range snap.Networks {
		e.byte(4) // ip_version
		addrBytes := n.Address.Bytes()
		e.bytes(addrBytes[:])
		e.byte(n.Prefix)
		e.protocolBucket(n.Total)
		for _, h := range n.Hosts {
			e.protocolBucket(h)
		}
	}

	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// encoder accumulates the first write error and ignores subsequent calls,
// so the record-assembly code above never has to check an error return
// after every field.
type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) byte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func (e *encoder) bytes(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) uint32(v uint32) {
	if e.err != nil {
		return
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, e.err = e.w.Write(buf[:])
}

func (e *encoder) int64(v int64) {
	if e.err != nil {
		return
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, e.err = e.w.Write(buf[:])
}

func (e *encoder) countPair(p *model.CountPair) {
	packets, bytes := p.Delta()
	e.int64(packets)
	e.int64(bytes)
}

func (e *encoder) protocolBucket(b model.ProtocolBucket) {
	for _, p := range b.Pairs() {
		e.countPair(p)
	}
}

// DecodedCountPair is one wire-format (packets, bytes) pair as read back
// by ReadBinary. The binary record carries only each leaf's delta, not
// the (start, end) pair a live model.CountPair tracks, so the decoder
// hands back the delta values directly rather than reconstructing a
// model.CountPair.
type DecodedCountPair struct {
	Packets int64
	Bytes   int64
}

// DecodedProtocolBucket is the four-slot {ICMP, UDP, TCP, OTHER}
// partition as read back by ReadBinary, in the same fixed order
// model.ProtocolBucket.Pairs() writes.
type DecodedProtocolBucket struct {
	ICMP  DecodedCountPair
	UDP   DecodedCountPair
	TCP   DecodedCountPair
	Other DecodedCountPair
}

// DecodedNetwork is one per-network record as read back by ReadBinary.
type DecodedNetwork struct {
	Address model.IPv4
	Prefix  uint8
	Total   DecodedProtocolBucket
	Hosts   []DecodedProtocolBucket
}

// DecodedSnapshot is the full binary record as read back by ReadBinary,
// independent of the Snapshot type WriteBinary consumes: a round-trip
// test builds one from a Snapshot's own delta values and compares it
// against the one ReadBinary decodes, to confirm the wire format carries
// every field WriteBinary emits.
type DecodedSnapshot struct {
	Version int

	StartSec  int64
	StartUsec uint32
	EndSec    int64
	EndUsec   uint32

	IfaceDropped    int64
	IfaceErrors     int64
	IfaceFifoErrors int64

	CapReceived int64
	CapDropped  int64

	IfaceTotalPackets, IfaceTotalBytes     int64
	CapturedPackets, CapturedBytes         int64
	ExtrapolatedPackets, ExtrapolatedBytes int64

	UnparseablePackets, UnparseableBytes int64
	OtherNetwork                         DecodedProtocolBucket

	Networks []DecodedNetwork
}

// ReadBinary decodes a record written by WriteBinary. It is an
// independent reader (it does not share any field-layout code with the
// encoder beyond the fixed byte widths spec.md section 6 defines), so a
// successful round-trip genuinely exercises the wire format rather than
// just calling back into WriteBinary's own bookkeeping.
func ReadBinary(r io.Reader) (DecodedSnapshot, error) {
	d := &decoder{r: bufio.NewReader(r)}

	var snap DecodedSnapshot
	snap.Version = int(d.byte())

	snap.StartSec = d.int64()
	snap.StartUsec = d.uint32()
	snap.EndSec = d.int64()
	snap.EndUsec = d.uint32()

	snap.IfaceDropped = d.int64()
	snap.IfaceErrors = d.int64()
	snap.IfaceFifoErrors = d.int64()

	snap.CapReceived = d.int64()
	snap.CapDropped = d.int64()

	snap.IfaceTotalPackets = d.int64()
	snap.IfaceTotalBytes = d.int64()

	snap.CapturedPackets = d.int64()
	snap.CapturedBytes = d.int64()

	snap.ExtrapolatedPackets = d.int64()
	snap.ExtrapolatedBytes = d.int64()

	snap.UnparseablePackets = d.int64()
	snap.UnparseableBytes = d.int64()

	snap.OtherNetwork = d.protocolBucket()

	numNetworks := d.uint32()
	snap.Networks = make([]DecodedNetwork, 0, numNetworks)
	for i := uint32(0); i < numNetworks; i++ {
		var n DecodedNetwork
		d.byte() // ip_version, always 4
		n.Address = model.IPv4FromBytes(d.bytes(4))
		n.Prefix = d.byte()
		n.Total = d.protocolBucket()
		n.Hosts = make([]DecodedProtocolBucket, hostCountForPrefix(n.Prefix))
		for h := range n.Hosts {
			n.Hosts[h] = d.protocolBucket()
		}
		snap.Networks = append(snap.Networks, n)
	}

	if d.err != nil {
		return DecodedSnapshot{}, d.err
	}
	return snap, nil
}

// hostCountForPrefix mirrors model.ParseNetworkCIDR's host-array sizing:
// the binary record carries no explicit per-network host count, so the
// decoder derives it from the prefix the same way the encoder's source
// network did.
func hostCountForPrefix(prefix uint8) int {
	return 1 << (32 - prefix)
}

// decoder is ReadBinary's counterpart to encoder: it accumulates the
// first read error and returns zero values for every call afterward, so
// the field-by-field decode above never has to check an error return
// after every field.
type decoder struct {
	r   *bufio.Reader
	err error
}

func (d *decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	b, err := d.r.ReadByte()
	if err != nil {
		d.err = err
		return 0
	}
	return b
}

func (d *decoder) bytes(n int) []byte {
	buf := make([]byte, n)
	if d.err != nil {
		return buf
	}
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.err = err
	}
	return buf
}

func (d *decoder) uint32() uint32 {
	buf := d.bytes(4)
	if d.err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(buf)
}

func (d *decoder) int64() int64 {
	buf := d.bytes(8)
	if d.err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf))
}

func (d *decoder) countPair() DecodedCountPair {
	return DecodedCountPair{Packets: d.int64(), Bytes: d.int64()}
}

func (d *decoder) protocolBucket() DecodedProtocolBucket {
	return DecodedProtocolBucket{
		ICMP:  d.countPair(),
		UDP:   d.countPair(),
		TCP:   d.countPair(),
		Other: d.countPair(),
	}
}
