package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/googlesky/ipacctd/internal/model"
	"github.com/googlesky/ipacctd/internal/reconcile"
)

func testState(t *testing.T) *model.GlobalState {
	t.Helper()
	table, err := model.NewNetworkTable([]string{"10.0.0.0/30"})
	if err != nil {
		t.Fatalf("NewNetworkTable: %v", err)
	}
	state := model.NewGlobalState(table)
	network := table.Networks[0]
	network.Hosts[1].Add(6, 100) // 10.0.0.1, TCP, 100 physical bytes
	network.Total.Add(6, 100)
	state.Total.Add(100)
	// The interface saw exactly what was captured, so reconciliation
	// leaves the buckets unchanged.
	state.Iface.Total.Packets.End = 1
	state.Iface.Total.Bytes.End = 100
	return state
}

func TestWriteTextSmoke(t *testing.T) {
	state := testState(t)
	res := reconcile.Run(state)

	start := time.Unix(1000, 0)
	end := time.Unix(1001, 0)
	snap := Build(state, res, start, end)

	var buf bytes.Buffer
	if err := WriteText(&buf, snap); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"protocol=1\n",
		"networks.length=1\n",
		"networks[0].network=10.0.0.0/30\n",
		"networks[0].ips[1].host=10.0.0.1\n",
		"networks[0].ips[1].tcp.bytes=100\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q\ngot:\n%s", want, out)
		}
	}
}

func TestWriteBinaryRoundTripLayout(t *testing.T) {
	state := testState(t)
	res := reconcile.Run(state)

	start := time.Unix(1000, 500000)
	end := time.Unix(1001, 0)
	snap := Build(state, res, start, end)

	var buf bytes.Buffer
	if err := WriteBinary(&buf, snap); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	b := buf.Bytes()
	if b[0] != 1 {
		t.Fatalf("version byte = %d, want 1", b[0])
	}

	// start_sec(8) @1, start_usec(4) @9, end_sec(8) @13
	startSec := beInt64(b[1:9])
	if startSec != 1000 {
		t.Errorf("start_sec = %d, want 1000", startSec)
	}
	startUsec := beUint32(b[9:13])
	if startUsec != 500 {
		t.Errorf("start_usec = %d, want 500 (500000ns)", startUsec)
	}
	endSec := beInt64(b[13:21])
	if endSec != 1001 {
		t.Errorf("end_sec = %d, want 1001", endSec)
	}

	// Fixed prefix up through num_networks:
	// version(1)+start_sec(8)+start_usec(4)+end_sec(8)+end_usec(4)
	// +dropped(8)+errors(8)+fifo(8)+recv(8)+drop(8)
	// +ifstats.total(16)+captured.total(16)+extrapolated.total(16)+unparseable(16)+other_network(64)+num_networks(4)
	const fixedLen = 1 + 8 + 4 + 8 + 4 + 8 + 8 + 8 + 8 + 8 + 16 + 16 + 16 + 16 + 64 + 4
	numNetworks := beUint32(b[fixedLen-4 : fixedLen])
	if numNetworks != 1 {
		t.Fatalf("num_networks = %d, want 1", numNetworks)
	}

	// Per-network: ip_version(1)+addr(4)+prefix(1)+total(64)+4 hosts*64
	off := fixedLen
	if b[off] != 4 {
		t.Errorf("ip_version = %d, want 4", b[off])
	}
	addr := b[off+1 : off+5]
	if !bytes.Equal(addr, []byte{10, 0, 0, 0}) {
		t.Errorf("network addr = %v, want 10.0.0.0", addr)
	}
	if b[off+5] != 30 {
		t.Errorf("prefix = %d, want 30", b[off+5])
	}

	wantLen := fixedLen + 1 + 4 + 1 + 64 + 4*64
	if len(b) != wantLen {
		t.Errorf("record length = %d, want %d", len(b), wantLen)
	}
}

// TestWriteBinaryReadBinaryRoundTrip is spec.md section 8's closing
// round-trip property: a record WriteBinary produces must decode back,
// via an independent reader, into exactly the values the Snapshot held.
func TestWriteBinaryReadBinaryRoundTrip(t *testing.T) {
	state := testState(t)
	res := reconcile.Run(state)

	start := time.Unix(1000, 500000)
	end := time.Unix(1001, 0)
	snap := Build(state, res, start, end)

	var buf bytes.Buffer
	if err := WriteBinary(&buf, snap); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	got, err := ReadBinary(&buf)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}

	want := decodedSnapshotFromSnapshot(snap)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadBinary round trip mismatch (-want +got):\n%s", diff)
	}
}

// decodedSnapshotFromSnapshot converts a Snapshot into the same shape
// ReadBinary decodes, by reading off each leaf's delta exactly as
// WriteBinary does, so the comparison in the round-trip test above is
// against the values actually written rather than against the Snapshot's
// own internal (start, end) representation.
func decodedSnapshotFromSnapshot(snap Snapshot) DecodedSnapshot {
	networks := make([]DecodedNetwork, len(snap.Networks))
	for i, n := range snap.Networks {
		hosts := make([]DecodedProtocolBucket, len(n.Hosts))
		for j, h := range n.Hosts {
			hosts[j] = decodedProtocolBucket(h)
		}
		networks[i] = DecodedNetwork{
			Address: n.Address,
			Prefix:  n.Prefix,
			Total:   decodedProtocolBucket(n.Total),
			Hosts:   hosts,
		}
	}

	return DecodedSnapshot{
		Version: ProtocolVersion,

		StartSec:  snap.Start.Unix(),
		StartUsec: uint32(snap.Start.Nanosecond() / 1000),
		EndSec:    snap.End.Unix(),
		EndUsec:   uint32(snap.End.Nanosecond() / 1000),

		IfaceDropped:    snap.IfaceDropped,
		IfaceErrors:     snap.IfaceErrors,
		IfaceFifoErrors: snap.IfaceFifoErrors,

		CapReceived: snap.CapReceived,
		CapDropped:  snap.CapDropped,

		IfaceTotalPackets: snap.IfaceTotalPackets,
		IfaceTotalBytes:   snap.IfaceTotalBytes,

		CapturedPackets: snap.CapturedPackets,
		CapturedBytes:   snap.CapturedBytes,

		ExtrapolatedPackets: snap.ExtrapolatedPackets,
		ExtrapolatedBytes:   snap.ExtrapolatedBytes,

		UnparseablePackets: snap.UnparseablePackets,
		UnparseableBytes:   snap.UnparseableBytes,
		OtherNetwork:       decodedProtocolBucket(snap.OtherNetwork),

		Networks: networks,
	}
}

func decodedProtocolBucket(b model.ProtocolBucket) DecodedProtocolBucket {
	pairs := b.Pairs()
	decode := func(p *model.CountPair) DecodedCountPair {
		packets, bytes := p.Delta()
		return DecodedCountPair{Packets: packets, Bytes: bytes}
	}
	return DecodedProtocolBucket{
		ICMP:  decode(pairs[0]),
		UDP:   decode(pairs[1]),
		TCP:   decode(pairs[2]),
		Other: decode(pairs[3]),
	}
}

func beInt64(b []byte) int64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return int64(v)
}

func beUint32(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}
