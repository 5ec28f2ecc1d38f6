package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/googlesky/ipacctd/internal/model"
)

var protocolNames = [4]string{"icmp", "udp", "tcp", "other"}

// WriteText renders snap as newline-separated key=value pairs, mirroring
// the original daemon's human-readable report: one line per scalar, plus
// one indexed block per network and per host inside it.
func WriteText(w io.Writer, snap Snapshot) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "protocol=%d\n", ProtocolVersion)
	fmt.Fprintf(bw, "time.start=%d.%06d\n", snap.Start.Unix(), snap.Start.Nanosecond()/1000)
	fmt.Fprintf(bw, "time.end=%d.%06d\n", snap.End.Unix(), snap.End.Nanosecond()/1000)
	fmt.Fprintf(bw, "time.delta=%.6f\n", snap.End.Sub(snap.Start).Seconds())

	fmt.Fprintf(bw, "iface.dropped=%d\n", snap.IfaceDropped)
	fmt.Fprintf(bw, "iface.errors=%d\n", snap.IfaceErrors)
	fmt.Fprintf(bw, "iface.fifo_errors=%d\n", snap.IfaceFifoErrors)

	fmt.Fprintf(bw, "pcap.received=%d\n", snap.CapReceived)
	fmt.Fprintf(bw, "pcap.dropped=%d\n", snap.CapDropped)

	fmt.Fprintf(bw, "total.iface.packets=%d\n", snap.IfaceTotalPackets)
	fmt.Fprintf(bw, "total.iface.bytes=%d\n", snap.IfaceTotalBytes)
	fmt.Fprintf(bw, "total.captured.packets=%d\n", snap.CapturedPackets)
	fmt.Fprintf(bw, "total.captured.bytes=%d\n", snap.CapturedBytes)
	fmt.Fprintf(bw, "total.extrapolated.packets=%d\n", snap.ExtrapolatedPackets)
	fmt.Fprintf(bw, "total.extrapolated.bytes=%d\n", snap.ExtrapolatedBytes)

	fmt.Fprintf(bw, "unparseable.packets=%d\n", snap.UnparseablePackets)
	fmt.Fprintf(bw, "unparseable.bytes=%d\n", snap.UnparseableBytes)

	writeProtocolBucket(bw, "other_network", snap.OtherNetwork)

	fmt.Fprintf(bw, "networks.length=%d\n", len(snap.Networks))
	for i, n := range snap.Networks {
		prefix := fmt.Sprintf("networks[%d]", i)
		fmt.Fprintf(bw, "%s.ip_version=4\n", prefix)
		fmt.Fprintf(bw, "%s.network=%s/%d\n", prefix, n.Address, n.Prefix)
		writeProtocolBucket(bw, prefix+".total", n.Total)
		fmt.Fprintf(bw, "%s.ips.length=%d\n", prefix, len(n.Hosts))
		for j, h := range n.Hosts {
			hostPrefix := fmt.Sprintf("%s.ips[%d]", prefix, j)
			fmt.Fprintf(bw, "%s.host=%s\n", hostPrefix, hostAddress(n, j))
			writeProtocolBucket(bw, hostPrefix, h)
		}
	}

	return bw.Flush()
}

// writeProtocolBucket writes the four protocol-slot packets/bytes deltas
// under prefix, in the fixed ICMP/UDP/TCP/OTHER order.
func writeProtocolBucket(bw *bufio.Writer, prefix string, b model.ProtocolBucket) {
	pairs := b.Pairs()
	for i, p := range pairs {
		packets, bytes := p.Delta()
		fmt.Fprintf(bw, "%s.%s.packets=%d\n", prefix, protocolNames[i], packets)
		fmt.Fprintf(bw, "%s.%s.bytes=%d\n", prefix, protocolNames[i], bytes)
	}
}

// hostAddress reconstructs the dotted-quad address of host index i within
// network n: n's base address with the low (32-Prefix) bits set to i.
func hostAddress(n NetworkSnapshot, i int) string {
	addr := (uint32(n.Address) &^ hostmaskFor(n.Prefix)) | uint32(i)
	return fmt.Sprintf("%d.%d.%d.%d", byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}

func hostmaskFor(prefix uint8) uint32 {
	return ^uint32(0) >> uint(prefix)
}
