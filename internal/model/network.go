package model

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// MaxHostBucketCount caps the per-network host array allocation
// (2^(32-prefix) ProtocolBuckets). A /8 is already 16M buckets; this is a
// deployment guard against an operator accidentally configuring something
// catastrophically large (e.g. a /0), not a limit spec.md itself imposes.
const MaxHostBucketCount = 1 << 24

// IPv4 is an IPv4 address decoded into host-order form: the same integer
// ntohl would produce given the address's network-order bytes. Using one
// consistent decode (encoding/binary.BigEndian) for every address we ever
// compare means masking and comparisons are plain uint32 arithmetic.
type IPv4 uint32

// IPv4FromBytes decodes 4 network-order bytes (as found at a packet's
// source/destination address offset) into an IPv4.
func IPv4FromBytes(b []byte) IPv4 {
	return IPv4(binary.BigEndian.Uint32(b))
}

// IPv4FromNetIP decodes a net.IP (must have a valid 4-byte form).
func IPv4FromNetIP(ip net.IP) (IPv4, error) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("not an IPv4 address: %s", ip)
	}
	return IPv4FromBytes(v4), nil
}

// Bytes returns the address as 4 network-order bytes.
func (a IPv4) Bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(a))
	return b
}

// String renders the address in dotted-quad form.
func (a IPv4) String() string {
	b := a.Bytes()
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}

// Network is an immutable IPv4 CIDR block paired with its mutable
// accounting state: a network-wide ProtocolBucket total and a dense
// per-host array of ProtocolBuckets, indexed by host offset within the
// block.
type Network struct {
	Address  IPv4
	Prefix   uint8
	Netmask  IPv4
	Hostmask IPv4

	Total ProtocolBucket
	Hosts []ProtocolBucket
}

// ParseNetworkCIDR parses "A.B.C.D/p" into a Network with its host array
// allocated and zeroed. Host bits of the supplied address are cleared
// against the computed netmask even if the caller's string did not.
func ParseNetworkCIDR(s string) (*Network, error) {
	slash := strings.IndexByte(s, '/')
	if slash < 0 {
		return nil, fmt.Errorf("invalid network %q: missing /prefix", s)
	}
	prefixStr := s[slash+1:]
	prefix, err := strconv.Atoi(prefixStr)
	if err != nil || prefix < 0 || prefix > 32 {
		return nil, fmt.Errorf("invalid network %q: prefix must be 0-32", s)
	}

	addrStr := s[:slash]
	ip := net.ParseIP(addrStr)
	if ip == nil {
		return nil, fmt.Errorf("invalid network %q: bad address %q", s, addrStr)
	}
	addr, err := IPv4FromNetIP(ip)
	if err != nil {
		return nil, fmt.Errorf("invalid network %q: %w", s, err)
	}

	// Go guarantees a shift by the full bit width yields 0, so prefix==32
	// falls out of this formula naturally (hostmask=0, single host bucket).
	hostmask := ^uint32(0) >> uint(prefix)
	netmask := ^hostmask

	numHosts := uint64(1) << uint(32-prefix)
	if numHosts > MaxHostBucketCount {
		return nil, fmt.Errorf("invalid network %q: /%d needs %d host buckets, exceeds limit of %d",
			s, prefix, numHosts, MaxHostBucketCount)
	}

	n := &Network{
		Address:  addr & IPv4(netmask),
		Prefix:   uint8(prefix),
		Netmask:  IPv4(netmask),
		Hostmask: IPv4(hostmask),
		Hosts:    make([]ProtocolBucket, numHosts),
	}
	return n, nil
}

// HostIndex returns the dense index of addr within this network. Callers
// must have already confirmed addr belongs to the network (Matches).
func (n *Network) HostIndex(addr IPv4) int {
	return int(addr & n.Hostmask)
}

// Matches reports whether addr falls inside this network's block.
func (n *Network) Matches(addr IPv4) bool {
	return addr&n.Netmask == n.Address
}

// Roll advances the network total and every host bucket.
func (n *Network) Roll() {
	n.Total.Roll()
	for i := range n.Hosts {
		n.Hosts[i].Roll()
	}
}

// NetworkTable is the fixed, ordered sequence of configured Networks.
// Lookup is a first-match linear scan: with the handful of CIDRs a real
// deployment configures, linear scan beats a trie on the hot classify
// path, and declaration order is the overlap tie-break the spec requires.
type NetworkTable struct {
	Networks []*Network
}

// NewNetworkTable parses and allocates a Network for every CIDR string, in
// order. The first parse error aborts construction (a configuration
// error: spec.md error-handling section).
func NewNetworkTable(cidrs []string) (*NetworkTable, error) {
	t := &NetworkTable{Networks: make([]*Network, 0, len(cidrs))}
	for _, s := range cidrs {
		n, err := ParseNetworkCIDR(s)
		if err != nil {
			return nil, err
		}
		t.Networks = append(t.Networks, n)
	}
	return t, nil
}

// Find returns the first configured Network whose block contains addr,
// and the dense host index within it. ok is false on a miss.
func (t *NetworkTable) Find(addr IPv4) (n *Network, hostIndex int, ok bool) {
	for _, candidate := range t.Networks {
		if candidate.Matches(addr) {
			return candidate, candidate.HostIndex(addr), true
		}
	}
	return nil, 0, false
}

// Roll advances every network's counters.
func (t *NetworkTable) Roll() {
	for _, n := range t.Networks {
		n.Roll()
	}
}
