package model

// Protocol tags a ProtocolBucket's four fixed slots. Derived from the
// IPv4 transport-protocol byte: 1=ICMP, 17=UDP, 6=TCP, everything else
// (including unknown) is Other.
type Protocol int

const (
	ProtoICMP Protocol = iota
	ProtoUDP
	ProtoTCP
	ProtoOther

	numProtocols = int(ProtoOther) + 1
)

const (
	ipProtoICMP = 1
	ipProtoTCP  = 6
	ipProtoUDP  = 17
)

// ProtocolFromIPHeader maps an IPv4 header protocol byte to a Protocol tag.
func ProtocolFromIPHeader(transportByte byte) Protocol {
	switch transportByte {
	case ipProtoICMP:
		return ProtoICMP
	case ipProtoUDP:
		return ProtoUDP
	case ipProtoTCP:
		return ProtoTCP
	default:
		return ProtoOther
	}
}

// FrameAdditionalBytes is the Ethernet framing overhead applied uniformly
// to every physical-length computation: preamble(7) + SFD(1) + FCS(4) +
// interframe gap(12).
const FrameAdditionalBytes = 7 + 1 + 4 + 12

// ProtocolBucket is the four-way {ICMP, UDP, TCP, OTHER} partition of a
// CountPair. It is a dense, fixed-size struct rather than a map: the
// protocol fan-out is bounded and known at compile time.
type ProtocolBucket struct {
	ICMP  CountPair
	UDP   CountPair
	TCP   CountPair
	Other CountPair
}

// Add dispatches (1 packet, physicalLen bytes) into the slot selected by
// transportByte.
func (b *ProtocolBucket) Add(transportByte byte, physicalLen int64) {
	b.Pair(ProtocolFromIPHeader(transportByte)).Add(physicalLen)
}

// Pair returns a pointer to the CountPair for the given protocol tag, for
// callers that have already classified the protocol (the reconciler walks
// all four regardless of tag).
func (b *ProtocolBucket) Pair(p Protocol) *CountPair {
	switch p {
	case ProtoICMP:
		return &b.ICMP
	case ProtoUDP:
		return &b.UDP
	case ProtoTCP:
		return &b.TCP
	default:
		return &b.Other
	}
}

// Roll advances all four slots.
func (b *ProtocolBucket) Roll() {
	b.ICMP.Roll()
	b.UDP.Roll()
	b.TCP.Roll()
	b.Other.Roll()
}

// Pairs returns the four slots in the fixed reporting order
// (ICMP, UDP, TCP, OTHER).
func (b *ProtocolBucket) Pairs() [numProtocols]*CountPair {
	return [numProtocols]*CountPair{&b.ICMP, &b.UDP, &b.TCP, &b.Other}
}
