package model

import "testing"

func TestCounterDeltaAndRoll(t *testing.T) {
	var c Counter
	c.Add(10)
	if got := c.Delta(); got != 10 {
		t.Errorf("Delta() = %d, want 10", got)
	}
	c.Roll()
	if got := c.Delta(); got != 0 {
		t.Errorf("Delta() after Roll = %d, want 0", got)
	}
	c.Add(5)
	if got := c.Delta(); got != 5 {
		t.Errorf("Delta() after second Add = %d, want 5", got)
	}
}

func TestCounterIsBackward(t *testing.T) {
	c := Counter{Start: 10, End: 5}
	if !c.IsBackward() {
		t.Error("IsBackward() = false, want true")
	}
	c = Counter{Start: 5, End: 10}
	if c.IsBackward() {
		t.Error("IsBackward() = true, want false")
	}
}

func TestCountPairAdd(t *testing.T) {
	var p CountPair
	p.Add(64)
	p.Add(128)
	packets, bytes := p.Delta()
	if packets != 2 || bytes != 192 {
		t.Errorf("Delta() = (%d, %d), want (2, 192)", packets, bytes)
	}
}

func TestProtocolBucketAdd(t *testing.T) {
	var b ProtocolBucket
	b.Add(6, 100)  // TCP
	b.Add(17, 50)  // UDP
	b.Add(1, 10)   // ICMP
	b.Add(99, 20)  // Other

	for _, tt := range []struct {
		name string
		pair CountPair
	}{
		{"tcp", b.TCP},
		{"udp", b.UDP},
		{"icmp", b.ICMP},
		{"other", b.Other},
	} {
		packets, _ := tt.pair.Delta()
		if packets != 1 {
			t.Errorf("%s packets = %d, want 1", tt.name, packets)
		}
	}
}

func TestProtocolBucketPairsOrder(t *testing.T) {
	var b ProtocolBucket
	pairs := b.Pairs()
	if pairs[0] != &b.ICMP || pairs[1] != &b.UDP || pairs[2] != &b.TCP || pairs[3] != &b.Other {
		t.Error("Pairs() order must be ICMP, UDP, TCP, Other")
	}
}
