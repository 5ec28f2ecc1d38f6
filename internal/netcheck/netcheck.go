// Package netcheck validates that an interface is Ethernet (DLT_EN10MB)
// before the daemon commits to capturing on it, by querying the kernel's
// link layer over NETLINK_ROUTE the same way the teacher's platform layer
// queries NETLINK_SOCK_DIAG for socket state.
package netcheck

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/mdlayher/netlink"
)

// arphrdEther is ARPHRD_ETHER from <linux/if_arp.h>: the only link type
// this daemon's classifier understands (a fixed 14-byte Ethernet header).
const arphrdEther = 1

const (
	rtmGetlink = 18 // RTM_GETLINK

	ifinfomsgLen = 16 // struct ifinfomsg on Linux
)

// RequireEthernet queries the kernel for iface's link-layer type and
// returns an error unless it is ARPHRD_ETHER. This is a fatal startup
// check: spec.md section 6 makes non-Ethernet capture a hard error.
func RequireEthernet(iface string) error {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return fmt.Errorf("netcheck: %s: %w", iface, err)
	}

	conn, err := netlink.Dial(0 /* NETLINK_ROUTE */, nil)
	if err != nil {
		return fmt.Errorf("netcheck: netlink dial: %w", err)
	}
	defer conn.Close()

	req := netlink.Message{
		Header: netlink.Header{
			Type:  netlink.HeaderType(rtmGetlink),
			Flags: netlink.Request,
		},
		Data: encodeIfinfomsg(ifi.Index),
	}

	replies, err := conn.Execute(req)
	if err != nil {
		return fmt.Errorf("netcheck: RTM_GETLINK %s: %w", iface, err)
	}
	if len(replies) == 0 {
		return fmt.Errorf("netcheck: RTM_GETLINK %s: empty reply", iface)
	}

	hatype, err := decodeIfinfomsgType(replies[0].Data)
	if err != nil {
		return fmt.Errorf("netcheck: %s: %w", iface, err)
	}
	if hatype != arphrdEther {
		return fmt.Errorf("netcheck: %s: link type %d is not Ethernet (ARPHRD_ETHER)", iface, hatype)
	}
	return nil
}

// encodeIfinfomsg builds the struct ifinfomsg request body: family(1),
// pad(1), type(2), index(4), flags(4), change(4), all host byte order
// per the netlink wire convention.
func encodeIfinfomsg(index int) []byte {
	buf := make([]byte, ifinfomsgLen)
	buf[0] = 0 // AF_UNSPEC: report whatever family the link actually has
	buf[1] = 0
	binary.NativeEndian.PutUint16(buf[2:4], 0)
	binary.NativeEndian.PutUint32(buf[4:8], uint32(index))
	return buf
}

// decodeIfinfomsgType reads the ifi_type (hardware/ARPHRD type) field out
// of an RTM_GETLINK / RTM_NEWLINK reply body.
func decodeIfinfomsgType(data []byte) (uint16, error) {
	if len(data) < ifinfomsgLen {
		return 0, fmt.Errorf("short ifinfomsg: %d bytes", len(data))
	}
	return binary.NativeEndian.Uint16(data[2:4]), nil
}
