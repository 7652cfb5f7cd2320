//go:build linux

package pppoe

import (
	"encoding/binary"
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PX_PROTO_OE and the layout of struct sockaddr_pppox / struct
// pppoe_addr come from linux/if_pppox.h. golang.org/x/sys/unix does
// not define either (it has no typed Sockaddr for AF_PPPOX), so the
// address is packed by hand and passed through a raw connect(2).
const (
	pxProtoOE  = 0
	ifNameSize = 16 // IFNAMSIZ

	// sockaddr_pppox layout, packed (no compiler-inserted padding):
	//   sa_family_t sa_family;       2 bytes
	//   unsigned int sa_protocol;    4 bytes
	//   struct pppoe_addr {
	//       __be16 sid;              2 bytes
	//       unsigned char remote[6]; 6 bytes
	//       char dev[IFNAMSIZ];      16 bytes
	//   } sa_addr;
	sockaddrPPPoXLen = 2 + 4 + 2 + 6 + ifNameSize
)

// openSessionSocket opens a kernel PPPoE session socket (AF_PPPOX,
// SOCK_STREAM, PX_PROTO_OE) and connects it to (s.ifname, peer, sid),
// handing the PPP framing for that session over to the kernel.
func (s *Server) openSessionSocket(sid uint16, peer net.HardwareAddr) (int, error) {
	fd, err := unix.Socket(unix.AF_PPPOX, unix.SOCK_STREAM, pxProtoOE)
	if err != nil {
		return -1, fmt.Errorf("%w: socket(AF_PPPOX): %v", ErrSocketError, err)
	}

	sa := make([]byte, sockaddrPPPoXLen)
	binary.LittleEndian.PutUint16(sa[0:2], unix.AF_PPPOX)
	binary.LittleEndian.PutUint32(sa[2:6], pxProtoOE)
	binary.BigEndian.PutUint16(sa[6:8], sid)
	copy(sa[8:14], peer)
	copy(sa[14:14+ifNameSize], s.ifname)

	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(unsafe.Pointer(&sa[0])), uintptr(len(sa)))
	if errno != 0 {
		unix.Close(fd)
		return -1, fmt.Errorf("%w: connect(AF_PPPOX): %v", ErrSocketError, errno)
	}
	return fd, nil
}
