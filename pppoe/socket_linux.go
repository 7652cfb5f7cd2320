//go:build linux

package pppoe

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// rawSocket is the Transport a real interface binds: an AF_PACKET/
// SOCK_RAW descriptor bound to the PPPoE discovery ethertype, with
// SO_BROADCAST set so PADI/PADO broadcasts aren't rejected by the
// kernel on send.
type rawSocket struct {
	fd      int
	ifindex int
}

// newRawSocket opens and binds a discovery-stage raw socket on ifname,
// returning the socket along with the interface's hardware address and
// MTU; the hardware address lets the caller populate ServerConfig.HWAddr
// without a second lookup.
func newRawSocket(ifname string) (sock *rawSocket, hwaddr net.HardwareAddr, mtu int, err error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrSocketError, err)
	}
	if len(iface.HardwareAddr) != 6 {
		return nil, nil, 0, fmt.Errorf("%w: interface %s has no Ethernet hardware address", ErrSocketError, ifname)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, htons(frameEtherType))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: socket(AF_PACKET): %v", ErrSocketError, err)
	}

	sll := &unix.SockaddrLinklayer{
		Protocol: htons(frameEtherType),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		unix.Close(fd)
		return nil, nil, 0, fmt.Errorf("%w: bind: %v", ErrSocketError, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
		unix.Close(fd)
		return nil, nil, 0, fmt.Errorf("%w: SO_BROADCAST: %v", ErrSocketError, err)
	}

	return &rawSocket{fd: fd, ifindex: iface.Index}, iface.HardwareAddr, iface.MTU, nil
}

// frameEtherType is the ethertype a discovery-stage raw socket binds
// to; kept local to avoid an import cycle with package frame's
// constant of the same value used purely for wire parsing.
const frameEtherType = 0x8863

func htons(v uint16) int {
	return int(v<<8 | v>>8)
}

func (r *rawSocket) Send(buf []byte) error {
	sll := &unix.SockaddrLinklayer{
		Protocol: htons(frameEtherType),
		Ifindex:  r.ifindex,
		Halen:    6,
	}
	copy(sll.Addr[:6], buf[0:6])
	return unix.Sendto(r.fd, buf, 0, sll)
}

// Dup returns an independent rawSocket sharing the same underlying
// open file description, for a Session to own once a PADR is accepted.
func (r *rawSocket) Dup() (Transport, error) {
	fd, err := unix.Dup(r.fd)
	if err != nil {
		return nil, fmt.Errorf("%w: dup: %v", ErrSocketError, err)
	}
	return &rawSocket{fd: fd, ifindex: r.ifindex}, nil
}

func (r *rawSocket) Close() error {
	return unix.Close(r.fd)
}

// readLoop blocks reading discovery frames until Close is called on
// the underlying fd (which surfaces as an error from Recvfrom),
// invoking handle for each frame read. Intended to run on its own
// goroutine, one per interface.
func (r *rawSocket) readLoop(handle func([]byte)) {
	buf := make([]byte, 1600)
	for {
		n, _, err := unix.Recvfrom(r.fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				continue
			}
			return
		}
		if n <= 0 {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		handle(frame)
	}
}
