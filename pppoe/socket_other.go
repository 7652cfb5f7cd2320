//go:build !linux

package pppoe

import (
	"fmt"
	"net"
	"runtime"
)

// newRawSocket is only implemented on linux: PPPoE discovery requires
// AF_PACKET/SOCK_RAW, which is a Linux-specific address family.
func newRawSocket(ifname string) (sock *rawSocket, hwaddr net.HardwareAddr, mtu int, err error) {
	return nil, nil, 0, fmt.Errorf("%w: raw discovery sockets are not supported on %s", ErrSocketError, runtime.GOOS)
}

type rawSocket struct{}

func (r *rawSocket) Send([]byte) error         { return ErrSocketError }
func (r *rawSocket) Dup() (Transport, error)   { return nil, ErrSocketError }
func (r *rawSocket) Close() error              { return nil }
func (r *rawSocket) readLoop(func([]byte)) {}
