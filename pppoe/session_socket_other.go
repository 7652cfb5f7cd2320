//go:build !linux

package pppoe

import (
	"fmt"
	"net"
	"runtime"
)

func (s *Server) openSessionSocket(sid uint16, peer net.HardwareAddr) (int, error) {
	return -1, fmt.Errorf("%w: kernel PPPoE session sockets are not supported on %s", ErrSocketError, runtime.GOOS)
}
