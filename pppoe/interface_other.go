//go:build !linux

package pppoe

import (
	"fmt"
	"runtime"
)

func StartInterface(reg *Registry, base ServerConfig, ifspec string) (*Server, error) {
	return nil, fmt.Errorf("%w: interface startup requires linux, running on %s", ErrSocketError, runtime.GOOS)
}
