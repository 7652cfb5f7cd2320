//go:build linux

package pppoe

import (
	"fmt"
	"net"
)

// StartInterface parses ifspec ("ifname[,k=v,...]"), opens a raw
// discovery socket on the named interface, merges the parsed
// per-interface overrides onto base, and registers the resulting
// server. The read loop is launched on its own goroutine; it runs
// until the socket is closed by Server.Stop()'s eventual free().
func StartInterface(reg *Registry, base ServerConfig, ifspec string) (*Server, error) {
	ifname, ifopt, err := splitInterfaceSpec(ifspec)
	if err != nil {
		return nil, err
	}

	opts, err := parseInterfaceOptions(ifopt)
	if err != nil {
		return nil, fmt.Errorf("pppoe: interface %s: %w", ifname, err)
	}

	sock, hwaddr, _, err := newRawSocket(ifname)
	if err != nil {
		return nil, err
	}

	cfg := base
	cfg.Ifname = ifname
	cfg.HWAddr = net.HardwareAddr(append([]byte(nil), hwaddr...))
	if opts.padiLimit != nil {
		cfg.PADILimit = *opts.padiLimit
	}
	if opts.requireServiceName != nil {
		cfg.RequireServiceName = *opts.requireServiceName
	}
	if len(opts.serviceNames) > 0 {
		cfg.ServiceNames = opts.serviceNames
	}

	s, err := reg.Start(cfg, sock)
	if err != nil {
		sock.Close()
		return nil, err
	}

	go sock.readLoop(func(buf []byte) {
		s.HandleFrame(buf, nil)
	})

	return s, nil
}
