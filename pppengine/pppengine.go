// Package pppengine defines the narrow seam between the PPPoE
// discovery engine and the PPP link-setup layer. The real link
// protocol (LCP/auth negotiation, RADIUS accounting) lives outside
// this module's scope; only the handoff contract is modeled here.
package pppengine

// SessionCtrl describes a newly-accepted PPPoE session to the PPP
// engine: the kernel session socket fd to take ownership of, and the
// station-id strings derived from interface name and MAC addresses
// per the ifname-in-sid configuration.
type SessionCtrl struct {
	Fd                int
	MTU               int
	CallingStationID  string
	CalledStationID   string
	InterfaceName     string
}

// Callbacks is the pair of notifications the PPP engine delivers back
// to the discovery engine for a session it was handed.
type Callbacks struct {
	// Started is invoked once the PPP engine has brought the link up.
	Started func()
	// Finished is invoked when the PPP engine tears the link down for
	// any reason (peer hangup, auth failure, admin reset). It is the
	// trigger for the discovery engine's PADT + session cleanup path.
	Finished func()
}

// Handle lets the discovery engine ask the PPP engine to tear a
// session down (admin stop, PADT received, server shutdown).
type Handle interface {
	Terminate()
}

// Engine accepts ownership of a newly-discovered PPPoE session.
type Engine interface {
	// Open takes ownership of ctrl.Fd (closing it eventually is the
	// engine's responsibility) and begins PPP link negotiation,
	// invoking cb.Started/cb.Finished as the link's state changes.
	Open(ctrl SessionCtrl, cb Callbacks) (Handle, error)
}
