package pppoe

import (
	"fmt"
	"net"
	"sync"

	"github.com/accelgo/pppoeacd/frame"
	"github.com/accelgo/pppoeacd/pppengine"
)

// Session is one discovered PPPoE session. It owns its own context
// goroutine; all mutation of its private state happens there, except
// for the single documented case of removing itself from its server's
// session table (serv.mu, taken briefly).
type Session struct {
	serv *Server
	ctx  *context

	sid      uint16
	peerAddr net.HardwareAddr
	cookie   []byte

	hostUniq    *frame.Tag
	relaySID    *frame.Tag
	serviceName frame.Tag
	tr101       *frame.Tag

	sock Transport

	mu             sync.Mutex
	pppStarted     bool
	reachedRunning bool   // true once onStarted has fired at least once
	username       string // nothing in this package sets it: pppengine.Callbacks reports no identity
	stopRequested  bool   // set on the first disconnect() call; guards Terminate()
	finalized      bool   // set once finalize() has run; guards the cleanup body
	suppressPADT   bool   // set when tearing down in response to a received PADT
	handle         pppengine.Handle
}

// InDiscovery reports whether the session has not yet had a PPP
// username assigned — the "still in discovery" gate for PADR
// duplicate short-circuiting. Since the engine callbacks carry no
// username, a session stays InDiscovery for its whole lifetime.
func (sess *Session) InDiscovery() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.username == ""
}

// SID returns the session's PPPoE session id.
func (sess *Session) SID() uint16 { return sess.sid }

// stationIDs derives the PPP calling-/called-station-id strings from
// the interface name and MAC addresses, per the configured
// ifname-in-sid mode.
func (sess *Session) stationIDs() (calling, called string) {
	peer := macString(sess.peerAddr)
	local := macString(sess.serv.hwaddr)

	calling = peer
	if sess.serv.ifnameInSID == IfnameInSIDCalled || sess.serv.ifnameInSID == IfnameInSIDBoth {
		calling = sess.serv.ifname + ":" + peer
	}
	called = local
	if sess.serv.ifnameInSID == IfnameInSIDCalling || sess.serv.ifnameInSID == IfnameInSIDBoth {
		called = sess.serv.ifname + ":" + local
	}
	return calling, called
}

func macString(mac net.HardwareAddr) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// connect opens the kernel PPPoE session socket and hands it to the
// PPP engine. On failure it runs the disconnect path (PADT + cleanup)
// instead of leaving a half-open session around.
func (sess *Session) connect() {
	fd, err := sess.serv.openSessionSocket(sess.sid, sess.peerAddr)
	if err != nil {
		sess.serv.logger.Warn().Err(err).Str("peer", sess.peerAddr.String()).Msg("pppoe: session socket connect failed")
		sess.disconnect()
		return
	}

	calling, called := sess.stationIDs()
	ctrl := pppengine.SessionCtrl{
		Fd:               fd,
		MTU:              MaxPPPoEMTU,
		CallingStationID: calling,
		CalledStationID:  called,
		InterfaceName:    sess.serv.ifname,
	}

	handle, err := sess.serv.engine.Open(ctrl, pppengine.Callbacks{
		Started: func() { sess.ctx.post(sess.onStarted) },
		Finished: func() { sess.ctx.post(sess.onFinished) },
	})
	if err != nil {
		sess.serv.logger.Warn().Err(err).Msg("pppoe: engine open failed")
		sess.disconnect()
		return
	}

	sess.mu.Lock()
	sess.handle = handle
	sess.mu.Unlock()
}

func (sess *Session) onStarted() {
	sess.mu.Lock()
	already := sess.pppStarted
	sess.pppStarted = true
	sess.reachedRunning = true
	sess.mu.Unlock()
	if !already {
		sess.serv.stats.decStarting()
		sess.serv.stats.active.Add(1)
	}
}

// onFinished is the PPP engine's "finished" callback, marshalled onto
// the session's own context. It always runs the cleanup, whether or
// not the session had reached Running: it is the terminal event for a
// session whose connect() already handed ownership to the engine.
func (sess *Session) onFinished() {
	sess.mu.Lock()
	started := sess.pppStarted
	sess.pppStarted = false
	sess.mu.Unlock()
	if started {
		sess.serv.stats.decActive()
	}
	sess.finalize()
}

// disconnect requests teardown. The first caller to see stopRequested
// false asks the PPP engine to terminate if it owns a running handle
// — that termination is asynchronous and its completion arrives back
// as onFinished, which performs the actual cleanup. A session that
// never reached the engine (connect() failed before Open, or the
// engine was never started) has no pending callback to wait for, so
// disconnect finalizes it directly.
func (sess *Session) disconnect() {
	sess.mu.Lock()
	if sess.stopRequested {
		sess.mu.Unlock()
		return
	}
	sess.stopRequested = true
	handle := sess.handle
	started := sess.pppStarted
	sess.mu.Unlock()

	if started && handle != nil {
		handle.Terminate()
		return // onFinished, once the engine reports termination, does the cleanup.
	}

	sess.finalize()
}

// finalize runs the one-time cleanup body: send PADT, close the dup'd
// socket, remove from the session table, and free the server if it
// was stopping and is now empty. Called exactly once per session,
// either directly from disconnect() (session never reached Running)
// or from onFinished() (session did reach Running and has now stopped).
func (sess *Session) finalize() {
	sess.mu.Lock()
	if sess.finalized {
		sess.mu.Unlock()
		return
	}
	sess.finalized = true
	reachedRunning := sess.reachedRunning
	sess.mu.Unlock()

	if !reachedRunning {
		sess.serv.stats.decStarting()
	}

	sess.mu.Lock()
	skipPADT := sess.suppressPADT
	sess.mu.Unlock()
	if !skipPADT {
		sess.sendPADT()
	}
	sess.sock.Close()
	sess.serv.removeSession(sess)
}

// receivedPADT tears the session down in response to a PADT sent by
// the peer: RFC 2516 forbids answering a PADT with one of our own, so
// the terminal PADT that finalize() would normally send is suppressed.
func (sess *Session) receivedPADT() {
	sess.mu.Lock()
	sess.suppressPADT = true
	sess.mu.Unlock()
	sess.disconnect()
}

func (sess *Session) sendPADT() {
	b := frame.NewBuilder(frame.CodePADT, sess.sid, sess.serv.hwaddr, sess.peerAddr)
	b.AddTag(frame.TagACName, []byte(sess.serv.acName))
	b.CopyTag(sess.serviceName)
	if sess.hostUniq != nil {
		b.CopyTag(*sess.hostUniq)
	}
	if sess.relaySID != nil {
		b.CopyTag(*sess.relaySID)
	}
	pkt := b.Bytes()
	if sess.serv.verbose {
		if p, err := frame.Parse(pkt); err == nil {
			sess.serv.logger.Info().Msgf("send %s", p)
		}
	}
	if err := sess.sock.Send(pkt); err != nil {
		sess.serv.logger.Warn().Err(err).Msg("pppoe: error sending PADT")
	}
}

// adminStop asks the session to tear down as part of a server-wide
// stop.
func (sess *Session) adminStop() {
	sess.disconnect()
}
