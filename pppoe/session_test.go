package pppoe

import (
	"testing"

	"github.com/accelgo/pppoeacd/frame"
)

// fakeHandle is a Handle double that records Terminate calls and lets
// the test fire the engine's Finished callback independently, since
// Session.connect's real kernel socket handoff isn't exercised here.
type fakeHandle struct {
	terminated int
	onFinished func()
}

func (h *fakeHandle) Terminate() {
	h.terminated++
	if h.onFinished != nil {
		h.onFinished()
	}
}

func newTestSession(t *testing.T, s *Server, sid uint16) *Session {
	t.Helper()
	sess := &Session{
		serv:        s,
		ctx:         newContext(),
		sid:         sid,
		peerAddr:    testHWAddr(0x90),
		cookie:      []byte{1, 2, 3, 4},
		serviceName: frame.Tag{Type: frame.TagServiceName},
		sock:        newFakeTransport(),
	}
	s.mu.Lock()
	s.sessions[sid] = sess
	s.mu.Unlock()
	return sess
}

func TestSessionDisconnectBeforePPPStartedFinalizesDirectly(t *testing.T) {
	s, sock := newTestServer(t, nil)
	sess := newTestSession(t, s, 1)
	s.stats.starting.Add(1)

	sess.disconnect()

	if !sess.finalized {
		t.Error("disconnect on a session that never reached Running must finalize directly")
	}
	if starting, _ := s.stats.GetStat(); starting != 0 {
		t.Errorf("starting count = %d, want 0 after finalize", starting)
	}
	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1 PADT", len(frames))
	}
	if pkt := parseOutbound(t, frames[0]); pkt.Code != frame.CodePADT {
		t.Errorf("code = %#x, want PADT", pkt.Code)
	}
	if _, stillThere := s.sessions[1]; stillThere {
		t.Error("session must be removed from the table after finalize")
	}
}

func TestSessionDisconnectAfterPPPStartedWaitsForOnFinished(t *testing.T) {
	s, _ := newTestServer(t, nil)
	sess := newTestSession(t, s, 2)

	sess.onStarted()
	if starting, active := s.stats.GetStat(); active != 1 {
		t.Fatalf("starting=%d active=%d after onStarted, want active=1", starting, active)
	}

	handle := &fakeHandle{}
	sess.mu.Lock()
	sess.handle = handle
	sess.mu.Unlock()

	sess.disconnect()

	// disconnect() must not finalize synchronously: it hands off to
	// Terminate and waits for onFinished to arrive. This is exactly the
	// re-entrancy case that previously dropped cleanup on the floor.
	if sess.finalized {
		t.Fatal("disconnect on a running session must not finalize before Terminate completes")
	}
	if handle.terminated != 1 {
		t.Fatalf("Terminate called %d times, want 1", handle.terminated)
	}

	sess.onFinished()

	if !sess.finalized {
		t.Error("onFinished must run the cleanup that disconnect() deferred")
	}
	if _, active := s.stats.GetStat(); active != 0 {
		t.Errorf("active count = %d, want 0 after onFinished", active)
	}
}

func TestSessionDisconnectIsIdempotent(t *testing.T) {
	s, sock := newTestServer(t, nil)
	sess := newTestSession(t, s, 3)

	sess.disconnect()
	sess.disconnect()
	sess.disconnect()

	if len(sock.frames()) != 1 {
		t.Errorf("sent %d PADTs across 3 disconnect() calls, want exactly 1", len(sock.frames()))
	}
}

func TestSessionReceivedPADTSuppressesOutgoingPADT(t *testing.T) {
	s, sock := newTestServer(t, nil)
	sess := newTestSession(t, s, 4)

	sess.receivedPADT()

	if !sess.finalized {
		t.Fatal("receivedPADT must finalize the session")
	}
	if frames := sock.frames(); len(frames) != 0 {
		t.Errorf("sent %d frames in response to a received PADT, want 0 (RFC 2516 forbids answering PADT with PADT)", len(frames))
	}
}

func TestSessionInDiscoveryTracksUsername(t *testing.T) {
	s, _ := newTestServer(t, nil)
	sess := newTestSession(t, s, 5)

	if !sess.InDiscovery() {
		t.Error("a freshly created session with no username must be InDiscovery")
	}
	sess.mu.Lock()
	sess.username = "alice"
	sess.mu.Unlock()
	if sess.InDiscovery() {
		t.Error("a session with an assigned username must not be InDiscovery")
	}
}

func TestSessionStationIDsIfnameInSID(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Ifname = "eth3"
		cfg.IfnameInSID = IfnameInSIDBoth
	})
	sess := newTestSession(t, s, 6)

	calling, called := sess.stationIDs()
	if calling == "" || called == "" {
		t.Fatal("station ids must not be empty")
	}
	wantPrefix := "eth3:"
	if calling[:len(wantPrefix)] != wantPrefix {
		t.Errorf("calling = %q, want prefix %q", calling, wantPrefix)
	}
	if called[:len(wantPrefix)] != wantPrefix {
		t.Errorf("called = %q, want prefix %q", called, wantPrefix)
	}
}
