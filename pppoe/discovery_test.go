package pppoe

import (
	"testing"

	"github.com/accelgo/pppoeacd/cookie"
	"github.com/accelgo/pppoeacd/frame"
)

func TestRecvPADIOffersConfiguredServices(t *testing.T) {
	s, sock := newTestServer(t, func(cfg *ServerConfig) {
		cfg.ServiceNames = []string{"internet", "voice"}
	})
	peer := testHWAddr(0x60)

	s.recvPADI(&frame.Packet{Src: peer, Dst: frame.Broadcast, Code: frame.CodePADI})

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1 PADO", len(frames))
	}
	pado := parseOutbound(t, frames[0])
	if pado.Code != frame.CodePADO {
		t.Fatalf("code = %#x, want PADO", pado.Code)
	}
	var got []string
	for _, tag := range pado.Tags {
		if tag.Type == frame.TagServiceName {
			got = append(got, string(tag.Data))
		}
	}
	if len(got) != 2 || got[0] != "internet" || got[1] != "voice" {
		t.Errorf("offered service names = %v, want [internet voice]", got)
	}
	if _, ok := pado.Tag(frame.TagACCookie); !ok {
		t.Error("PADO missing AC-Cookie tag")
	}
}

func TestRecvPADIRequireServiceNameDropsEmptyRequest(t *testing.T) {
	s, sock := newTestServer(t, func(cfg *ServerConfig) {
		cfg.ServiceNames = []string{"internet"}
		cfg.RequireServiceName = true
	})
	peer := testHWAddr(0x61)

	s.recvPADI(&frame.Packet{Src: peer, Dst: frame.Broadcast, Code: frame.CodePADI})

	if frames := sock.frames(); len(frames) != 0 {
		t.Errorf("sent %d frames, want 0 (silently dropped)", len(frames))
	}
}

func TestRecvPADIUnknownServiceStaysSilent(t *testing.T) {
	s, sock := newTestServer(t, func(cfg *ServerConfig) {
		cfg.ServiceNames = []string{"internet"}
	})
	peer := testHWAddr(0x62)

	b := frame.NewBuilder(frame.CodePADI, 0, peer, frame.Broadcast)
	b.AddTag(frame.TagServiceName, []byte("voice"))
	pkt, err := frame.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("parsing built PADI: %v", err)
	}

	s.recvPADI(pkt)

	if frames := sock.frames(); len(frames) != 0 {
		t.Errorf("sent %d frames for an unsatisfiable service request, want 0", len(frames))
	}
}

func TestRecvPADIEchoesHostUniqAndRelaySID(t *testing.T) {
	s, sock := newTestServer(t, nil)
	peer := testHWAddr(0x63)

	b := frame.NewBuilder(frame.CodePADI, 0, peer, frame.Broadcast)
	b.AddTag(frame.TagHostUniq, []byte("client-token"))
	b.AddTag(frame.TagRelaySessionID, []byte("relay-token"))
	pkt, err := frame.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("parsing built PADI: %v", err)
	}

	s.recvPADI(pkt)

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1", len(frames))
	}
	pado := parseOutbound(t, frames[0])
	hu, ok := pado.Tag(frame.TagHostUniq)
	if !ok || string(hu.Data) != "client-token" {
		t.Errorf("Host-Uniq = %q, ok=%v; want client-token", hu.Data, ok)
	}
	rs, ok := pado.Tag(frame.TagRelaySessionID)
	if !ok || string(rs.Data) != "relay-token" {
		t.Errorf("Relay-Session-Id = %q, ok=%v; want relay-token", rs.Data, ok)
	}
}

func TestRecvPADRServiceMismatchSendsErrorPADS(t *testing.T) {
	s, sock := newTestServer(t, func(cfg *ServerConfig) {
		cfg.ServiceNames = []string{"internet"}
	})
	peer := testHWAddr(0x64)
	token, err := cookie.Generate(s.secret, s.hwaddr, peer)
	if err != nil {
		t.Fatalf("cookie.Generate: %v", err)
	}

	b := frame.NewBuilder(frame.CodePADR, 0, peer, s.hwaddr)
	b.AddTag(frame.TagServiceName, []byte("voice"))
	b.AddTag(frame.TagACCookie, token)
	pkt, err := frame.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("parsing built PADR: %v", err)
	}

	s.recvPADR(pkt)

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1 error PADS", len(frames))
	}
	pads := parseOutbound(t, frames[0])
	if pads.Code != frame.CodePADS || pads.SID != 0 {
		t.Errorf("got code=%#x sid=%d, want error PADS (sid 0)", pads.Code, pads.SID)
	}
	if _, ok := pads.Tag(frame.TagServiceNameError); !ok {
		t.Error("expected a Service-Name-Error tag")
	}
}

func TestRecvPADRRejectsBroadcastDestination(t *testing.T) {
	s, sock := newTestServer(t, nil)
	peer := testHWAddr(0x65)
	token, _ := cookie.Generate(s.secret, s.hwaddr, peer)

	b := frame.NewBuilder(frame.CodePADR, 0, peer, frame.Broadcast)
	b.AddTag(frame.TagACCookie, token)
	pkt, err := frame.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("parsing built PADR: %v", err)
	}

	s.recvPADR(pkt)

	if frames := sock.frames(); len(frames) != 0 {
		t.Errorf("sent %d frames for a broadcast-destined PADR, want 0", len(frames))
	}
}

func TestRecvPADRMissingOrBadCookieIsIgnored(t *testing.T) {
	s, sock := newTestServer(t, nil)
	peer := testHWAddr(0x66)

	// No AC-Cookie tag at all.
	b := frame.NewBuilder(frame.CodePADR, 0, peer, s.hwaddr)
	pkt, err := frame.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("parsing built PADR: %v", err)
	}
	s.recvPADR(pkt)
	if frames := sock.frames(); len(frames) != 0 {
		t.Errorf("PADR with no cookie sent %d frames, want 0", len(frames))
	}

	// A cookie that doesn't verify against this server's secret.
	b2 := frame.NewBuilder(frame.CodePADR, 0, peer, s.hwaddr)
	b2.AddTag(frame.TagACCookie, make([]byte, cookie.Length))
	pkt2, err := frame.Parse(b2.Bytes())
	if err != nil {
		t.Fatalf("parsing built PADR: %v", err)
	}
	s.recvPADR(pkt2)
	if frames := sock.frames(); len(frames) != 0 {
		t.Errorf("PADR with a bad cookie sent %d frames, want 0", len(frames))
	}
}

func TestRecvPADRDuplicateRetransmitsPADS(t *testing.T) {
	s, sock := newTestServer(t, nil)
	peer := testHWAddr(0x67)
	token, err := cookie.Generate(s.secret, s.hwaddr, peer)
	if err != nil {
		t.Fatalf("cookie.Generate: %v", err)
	}

	existing := &Session{sid: 42, peerAddr: peer, cookie: token, serviceName: frame.Tag{Type: frame.TagServiceName}}
	s.sessions[42] = existing

	b := frame.NewBuilder(frame.CodePADR, 0, peer, s.hwaddr)
	b.AddTag(frame.TagACCookie, token)
	pkt, err := frame.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("parsing built PADR: %v", err)
	}

	s.recvPADR(pkt)

	frames := sock.frames()
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1 retransmitted PADS", len(frames))
	}
	pads := parseOutbound(t, frames[0])
	if pads.Code != frame.CodePADS || pads.SID != 42 {
		t.Errorf("got code=%#x sid=%d, want PADS sid 42", pads.Code, pads.SID)
	}
	if got := s.stats.Snapshot().PADRDupRecv; got != 1 {
		t.Errorf("PADRDupRecv = %d, want 1", got)
	}
}

func TestRecvPADTIgnoresUnknownSID(t *testing.T) {
	s, _ := newTestServer(t, nil)
	// No session registered under sid 7: must not panic or otherwise react.
	s.recvPADT(&frame.Packet{Src: testHWAddr(0x70), SID: 7})
}

func TestRecvPADTIgnoresSpoofedPeer(t *testing.T) {
	s, _ := newTestServer(t, nil)
	real := testHWAddr(0x71)
	spoofed := testHWAddr(0x72)
	sess := &Session{serv: s, ctx: newContext(), sid: 9, peerAddr: real, sock: newFakeTransport()}
	s.sessions[9] = sess
	go sess.ctx.run()
	defer sess.ctx.stop()

	s.recvPADT(&frame.Packet{Src: spoofed, SID: 9})

	// The session must not have received a teardown post; it should
	// still be reachable in the table (no disconnect request issued).
	s.mu.Lock()
	_, stillThere := s.sessions[9]
	s.mu.Unlock()
	if !stillThere {
		t.Error("session removed in response to a PADT from a different MAC than the session's peer")
	}
}
