package pppoe

import (
	"net"
	"sync"
	"testing"

	"github.com/accelgo/pppoeacd/frame"
	"github.com/accelgo/pppoeacd/pppengine"
)

// fakeTransport is an in-memory Transport: Send appends to a slice
// instead of touching a socket, and Dup hands back a sibling sharing
// the same sent-frame log (mirroring how a real dup'd fd still writes
// to the same wire).
type fakeTransport struct {
	mu     *sync.Mutex
	sent   *[][]byte
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{mu: &sync.Mutex{}, sent: &[][]byte{}}
}

func (f *fakeTransport) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), b...)
	*f.sent = append(*f.sent, cp)
	return nil
}

func (f *fakeTransport) Dup() (Transport, error) {
	return &fakeTransport{mu: f.mu, sent: f.sent}, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), (*f.sent)...)
}

func testHWAddr(last byte) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, last}
}

// newTestServer builds a Server wired to a fakeTransport and the
// pppengine Loopback test double, ready to have frames handed to it
// directly without a Registry or a real socket.
func newTestServer(t *testing.T, mutate func(*ServerConfig)) (*Server, *fakeTransport) {
	t.Helper()
	sock := newFakeTransport()
	cfg := ServerConfig{
		Ifname:       "eth-test",
		HWAddr:       testHWAddr(0x01),
		ACName:       "test-ac",
		ServiceNames: []string{"internet"},
		Engine:       pppengine.Loopback{},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := newServer(cfg, sock, NewStats(), nil)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return s, sock
}

// buildPADI assembles a minimal PADI frame from peer to the broadcast
// address, optionally carrying a Service-Name tag.
func buildPADI(peer net.HardwareAddr, serviceName string, withTag bool) []byte {
	b := frame.NewBuilder(frame.CodePADI, 0, peer, frame.Broadcast)
	if withTag {
		b.AddTag(frame.TagServiceName, []byte(serviceName))
	}
	return b.Bytes()
}

// syncContext blocks until every closure posted to s's context before
// this call has drained (the caller must already have started the
// context goroutine),
// giving HandleFrame's asynchronous dispatch a deterministic
// rendezvous point for tests.
func syncContext(s *Server) {
	done := make(chan struct{})
	s.post(func() { close(done) })
	<-done
}

// parseOutbound re-parses a frame this package sent, for assertions.
func parseOutbound(t *testing.T, buf []byte) *frame.Packet {
	t.Helper()
	pkt, err := frame.Parse(buf)
	if err != nil {
		t.Fatalf("parsing outbound frame: %v", err)
	}
	return pkt
}
