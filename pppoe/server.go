// Package pppoe implements the server side of PPPoE discovery
// (RFC 2516): PADI admission, cookie-backed PADO/PADR/PADS exchange,
// session table management, delayed-PADO scheduling, and graceful
// interface/session teardown.
package pppoe

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/accelgo/pppoeacd/cookie"
	"github.com/accelgo/pppoeacd/frame"
	"github.com/accelgo/pppoeacd/pppengine"
)

const (
	// MaxSID is the highest valid PPPoE session id; 0 is reserved.
	MaxSID = 65535
	// MaxServiceNames bounds the configured service-name list.
	MaxServiceNames = 32
	// MaxPPPoEMTU is the MTU cap advertised to the PPP engine.
	MaxPPPoEMTU = 1492
	// padiWindowHorizon is the sliding-window horizon for PADI rate limiting.
	padiWindowHorizon = time.Second
	// padiWarnInterval bounds "overlimit" logging to once per interface
	// per this interval.
	padiWarnInterval = 60 * time.Second
)

// Transport is the minimum a discovery server needs from its raw
// socket: send a fully-built frame, duplicate the underlying descriptor
// for a session to own independently, and release the socket. Kept as
// an interface so server/session logic can be exercised in tests
// without binding to AF_PACKET.
type Transport interface {
	Send(frame []byte) error
	Dup() (Transport, error)
	Close() error
}

// ConnLimiter is an external connection-count limiter a caller may
// plug in alongside the built-in PADI rate window. A nil ConnLimiter
// means no such check is made.
type ConnLimiter interface {
	Allow(mac net.HardwareAddr) bool
}

// MACFilter is an optional inbound MAC filter consulted before any
// other processing of a received frame.
type MACFilter interface {
	Blocked(mac net.HardwareAddr) bool
}

// ServerConfig holds the configuration a Server is built from — both
// the global defaults and per-interface overrides, already merged by
// the caller.
type ServerConfig struct {
	Ifname             string
	HWAddr             net.HardwareAddr
	ACName             string
	ServiceNames       []string
	RequireServiceName bool
	ReplyExactService  bool
	IfnameInSID        IfnameInSID
	TR101              bool
	PADODelay          PADODelay
	PADILimit          int // per-interface cap; 0 disables the window check
	GlobalPADILimit    int // 0 disables the global cap
	Verbose            bool
	StrictVersion      bool
	Engine             pppengine.Engine
	ConnLimiter        ConnLimiter
	MACFilter          MACFilter
	Logger             *zerolog.Logger
}

// padiEntry is a single sliding-window record.
type padiEntry struct {
	mac net.HardwareAddr
	at  time.Time
}

// Server is one interface's discovery engine instance. All mutable
// state is guarded either by mu (shared state touched from other
// sessions' contexts) or is only ever touched from ctx's own goroutine.
type Server struct {
	ifname string
	hwaddr net.HardwareAddr

	acName             string
	serviceNames       []string
	requireServiceName bool
	replyExactService  bool
	ifnameInSID        IfnameInSID
	tr101              bool
	padoDelay          PADODelay
	strictVersion      bool
	verbose            bool

	secret    cookie.Secret
	engine    pppengine.Engine
	connLim   ConnLimiter
	macFilter MACFilter
	logger    *zerolog.Logger

	sock Transport
	ctx  *context

	stats *Stats
	reg   *Registry

	mu          sync.Mutex
	sessions    map[uint16]*Session
	nextSID     uint16
	padiWindow  []padiEntry
	padiCnt     int
	padiLimit   int
	globalLimit int
	padoQueue   map[string]*delayedPADO
	stopping    bool
	lastWarn    time.Time
}

// newServer constructs a Server without starting its context or
// socket; used directly by tests, wrapped by Registry.Start for real use.
func newServer(cfg ServerConfig, sock Transport, stats *Stats, reg *Registry) (*Server, error) {
	if cfg.HWAddr == nil || len(cfg.HWAddr) != 6 {
		return nil, fmt.Errorf("pppoe: server requires a 6-byte hardware address")
	}
	if len(cfg.ServiceNames) > MaxServiceNames {
		return nil, fmt.Errorf("pppoe: %d service names configured, at most %d allowed", len(cfg.ServiceNames), MaxServiceNames)
	}
	secret, err := cookie.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("pppoe: generating secret: %w", err)
	}

	acName := cfg.ACName
	if acName == "" {
		acName = "accel-ppp"
	}

	logger := cfg.Logger
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	sublogger := logger.With().Str("ifname", cfg.Ifname).Logger()

	s := &Server{
		ifname:             cfg.Ifname,
		hwaddr:             cfg.HWAddr,
		acName:             acName,
		serviceNames:       append([]string(nil), cfg.ServiceNames...),
		requireServiceName: cfg.RequireServiceName,
		replyExactService:  cfg.ReplyExactService,
		ifnameInSID:        cfg.IfnameInSID,
		tr101:              cfg.TR101,
		padoDelay:          cfg.PADODelay,
		strictVersion:      cfg.StrictVersion,
		verbose:            cfg.Verbose,
		secret:             secret,
		engine:             cfg.Engine,
		connLim:            cfg.ConnLimiter,
		macFilter:          cfg.MACFilter,
		logger:             &sublogger,
		sock:               sock,
		ctx:                newContext(),
		stats:              stats,
		reg:                reg,
		sessions:           make(map[uint16]*Session),
		padoQueue:          make(map[string]*delayedPADO),
		padiLimit:          cfg.PADILimit,
		globalLimit:        cfg.GlobalPADILimit,
	}
	if s.engine == nil {
		return nil, fmt.Errorf("pppoe: server requires a PPP engine")
	}
	return s, nil
}

// Start launches the server's context goroutine. Must be called
// exactly once; callers that also own a raw socket should launch its
// read loop separately (see StartInterface).
func (s *Server) Start() {
	go s.ctx.run()
}

// Ifname returns the bound interface name.
func (s *Server) Ifname() string { return s.ifname }

// post schedules fn on the server's own context.
func (s *Server) post(fn func()) {
	s.ctx.post(fn)
}

// HandleFrame is the entry point for a raw frame read off the wire
// (or injected by a test). It runs the header-level filtering before
// dispatching by code, then runs the rest of the handling on the
// server's own context so state mutation is single-threaded. A nil
// filter falls back to the one supplied at construction, if any.
func (s *Server) HandleFrame(buf []byte, filter MACFilter) {
	if len(buf) < ethAndHeaderLen {
		s.logVerbose("short packet received (%d bytes)", len(buf))
		return
	}

	srcMAC := net.HardwareAddr(append([]byte(nil), buf[6:12]...))
	dstMAC := net.HardwareAddr(append([]byte(nil), buf[0:6]...))

	if filter == nil {
		filter = s.macFilter
	}
	if filter != nil && filter.Blocked(srcMAC) {
		return
	}

	if !isBroadcast(dstMAC) && !macEqual(dstMAC, s.hwaddr) {
		return
	}

	if isBroadcast(srcMAC) {
		s.logVerbose("discarding packet (host address is broadcast)")
		return
	}
	if srcMAC[0]&1 != 0 {
		s.logVerbose("discarding packet (host address is not unicast)")
		return
	}

	pkt, err := frame.Parse(buf)
	if err != nil {
		s.logVerbose("discarding malformed packet: %v", err)
		return
	}

	ver, typ, _ := frame.ParseVersionType(buf)
	if ver != 1 {
		s.logVerbose("discarding packet (unsupported version %d)", ver)
		return
	}
	if typ != 1 {
		s.logVerbose("unsupported type %d", typ)
		if s.strictVersion {
			return
		}
		// Non-strict mode warns but still dispatches the frame.
	}

	if s.verbose {
		s.logger.Info().Msgf("recv %s", pkt)
	}

	s.post(func() {
		s.dispatch(pkt)
	})
}

func (s *Server) dispatch(pkt *frame.Packet) {
	if pkt.Code != frame.CodePADT {
		s.mu.Lock()
		stopping := s.stopping
		s.mu.Unlock()
		if stopping {
			// A stopping server admits no new PADI/PADR; PADT still
			// reaches the sessions that are draining.
			return
		}
	}
	switch pkt.Code {
	case frame.CodePADI:
		s.recvPADI(pkt)
	case frame.CodePADR:
		s.recvPADR(pkt)
	case frame.CodePADT:
		s.recvPADT(pkt)
	default:
		// Unknown codes dropped silently.
	}
}

func (s *Server) logVerbose(format string, args ...interface{}) {
	if s.verbose {
		s.logger.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func isBroadcast(mac net.HardwareAddr) bool {
	return macEqual(mac, broadcastMAC)
}

func macEqual(a, b net.HardwareAddr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const ethAndHeaderLen = 14 + 6

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
