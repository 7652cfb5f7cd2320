package pppoe

import (
	"net"
	"time"

	"github.com/accelgo/pppoeacd/cookie"
	"github.com/accelgo/pppoeacd/frame"
)

// recvPADI handles an inbound PADI: admission check, service-name
// match, then either an immediate, delayed, or suppressed PADO.
func (s *Server) recvPADI(pkt *frame.Packet) {
	s.stats.padiRecv.Add(1)

	if err := s.checkPADIAdmission(pkt.Src); err != nil {
		s.stats.padiDrop.Add(1)
		s.warnOverlimit()
		return
	}

	svcTag, svcFound := pkt.Tag(frame.TagServiceName)
	offer, ok := s.matchServiceNamePADI(svcTag, svcFound)
	if !ok {
		// No configured service satisfies the request: stay silent,
		// per RFC 2516 §5.1 ("the Access Concentrator... MAY silently
		// discard the PADI"). Does not count as a drop.
		return
	}

	var hostUniq, relaySID *frame.Tag
	if t, found := pkt.Tag(frame.TagHostUniq); found {
		c := t.Clone()
		hostUniq = &c
	}
	if t, found := pkt.Tag(frame.TagRelaySessionID); found {
		c := t.Clone()
		relaySID = &c
	}

	peer := net.HardwareAddr(append([]byte(nil), pkt.Src...))

	delay := s.padoDelay.resolve(s.stats.active.Load())
	if delay < 0 {
		return
	}
	if delay == 0 {
		s.sendPADO(peer, hostUniq, relaySID, offer)
		return
	}
	s.schedulePADO(peer, hostUniq, relaySID, offer, delay)
}

// schedulePADO queues a PADO to fire after delayMS. A repeated PADI
// from a peer that already has a queued PADO is dropped: the pending
// timer is left as it is rather than restarted or stacked.
func (s *Server) schedulePADO(peer net.HardwareAddr, hostUniq, relaySID *frame.Tag, offer []string, delayMS int) {
	key := macKey(peer)

	s.mu.Lock()
	if _, queued := s.padoQueue[key]; queued {
		s.mu.Unlock()
		return
	}
	p := &delayedPADO{
		serv:         s,
		addr:         peer,
		hostUniq:     hostUniq,
		relaySID:     relaySID,
		serviceNames: offer,
	}
	p.timer = time.AfterFunc(time.Duration(delayMS)*time.Millisecond, func() {
		s.post(p.fire)
	})
	s.padoQueue[key] = p
	s.mu.Unlock()

	s.stats.delayedPado.Add(1)
}

// sendPADO builds and transmits a PADO offering serviceNames (an
// empty list offers a single wildcard Service-Name tag).
func (s *Server) sendPADO(peer net.HardwareAddr, hostUniq, relaySID *frame.Tag, serviceNames []string) {
	token, err := cookie.Generate(s.secret, s.hwaddr, peer)
	if err != nil {
		s.logger.Warn().Err(err).Msg("pppoe: generating PADO cookie failed")
		return
	}

	b := frame.NewBuilder(frame.CodePADO, 0, s.hwaddr, peer)
	b.AddTag(frame.TagACName, []byte(s.acName))
	if len(serviceNames) == 0 {
		b.AddTag(frame.TagServiceName, nil)
	} else {
		for _, name := range serviceNames {
			b.AddTag(frame.TagServiceName, []byte(name))
		}
	}
	b.AddTag(frame.TagACCookie, token)
	if hostUniq != nil {
		b.CopyTag(*hostUniq)
	}
	if relaySID != nil {
		b.CopyTag(*relaySID)
	}
	if s.tr101 {
		b.AddTag(frame.TagVendorSpecific, tr101VendorTag())
	}

	s.transmit(b, "PADO")
	s.stats.padoSent.Add(1)
}

// recvPADR validates the cookie and service name, allocates a session
// id, and opens a Session. A PADR whose destination is the broadcast
// address is rejected outright: a client replies to the specific AC
// that offered it a PADO, never to the whole segment. A PADR carrying
// a non-zero session id is rejected too.
func (s *Server) recvPADR(pkt *frame.Packet) {
	s.stats.padrRecv.Add(1)

	if isBroadcast(pkt.Dst) || pkt.SID != 0 {
		return
	}

	var hostUniq, relaySID *frame.Tag
	if t, found := pkt.Tag(frame.TagHostUniq); found {
		c := t.Clone()
		hostUniq = &c
	}
	if t, found := pkt.Tag(frame.TagRelaySessionID); found {
		c := t.Clone()
		relaySID = &c
	}
	svcTag, svcFound := pkt.Tag(frame.TagServiceName)
	serviceName := frame.Tag{Type: frame.TagServiceName}
	if svcFound {
		serviceName = svcTag.Clone()
	}

	cookieTag, cookieFound := pkt.Tag(frame.TagACCookie)
	if !cookieFound {
		return
	}
	if err := cookie.Verify(s.secret, s.hwaddr, pkt.Src, cookieTag.Data); err != nil {
		return
	}

	peer := net.HardwareAddr(append([]byte(nil), pkt.Src...))

	s.mu.Lock()
	if existing := s.findByCookie(cookieTag.Data); existing != nil {
		s.mu.Unlock()
		s.stats.padrDupRecv.Add(1)
		if existing.InDiscovery() {
			s.sendPADS(peer, existing.sid, hostUniq, relaySID, serviceName, cookieTag.Data)
		}
		return
	}
	s.mu.Unlock()

	if !s.matchServiceNamePADR(svcTag, svcFound) {
		s.sendErrorPADS(peer, hostUniq, relaySID, serviceName, frame.TagServiceNameError)
		return
	}

	s.mu.Lock()
	sid, err := s.allocateSID()
	if err != nil {
		s.mu.Unlock()
		s.sendErrorPADS(peer, hostUniq, relaySID, serviceName, frame.TagACSystemError)
		return
	}

	dup, dupErr := s.sock.Dup()
	if dupErr != nil {
		s.mu.Unlock()
		s.logger.Warn().Err(dupErr).Msg("pppoe: duplicating socket for new session failed")
		s.sendErrorPADS(peer, hostUniq, relaySID, serviceName, frame.TagACSystemError)
		return
	}

	sess := &Session{
		serv:        s,
		ctx:         newContext(),
		sid:         sid,
		peerAddr:    peer,
		cookie:      append([]byte(nil), cookieTag.Data...),
		hostUniq:    hostUniq,
		relaySID:    relaySID,
		serviceName: serviceName,
		sock:        dup,
	}
	s.sessions[sid] = sess
	s.mu.Unlock()

	s.stats.starting.Add(1)
	go sess.ctx.run()

	s.sendPADS(peer, sid, hostUniq, relaySID, serviceName, cookieTag.Data)
	sess.ctx.post(sess.connect)
}

// recvPADT tears down the named session without answering with a
// PADT of our own.
func (s *Server) recvPADT(pkt *frame.Packet) {
	s.mu.Lock()
	sess, ok := s.sessions[pkt.SID]
	s.mu.Unlock()
	if !ok || !macEqual(sess.peerAddr, pkt.Src) {
		return
	}
	sess.ctx.post(sess.receivedPADT)
}

// sendPADS builds and transmits a successful PADS confirming sid.
func (s *Server) sendPADS(peer net.HardwareAddr, sid uint16, hostUniq, relaySID *frame.Tag, serviceName frame.Tag, token []byte) {
	b := frame.NewBuilder(frame.CodePADS, sid, s.hwaddr, peer)
	b.AddTag(frame.TagACName, []byte(s.acName))
	b.CopyTag(serviceName)
	b.AddTag(frame.TagACCookie, token)
	if hostUniq != nil {
		b.CopyTag(*hostUniq)
	}
	if relaySID != nil {
		b.CopyTag(*relaySID)
	}
	s.transmit(b, "PADS")
	s.stats.padsSent.Add(1)
}

// sendErrorPADS builds and transmits an error PADS (sid=0) carrying
// errTagType (Service-Name-Error or AC-System-Error).
func (s *Server) sendErrorPADS(peer net.HardwareAddr, hostUniq, relaySID *frame.Tag, serviceName frame.Tag, errTagType uint16) {
	b := frame.NewBuilder(frame.CodePADS, 0, s.hwaddr, peer)
	b.AddTag(frame.TagACName, []byte(s.acName))
	b.CopyTag(serviceName)
	b.AddTag(errTagType, nil)
	if hostUniq != nil {
		b.CopyTag(*hostUniq)
	}
	if relaySID != nil {
		b.CopyTag(*relaySID)
	}
	s.transmit(b, "PADS (error)")
	s.stats.padsSent.Add(1)
}

func (s *Server) transmit(b *frame.Builder, what string) {
	pkt := b.Bytes()
	if s.verbose {
		if p, err := frame.Parse(pkt); err == nil {
			s.logger.Info().Msgf("send %s", p)
		}
	}
	if err := s.sock.Send(pkt); err != nil {
		s.logger.Warn().Err(err).Msgf("pppoe: error sending %s", what)
	}
}

// matchServiceNamePADI resolves the service-name list a PADO should
// offer for a PADI carrying svcTag (svcFound reports whether the tag
// was present at all; an absent tag and a present-but-empty tag are
// both treated as the wildcard case). It returns ok=false when no
// configured service can satisfy the request, in which case the
// caller must stay silent rather than send an empty PADO.
func (s *Server) matchServiceNamePADI(svcTag frame.Tag, svcFound bool) (offer []string, ok bool) {
	name := ""
	if svcFound {
		name = string(svcTag.Data)
	}

	if name == "" {
		if s.requireServiceName {
			return nil, false
		}
		return append([]string(nil), s.serviceNames...), true
	}

	for _, cfg := range s.serviceNames {
		if cfg == name {
			if s.replyExactService {
				return []string{name}, true
			}
			return append([]string(nil), s.serviceNames...), true
		}
	}
	return nil, false
}

// matchServiceNamePADR reports whether a PADR's service name is
// acceptable. An empty SERVICE_NAME is unconditionally accepted,
// regardless of RequireServiceName — this mirrors how PADR admission
// has always been handled here and is kept as explicit, deliberate
// behavior rather than silently converged with the PADI rule.
func (s *Server) matchServiceNamePADR(svcTag frame.Tag, svcFound bool) bool {
	name := ""
	if svcFound {
		name = string(svcTag.Data)
	}
	if name == "" {
		return true
	}
	if len(s.serviceNames) == 0 {
		return true
	}
	for _, cfg := range s.serviceNames {
		if cfg == name {
			return true
		}
	}
	return false
}

// tr101VendorTag builds a minimal ADSL-Forum Vendor-Specific tag
// (vendor id only; no access-loop-id, which would have to come from
// an actual access-node lookup this package doesn't perform).
func tr101VendorTag() []byte {
	return []byte{
		byte(frame.VendorIDADSLForum >> 24),
		byte(frame.VendorIDADSLForum >> 16),
		byte(frame.VendorIDADSLForum >> 8),
		byte(frame.VendorIDADSLForum),
	}
}
