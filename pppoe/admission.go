package pppoe

import (
	"net"
	"time"
)

// checkPADIAdmission runs the PADI admission checks in order: sliding
// window eviction, per-interface and global rate caps, per-source
// dedup, then an optional external connection limiter. It always runs
// on the server's own context, so no additional synchronization is
// needed beyond s.mu (still taken, for symmetry with the fields it
// shares with the cross-context teardown path).
func (s *Server) checkPADIAdmission(mac net.HardwareAddr) error {
	if s.padiLimit != 0 {
		now := time.Now()

		s.mu.Lock()
		s.evictExpiredPADI(now)

		if s.padiCnt == s.padiLimit || (s.globalLimit > 0 && int(s.stats.totalPadiCnt.Load()) >= s.globalLimit) {
			s.mu.Unlock()
			return ErrRateLimited
		}

		for _, e := range s.padiWindow {
			if macEqual(e.mac, mac) {
				s.mu.Unlock()
				return ErrRateLimited
			}
		}

		s.padiWindow = append(s.padiWindow, padiEntry{mac: append(net.HardwareAddr(nil), mac...), at: now})
		s.padiCnt++
		s.mu.Unlock()

		s.stats.totalPadiCnt.Add(1)
	}

	if s.connLim != nil && !s.connLim.Allow(mac) {
		return ErrRateLimited
	}

	return nil
}

// evictExpiredPADI drops window entries older than the 1s horizon.
// Must be called with s.mu held; entries are ordered ascending by
// timestamp so eviction always happens from the front.
func (s *Server) evictExpiredPADI(now time.Time) {
	i := 0
	for i < len(s.padiWindow) && now.Sub(s.padiWindow[i].at) > padiWindowHorizon {
		i++
	}
	if i == 0 {
		return
	}
	s.padiCnt -= i
	s.stats.totalPadiCnt.Add(^uint32(i - 1)) // atomic subtract i
	s.padiWindow = append(s.padiWindow[:0], s.padiWindow[i:]...)
}

// warnOverlimit logs the PADI-drop warning at most once per interface
// per padiWarnInterval.
func (s *Server) warnOverlimit() {
	if !s.verbose {
		return
	}
	now := time.Now()
	s.mu.Lock()
	due := now.Sub(s.lastWarn) >= padiWarnInterval
	if due {
		s.lastWarn = now
	}
	s.mu.Unlock()
	if due {
		s.logger.Warn().Msg("pppoe: discarding overlimit PADI packets")
	}
}
