package pppoe

// removeSession deletes sess from its server's session table and, if
// the server is stopping and now empty, frees the server: the final
// step of the disconnect path.
func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.sid)
	empty := len(s.sessions) == 0
	stopping := s.stopping
	s.mu.Unlock()

	if stopping && empty {
		s.free()
	}
}

// Stop begins graceful shutdown: disable further admission, and either
// free immediately (no sessions) or ask every session to terminate and
// let the last one out free the server.
//
// The session list is snapshotted under the lock and posted to after
// release, rather than holding the lock across each post call.
func (s *Server) Stop() {
	s.post(func() {
		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			return
		}
		s.stopping = true
		empty := len(s.sessions) == 0
		sessions := make([]*Session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			sessions = append(sessions, sess)
		}
		s.mu.Unlock()

		if empty {
			s.free()
			return
		}
		for _, sess := range sessions {
			sess.ctx.post(sess.adminStop)
		}
	})
}

// free releases the server's resources and removes it from the
// registry. Called exactly once, either immediately on Stop() with no
// sessions, or by the last session's removeSession.
func (s *Server) free() {
	s.mu.Lock()
	for _, pado := range s.padoQueue {
		pado.cancel()
	}
	s.padoQueue = nil
	s.mu.Unlock()

	s.sock.Close()
	s.ctx.stop()
	if s.reg != nil {
		s.reg.remove(s.ifname)
	}
}
