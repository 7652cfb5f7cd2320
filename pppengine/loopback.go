package pppengine

import "sync"

// Loopback is a deterministic, in-memory Engine used by tests and by
// the CLI when no real PPP stack is wired in. Open immediately
// signals Started; Terminate signals Finished exactly once.
type Loopback struct{}

type loopbackHandle struct {
	mu       sync.Mutex
	finished bool
	cb       Callbacks
}

// Open implements Engine.
func (Loopback) Open(ctrl SessionCtrl, cb Callbacks) (Handle, error) {
	h := &loopbackHandle{cb: cb}
	if cb.Started != nil {
		cb.Started()
	}
	return h, nil
}

// Terminate implements Handle.
func (h *loopbackHandle) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return
	}
	h.finished = true
	if h.cb.Finished != nil {
		h.cb.Finished()
	}
}
