package pppoe

import "sync/atomic"

// Stats holds the process-wide statistics counters reported by the
// stat surface. All fields use fetch-add/sub atomics so that server
// contexts on different goroutines can update them without a shared
// lock.
type Stats struct {
	padiRecv     atomic.Uint64
	padiDrop     atomic.Uint64
	padoSent     atomic.Uint64
	padrRecv     atomic.Uint64
	padrDupRecv  atomic.Uint64
	padsSent     atomic.Uint64
	active       atomic.Uint32
	starting     atomic.Uint32
	delayedPado  atomic.Uint32
	totalPadiCnt atomic.Uint32
}

// NewStats returns a zeroed counter set.
func NewStats() *Stats { return &Stats{} }

// Snapshot is a point-in-time copy of every counter, for CLI/monitoring display.
type Snapshot struct {
	PADIRecv     uint64
	PADIDrop     uint64
	PADOSent     uint64
	PADRRecv     uint64
	PADRDupRecv  uint64
	PADSSent     uint64
	Active       uint32
	Starting     uint32
	DelayedPADO  uint32
}

// Snapshot reads every counter. Individual reads are not mutually
// atomic with each other.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		PADIRecv:    s.padiRecv.Load(),
		PADIDrop:    s.padiDrop.Load(),
		PADOSent:    s.padoSent.Load(),
		PADRRecv:    s.padrRecv.Load(),
		PADRDupRecv: s.padrDupRecv.Load(),
		PADSSent:    s.padsSent.Load(),
		Active:      s.active.Load(),
		Starting:    s.starting.Load(),
		DelayedPADO: s.delayedPado.Load(),
	}
}

// GetStat returns the two counters most relevant to an external
// connection-count limiter: sessions mid-handshake and sessions with
// PPP running.
func (s *Stats) GetStat() (starting, active uint32) {
	return s.starting.Load(), s.active.Load()
}

// decActive, decStarting and decDelayedPado perform atomic decrements
// via two's-complement wraparound, the standard idiom for atomic.Uint32
// since there is no Sub method.
func (s *Stats) decActive()      { s.active.Add(^uint32(0)) }
func (s *Stats) decStarting()    { s.starting.Add(^uint32(0)) }
func (s *Stats) decDelayedPado() { s.delayedPado.Add(^uint32(0)) }
