package pppoe

import (
	"net"
	"time"

	"github.com/accelgo/pppoeacd/frame"
)

// PADODelayStep is one rung of the optional PADO-delay staircase: once
// the server's active-session count reaches ActiveSessions, the
// effective delay becomes DelayMS.
type PADODelayStep struct {
	ActiveSessions int
	DelayMS        int
}

// PADODelay is the pado-delay configuration: -1 never replies, 0
// replies synchronously, >0 schedules a PADO after that many ms. If
// Staircase is non-empty, the effective delay is chosen by the
// highest step whose ActiveSessions threshold is at or below the
// server's current stat_active, falling back to Fixed.
type PADODelay struct {
	Fixed     int
	Staircase []PADODelayStep
}

// resolve returns the effective delay for the current active-session
// count by walking the staircase for the highest threshold at or below
// active.
func (d PADODelay) resolve(active uint32) int {
	if len(d.Staircase) == 0 {
		return d.Fixed
	}
	delay := d.Fixed
	for _, step := range d.Staircase {
		if int(active) >= step.ActiveSessions {
			delay = step.DelayMS
		}
	}
	return delay
}

// delayedPADO is a scheduled PADO reply, fired once by a timer posted
// back onto the owning server's context. serviceNames holds the list
// the eventual PADO will offer — resolved once, at PADI time, so a
// config change mid-wait can't alter what was already promised.
type delayedPADO struct {
	serv         *Server
	addr         net.HardwareAddr
	hostUniq     *frame.Tag
	relaySID     *frame.Tag
	serviceNames []string
	timer        *time.Timer
}

func (p *delayedPADO) cancel() {
	p.timer.Stop()
}

// fire sends the PADO (unless the server is mid-shutdown) and removes
// the entry from the pending queue. Always runs on the server's own
// context.
func (p *delayedPADO) fire() {
	p.serv.mu.Lock()
	_, stillQueued := p.serv.padoQueue[macKey(p.addr)]
	if stillQueued {
		delete(p.serv.padoQueue, macKey(p.addr))
	}
	stopping := p.serv.stopping
	p.serv.mu.Unlock()

	if !stillQueued {
		return
	}

	p.serv.stats.decDelayedPado()

	if !stopping {
		p.serv.sendPADO(p.addr, p.hostUniq, p.relaySID, p.serviceNames)
	}
}

func macKey(mac net.HardwareAddr) string {
	return string(mac)
}
