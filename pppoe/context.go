package pppoe

// context is a single-threaded cooperative execution domain: a
// goroutine that does nothing but drain a queue of closures, one at a
// time, forever (until stopped). Every Server and every Session owns
// exactly one, and all mutation of that server's or session's private
// state happens from inside its own context.
//
// post never blocks the caller past the channel's buffer and never
// waits for the posted closure to run.
type context struct {
	queue chan func()
	done  chan struct{}
}

func newContext() *context {
	return &context{
		queue: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// run drains the queue until stop is called. Intended to be launched
// with `go ctx.run()`.
func (c *context) run() {
	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-c.done:
			c.drain()
			return
		}
	}
}

// drain runs any closures already queued before exiting, so that a
// stop() racing with a post() doesn't silently drop cleanup work.
func (c *context) drain() {
	for {
		select {
		case fn := <-c.queue:
			fn()
		default:
			return
		}
	}
}

// post enqueues fn to run on the context's own goroutine. Safe to
// call from any goroutine, including the context's own.
func (c *context) post(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.done:
	}
}

// stop terminates the run loop after draining pending work.
func (c *context) stop() {
	close(c.done)
}
