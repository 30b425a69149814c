package app

import "sync/atomic"

// staleResetAfter bounds how many consecutive skipped cycles a wedged
// in-flight flag can cause before it is forcibly cleared. There is no hard
// cap on a single request beyond the client timeout, so this is the safety
// valve of last resort.
const staleResetAfter = 5

// Guard serializes polls for one resource: a new poll never starts while the
// previous one is in flight or while the UI is not visible. Skipped polls
// leave last-known state untouched.
type Guard struct {
	inFlight atomic.Bool
	hidden   atomic.Bool
	skips    atomic.Int32
}

// SetVisible gates polling on UI visibility.
func (g *Guard) SetVisible(visible bool) {
	g.hidden.Store(!visible)
}

// Poll runs fn in its own goroutine unless the guard skips it. It reports
// whether fn was started. The in-flight flag is cleared when fn returns, no
// matter how it returns.
func (g *Guard) Poll(fn func()) bool {
	if g.hidden.Load() {
		return false
	}
	if !g.inFlight.CompareAndSwap(false, true) {
		if g.skips.Add(1) >= staleResetAfter {
			// A poll has been stuck across many cycles; assume the flag is
			// wedged and let the next cycle through.
			g.inFlight.Store(false)
			g.skips.Store(0)
		}
		return false
	}
	g.skips.Store(0)
	go func() {
		defer g.inFlight.Store(false)
		fn()
	}()
	return true
}
