package workflow

import (
	"context"
	"sync"
)

// pauseGate implements genuine scheduler-level pause/resume: while paused,
// the scheduler blocks before dispatching the next node (or the next
// level, in parallel mode) but never interrupts a node already executing.
//
// resumeCh is closed while running and replaced with a fresh, open channel
// while paused; wait() blocks on whichever channel was current when it
// looked, so a Resume racing with wait cannot be missed (it simply closes
// the channel wait is already selecting on, or wait reads the already-open
// running channel on its next look).
type pauseGate struct {
	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

func newPauseGate() *pauseGate {
	ch := make(chan struct{})
	close(ch)
	return &pauseGate{resumeCh: ch}
}

// Pause arrests dispatch of further nodes until Resume is called.
func (g *pauseGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.resumeCh = make(chan struct{})
	}
}

// Resume releases a pause, allowing dispatch to continue.
func (g *pauseGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.resumeCh)
	}
}

// IsPaused reports whether the gate is currently holding dispatch.
func (g *pauseGate) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// wait blocks until the gate is not paused, or ctx is done.
func (g *pauseGate) wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		ch := g.resumeCh
		g.mu.Unlock()

		select {
		case <-ch:
			// Either it was already open (not paused) or it was just closed
			// by Resume. Loop once more to confirm the gate is still not
			// paused (a Pause immediately following a Resume would have
			// swapped resumeCh again).
			g.mu.Lock()
			stillOpen := !g.paused
			g.mu.Unlock()
			if stillOpen {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
