package temporal

import (
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ownerGuard remembers the goroutine that drives a manager's ticks. Before
// the first tick any goroutine may mutate (start-up wiring).
type ownerGuard struct {
	enabled bool
	owner   atomic.Int64
}

func (g *ownerGuard) claim() {
	if !g.enabled {
		return
	}
	g.owner.CompareAndSwap(0, goid.Get())
}

// allowed reports whether the calling goroutine may mutate the wheel.
func (g *ownerGuard) allowed() bool {
	if !g.enabled {
		return true
	}
	owner := g.owner.Load()
	return owner == 0 || owner == goid.Get()
}
