package boot

import "sync"

// Gate tracks the named holds that keep the controller in its boot
// phase. Startup finishes once every registered hold has been cleared.
type Gate struct {
	mu       sync.Mutex
	holds    map[string]struct{}
	released chan struct{}
	done     bool
}

// NewGate returns a gate with no holds. A gate with no registered holds
// is not released until ClearHold observes the empty set, so callers
// should register at least one hold before waiting on Released.
func NewGate() *Gate {
	return &Gate{
		holds:    make(map[string]struct{}),
		released: make(chan struct{}),
	}
}

// RegisterHold adds a named hold. Registering after the gate has been
// released is a no-op, as is re-registering an existing hold.
func (g *Gate) RegisterHold(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	g.holds[name] = struct{}{}
}

// ClearHold removes a named hold. When the last hold is cleared the
// gate is released exactly once. Clearing an unknown or already cleared
// hold is a no-op.
func (g *Gate) ClearHold(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	delete(g.holds, name)
	if len(g.holds) == 0 {
		g.done = true
		close(g.released)
	}
}

// Released returns a channel closed when every hold has been cleared.
func (g *Gate) Released() <-chan struct{} {
	return g.released
}

// Ready reports whether the gate has been released.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// Pending returns the names of the holds still blocking release.
func (g *Gate) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.holds))
	for name := range g.holds {
		names = append(names, name)
	}
	return names
}
