package apolloAuth

import (
	"context"
	"sync"
)

// GateState is the state of a [BootstrapGate].
type GateState uint8

const (
	GateNotReady GateState = iota
	GateReady
)

func (s GateState) String() string {
	if s == GateReady {
		return "ready"
	}
	return "not_ready"
}

// BootstrapGate holds back dependent work until the first rehydration has
// been issued. It opens exactly once and never closes again.
type BootstrapGate struct {
	once sync.Once
	done chan struct{}
}

func newBootstrapGate() *BootstrapGate {
	return &BootstrapGate{done: make(chan struct{})}
}

// State returns the current gate state.
func (g *BootstrapGate) State() GateState {
	if g.Ready() {
		return GateReady
	}
	return GateNotReady
}

// Ready reports whether the gate has opened.
func (g *BootstrapGate) Ready() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Done is closed when the gate opens.
func (g *BootstrapGate) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the gate opens or ctx is done.
func (g *BootstrapGate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Render calls render only if the gate is open, and reports whether it did.
func (g *BootstrapGate) Render(render func()) bool {
	if !g.Ready() {
		return false
	}
	if render != nil {
		render()
	}
	return true
}

// open performs the one transition. It reports whether this call opened
// the gate.
func (g *BootstrapGate) open() bool {
	opened := false
	g.once.Do(func() {
		close(g.done)
		opened = true
	})
	return opened
}
