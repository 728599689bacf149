package autopacket

import "sync"

// Outstanding anchors the lifetime of an enclosing scope (the DI container,
// in the source system). AutoPacketFactory.Start is handed one; every
// AutoPacket acquires a derived reference during Initialize and releases it
// during Finalize, so a packet never outlives the scope that issued it, and
// the scope is not considered idle while any packet is mid-flight.
//
// This is the one piece of the "enclosing container" external collaborator
// (spec.md §1, §6) this module must model concretely, since packet
// initialization has to do something observable when the scope has expired.
// Embedding applications with a real DI container should implement
// Outstanding over their own context lifetime rather than use RefAnchor.
type Outstanding interface {
	// Acquire returns a new reference bound to the same underlying scope, or
	// ok=false if the scope has already expired.
	Acquire() (ref Outstanding, ok bool)
	// Release drops this specific reference.
	Release()
}

// RefAnchor is a minimal reference-counted Outstanding, sufficient to run
// the engine standalone (and in tests) without a real DI container.
type RefAnchor struct {
	mu      sync.Mutex
	count   int
	expired bool
}

// NewRefAnchor returns a live anchor holding one implicit reference, owned by
// the caller (typically whoever calls AutoPacketFactory.Start).
func NewRefAnchor() *RefAnchor {
	return &RefAnchor{count: 1}
}

// Acquire implements Outstanding.
func (a *RefAnchor) Acquire() (Outstanding, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.expired {
		return nil, false
	}
	a.count++
	return a, true
}

// Release implements Outstanding.
func (a *RefAnchor) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count > 0 {
		a.count--
	}
}

// Expire marks the anchor as torn down: all future Acquire calls fail. It
// does not wait for outstanding references to drop; pair with
// AutoPacketFactory.Wait for that.
func (a *RefAnchor) Expire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expired = true
}

// Outstanding reports the current reference count, for diagnostics/tests.
func (a *RefAnchor) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}
