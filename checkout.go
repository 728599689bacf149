package autopacket

import "runtime"

// Checkout is a scoped, single-use guard over a reserved decoration slot,
// returned by the package-level Checkout[T] function. The caller must
// eventually call Ready: Ready(true) publishes the slot's current value and
// satisfies subscribers; Ready(false) abandons it, leaving the slot
// permanently unsatisfiable for this packet.
//
// A Checkout dropped without a Ready call is finalized as Ready(false) via a
// runtime finalizer, grounded in inprocgrpc/clientstreamadapter.go's use of
// runtime.SetFinalizer to guarantee cleanup of a forgotten scoped resource.
// Relying on the finalizer is a programming error, not a supported idiom: it
// runs at an unspecified time, long after the packet may have moved on.
type Checkout[T any] struct {
	p       *AutoPacket
	typ     TypeKey
	value   T
	settled bool
}

func newCheckout[T any](p *AutoPacket, typ TypeKey) *Checkout[T] {
	c := &Checkout[T]{p: p, typ: typ}
	runtime.SetFinalizer(c, func(c *Checkout[T]) {
		if !c.settled {
			_ = c.Ready(false)
		}
	})
	return c
}

// Set stages the value this checkout will publish when Ready(true) is
// called. Calling Set more than once overwrites the staged value; Set after
// Ready has already been called has no effect.
func (c *Checkout[T]) Set(value T) {
	if c.settled {
		return
	}
	c.value = value
}

// Ready resolves the checkout. publish=true decorates the packet with the
// value last passed to Set (or T's zero value, if Set was never called) and
// runs every now-satisfied subscriber; publish=false marks the slot
// Unsatisfiable instead. Calling Ready more than once is a no-op returning
// nil, matching "a dropped guard's finalizer firing after an explicit Ready
// call must not double-publish or double-fail."
func (c *Checkout[T]) Ready(publish bool) error {
	if c.settled {
		return nil
	}
	c.settled = true
	runtime.SetFinalizer(c, nil)

	if publish {
		return c.p.completeCheckout(c.typ, c.value)
	}

	c.p.mu.Lock()
	d := c.p.disposition(c.typ)
	d.isCheckedOut = false
	c.p.mu.Unlock()
	return c.p.resolveCheckoutUnsatisfiable(c.typ)
}
