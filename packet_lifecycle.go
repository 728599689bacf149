package autopacket

import "context"

// Initialize binds the packet to a live scope for the duration of its use:
// it acquires a reference against the factory's outstanding anchor (failing
// with ContainerExpiredError if the scope has already torn down) and roots
// subsequent filter-invocation spans at ctx. Called by the factory
// immediately after a packet is taken from its pool, before being handed to
// a caller.
//
// Per spec.md §4.6, any filter with zero required inputs is already ready
// the instant the packet exists — it must not wait for Finalize's optional
// resolution pass to fire, since a producer with no inputs feeding a
// consumer is the ordinary case, not an edge case. Those filters are
// collected and invoked here, before Initialize returns.
func (p *AutoPacket) initialize(ctx context.Context) error {
	ref, ok := p.factory.acquireOutstanding()
	if !ok {
		return &ContainerExpiredError{}
	}
	p.mu.Lock()
	p.outstanding = ref
	p.ctx = ctx
	var queue []pendingCall
	for _, c := range p.satCounters {
		if c.ready() {
			c.called = true
			queue = append(queue, pendingCall{counter: c})
		}
	}
	p.mu.Unlock()
	return p.runQueue(queue)
}

// finalize runs the end-of-life pass the source system performs before a
// packet is returned to its pool: every optional input still unresolved is
// resolved away (possibly unblocking filters that were only waiting on
// optionals), any per-packet recipients added via AddRecipient are dropped,
// and every disposition/counter is returned to its construction-time
// default so the next Initialize starts clean. The outstanding reference
// acquired by Initialize is released last, after every filter invocation
// this pass can trigger has returned.
func (p *AutoPacket) finalize() error {
	p.mu.Lock()
	var queue []pendingCall
	for _, c := range p.satCounters {
		if c.called {
			continue
		}
		if c.resolve() {
			queue = append(queue, pendingCall{counter: c})
		}
	}
	p.mu.Unlock()

	err := p.runQueue(queue)

	p.mu.Lock()
	p.dropRecipientsLocked()
	for _, d := range p.decorations {
		d.reset()
	}
	for _, c := range p.satCounters {
		c.reset()
	}
	ref := p.outstanding
	p.outstanding = nil
	p.ctx = context.Background()
	p.mu.Unlock()

	if ref != nil {
		ref.Release()
	}

	return err
}

// dropRecipientsLocked removes every satCounter appended past
// subscriberNum (i.e. by AddRecipient) along with its disposition wiring,
// restoring the packet's filter set to exactly what it was at construction.
// Must be called with mu held.
func (p *AutoPacket) dropRecipientsLocked() {
	if len(p.satCounters) == p.subscriberNum {
		return
	}
	removed := make(map[*satCounter]bool, len(p.satCounters)-p.subscriberNum)
	for _, c := range p.satCounters[p.subscriberNum:] {
		removed[c] = true
	}
	p.satCounters = p.satCounters[:p.subscriberNum]

	for _, d := range p.decorations {
		if d.publisher != nil && removed[d.publisher] {
			d.publisher = nil
		}
		if len(d.subscribers) == 0 {
			continue
		}
		kept := d.subscribers[:0]
		for _, sub := range d.subscribers {
			if !removed[sub.counter] {
				kept = append(kept, sub)
			}
		}
		d.subscribers = kept
	}
}

// AddRecipient wires one extra FilterDescriptor onto an already-issued
// packet, for callers that discover a filter dynamically (e.g. a plugin
// registered after packets started flowing) rather than at factory
// construction time. The recipient is scoped to this packet only: Finalize
// strips it back out before the packet is recycled, so the next issuance
// reverts to the factory's static filter set.
//
// Inputs already satisfied on the packet immediately count toward the new
// counter, and if that makes it ready, it is invoked before AddRecipient
// returns.
func AddRecipient(p *AutoPacket, d FilterDescriptor) error {
	c := newSatCounter(d)

	p.mu.Lock()
	if err := p.wireCounter(c); err != nil {
		p.mu.Unlock()
		return err
	}
	c.reset()
	p.satCounters = append(p.satCounters, c)

	var ready bool
	for _, in := range d.Inputs() {
		if in.Kind != InputRequired && in.Kind != InputOptional {
			continue
		}
		disp, ok := p.decorations[in.Type]
		if !ok || !disp.satisfied {
			continue
		}
		if c.decrement(in.Kind == InputRequired) {
			ready = true
		}
	}
	p.mu.Unlock()

	if ready {
		return p.runQueue([]pendingCall{{counter: c}})
	}
	return nil
}
