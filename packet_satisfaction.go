package autopacket

// pendingCall is a counter whose filter is queued for out-of-lock
// invocation. Built while mu is held, invoked after it is
// released, per spec.md §5's central invariant.
type pendingCall struct {
	counter *satCounter
}

// updateSatisfaction decrements every subscriber of typ (required or
// optional, per each subscription's own flavor) and queues any filter that
// transitions to ready as a result. Called with mu held; callers are
// responsible for invoking the returned queue after releasing it.
func (p *AutoPacket) updateSatisfaction(typ TypeKey) []pendingCall {
	d, ok := p.decorations[typ]
	if !ok {
		return nil
	}
	var queue []pendingCall
	for _, sub := range d.subscribers {
		if sub.counter.decrement(sub.required) {
			queue = append(queue, pendingCall{counter: sub.counter})
		}
	}
	return queue
}

// runQueue invokes every queued filter's descriptor against p. Must only be
// called with mu NOT held. Errors are collected rather than short-circuited,
// since one filter failing must not prevent siblings also made ready by the
// same transition from running.
func (p *AutoPacket) runQueue(queue []pendingCall) error {
	var firstErr error
	for _, call := range queue {
		_, span := startSpan(p.ctx, p.tracer, "autopacket.filter/"+call.counter.descriptor.Name())
		err := call.counter.descriptor.Invoke(p)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		span.End()
	}
	return firstErr
}

// CompleteCheckout is invoked once a Checkout guard's Ready(true) is called
// (or its output's construction otherwise finishes): it marks typ satisfied
// and propagates. Only typ itself is satisfied: a value completed under the T
// key is not visible under the handle-of-T key, and subscribers of that key
// are not notified.
func (p *AutoPacket) completeCheckout(typ TypeKey, value any) error {
	p.mu.Lock()
	d := p.disposition(typ)
	if d.satisfied {
		p.mu.Unlock()
		return &AlreadyPresentError{Type: typ}
	}
	d.value = value
	d.satisfied = true
	d.isCheckedOut = false
	d.wasCheckedOut = true
	queue := p.updateSatisfaction(typ)
	p.mu.Unlock()
	return p.runQueue(queue)
}

// markUnsatisfiable records that typ will never be decorated on this packet
// and propagates that fact to every subscriber. A required subscriber can
// never run without typ, so it is permanently blocked rather than queued; an
// optional subscriber simply treats typ's absence as resolved, the same as
// if Finalize's optional-resolution pass had run early, and may still become
// ready as a result. Rejects a type that is satisfied, or was ever checked
// out (including a checkout still outstanding) — a Checkout's own Ready(false)
// resolves through resolveCheckoutUnsatisfiable instead, since by the time it
// runs wasCheckedOut is already true from its own Checkout call.
func (p *AutoPacket) markUnsatisfiable(typ TypeKey) error {
	p.mu.Lock()
	d := p.disposition(typ)
	if d.wasCheckedOut || d.satisfied {
		p.mu.Unlock()
		return &AlreadyPresentError{Type: typ}
	}
	queue := p.propagateUnsatisfiableLocked(d)
	p.mu.Unlock()

	return p.runQueue(queue)
}

// resolveCheckoutUnsatisfiable is markUnsatisfiable's counterpart for a
// Checkout's own Ready(false) call. The checkout's one-shot settled guard
// already proves this is the single legitimate resolution of the slot it
// reserved, so it must not be rejected by the same wasCheckedOut check that
// its own Checkout call set.
func (p *AutoPacket) resolveCheckoutUnsatisfiable(typ TypeKey) error {
	p.mu.Lock()
	d := p.disposition(typ)
	queue := p.propagateUnsatisfiableLocked(d)
	p.mu.Unlock()

	return p.runQueue(queue)
}

// propagateUnsatisfiableLocked marks d permanently absent and propagates
// that to its subscribers. Must be called with mu held.
func (p *AutoPacket) propagateUnsatisfiableLocked(d *decorationDisposition) []pendingCall {
	d.wasCheckedOut = true

	var queue []pendingCall
	for _, sub := range d.subscribers {
		if sub.required {
			sub.counter.blockRequired()
			continue
		}
		if sub.counter.decrement(false) {
			queue = append(queue, pendingCall{counter: sub.counter})
		}
	}
	return queue
}

// pulseTouch records exactly what pulseQueue did to one subscriber, so the
// restoration pass can undo precisely that decrement rather than rebuild the
// counter from scratch (which would also erase any genuine, non-pulse
// progress the same filter had made on its other inputs).
type pulseTouch struct {
	counter    *satCounter
	required   bool
	transition bool
}

// pulseSatisfaction drives a DecorateImmediate window: for one or more types
// simultaneously, it marks the value present, runs every non-deferred
// subscriber whose only remaining requirement was this pulse, then restores
// each disposition to its pre-pulse state. Types are walked in reverse
// declaration order, matching AutoPacket::PulseSatisfaction's
// `for (size_t i = nInfos; i--;)` walk in the source system, so that the
// first-declared type's subscribers observe every other pulsed type as
// already present.
func (p *AutoPacket) pulseSatisfaction(types []TypeKey, values []any) error {
	p.mu.Lock()

	restored := make([]*decorationDisposition, len(types))
	var queue []pendingCall
	var touched []pulseTouch
	for i := len(types) - 1; i >= 0; i-- {
		typ := types[i]
		d := p.disposition(typ)
		restored[i] = d
		if d.wasCheckedOut {
			p.mu.Unlock()
			p.undoPulse(restored[i+1:], touched)
			return &AlreadyCheckedOutError{Type: typ}
		}
		if d.satisfied {
			p.mu.Unlock()
			p.undoPulse(restored[i+1:], touched)
			return &AlreadyPresentError{Type: typ}
		}
		d.value = values[i]
		d.satisfied = true
		d.pulsing = true
		q, t := p.pulseQueue(d)
		queue = append(queue, q...)
		touched = append(touched, t...)
	}

	p.mu.Unlock()
	err := p.runQueue(queue)
	p.undoPulse(restored, touched)

	return err
}

// pulseQueue is updateSatisfaction's logic restricted to non-deferred
// subscribers, since a pulse must never trigger a filter that has opted out
// of the immediate-decoration window. It also returns a pulseTouch per
// subscriber actually decremented, so the caller can revert precisely.
func (p *AutoPacket) pulseQueue(d *decorationDisposition) ([]pendingCall, []pulseTouch) {
	var queue []pendingCall
	var touched []pulseTouch
	for _, sub := range d.subscribers {
		if sub.counter.deferred {
			continue
		}
		transitioned := sub.counter.decrement(sub.required)
		touched = append(touched, pulseTouch{counter: sub.counter, required: sub.required, transition: transitioned})
		if transitioned {
			queue = append(queue, pendingCall{counter: sub.counter})
		}
	}
	return queue, touched
}

func (p *AutoPacket) undoPulse(dispositions []*decorationDisposition, touched []pulseTouch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range dispositions {
		d.value = nil
		d.satisfied = false
		d.pulsing = false
	}
	for _, t := range touched {
		t.counter.revertPulse(t.required, t.transition)
	}
}
