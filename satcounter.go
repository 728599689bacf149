package autopacket

// satCounter is the per-(packet, filter) satisfaction tracker. It is never
// shared between packets: AutoPacket construction makes one copy per
// registered FilterDescriptor, and AddRecipient appends more for the
// lifetime of a single packet.
type satCounter struct {
	descriptor FilterDescriptor

	// remaining is the number of required inputs still missing.
	remaining int
	// optionalRemaining is the number of optional inputs still unresolved.
	optionalRemaining int
	// called is a one-shot guard: the descriptor's Invoke runs at most once
	// per packet lifetime, regardless of which path (Decrement or Resolve,
	// ordinary satisfaction or a pulse) drives remaining to zero.
	called bool

	deferred bool
}

func newSatCounter(d FilterDescriptor) *satCounter {
	return &satCounter{descriptor: d, deferred: d.IsDeferred()}
}

// reset restores the counters to their construction-time values and clears
// the one-shot guard, as happens between packet issuances.
func (c *satCounter) reset() {
	c.remaining = 0
	c.optionalRemaining = 0
	for _, in := range c.descriptor.Inputs() {
		switch in.Kind {
		case InputRequired:
			c.remaining++
		case InputOptional:
			c.optionalRemaining++
		}
	}
	c.called = false
}

// ready reports whether this counter is, right now, eligible to run: all
// required inputs satisfied, and not yet called.
func (c *satCounter) ready() bool {
	return c.remaining == 0 && !c.called
}

// decrement accounts for one subscription (required or optional) becoming
// satisfied or unsatisfiable. It returns true only on the transition that
// makes the filter runnable — i.e. the call that brings remaining to zero
// while called is still false. On that transition, called is set true so no
// later event (ordinary satisfaction, a second pulse, Resolve) can cause a
// second invocation.
func (c *satCounter) decrement(required bool) bool {
	if required {
		if c.remaining > 0 {
			c.remaining--
		}
	} else if c.optionalRemaining > 0 {
		c.optionalRemaining--
	}
	if c.ready() {
		c.called = true
		return true
	}
	return false
}

// revertPulse undoes exactly one decrement(required) call that was made as
// part of a DecorateImmediate window now closing. If that decrement was the
// transition that set called, called is cleared again; the filter becomes
// eligible to run for real the next time its last input genuinely arrives.
func (c *satCounter) revertPulse(required bool, causedTransition bool) {
	if required {
		c.remaining++
	} else {
		c.optionalRemaining++
	}
	if causedTransition {
		c.called = false
	}
}

// blockRequired marks the counter as permanently unable to run: one of its
// required inputs has been declared Unsatisfiable. Unlike decrement, this
// never returns a ready transition — a filter missing a required input must
// never be invoked, regardless of how many of its other inputs arrive.
func (c *satCounter) blockRequired() {
	c.called = true
}

// resolve is the finalize-time hook: it collapses every remaining optional
// input to "resolved unsatisfiable" in one step, and returns true if the
// filter is now eligible to run: all required inputs satisfied and not yet
// called. Since ready() does not wait on optional inputs, this only happens
// for a counter that was ready without any decrement reporting it (e.g. an
// AddRecipient recipient with no required inputs).
func (c *satCounter) resolve() bool {
	c.optionalRemaining = 0
	if c.ready() {
		c.called = true
		return true
	}
	return false
}
