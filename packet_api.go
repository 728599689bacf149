package autopacket

// Has reports whether a value of T is currently decorated on the packet.
// Checked-out-but-not-yet-Ready slots do not count as present.
func Has[T any](p *AutoPacket) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.decorations[TypeKeyOf[T]()]
	return ok && d.satisfied
}

// Get returns the decorated value of T, or ok=false if it is absent. While a
// DecorateImmediate call pulsing T is in progress, Get returns the pulsed
// value; once that call returns, the value is gone. GetShared never sees
// pulsed values.
func Get[T any](p *AutoPacket) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero T
	d, ok := p.decorations[TypeKeyOf[T]()]
	if !ok || !d.satisfied {
		return zero, false
	}
	v, ok := d.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// MustGet returns the decorated value of T, or a DecorationMissingError.
func MustGet[T any](p *AutoPacket) (T, error) {
	v, ok := Get[T](p)
	if !ok {
		var zero T
		return zero, &DecorationMissingError{Type: TypeKeyOf[T]()}
	}
	return v, nil
}

// GetShared is Get specialized for the handle-of-T key: it returns the
// *Shared[T] decorated via DecorateShared, independent of whether a plain T
// has also been decorated on the same packet.
func GetShared[T any](p *AutoPacket) (*Shared[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.decorations[TypeKeyOfShared[T]()]
	if !ok || !d.satisfied {
		return nil, false
	}
	v, ok := d.value.(*Shared[T])
	if !ok {
		return nil, false
	}
	return v, true
}

// rawGet is the non-generic read path used by reflectFilterDescriptor's
// invocation machinery, where the concrete T is only known as a
// reflect.Type, not a type parameter.
func (p *AutoPacket) rawGet(typ TypeKey) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.decorations[typ]
	if !ok || !d.satisfied {
		return nil, false
	}
	return d.value, true
}

// HasSubscribers reports whether a slot for T exists at all on the packet —
// i.e. some filter registered on the packet's factory declared T as an
// input, an output, or both. It does not distinguish a type with consumers
// from one with only a publisher: callers wanting "is anyone actually
// waiting on this" should inspect the descriptor graph, not this call.
func HasSubscribers[T any](p *AutoPacket) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.decorations[TypeKeyOf[T]()]
	return ok
}

// Decorate immediately and permanently attaches value as the packet's T,
// satisfying every subscriber in one step. It is an error to Decorate a type
// that has already been decorated, checked out, or marked Unsatisfiable.
func Decorate[T any](p *AutoPacket, value T) error {
	typ := TypeKeyOf[T]()
	p.mu.Lock()
	d := p.disposition(typ)
	switch {
	case d.satisfied:
		p.mu.Unlock()
		return &AlreadyPresentError{Type: typ}
	case d.isCheckedOut || d.wasCheckedOut:
		p.mu.Unlock()
		return &AlreadyCheckedOutError{Type: typ}
	}
	p.mu.Unlock()
	return p.completeCheckout(typ, value)
}

// DecorateShared attaches value under T's handle key, independent of
// whether a plain T has been (or ever will be) decorated on this packet.
func DecorateShared[T any](p *AutoPacket, value *Shared[T]) error {
	typ := TypeKeyOfShared[T]()
	p.mu.Lock()
	d := p.disposition(typ)
	switch {
	case d.satisfied:
		p.mu.Unlock()
		return &AlreadyPresentError{Type: typ}
	case d.isCheckedOut || d.wasCheckedOut:
		p.mu.Unlock()
		return &AlreadyCheckedOutError{Type: typ}
	}
	p.mu.Unlock()
	return p.completeCheckout(typ, value)
}

// Checkout reserves T's slot for deferred decoration: nothing else may
// Decorate or Checkout T until the returned Checkout's Ready is resolved.
// Use this when the value to publish is expensive or only knowable after
// other work completes, but subscribers should still be able to wait on it.
func Checkout[T any](p *AutoPacket) (*Checkout[T], error) {
	typ := TypeKeyOf[T]()
	p.mu.Lock()
	d := p.disposition(typ)
	if d.satisfied {
		p.mu.Unlock()
		return nil, &AlreadyPresentError{Type: typ}
	}
	if d.isCheckedOut || d.wasCheckedOut {
		p.mu.Unlock()
		return nil, &AlreadyCheckedOutError{Type: typ}
	}
	d.isCheckedOut = true
	d.wasCheckedOut = true
	p.mu.Unlock()
	return newCheckout[T](p, typ), nil
}

// Unsatisfiable declares that T will never be decorated on this packet,
// unblocking any subscriber that was only waiting on it as an optional
// input, and permanently disqualifying any subscriber that required it.
func Unsatisfiable[T any](p *AutoPacket) error {
	return p.markUnsatisfiable(TypeKeyOf[T]())
}

// DecorateImmediate runs value's subscribers synchronously, within the
// dynamic extent of this call, then withdraws value: it is visible to Get
// only while this call is in progress, never cached, and never observed by a filter that was not already
// runnable the moment value (and any other types pulsed in the same call)
// became available. Filters registered with Deferred() never see a pulse.
//
// Use this for decorations that are cheap to produce but too large, too
// transient, or too order-sensitive to park on the packet for its whole
// lifetime (e.g. a raw buffer that downstream filters must copy out of
// immediately or not at all).
func DecorateImmediate(p *AutoPacket, values ...any) error {
	if len(values) == 0 {
		return nil
	}
	types := make([]TypeKey, len(values))
	for i, v := range values {
		types[i] = typeKeyOfValue(v)
	}
	return p.pulseSatisfaction(types, values)
}
