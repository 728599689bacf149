package autopacket

// subscriberEntry pairs a satCounter with whether its subscription to this
// decoration is required (true) or optional (false).
type subscriberEntry struct {
	counter  *satCounter
	required bool
}

// decorationState is a diagnostic projection of a disposition's booleans,
// matching the states drawn in spec.md §4.2. The engine itself never
// branches on decorationState; it only ever inspects the underlying
// booleans directly, exactly as the source system does.
type decorationState int

const (
	stateEmpty decorationState = iota
	stateCheckedOut
	stateSatisfied
	stateImmediate
	stateUnsatisfiable
)

func (s decorationState) String() string {
	switch s {
	case stateCheckedOut:
		return "CHECKED_OUT"
	case stateSatisfied:
		return "SATISFIED"
	case stateImmediate:
		return "IMMEDIATE"
	case stateUnsatisfiable:
		return "UNSATISFIABLE"
	default:
		return "EMPTY"
	}
}

// decorationDisposition is the per-(packet, TypeKey) slot. All fields are
// protected by the owning AutoPacket's lock. Dispositions live as long as
// the packet object: Finalize resets each one in place rather than
// discarding the map.
type decorationDisposition struct {
	typ TypeKey

	value any

	// pulsing is true only for the dynamic extent of a DecorateImmediate
	// call touching this type, between pulseSatisfaction's setup pass and
	// undoPulse's restoration.
	pulsing bool

	subscribers []subscriberEntry
	publisher   *satCounter

	satisfied     bool
	isCheckedOut  bool
	wasCheckedOut bool
}

func newDecorationDisposition(typ TypeKey) *decorationDisposition {
	return &decorationDisposition{typ: typ}
}

// state derives a decorationState for diagnostics (DumpState, log fields).
func (d *decorationDisposition) state() decorationState {
	switch {
	case d.pulsing:
		return stateImmediate
	case d.isCheckedOut:
		return stateCheckedOut
	case d.satisfied:
		return stateSatisfied
	case d.wasCheckedOut:
		return stateUnsatisfiable
	default:
		return stateEmpty
	}
}

// reset returns every field to its construction-time default, except typ and
// the wiring (subscribers/publisher), which are packet-construction-time
// concerns untouched by Reset (per spec.md invariant 5, "after Reset, all
// fields return to defaults" — the wiring fields are built once at packet
// construction and kept, since they describe the graph, not the in-flight
// state of one pass).
func (d *decorationDisposition) reset() {
	d.value = nil
	d.pulsing = false
	d.satisfied = false
	d.isCheckedOut = false
	d.wasCheckedOut = false
}
