package autopacket

// InputKind classifies a single entry in a FilterDescriptor's input list.
type InputKind int

const (
	// InputInvalid marks an entry that should never be acted on; present so
	// the zero value of InputKind is never mistaken for a real kind.
	InputInvalid InputKind = iota
	// InputRequired blocks the filter from running until satisfied.
	InputRequired
	// InputOptional is resolved (one way or another) at Finalize if it
	// never becomes satisfied during the packet's lifetime.
	InputOptional
	// InputOutRef marks an output the filter publishes via Checkout/Decorate.
	InputOutRef
	// InputOutRefAutoReady is an output variant that is always considered
	// "ready" for wiring purposes identically to InputOutRef; the
	// distinction exists purely so descriptors can record the authoring
	// style (e.g. a *AutoReady[T] parameter vs. a plain *T parameter in
	// NewFilterDescriptor) for diagnostics. The satisfaction engine treats both identically.
	InputOutRefAutoReady
)

func (k InputKind) String() string {
	switch k {
	case InputRequired:
		return "required"
	case InputOptional:
		return "optional"
	case InputOutRef:
		return "out-ref"
	case InputOutRefAutoReady:
		return "out-ref-auto-ready"
	default:
		return "invalid"
	}
}

// InputEntry is one element of a FilterDescriptor's ordered input list.
type InputEntry struct {
	Type TypeKey
	Kind InputKind
}

// FilterDescriptor is an immutable, external-facing description of a filter:
// its ordered input/output signature, and a way to invoke it against a
// packet's current decorations. Implementations are expected to be
// comparable (usable as a map key and via == ) so the engine can deduplicate
// descriptors registered through more than one path.
//
// Descriptors are normally produced by reflecting over a Go callable's
// signature (see NewFilterDescriptor); the interface itself makes no
// assumption about how that reflection happens, keeping the dependency
// discovery/satisfaction engine independent of it.
type FilterDescriptor interface {
	// Inputs returns the ordered input/output signature of the filter.
	Inputs() []InputEntry
	// Invoke runs the underlying callable against the packet's current
	// decorations, reading inputs via Get and writing outputs via Checkout.
	Invoke(p *AutoPacket) error
	// IsDeferred reports whether this filter is excluded from
	// PulseSatisfaction (immediate decoration windows).
	IsDeferred() bool
	// Name returns a diagnostic name for logs, traces, and panics.
	Name() string
}
