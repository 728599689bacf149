package autopacket

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slices"
)

// AutoPacket is one pass of data through a statically wired filter graph: a
// carrier for decorations (values of a given TypeKey) plus the bookkeeping
// needed to invoke each subscribed filter exactly once, the moment its
// required inputs are all present. A packet is issued by exactly one
// AutoPacketFactory and is never shared across factories.
//
// All mutable state is guarded by mu. Per spec.md §5, no filter is ever
// invoked while mu is held: every method that can trigger invocations builds
// a local slice of counters to call, releases the lock, and only then calls
// out.
type AutoPacket struct {
	id      string
	factory *AutoPacketFactory
	tracer  trace.Tracer
	ctx     context.Context // set by Initialize; used to root filter-invocation spans

	mu            sync.Mutex
	satCounters   []*satCounter
	subscriberNum int // len(satCounters) immediately after construction
	decorations   map[TypeKey]*decorationDisposition

	outstanding Outstanding // acquired in Initialize, released in Finalize

	handle *PoolHandle[AutoPacket] // set by AutoPacketFactory.NewPacket, consumed by Recycle
}

// newAutoPacket wires a fresh packet against every FilterDescriptor visible
// from f's container (f's own descriptors plus those of every ancestor
// scope), per spec.md §4.1's construction algorithm. It is called once per
// object, by the factory's ObjectPool newFn; Initialize/Finalize handle the
// per-issuance reset cycle instead of reconstructing the wiring each time.
func newAutoPacket(f *AutoPacketFactory) (*AutoPacket, error) {
	descriptors, err := f.collectDescriptors()
	if err != nil {
		return nil, err
	}

	p := &AutoPacket{
		id:          newShortID("pkt"),
		factory:     f,
		tracer:      f.tracerOrDefault(),
		ctx:         context.Background(),
		decorations: make(map[TypeKey]*decorationDisposition),
	}

	p.satCounters = make([]*satCounter, len(descriptors))
	for i, d := range descriptors {
		p.satCounters[i] = newSatCounter(d)
	}
	p.subscriberNum = len(p.satCounters)

	for _, c := range p.satCounters {
		if err := p.wireCounter(c); err != nil {
			return nil, err
		}
	}

	for _, c := range p.satCounters {
		c.reset()
	}

	return p, nil
}

// wireCounter links c into every disposition its descriptor's inputs touch,
// creating dispositions on first reference. Shared between construction and
// AddRecipient, which wires one extra descriptor onto an already-issued
// packet.
func (p *AutoPacket) wireCounter(c *satCounter) error {
	for _, in := range c.descriptor.Inputs() {
		disp := p.disposition(in.Type)
		switch in.Kind {
		case InputRequired:
			disp.subscribers = append(disp.subscribers, subscriberEntry{counter: c, required: true})
		case InputOptional:
			disp.subscribers = append(disp.subscribers, subscriberEntry{counter: c, required: false})
		case InputOutRef, InputOutRefAutoReady:
			if disp.publisher != nil && disp.publisher != c {
				return &DuplicatePublisherError{Type: in.Type}
			}
			disp.publisher = c
		}
	}
	return nil
}

// disposition returns the disposition for typ, creating it on first
// reference. Not safe for concurrent use: callers hold mu, except
// newAutoPacket, which runs before the packet is published.
func (p *AutoPacket) disposition(typ TypeKey) *decorationDisposition {
	d, ok := p.decorations[typ]
	if !ok {
		d = newDecorationDisposition(typ)
		p.decorations[typ] = d
	}
	return d
}

// collectDescriptors gathers every FilterDescriptor registered against f or
// any ancestor reachable through f.container, deduplicating descriptors
// registered more than once (e.g. because two scopes share a parent).
// Descriptors are stable-sorted by Name and adjacent duplicates (equal under
// ==) are dropped, so the resulting satCounter order is deterministic across
// issuances.
func (f *AutoPacketFactory) collectDescriptors() ([]FilterDescriptor, error) {
	f.mu.Lock()
	container := f.container
	own := append([]FilterDescriptor(nil), f.descriptors...)
	f.mu.Unlock()

	all := own
	if container != nil {
		for _, c := range container.Enumerate() {
			peer, ok := c.Factory()
			if !ok || peer == f {
				continue
			}
			peer.mu.Lock()
			all = append(all, peer.descriptors...)
			peer.mu.Unlock()
		}
	}

	return dedupeDescriptors(all), nil
}

func dedupeDescriptors(in []FilterDescriptor) []FilterDescriptor {
	out := append([]FilterDescriptor(nil), in...)
	slices.SortStableFunc(out, func(a, b FilterDescriptor) int {
		if a == b {
			return 0
		}
		if a.Name() != b.Name() {
			if a.Name() < b.Name() {
				return -1
			}
			return 1
		}
		return 0
	})
	return slices.CompactFunc(out, func(a, b FilterDescriptor) bool {
		return a == b
	})
}
