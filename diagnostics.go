package autopacket

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/teris-io/shortid"
)

// idGenerator produces short, URL-safe diagnostic identifiers for packets
// and filters. A single generator is shared process-wide; shortid's
// generator is safe for concurrent use.
var idGenerator = shortid.MustNew(1, shortid.DefaultABC, 2026)

// newShortID returns "prefix-xxxxx", falling back to a counter-free static
// suffix in the (practically unreachable) case the generator errors.
func newShortID(prefix string) string {
	id, err := idGenerator.Generate()
	if err != nil {
		return prefix + "-unknown"
	}
	return prefix + "-" + id
}

// DumpState renders a human-readable snapshot of every decoration and
// satCounter on the packet, for debugging stuck filter graphs. Grounded in
// the go-spew dependency pulled in for exactly this purpose: ad hoc
// structural dumps of engine-internal state that isn't otherwise exposed.
func (p *AutoPacket) DumpState() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	type counterView struct {
		Name              string
		Remaining         int
		OptionalRemaining int
		Called            bool
		Deferred          bool
	}
	type dispositionView struct {
		Type          string
		State         string
		HasValue      bool
		Subscribers   int
		HasPublisher  bool
		IsCheckedOut  bool
		WasCheckedOut bool
	}

	counters := make([]counterView, 0, len(p.satCounters))
	for _, c := range p.satCounters {
		counters = append(counters, counterView{
			Name:              c.descriptor.Name(),
			Remaining:         c.remaining,
			OptionalRemaining: c.optionalRemaining,
			Called:            c.called,
			Deferred:          c.deferred,
		})
	}

	dispositions := make([]dispositionView, 0, len(p.decorations))
	for _, d := range p.decorations {
		dispositions = append(dispositions, dispositionView{
			Type:          d.typ.String(),
			State:         d.state().String(),
			HasValue:      d.value != nil,
			Subscribers:   len(d.subscribers),
			HasPublisher:  d.publisher != nil,
			IsCheckedOut:  d.isCheckedOut,
			WasCheckedOut: d.wasCheckedOut,
		})
	}

	return fmt.Sprintf("AutoPacket %s\n%s", p.id, spew.Sdump(struct {
		Counters     []counterView
		Dispositions []dispositionView
	}{counters, dispositions}))
}
