package autopacket

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// FactoryState is the lifecycle stage of an AutoPacketFactory.
type FactoryState int

const (
	FactoryUnstarted FactoryState = iota
	FactoryRunning
	FactoryStopped
)

func (s FactoryState) String() string {
	switch s {
	case FactoryRunning:
		return "running"
	case FactoryStopped:
		return "stopped"
	default:
		return "unstarted"
	}
}

// AutoPacketFactory owns one statically wired filter graph and issues
// AutoPacket instances against it. Backed by a mutex+cond pair rather than
// atomics, per spec.md §4.4: state transitions are rare (Start/Stop happen
// once or twice per factory lifetime) while packet issuance is frequent, so
// the lock only needs to be cheap to acquire, not lock-free.
type AutoPacketFactory struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state FactoryState

	container Container
	logger    zerolog.Logger
	tracer    trace.Tracer

	descriptors []FilterDescriptor
	pool        *ObjectPool[AutoPacket]

	anchor Outstanding
	live   int // packets currently between Initialize and Finalize
}

// NewAutoPacketFactory builds a factory wired against the given filter
// descriptors (typically produced by NewFilterDescriptor). The factory is
// Unstarted until Start is called; NewPacket fails with NotRunningError
// until then.
func NewAutoPacketFactory(descriptors []FilterDescriptor, opts ...FactoryOption) (*AutoPacketFactory, error) {
	cfg, err := resolveFactoryOptions(opts)
	if err != nil {
		return nil, err
	}
	f := &AutoPacketFactory{
		container:   cfg.container,
		logger:      cfg.logger,
		tracer:      cfg.tracer,
		descriptors: append([]FilterDescriptor(nil), descriptors...),
	}
	f.cond = sync.NewCond(&f.mu)
	f.pool = NewObjectPool[AutoPacket](cfg.maxOutstanding, cfg.maxCached,
		func() (*AutoPacket, error) { return newAutoPacket(f) },
		nil,
		func(p *AutoPacket) { _ = p.finalize() },
	)
	if cfg.container != nil {
		if reg, ok := cfg.container.(*Registry); ok {
			reg.SetFactory(f)
		}
	}
	return f, nil
}

// Start transitions the factory to Running, binding it to anchor: every
// packet issued from here on acquires its own reference against anchor
// during Initialize, and releases it during Finalize. Calling Start while
// already Running is a no-op; calling it after Stop returns an error, since
// a stopped factory cannot be restarted.
func (f *AutoPacketFactory) Start(anchor Outstanding) error {
	if anchor == nil {
		return fmt.Errorf("autopacket: Start requires a non-nil Outstanding anchor")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case FactoryRunning:
		return nil
	case FactoryStopped:
		return fmt.Errorf("autopacket: factory already stopped, cannot restart")
	}
	f.anchor = anchor
	f.state = FactoryRunning
	f.cond.Broadcast()
	f.logger.Debug().Msg("autopacket: factory started")
	return nil
}

// Stop transitions the factory out of Running. If graceful, Stop blocks
// until every outstanding packet has been finalized before running the pool
// down; otherwise it marks the factory Stopped immediately and lets
// in-flight packets finish on their own (Finalize still runs normally, just
// without anyone waiting on it here).
func (f *AutoPacketFactory) Stop(graceful bool) error {
	f.mu.Lock()
	if f.state != FactoryRunning {
		f.mu.Unlock()
		return nil
	}
	f.state = FactoryStopped
	f.cond.Broadcast()
	if graceful {
		for f.live > 0 {
			f.cond.Wait()
		}
	}
	f.mu.Unlock()

	f.logger.Debug().Msg("autopacket: factory stopped")
	if !graceful {
		return nil
	}
	return f.pool.Rundown(context.Background())
}

// Wait blocks until the factory reaches Stopped and every issued packet has
// been finalized, or ctx is done.
func (f *AutoPacketFactory) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.mu.Lock()
		for f.state != FactoryStopped || f.live > 0 {
			f.cond.Wait()
		}
		f.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewPacket issues a fresh AutoPacket: a pooled instance is taken (built
// fresh on cache miss, and wired against the factory's filter set at the
// time it was built) and Initialized against the factory's outstanding
// anchor.
func (f *AutoPacketFactory) NewPacket(ctx context.Context) (*AutoPacket, error) {
	f.mu.Lock()
	state := f.state
	pool := f.pool
	f.mu.Unlock()
	if state != FactoryRunning {
		return nil, &NotRunningError{State: state}
	}

	handle, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	p := handle.Value()
	p.handle = handle

	if err := p.initialize(ctx); err != nil {
		handle.Release()
		return nil, err
	}

	f.mu.Lock()
	f.live++
	f.mu.Unlock()

	return p, nil
}

// Recycle finalizes p and returns it to the factory's pool. Callers must not
// touch p after calling Recycle.
func (p *AutoPacket) Recycle() {
	p.handle.Release()
	f := p.factory
	f.mu.Lock()
	f.live--
	if f.live == 0 {
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// AddSubscriber registers an additional FilterDescriptor for packets built
// from this point forward, and discards the pool's idle packets so they are
// rebuilt with it. Packets in flight at the time keep their old wiring, also
// after they are recycled and reissued; use the package-level AddRecipient
// to wire a descriptor onto one packet already in flight.
func (f *AutoPacketFactory) AddSubscriber(d FilterDescriptor) {
	f.mu.Lock()
	f.descriptors = append(f.descriptors, d)
	f.mu.Unlock()
	f.pool.ClearCachedEntities()
}

// RemoveSubscriber undoes a prior AddSubscriber, with the same treatment of
// idle and in-flight packets. Descriptors baked in at NewAutoPacketFactory
// time can also be removed this way.
func (f *AutoPacketFactory) RemoveSubscriber(d FilterDescriptor) {
	f.mu.Lock()
	out := f.descriptors[:0]
	for _, existing := range f.descriptors {
		if existing != d {
			out = append(out, existing)
		}
	}
	f.descriptors = out
	f.mu.Unlock()
	f.pool.ClearCachedEntities()
}

func (f *AutoPacketFactory) tracerOrDefault() trace.Tracer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracer
}

// acquireOutstanding derives a new Outstanding reference from the factory's
// anchor, failing if the factory isn't Running or the anchor has expired.
func (f *AutoPacketFactory) acquireOutstanding() (Outstanding, bool) {
	f.mu.Lock()
	anchor := f.anchor
	running := f.state == FactoryRunning
	f.mu.Unlock()
	if !running || anchor == nil {
		return nil, false
	}
	return anchor.Acquire()
}
