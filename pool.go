package autopacket

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Unbounded is passed to NewObjectPool for either limit to mean "no bound".
const Unbounded = -1

// ObjectPool is a bounded recycler for *T. It holds a construction factory,
// an init hook (run after an object is obtained, whether freshly constructed
// or pulled from the cache) and a finalize hook (run before an object is
// either cached or discarded). Grounded in catrate/limiter.go's
// sync.Pool-of-reusable-state idiom (categoryDataPool), extended with an
// outstanding-limit gate realized with golang.org/x/sync/semaphore, per
// spec.md §4.7.
type ObjectPool[T any] struct {
	newFn      func() (*T, error)
	initFn     func(*T) error
	finalizeFn func(*T)

	maxCached int

	mu       sync.Mutex
	sem      *semaphore.Weighted // nil when outstanding is unbounded
	limit    int64
	cached   []*T
	closed   bool
	outCount int
}

// NewObjectPool constructs a pool. maxOutstanding and maxCached may be
// Unbounded. newFn constructs a fresh *T; initFn/finalizeFn may be nil.
func NewObjectPool[T any](maxOutstanding, maxCached int, newFn func() (*T, error), initFn func(*T) error, finalizeFn func(*T)) *ObjectPool[T] {
	p := &ObjectPool[T]{
		newFn:      newFn,
		initFn:     initFn,
		finalizeFn: finalizeFn,
		maxCached:  maxCached,
	}
	if maxOutstanding != Unbounded {
		p.limit = int64(maxOutstanding)
		p.sem = semaphore.NewWeighted(p.limit)
	}
	return p
}

// PoolHandle is an owning, scoped reference to a pooled *T. Release must be
// called; calls after the first do nothing. It is idiomatic to
// `defer h.Release()`.
type PoolHandle[T any] struct {
	pool  *ObjectPool[T]
	value *T
	sem   *semaphore.Weighted
	once  sync.Once
}

// Value returns the pooled object.
func (h *PoolHandle[T]) Value() *T { return h.value }

// Release runs the finalize hook and either returns the object to the cache
// or discards it, depending on the configured cache limit and whether the
// pool has been rundown.
func (h *PoolHandle[T]) Release() {
	h.once.Do(func() {
		if h.pool.finalizeFn != nil {
			h.pool.finalizeFn(h.value)
		}
		h.pool.release(h.value)
		if h.sem != nil {
			h.sem.Release(1)
		}
	})
}

// Acquire obtains a *T, constructing one if the cache is empty, blocking (or
// failing, per ctx) if the outstanding limit has been reached.
func (p *ObjectPool[T]) Acquire(ctx context.Context) (*PoolHandle[T], error) {
	p.mu.Lock()
	sem := p.sem
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, context.Canceled
	}
	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	v, err := p.take()
	if err != nil {
		if sem != nil {
			sem.Release(1)
		}
		return nil, err
	}
	if p.initFn != nil {
		if err := p.initFn(v); err != nil {
			// Construction succeeded but init failed: the object is
			// discarded rather than cached, since its state is unknown.
			p.mu.Lock()
			p.outCount--
			p.mu.Unlock()
			if sem != nil {
				sem.Release(1)
			}
			return nil, err
		}
	}
	return &PoolHandle[T]{pool: p, value: v, sem: sem}, nil
}

func (p *ObjectPool[T]) take() (*T, error) {
	p.mu.Lock()
	if n := len(p.cached); n > 0 {
		v := p.cached[n-1]
		p.cached[n-1] = nil
		p.cached = p.cached[:n-1]
		p.outCount++
		p.mu.Unlock()
		return v, nil
	}
	p.outCount++
	p.mu.Unlock()
	v, err := p.newFn()
	if err != nil {
		p.mu.Lock()
		p.outCount--
		p.mu.Unlock()
		return nil, err
	}
	return v, nil
}

func (p *ObjectPool[T]) release(v *T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outCount--
	if p.closed || (p.maxCached != Unbounded && len(p.cached) >= p.maxCached) {
		return
	}
	p.cached = append(p.cached, v)
}

// SetOutstandingLimit changes the outstanding-acquire gate. Passing 0
// prevents any further Acquire from succeeding; existing PoolHandles are
// unaffected (they release against whichever semaphore was live when they
// were acquired). Passing Unbounded removes the gate entirely.
func (p *ObjectPool[T]) SetOutstandingLimit(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n == Unbounded {
		p.sem = nil
		return
	}
	p.limit = int64(n)
	p.sem = semaphore.NewWeighted(p.limit)
}

// ClearCachedEntities evicts the idle cache without disturbing outstanding
// handles.
func (p *ObjectPool[T]) ClearCachedEntities() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

// Rundown blocks until every outstanding handle has been released, then
// prevents further reissue (equivalent to SetOutstandingLimit(0)).
func (p *ObjectPool[T]) Rundown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.cached = nil
	p.mu.Unlock()

	if p.sem != nil && p.limit > 0 {
		// Acquire the full weight back: succeeds only once every
		// outstanding unit has been released.
		if err := p.sem.Acquire(ctx, p.limit); err != nil {
			return err
		}
		p.sem.Release(p.limit)
		return nil
	}

	// Unbounded pool: poll outstanding count. This is the uncommon path
	// (most callers bound the pool precisely so Rundown can use the
	// semaphore above); a small backoff keeps it cheap.
	return pollUntilZero(ctx, func() int {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.outCount
	})
}

// Outstanding reports the current number of un-released handles.
func (p *ObjectPool[T]) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outCount
}
