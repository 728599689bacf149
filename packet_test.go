package autopacket_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/autopacket"
)

func newRunningFactory(t *testing.T, descriptors ...autopacket.FilterDescriptor) (*autopacket.AutoPacketFactory, *autopacket.RefAnchor) {
	t.Helper()
	f, err := autopacket.NewAutoPacketFactory(descriptors)
	require.NoError(t, err)
	anchor := autopacket.NewRefAnchor()
	require.NoError(t, f.Start(anchor))
	t.Cleanup(func() { _ = f.Stop(false) })
	return f, anchor
}

type total int

func TestSimpleChain(t *testing.T) {
	var gotSum total
	sum, err := autopacket.NewFilterDescriptor(func(a int, b string, out *total) error {
		*out = total(a + len(b))
		return nil
	}, autopacket.Named("sum"))
	require.NoError(t, err)

	observe, err := autopacket.NewFilterDescriptor(func(t total) error {
		gotSum = t
		return nil
	}, autopacket.Named("observe"))
	require.NoError(t, err)

	f, _ := newRunningFactory(t, sum, observe)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.Decorate(p, 3))
	assert.Equal(t, total(0), gotSum, "sum must not fire before both of its inputs arrive")
	require.NoError(t, autopacket.Decorate(p, "abc"))

	assert.Equal(t, total(6), gotSum)
	v, ok := autopacket.Get[total](p)
	require.True(t, ok)
	assert.Equal(t, total(6), v)
}

func TestZeroInputFilterRunsAtIssuance(t *testing.T) {
	var gotGreeting string
	produce, err := autopacket.NewFilterDescriptor(func(out *string) error {
		*out = "hello"
		return nil
	}, autopacket.Named("produce"))
	require.NoError(t, err)

	consume, err := autopacket.NewFilterDescriptor(func(s string) error {
		gotGreeting = s
		return nil
	}, autopacket.Named("consume"))
	require.NoError(t, err)

	f, _ := newRunningFactory(t, produce, consume)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	assert.Equal(t, "hello", gotGreeting, "a filter with zero required inputs must run at issuance, not wait for Finalize")
}

func TestOptionalNotAwaitedOnceRequiredArrives(t *testing.T) {
	var sawOptional bool
	var optionalPresent bool
	d, err := autopacket.NewFilterDescriptor(func(required string, opt autopacket.Optional[int]) error {
		sawOptional = true
		optionalPresent = opt.Ok
		return nil
	})
	require.NoError(t, err)

	f, _ := newRunningFactory(t, d)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)

	require.NoError(t, autopacket.Decorate(p, "hello"))
	assert.True(t, sawOptional, "filter must run as soon as its required input arrives, without waiting on its optional input")

	p.Recycle()
	assert.True(t, sawOptional)
	assert.False(t, optionalPresent)
}

func TestImmediateDecorationWindow(t *testing.T) {
	var invoked bool
	d, err := autopacket.NewFilterDescriptor(func(v int) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)

	f, _ := newRunningFactory(t, d)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.DecorateImmediate(p, 42))
	assert.True(t, invoked)

	_, ok := autopacket.Get[int](p)
	assert.False(t, ok, "a pulsed value must not remain visible to Get")
}

func TestImmediateDecorationSkipsDeferredSubscribers(t *testing.T) {
	var deferredInvoked bool
	d, err := autopacket.NewFilterDescriptor(func(v int) error {
		deferredInvoked = true
		return nil
	}, autopacket.Deferred())
	require.NoError(t, err)

	f, _ := newRunningFactory(t, d)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.DecorateImmediate(p, 7))
	assert.False(t, deferredInvoked)
}

func TestUnsatisfiablePropagation(t *testing.T) {
	var ran bool
	d, err := autopacket.NewFilterDescriptor(func(v int) error {
		ran = true
		return nil
	})
	require.NoError(t, err)

	f, _ := newRunningFactory(t, d)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.Unsatisfiable[int](p))
	assert.False(t, ran)

	err = autopacket.Decorate(p, 5)
	assert.Error(t, err, "decorating a type already marked Unsatisfiable must fail")
}

func TestUnsatisfiableResolvesOptionalSubscribers(t *testing.T) {
	var optionalPresent bool
	d, err := autopacket.NewFilterDescriptor(func(opt autopacket.Optional[int]) error {
		optionalPresent = opt.Ok
		return nil
	})
	require.NoError(t, err)

	f, _ := newRunningFactory(t, d)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.Unsatisfiable[int](p))
	assert.False(t, optionalPresent)
}

func TestCheckoutReadyFalseMarksUnsatisfiable(t *testing.T) {
	f, _ := newRunningFactory(t)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	co, err := autopacket.Checkout[int](p)
	require.NoError(t, err)
	require.NoError(t, co.Ready(false))

	err = autopacket.Decorate(p, 1)
	assert.Error(t, err)
}

func TestCheckoutReadyTruePublishes(t *testing.T) {
	f, _ := newRunningFactory(t)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	co, err := autopacket.Checkout[string](p)
	require.NoError(t, err)
	co.Set("done")
	require.NoError(t, co.Ready(true))

	v, ok := autopacket.Get[string](p)
	require.True(t, ok)
	assert.Equal(t, "done", v)
}

func TestDoubleCheckoutFails(t *testing.T) {
	f, _ := newRunningFactory(t)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	_, err = autopacket.Checkout[int](p)
	require.NoError(t, err)
	_, err = autopacket.Checkout[int](p)
	assert.Error(t, err)
}

func TestOutstandingCheckoutBlocksUnsatisfiableNotDecoration(t *testing.T) {
	var ran bool
	d, err := autopacket.NewFilterDescriptor(func(v int) error {
		ran = true
		return nil
	})
	require.NoError(t, err)

	f, _ := newRunningFactory(t, d)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	co, err := autopacket.Checkout[int](p)
	require.NoError(t, err)

	err = autopacket.Unsatisfiable[int](p)
	assert.Error(t, err, "a type with an outstanding Checkout must already count as wasCheckedOut")

	co.Set(5)
	require.NoError(t, co.Ready(true))
	assert.True(t, ran, "the required subscriber must still run once the outstanding checkout resolves")
}

func TestSharedHandleIsDistinctFromPlainType(t *testing.T) {
	f, _ := newRunningFactory(t)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.Decorate(p, 10))
	_, ok := autopacket.GetShared[int](p)
	assert.False(t, ok, "decorating T must not satisfy the Shared[T] key")

	require.NoError(t, autopacket.DecorateShared(p, autopacket.NewShared(10)))
	shared, ok := autopacket.GetShared[int](p)
	require.True(t, ok)
	assert.Equal(t, 10, shared.Value)
}

func TestPoolRecyclingResetsState(t *testing.T) {
	calls := 0
	d, err := autopacket.NewFilterDescriptor(func(v int) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	f, _ := newRunningFactory(t, d)

	p1, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	require.NoError(t, autopacket.Decorate(p1, 1))
	assert.Equal(t, 1, calls)
	p1.Recycle()

	p2, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p2.Recycle()

	_, ok := autopacket.Get[int](p2)
	assert.False(t, ok, "a recycled packet must start with no decorations")
	require.NoError(t, autopacket.Decorate(p2, 2))
	assert.Equal(t, 2, calls)
}

func TestLifecycleGating(t *testing.T) {
	f, err := autopacket.NewAutoPacketFactory(nil)
	require.NoError(t, err)

	_, err = f.NewPacket(context.Background())
	require.Error(t, err, "NewPacket must fail before Start")

	anchor := autopacket.NewRefAnchor()
	require.NoError(t, f.Start(anchor))

	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	p.Recycle()

	require.NoError(t, f.Stop(true))
	_, err = f.NewPacket(context.Background())
	require.Error(t, err, "NewPacket must fail after Stop")
}

func TestContainerExpiredBeforeInitialize(t *testing.T) {
	f, err := autopacket.NewAutoPacketFactory(nil)
	require.NoError(t, err)
	anchor := autopacket.NewRefAnchor()
	require.NoError(t, f.Start(anchor))
	anchor.Expire()

	_, err = f.NewPacket(context.Background())
	assert.Error(t, err)
}

func TestAddRecipientWiresOntoLivePacket(t *testing.T) {
	f, _ := newRunningFactory(t)
	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.Decorate(p, 99))

	var got int
	d, err := autopacket.NewFilterDescriptor(func(v int) error {
		got = v
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, autopacket.AddRecipient(p, d))
	assert.Equal(t, 99, got, "a recipient wired after the value already arrived must run immediately")
}

func TestDuplicatePublisherRejectedAtConstruction(t *testing.T) {
	a, err := autopacket.NewFilterDescriptor(func(out *int) error {
		*out = 1
		return nil
	})
	require.NoError(t, err)
	b, err := autopacket.NewFilterDescriptor(func(out *int) error {
		*out = 2
		return nil
	})
	require.NoError(t, err)

	f, _ := newRunningFactory(t, a, b)
	_, err = f.NewPacket(context.Background())
	assert.Error(t, err, "two filters publishing the same type must be rejected")
}
