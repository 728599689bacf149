package autopacket_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowgraph/autopacket"
)

// TestFilterMayDecorateDuringInvoke exercises the central concurrency
// invariant: a filter is never invoked while the packet's internal lock is
// held, so it is always safe for a filter to call back into Decorate/Get/
// Checkout on the same packet without deadlocking.
func TestFilterMayDecorateDuringInvoke(t *testing.T) {
	relay, err := autopacket.NewFilterDescriptor(func(in int, out *string) error {
		*out = "relayed"
		return nil
	})
	require.NoError(t, err)

	var observedViaGet bool
	observer, err := autopacket.NewFilterDescriptor(func(s string, p *autopacket.AutoPacket) error {
		v, ok := autopacket.Get[int](p)
		observedViaGet = ok && v == 5
		return nil
	})
	require.NoError(t, err)

	f, err := autopacket.NewAutoPacketFactory([]autopacket.FilterDescriptor{relay, observer})
	require.NoError(t, err)
	require.NoError(t, f.Start(autopacket.NewRefAnchor()))
	t.Cleanup(func() { _ = f.Stop(false) })

	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.Decorate(p, 5))
	require.True(t, observedViaGet, "a filter invoked during satisfaction propagation must be able to call Get on the same packet without deadlocking")
}

// TestCheckoutFromWithinFilter exercises a filter that opens and resolves a
// Checkout on the same packet it is running against, which only works if
// Invoke runs outside the lock completeCheckout needs to acquire.
func TestCheckoutFromWithinFilter(t *testing.T) {
	producer, err := autopacket.NewFilterDescriptor(func(in int, p *autopacket.AutoPacket) error {
		co, err := autopacket.Checkout[string](p)
		if err != nil {
			return err
		}
		co.Set("from-checkout")
		return co.Ready(true)
	})
	require.NoError(t, err)

	f, err := autopacket.NewAutoPacketFactory([]autopacket.FilterDescriptor{producer})
	require.NoError(t, err)
	require.NoError(t, f.Start(autopacket.NewRefAnchor()))
	t.Cleanup(func() { _ = f.Stop(false) })

	p, err := f.NewPacket(context.Background())
	require.NoError(t, err)
	defer p.Recycle()

	require.NoError(t, autopacket.Decorate(p, 1))

	v, ok := autopacket.Get[string](p)
	require.True(t, ok)
	require.Equal(t, "from-checkout", v)
}
