package autopacket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilterDescriptorRejectsNonFunc(t *testing.T) {
	_, err := NewFilterDescriptor(42)
	assert.Error(t, err)
}

func TestNewFilterDescriptorRejectsMultipleReturns(t *testing.T) {
	_, err := NewFilterDescriptor(func(int) (int, error) { return 0, nil })
	assert.Error(t, err)
}

func TestNewFilterDescriptorRejectsNonErrorReturn(t *testing.T) {
	_, err := NewFilterDescriptor(func(int) int { return 0 })
	assert.Error(t, err)
}

func TestNewFilterDescriptorClassifiesParameters(t *testing.T) {
	d, err := NewFilterDescriptor(func(req int, opt Optional[string], out *bool, ready *AutoReady[float64], p *AutoPacket) error {
		return nil
	})
	require.NoError(t, err)

	inputs := d.Inputs()
	require.Len(t, inputs, 4)
	assert.Equal(t, InputRequired, inputs[0].Kind)
	assert.Equal(t, TypeKeyOf[int](), inputs[0].Type)
	assert.Equal(t, InputOptional, inputs[1].Kind)
	assert.Equal(t, TypeKeyOf[string](), inputs[1].Type)
	assert.Equal(t, InputOutRef, inputs[2].Kind)
	assert.Equal(t, TypeKeyOf[bool](), inputs[2].Type)
	assert.Equal(t, InputOutRefAutoReady, inputs[3].Kind)
	assert.Equal(t, TypeKeyOf[float64](), inputs[3].Type)
}

func TestNewFilterDescriptorNamedOverride(t *testing.T) {
	d, err := NewFilterDescriptor(func() error { return nil }, Named("custom"))
	require.NoError(t, err)
	assert.Equal(t, "custom", d.Name())
}

func TestReflectFilterInvokePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	d, err := NewFilterDescriptor(func(v int) error { return boom })
	require.NoError(t, err)

	p := &AutoPacket{decorations: map[TypeKey]*decorationDisposition{}}
	p.decorations[TypeKeyOf[int]()] = &decorationDisposition{typ: TypeKeyOf[int](), value: 1, satisfied: true}

	err = d.Invoke(p)
	assert.ErrorIs(t, err, boom)
}
