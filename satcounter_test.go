package autopacket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDescriptor struct {
	inputs []InputEntry
}

func (f *fakeDescriptor) Inputs() []InputEntry        { return f.inputs }
func (f *fakeDescriptor) Invoke(p *AutoPacket) error  { return nil }
func (f *fakeDescriptor) IsDeferred() bool            { return false }
func (f *fakeDescriptor) Name() string                { return "fake" }

func TestSatCounterReadyOnlyOnce(t *testing.T) {
	d := &fakeDescriptor{inputs: []InputEntry{
		{Type: TypeKeyOf[int](), Kind: InputRequired},
	}}
	c := newSatCounter(d)
	c.reset()

	assert.True(t, c.decrement(true))
	assert.False(t, c.decrement(true), "a second decrement past zero must not re-trigger readiness")
}

func TestSatCounterResolveUnblocksOptionalOnly(t *testing.T) {
	d := &fakeDescriptor{inputs: []InputEntry{
		{Type: TypeKeyOf[int](), Kind: InputOptional},
	}}
	c := newSatCounter(d)
	c.reset()

	assert.True(t, c.resolve())
	assert.False(t, c.resolve())
}

func TestSatCounterBlockRequiredPreventsReadiness(t *testing.T) {
	d := &fakeDescriptor{inputs: []InputEntry{
		{Type: TypeKeyOf[int](), Kind: InputRequired},
		{Type: TypeKeyOf[string](), Kind: InputOptional},
	}}
	c := newSatCounter(d)
	c.reset()

	c.blockRequired()
	assert.True(t, c.resolve() == false, "a counter blocked by a missing required input must never report readiness")
}

func TestSatCounterRevertPulseRestoresRemainingAndCalled(t *testing.T) {
	d := &fakeDescriptor{inputs: []InputEntry{
		{Type: TypeKeyOf[int](), Kind: InputRequired},
	}}
	c := newSatCounter(d)
	c.reset()

	transitioned := c.decrement(true)
	assert.True(t, transitioned)
	assert.True(t, c.called)

	c.revertPulse(true, transitioned)
	assert.False(t, c.called)
	assert.Equal(t, 1, c.remaining)
}
