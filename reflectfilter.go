package autopacket

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Optional wraps a filter parameter that need not ever be decorated. Ok is
// false (and Value is T's zero value) if the packet is finalized without the
// corresponding type ever being decorated or pulsed.
type Optional[T any] struct {
	Value T
	Ok    bool
}

// AutoReady wraps a filter's declared output parameter: the filter sets
// Value and, once it returns without error, the engine decorates T with it
// automatically — identical in effect to declaring a plain *T output
// parameter, differing only in how it reads at the call site. Filters
// needing finer control (publishing before returning, or abandoning the
// output entirely) should take *AutoPacket and use the package-level
// Checkout[T] instead.
type AutoReady[T any] struct {
	Value T
}

// FilterOption configures a FilterDescriptor at construction time.
type FilterOption interface {
	applyFilterOption(*filterConfig)
}

type filterConfig struct {
	name     string
	deferred bool
}

type filterOptionFunc func(*filterConfig)

func (f filterOptionFunc) applyFilterOption(c *filterConfig) { f(c) }

// Deferred excludes the filter from DecorateImmediate's pulse windows: it
// only ever runs against persistently decorated inputs.
func Deferred() FilterOption {
	return filterOptionFunc(func(c *filterConfig) { c.deferred = true })
}

// Named overrides the filter's diagnostic name, which otherwise defaults to
// the underlying function's resolved name (e.g. "mypkg.enrichOrder").
func Named(name string) FilterOption {
	return filterOptionFunc(func(c *filterConfig) { c.name = name })
}

type paramKind int

const (
	paramPacket paramKind = iota
	paramRequired
	paramOptional
	paramOutRef          // plain *T output
	paramOutRefAutoReady // *AutoReady[T] output
)

type paramBinding struct {
	kind        paramKind
	typeKey     TypeKey
	reflectType reflect.Type // element type for outputs, Optional[T] struct type for optionals
}

var (
	autoPacketPtrType = reflect.TypeOf((*AutoPacket)(nil))
	errorInterface    = reflect.TypeOf((*error)(nil)).Elem()
	wrapperPkgPath    = reflect.TypeOf(AutoReady[int]{}).PkgPath()
)

// reflectFilterDescriptor is a FilterDescriptor built by inspecting an
// ordinary Go function's signature: every non-*AutoPacket parameter is a
// required input (a plain type), an optional input (Optional[T]), or an
// output (*T or *AutoReady[T]), per SPEC_FULL.md §4.5.
type reflectFilterDescriptor struct {
	fn       reflect.Value
	params   []paramBinding
	inputs   []InputEntry
	name     string
	deferred bool
}

// NewFilterDescriptor builds a FilterDescriptor from fn, a function whose
// parameters describe its inputs and outputs (see Optional and AutoReady)
// and whose only permitted return value, if any, is error.
func NewFilterDescriptor(fn any, opts ...FilterOption) (FilterDescriptor, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("autopacket: NewFilterDescriptor requires a function, got %T", fn)
	}
	rt := rv.Type()
	if rt.IsVariadic() {
		return nil, fmt.Errorf("autopacket: filter functions must not be variadic")
	}
	if n := rt.NumOut(); n > 1 || (n == 1 && rt.Out(0) != errorInterface) {
		return nil, fmt.Errorf("autopacket: filter functions may only return (error) or nothing")
	}

	cfg := filterConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyFilterOption(&cfg)
		}
	}
	if cfg.name == "" {
		cfg.name = funcName(rv)
	}

	d := &reflectFilterDescriptor{fn: rv, name: cfg.name, deferred: cfg.deferred}

	for i := 0; i < rt.NumIn(); i++ {
		pt := rt.In(i)
		switch {
		case pt == autoPacketPtrType:
			d.params = append(d.params, paramBinding{kind: paramPacket})

		case pt.Kind() == reflect.Pointer && isWrapper(pt.Elem(), "AutoReady["):
			elem := pt.Elem()
			typ := typeKeyFromReflect(elem.Field(0).Type)
			d.params = append(d.params, paramBinding{kind: paramOutRefAutoReady, typeKey: typ, reflectType: elem})
			d.inputs = append(d.inputs, InputEntry{Type: typ, Kind: InputOutRefAutoReady})

		case pt.Kind() == reflect.Pointer:
			elem := pt.Elem()
			typ := typeKeyFromReflect(elem)
			d.params = append(d.params, paramBinding{kind: paramOutRef, typeKey: typ, reflectType: elem})
			d.inputs = append(d.inputs, InputEntry{Type: typ, Kind: InputOutRef})

		case isWrapper(pt, "Optional["):
			typ := typeKeyFromReflect(pt.Field(0).Type)
			d.params = append(d.params, paramBinding{kind: paramOptional, typeKey: typ, reflectType: pt})
			d.inputs = append(d.inputs, InputEntry{Type: typ, Kind: InputOptional})

		default:
			typ := typeKeyFromReflect(pt)
			d.params = append(d.params, paramBinding{kind: paramRequired, typeKey: typ, reflectType: pt})
			d.inputs = append(d.inputs, InputEntry{Type: typ, Kind: InputRequired})
		}
	}

	return d, nil
}

func isWrapper(t reflect.Type, prefix string) bool {
	return t.Kind() == reflect.Struct && t.PkgPath() == wrapperPkgPath && strings.HasPrefix(t.Name(), prefix)
}

func funcName(rv reflect.Value) string {
	fn := runtime.FuncForPC(rv.Pointer())
	if fn == nil {
		return "anonymous"
	}
	return fn.Name()
}

func (d *reflectFilterDescriptor) Inputs() []InputEntry { return d.inputs }
func (d *reflectFilterDescriptor) IsDeferred() bool     { return d.deferred }
func (d *reflectFilterDescriptor) Name() string         { return d.name }

func (d *reflectFilterDescriptor) Invoke(p *AutoPacket) error {
	args := make([]reflect.Value, len(d.params))
	var outRefs []int       // indices holding *T directly
	var autoReadyOuts []int // indices holding *AutoReady[T]

	for i, pb := range d.params {
		switch pb.kind {
		case paramPacket:
			args[i] = reflect.ValueOf(p)

		case paramRequired:
			v, ok := p.rawGet(pb.typeKey)
			if !ok {
				return &DecorationMissingError{Type: pb.typeKey}
			}
			args[i] = reflect.ValueOf(v)

		case paramOptional:
			inst := reflect.New(pb.reflectType).Elem()
			if v, ok := p.rawGet(pb.typeKey); ok {
				inst.Field(0).Set(reflect.ValueOf(v))
				inst.Field(1).SetBool(true)
			}
			args[i] = inst

		case paramOutRef:
			args[i] = reflect.New(pb.reflectType)
			outRefs = append(outRefs, i)

		case paramOutRefAutoReady:
			args[i] = reflect.New(pb.reflectType)
			autoReadyOuts = append(autoReadyOuts, i)
		}
	}

	results := d.fn.Call(args)

	var err error
	if len(results) == 1 {
		if e, ok := results[0].Interface().(error); ok {
			err = e
		}
	}
	if err != nil {
		return err
	}

	for _, i := range outRefs {
		value := args[i].Elem().Interface()
		if cerr := p.completeCheckout(d.params[i].typeKey, value); cerr != nil && err == nil {
			err = cerr
		}
	}
	for _, i := range autoReadyOuts {
		value := args[i].Elem().Field(0).Interface()
		if cerr := p.completeCheckout(d.params[i].typeKey, value); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
