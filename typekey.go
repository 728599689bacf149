package autopacket

import (
	"fmt"
	"reflect"
)

// TypeKey identifies a decoration slot. Two packets never confuse decorations
// of different TypeKeys, and a single Go type T always produces the same
// TypeKey across calls, making it safe to use as a map key.
//
// T and the "handle of T" form (see Shared) are deliberately distinct keys:
// a filter may subscribe to either. Each key has its own slot: Decorate[T]
// fills only the T key and DecorateShared[T] only the handle-of-T key, and
// decorating one does not satisfy subscribers of the other.
type TypeKey struct {
	rt     reflect.Type
	shared bool
}

// TypeKeyOf returns the TypeKey addressing the plain-value form of T.
func TypeKeyOf[T any]() TypeKey {
	return TypeKey{rt: reflect.TypeFor[T]()}
}

// TypeKeyOfShared returns the TypeKey addressing the shared-handle form of T.
// It is distinct from TypeKeyOf[T](), even though both describe the same T.
func TypeKeyOfShared[T any]() TypeKey {
	return TypeKey{rt: reflect.TypeFor[T](), shared: true}
}

// String renders a diagnostic name, e.g. "int" or "*Shared[int]".
func (k TypeKey) String() string {
	if k.shared {
		return fmt.Sprintf("*Shared[%s]", k.rt)
	}
	return k.rt.String()
}

// Shared is this module's name for "shared-ownership handle of T". Go
// reference types (pointers, maps, slices, channels) already have sharing
// semantics without a wrapper; Shared exists purely so that TypeKeyOfShared
// produces a key that is textually and type-identically distinct from
// TypeKeyOf, mirroring the T-vs-shared_ptr<T> duality in the source system.
type Shared[T any] struct {
	Value T
}

// NewShared wraps v for attachment under the handle-of-T key.
func NewShared[T any](v T) *Shared[T] {
	return &Shared[T]{Value: v}
}

// typeKeyOfValue derives a TypeKey from a runtime value rather than a type
// parameter, for call sites (DecorateImmediate's variadic values) where a
// generic instantiation per argument isn't possible. A *Shared[T] value
// still keys as TypeKeyOf[*Shared[T]](), not TypeKeyOfShared[T](): pulsing a
// pre-wrapped handle is treated as pulsing that pointer type directly.
func typeKeyOfValue(v any) TypeKey {
	return TypeKey{rt: reflect.TypeOf(v)}
}

// typeKeyFromReflect builds a TypeKey directly from a reflect.Type, for the
// reflection-based filter descriptor, which only ever has a parameter's
// static type available, never a type parameter to instantiate TypeKeyOf
// with.
func typeKeyFromReflect(rt reflect.Type) TypeKey {
	return TypeKey{rt: rt}
}
