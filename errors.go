package autopacket

import "fmt"

// NotRunningError is returned by AutoPacketFactory.NewPacket when the factory
// has not been started, or has already been stopped.
type NotRunningError struct {
	State FactoryState
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("autopacket: factory is not running (state: %s)", e.State)
}

// ContainerExpiredError is returned by AutoPacketFactory.NewPacket when
// packet initialization cannot acquire the enclosing container's outstanding
// anchor.
type ContainerExpiredError struct{}

func (e *ContainerExpiredError) Error() string {
	return "autopacket: cannot initialize packet, enclosing context already expired"
}

// DuplicatePublisherError is returned when packet wiring (construction, or
// AddRecipient) finds two filters declaring an output for the same TypeKey.
// A second Checkout of the same TypeKey reports AlreadyCheckedOutError
// instead.
type DuplicatePublisherError struct {
	Type TypeKey
}

func (e *DuplicatePublisherError) Error() string {
	return fmt.Sprintf("autopacket: added two publishers of decoration %s", e.Type)
}

// AlreadyPresentError is returned by Checkout when the slot is already
// satisfied, or by Unsatisfiable when the slot was already checked out.
type AlreadyPresentError struct {
	Type TypeKey
}

func (e *AlreadyPresentError) Error() string {
	return fmt.Sprintf("autopacket: decoration %s already present on this packet", e.Type)
}

// AlreadyCheckedOutError is returned by Checkout, Decorate, DecorateShared,
// or DecorateImmediate when the slot is currently checked out, or was ever
// checked out (or marked Unsatisfiable) on this packet.
type AlreadyCheckedOutError struct {
	Type TypeKey
}

func (e *AlreadyCheckedOutError) Error() string {
	return fmt.Sprintf("autopacket: decoration %s is already checked out elsewhere", e.Type)
}

// DecorationMissingError is returned by MustGet[T] when the requested
// decoration is absent, and by a NewFilterDescriptor filter's Invoke when a
// required input is absent.
type DecorationMissingError struct {
	Type TypeKey
}

func (e *DecorationMissingError) Error() string {
	return fmt.Sprintf("autopacket: attempted to obtain decoration %s which was not decorated on this packet", e.Type)
}

// NullHandleError describes a checkout attempted with an empty/nil handle.
// Checkout[T] takes no handle argument, so no function in this package
// returns it.
type NullHandleError struct {
	Type TypeKey
}

func (e *NullHandleError) Error() string {
	return fmt.Sprintf("autopacket: cannot check out %s with a nil handle", e.Type)
}
