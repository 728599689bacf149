// Package autopacket implements a dependency-satisfaction dispatch engine:
// filters declare the inputs they need and the outputs they produce, and
// each AutoPacket runs every filter exactly once, the instant its required
// inputs are all present, without any filter ever being invoked while the
// packet's internal lock is held.
//
// An AutoPacketFactory owns one statically wired filter graph (assembled
// from FilterDescriptors, typically built with NewFilterDescriptor) and
// issues AutoPacket instances against it, recycling them through an
// internal ObjectPool once Recycle is called. Most applications only need
// NewAutoPacketFactory, Start, NewPacket, Decorate/Get, and Recycle; the
// Checkout, DecorateImmediate, Unsatisfiable, and AddRecipient entry points
// cover progressively more specialized dispatch patterns.
package autopacket
