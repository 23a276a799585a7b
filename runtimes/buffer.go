package runtimes

import (
	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

// Buffer is a handle to device-resident memory: an argument to Execute or an
// output it produced.
//
// Ownership of result buffers is shared between the runtime and the caller:
// a buffer stays valid after the executable that produced it is finalized,
// until the caller finalizes the buffer itself.
type Buffer interface {
	// Shape of the value held by the buffer.
	Shape() shapes.Shape

	// DeviceNum of the device holding the buffer.
	DeviceNum() DeviceNum

	// ToLiteral materializes the buffer into a host-readable literal. It
	// blocks until the device has finished producing the value. Calls are
	// idempotent and side-effect free: repeated calls on an unchanged buffer
	// return equal literals.
	ToLiteral() (*literals.Literal, error)

	// Finalize releases the device memory. Idempotent; materializing after
	// Finalize fails with status.FailedPrecondition.
	Finalize()
}
