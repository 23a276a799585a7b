package runtimes

import (
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/streamexec/streamexec/ir"
)

// Capabilities describes what a runtime supports. Code generation consults
// it and fails with status.Unimplemented for programs outside of it.
type Capabilities struct {
	// Ops supported by the runtime's evaluator.
	Ops map[ir.OpType]bool

	// DTypes supported for buffers and program values.
	DTypes map[dtypes.DType]bool

	// MaxExecutionInstances bounds how many execution instances a single
	// Execute call may request; 0 means limited only by the device count.
	MaxExecutionInstances int
}

// Clone returns a deep copy, so runtimes can hand out their capabilities
// without sharing the maps.
func (c Capabilities) Clone() Capabilities {
	clone := c
	clone.Ops = make(map[ir.OpType]bool, len(c.Ops))
	for op, v := range c.Ops {
		clone.Ops[op] = v
	}
	clone.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	for dtype, v := range c.DTypes {
		clone.DTypes[dtype] = v
	}
	return clone
}
