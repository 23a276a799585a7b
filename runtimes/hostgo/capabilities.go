package hostgo

import (
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/runtimes"
)

// capabilities of the hostgo runtime. Code generation refuses programs
// outside of it with status.Unimplemented.
var capabilities = runtimes.Capabilities{
	Ops: map[ir.OpType]bool{
		ir.OpParameter: true,
		ir.OpConstant:  true,
		ir.OpAdd:       true,
		ir.OpSubtract:  true,
		ir.OpMultiply:  true,
		ir.OpNegate:    true,
	},
	DTypes: map[dtypes.DType]bool{
		dtypes.Int32:   true,
		dtypes.Int64:   true,
		dtypes.Float16: true,
		dtypes.Float32: true,
		dtypes.Float64: true,
	},
}
