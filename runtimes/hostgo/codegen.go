package hostgo

import (
	"slices"

	"k8s.io/klog/v2"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/runtimes"
	"github.com/streamexec/streamexec/status"
)

// tapeOp is one step of the compiled register tape. Registers are dense
// indices assigned in instruction order, so operands always refer to
// registers written earlier.
type tapeOp struct {
	op   ir.OpType
	out  int
	args []int

	// paramIndex for OpParameter, constIndex into the constant pool for
	// OpConstant.
	paramIndex int
	constIndex int
}

// CodegenProgram implements runtimes.Codegen: it lowers a validated program
// into a hostgo register tape. The returned artifact is bound to the
// client's topology at this instant (recorded by fingerprint) and must be
// loaded through this runtime.
func (c *Client) CodegenProgram(program *ir.Program, options runtimes.CompileOptions) (runtimes.Executable, error) {
	if c.closed.Load() {
		return nil, status.Errorf(status.FailedPrecondition, "hostgo: client %s has been finalized", c.id)
	}
	live, err := c.TopologyDescription()
	if err != nil {
		return nil, err
	}
	for _, id := range options.TargetDeviceIDs {
		if !slices.Contains(live.DeviceIDs, id) {
			return nil, status.Errorf(status.InvalidArgument,
				"hostgo: compile option targets device id %d, not part of %s", id, live)
		}
	}
	if options.DumpIR {
		klog.V(2).Infof("hostgo: compiling program:\n%s", program)
	}

	entry := program.Entry
	exec := &executable{
		name:                entry.Name,
		fingerprint:         program.Fingerprint(),
		topologyFingerprint: live.Fingerprint(),
		inputShapes:         program.InputShapes(),
		outputShapes:        program.OutputShapes(),
		numRegisters:        len(entry.Instructions),
	}
	registers := make(map[*ir.Instruction]int, len(entry.Instructions))
	for ii, inst := range entry.Instructions {
		if !capabilities.Ops[inst.Op] {
			return nil, status.Errorf(status.Unimplemented,
				"hostgo: op %s (instruction %q) is not supported", inst.Op, inst.Name)
		}
		if !capabilities.DTypes[inst.Shape.DType] {
			return nil, status.Errorf(status.Unimplemented,
				"hostgo: dtype %s (instruction %q) is not supported", inst.Shape.DType, inst.Name)
		}
		op := tapeOp{op: inst.Op, out: ii, args: make([]int, 0, len(inst.Operands))}
		for _, operand := range inst.Operands {
			op.args = append(op.args, registers[operand])
		}
		switch inst.Op {
		case ir.OpParameter:
			op.paramIndex = inst.ParamIndex
		case ir.OpConstant:
			op.constIndex = len(exec.constants)
			exec.constants = append(exec.constants, inst.Literal)
		}
		registers[inst] = ii
		exec.tape = append(exec.tape, op)
	}
	exec.rootRegisters = make([]int, len(entry.Roots))
	for ii, root := range entry.Roots {
		exec.rootRegisters[ii] = registers[root]
	}
	klog.V(1).Infof("hostgo: compiled %q: %d instruction(s), %d output(s)",
		entry.Name, len(exec.tape), len(exec.rootRegisters))
	return exec, nil
}
