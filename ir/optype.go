package ir

// OpType enumerates the operations the internal compilation IR can express.
//
// It is deliberately a small elementwise subset: the pipeline under design is
// the compile/load/execute contract, not an optimizing code generator, and
// runtimes advertise the ops they support through their Capabilities.
type OpType int

const (
	OpInvalid OpType = iota
	OpParameter
	OpConstant
	OpAdd
	OpSubtract
	OpMultiply
	OpNegate
)

// String implements fmt.Stringer.
func (op OpType) String() string {
	switch op {
	case OpParameter:
		return "parameter"
	case OpConstant:
		return "constant"
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpNegate:
		return "negate"
	}
	return "invalid"
}

// NumOperands returns the operand count the op requires; leaf ops
// (parameter, constant) take zero, and OpInvalid reports -1.
func (op OpType) NumOperands() int {
	switch op {
	case OpAdd, OpSubtract, OpMultiply:
		return 2
	case OpNegate:
		return 1
	case OpParameter, OpConstant:
		return 0
	}
	return -1
}
