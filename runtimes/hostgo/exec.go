package hostgo

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"

	"github.com/streamexec/streamexec/ir"
)

// evalOp produces the flat output of one tape op. Operand flats are never
// mutated, so parameters and constants can be referenced without copying.
func (le *loadedExecutable) evalOp(op tapeOp, argumentFlats, registers []any) (any, error) {
	switch op.op {
	case ir.OpParameter:
		return argumentFlats[op.paramIndex], nil
	case ir.OpConstant:
		return le.constantFlats[op.constIndex], nil
	case ir.OpNegate:
		return evalUnary(op.op, registers[op.args[0]])
	case ir.OpAdd, ir.OpSubtract, ir.OpMultiply:
		return evalBinary(op.op, registers[op.args[0]], registers[op.args[1]])
	}
	return nil, errors.Errorf("op %s has no evaluator", op.op)
}

type goNumber interface {
	constraints.Integer | constraints.Float
}

func evalBinary(op ir.OpType, lhs, rhs any) (any, error) {
	switch lhs := lhs.(type) {
	case []int32:
		return binarySlices(op, lhs, rhs.([]int32)), nil
	case []int64:
		return binarySlices(op, lhs, rhs.([]int64)), nil
	case []float32:
		return binarySlices(op, lhs, rhs.([]float32)), nil
	case []float64:
		return binarySlices(op, lhs, rhs.([]float64)), nil
	case []float16.Float16:
		return binaryFloat16(op, lhs, rhs.([]float16.Float16)), nil
	}
	return nil, errors.Errorf("op %s: no evaluator for flat type %T", op, lhs)
}

func evalUnary(op ir.OpType, operand any) (any, error) {
	switch operand := operand.(type) {
	case []int32:
		return negateSlice(operand), nil
	case []int64:
		return negateSlice(operand), nil
	case []float32:
		return negateSlice(operand), nil
	case []float64:
		return negateSlice(operand), nil
	case []float16.Float16:
		out := make([]float16.Float16, len(operand))
		for ii, v := range operand {
			out[ii] = float16.Fromfloat32(-v.Float32())
		}
		return out, nil
	}
	return nil, errors.Errorf("op %s: no evaluator for flat type %T", op, operand)
}

func binarySlices[T goNumber](op ir.OpType, lhs, rhs []T) []T {
	out := make([]T, len(lhs))
	switch op {
	case ir.OpAdd:
		for ii := range lhs {
			out[ii] = lhs[ii] + rhs[ii]
		}
	case ir.OpSubtract:
		for ii := range lhs {
			out[ii] = lhs[ii] - rhs[ii]
		}
	case ir.OpMultiply:
		for ii := range lhs {
			out[ii] = lhs[ii] * rhs[ii]
		}
	}
	return out
}

// binaryFloat16 rounds through float32, like scalar CPU fallbacks do.
func binaryFloat16(op ir.OpType, lhs, rhs []float16.Float16) []float16.Float16 {
	out := make([]float16.Float16, len(lhs))
	for ii := range lhs {
		a, b := lhs[ii].Float32(), rhs[ii].Float32()
		var v float32
		switch op {
		case ir.OpAdd:
			v = a + b
		case ir.OpSubtract:
			v = a - b
		case ir.OpMultiply:
			v = a * b
		}
		out[ii] = float16.Fromfloat32(v)
	}
	return out
}

func negateSlice[T goNumber](operand []T) []T {
	out := make([]T, len(operand))
	for ii, v := range operand {
		out[ii] = -v
	}
	return out
}
