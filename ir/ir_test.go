package ir

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

func constantTwoProgram(moduleName, entryName string) *Program {
	c := NewComputation(entryName)
	c.Return(c.Constant(literals.Scalar[int32](2)))
	return NewProgram(moduleName, c)
}

func TestBuilderAndValidate(t *testing.T) {
	c := NewComputation("main")
	x := c.Parameter("x", shapes.Make(dtypes.Float32, 3))
	y := c.Parameter("y", shapes.Make(dtypes.Float32, 3))
	sum := c.Add(x, y)
	c.Return(c.Negate(sum))
	p := NewProgram("test", c)
	require.NoError(t, p.Validate())

	assert.Len(t, p.InputShapes(), 2)
	require.Len(t, p.OutputShapes(), 1)
	assert.True(t, p.OutputShapes()[0].Equal(shapes.Make(dtypes.Float32, 3)))

	lowered, err := p.LowerToProgram()
	require.NoError(t, err)
	assert.Same(t, p, lowered)
}

func TestBuilderPanicsOnShapeMismatch(t *testing.T) {
	c := NewComputation("main")
	x := c.Parameter("x", shapes.Make(dtypes.Float32, 3))
	y := c.Parameter("y", shapes.Make(dtypes.Float32, 4))
	require.Panics(t, func() { c.Add(x, y) })
	require.Panics(t, func() { c.Constant(nil) })
	require.Panics(t, func() { c.Return() })
}

func TestValidateRejectsMalformed(t *testing.T) {
	var p *Program
	require.Error(t, p.Validate())
	require.Error(t, NewProgram("m", NewComputation("empty")).Validate())

	// An instruction using an operand from another computation.
	other := NewComputation("other")
	foreign := other.Constant(literals.Scalar[int32](1))
	c := NewComputation("main")
	c.Return(c.addInstruction(&Instruction{
		Op:       OpNegate,
		Shape:    foreign.Shape,
		Operands: []*Instruction{foreign},
	}))
	require.Error(t, NewProgram("m", c).Validate())
}

func TestFingerprintIsStructural(t *testing.T) {
	// Identity depends on the encoded instructions, not on module or value
	// names used by the surface syntax.
	a := constantTwoProgram("ModuleA", "EntryA")
	b := constantTwoProgram("ModuleB", "EntryB")
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := NewComputation("EntryA")
	c.Return(c.Constant(literals.Scalar[int32](3)))
	assert.NotEqual(t, a.Fingerprint(), NewProgram("ModuleA", c).Fingerprint())
}

func TestOpType(t *testing.T) {
	assert.Equal(t, "add", OpAdd.String())
	assert.Equal(t, 2, OpMultiply.NumOperands())
	assert.Equal(t, 1, OpNegate.NumOperands())
	assert.Equal(t, 0, OpConstant.NumOperands())
	assert.Equal(t, -1, OpInvalid.NumOperands())
}
