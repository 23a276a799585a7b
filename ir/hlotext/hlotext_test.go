package hlotext

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

const constantProgram = `HloModule Computation

ENTRY Computation() -> s32[] {
  ROOT result = s32[] constant(2)
}`

func TestParseConstantProgram(t *testing.T) {
	module, err := Parse(constantProgram)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)

	assert.Equal(t, "Computation", program.ModuleName)
	assert.Empty(t, program.InputShapes())
	require.Len(t, program.OutputShapes(), 1)
	assert.True(t, program.OutputShapes()[0].Equal(shapes.Make(dtypes.Int32)))

	root := program.Entry.Roots[0]
	assert.Equal(t, ir.OpConstant, root.Op)
	assert.True(t, root.Literal.Equal(literals.Scalar[int32](2)))
}

func TestParseWithParameters(t *testing.T) {
	source := `HloModule Arithmetic

ENTRY main (x: f32[3], y: f32[3]) -> f32[3] {
  %prod = f32[3] multiply(%x, %y)
  %offset = f32[3] constant({1, 2, 3})
  %sum = f32[3] add(%prod, %offset)
  ROOT %result = f32[3] negate(%sum)
}`
	module, err := Parse(source)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)

	require.Len(t, program.InputShapes(), 2)
	assert.True(t, program.InputShapes()[0].Equal(shapes.Make(dtypes.Float32, 3)))
	require.Len(t, program.Entry.Instructions, 6)
	assert.Equal(t, ir.OpNegate, program.Entry.Roots[0].Op)
}

func TestParseParameterAlias(t *testing.T) {
	source := `HloModule Aliased

ENTRY main (x: s64[2]) -> s64[2] {
  x2 = s64[2] parameter(0)
  ROOT doubled = s64[2] add(x2, x)
}`
	module, err := Parse(source)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)
	root := program.Entry.Roots[0]
	assert.Same(t, root.Operands[0], root.Operands[1])
}

func TestParseMultiDimensionalConstant(t *testing.T) {
	source := `HloModule Dense

ENTRY main () -> f64[2,2] {
  ROOT c = f64[2,2] constant({{1, 2}, {3, 4}})
}`
	module, err := Parse(source)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)
	root := program.Entry.Roots[0]
	assert.True(t, root.Literal.Equal(literals.FromFlatAndDimensions([]float64{1, 2, 3, 4}, 2, 2)))
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"missing header", "ENTRY main() -> s32[] {\n}"},
		{"missing root", "HloModule M\nENTRY main() -> s32[] {\n  c = s32[] constant(2)\n}"},
		{"missing brace", "HloModule M\nENTRY main() -> s32[] {\n  ROOT c = s32[] constant(2)"},
		{"unknown op", "HloModule M\nENTRY main() -> s32[] {\n  ROOT c = s32[] tanh(c)\n}"},
		{"unknown type", "HloModule M\nENTRY main() -> q8[] {\n  ROOT c = q8[] constant(2)\n}"},
		{"undefined operand", "HloModule M\nENTRY main() -> s32[] {\n  ROOT c = s32[] negate(x)\n}"},
		{"literal arity", "HloModule M\nENTRY main() -> s32[2] {\n  ROOT c = s32[2] constant({1, 2, 3})\n}"},
		{"literal out of range", "HloModule M\nENTRY main() -> s32[] {\n  ROOT c = s32[] constant(4294967298)\n}"},
		{"declared shape mismatch", "HloModule M\nENTRY main(x: s32[2]) -> s32[3] {\n  ROOT c = s32[3] negate(x)\n}"},
		{"operand shape mismatch", "HloModule M\nENTRY main(x: s32[2], y: s32[3]) -> s32[2] {\n  ROOT c = s32[2] add(x, y)\n}"},
		{"double root", "HloModule M\nENTRY main() -> s32[] {\n  ROOT a = s32[] constant(1)\n  ROOT b = s32[] constant(2)\n}"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.source)
			require.Error(t, err)
		})
	}
}
