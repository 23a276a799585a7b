package mhlo

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

const constantProgram = `
  module {
    func.func @main() -> tensor<i32> {
      %0 = mhlo.constant dense<2> : tensor<i32>
      return %0 : tensor<i32>
    }
  }`

func TestParseConstantProgram(t *testing.T) {
	module, err := Parse(constantProgram)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)

	assert.Empty(t, program.InputShapes())
	require.Len(t, program.OutputShapes(), 1)
	assert.True(t, program.OutputShapes()[0].Equal(shapes.Make(dtypes.Int32)))

	root := program.Entry.Roots[0]
	assert.Equal(t, ir.OpConstant, root.Op)
	assert.True(t, root.Literal.Equal(literals.Scalar[int32](2)))
}

func TestParseArithmetic(t *testing.T) {
	source := `module @arith {
  func.func @main(%arg0: tensor<3xf32>, %arg1: tensor<3xf32>) -> tensor<3xf32> {
    %0 = mhlo.multiply %arg0, %arg1 : tensor<3xf32>
    %1 = mhlo.constant dense<[1.0, 2.0, 3.0]> : tensor<3xf32>
    %2 = mhlo.add %0, %1 : tensor<3xf32>
    %3 = mhlo.negate %2 : tensor<3xf32>
    return %3 : tensor<3xf32>
  }
}`
	module, err := Parse(source)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)

	assert.Equal(t, "arith", program.ModuleName)
	require.Len(t, program.InputShapes(), 2)
	assert.True(t, program.InputShapes()[0].Equal(shapes.Make(dtypes.Float32, 3)))
	assert.Equal(t, ir.OpNegate, program.Entry.Roots[0].Op)
}

func TestParseMultipleResults(t *testing.T) {
	source := `module {
  func.func @main(%arg0: tensor<2xi64>) -> (tensor<2xi64>, tensor<2xi64>) {
    %0 = mhlo.constant dense<[5, 7]> : tensor<2xi64>
    %1 = mhlo.subtract %arg0, %0 : tensor<2xi64>
    return %0, %1 : tensor<2xi64>, tensor<2xi64>
  }
}`
	module, err := Parse(source)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)
	require.Len(t, program.OutputShapes(), 2)
	assert.Equal(t, ir.OpConstant, program.Entry.Roots[0].Op)
	assert.Equal(t, ir.OpSubtract, program.Entry.Roots[1].Op)
}

func TestParseSplatConstant(t *testing.T) {
	source := `module {
  func.func @main() -> tensor<2x2xf64> {
    %0 = mhlo.constant dense<1.5> : tensor<2x2xf64>
    return %0 : tensor<2x2xf64>
  }
}`
	module, err := Parse(source)
	require.NoError(t, err)
	program, err := module.LowerToProgram()
	require.NoError(t, err)
	root := program.Entry.Roots[0]
	assert.True(t, root.Literal.Equal(literals.FromFlatAndDimensions([]float64{1.5, 1.5, 1.5, 1.5}, 2, 2)))
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"missing module", "func.func @main() -> tensor<i32> {\n}"},
		{"missing func", "module {\n}"},
		{"missing return", "module {\n  func.func @main() -> tensor<i32> {\n  }\n}"},
		{"missing module brace", "module {\n  func.func @main() -> tensor<i32> {\n    %0 = mhlo.constant dense<2> : tensor<i32>\n    return %0 : tensor<i32>\n  }"},
		{"unknown op", "module {\n  func.func @main() -> tensor<i32> {\n    %0 = mhlo.tanh %0 : tensor<i32>\n    return %0 : tensor<i32>\n  }\n}"},
		{"unknown type", "module {\n  func.func @main() -> tensor<i7> {\n    %0 = mhlo.constant dense<2> : tensor<i7>\n    return %0 : tensor<i7>\n  }\n}"},
		{"undefined operand", "module {\n  func.func @main() -> tensor<i32> {\n    %0 = mhlo.negate %x : tensor<i32>\n    return %0 : tensor<i32>\n  }\n}"},
		{"literal arity", "module {\n  func.func @main() -> tensor<2xi32> {\n    %0 = mhlo.constant dense<[1, 2, 3]> : tensor<2xi32>\n    return %0 : tensor<2xi32>\n  }\n}"},
		{"literal out of range", "module {\n  func.func @main() -> tensor<i32> {\n    %0 = mhlo.constant dense<4294967298> : tensor<i32>\n    return %0 : tensor<i32>\n  }\n}"},
		{"declared type mismatch", "module {\n  func.func @main(%arg0: tensor<2xf32>) -> tensor<3xf32> {\n    %0 = mhlo.negate %arg0 : tensor<3xf32>\n    return %0 : tensor<3xf32>\n  }\n}"},
		{"operand shape mismatch", "module {\n  func.func @main(%arg0: tensor<2xf32>, %arg1: tensor<3xf32>) -> tensor<2xf32> {\n    %0 = mhlo.add %arg0, %arg1 : tensor<2xf32>\n    return %0 : tensor<2xf32>\n  }\n}"},
		{"return arity", "module {\n  func.func @main() -> tensor<i32> {\n    %0 = mhlo.constant dense<2> : tensor<i32>\n    return %0, %0 : tensor<i32>\n  }\n}"},
		{"op after return", "module {\n  func.func @main() -> tensor<i32> {\n    %0 = mhlo.constant dense<2> : tensor<i32>\n    return %0 : tensor<i32>\n    %1 = mhlo.negate %0 : tensor<i32>\n  }\n}"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.source)
			require.Error(t, err)
		})
	}
}
