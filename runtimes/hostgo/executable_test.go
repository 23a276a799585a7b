package hostgo

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/runtimes"
	"github.com/streamexec/streamexec/status"
	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

// addProgram returns x + {10, 20, 30} over (Float32)[3].
func addProgram(t *testing.T) *ir.Program {
	c := ir.NewComputation("add_offset")
	x := c.Parameter("x", shapes.Make(dtypes.Float32, 3))
	offset := c.Constant(literals.FromFlatAndDimensions([]float32{10, 20, 30}, 3))
	c.Return(c.Add(x, offset))
	p := ir.NewProgram("test", c)
	require.NoError(t, p.Validate())
	return p
}

func compileAndLoad(t *testing.T, client *Client, program *ir.Program) runtimes.LoadedExecutable {
	exec, err := client.CodegenProgram(program, runtimes.CompileOptions{})
	require.NoError(t, err)
	loaded, err := client.Load(exec, runtimes.LoadOptions{})
	require.NoError(t, err)
	return loaded
}

func TestExecute(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	defer client.Finalize()
	loaded := compileAndLoad(t, client, addProgram(t))
	defer loaded.Finalize()

	input, err := client.BufferFromFlatData(0, []float32{1, 2, 3}, shapes.Make(dtypes.Float32, 3))
	require.NoError(t, err)
	results, err := loaded.Execute([][]runtimes.Buffer{{input}}, runtimes.ExecuteOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0], 1)

	literal, err := results[0][0].ToLiteral()
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33}, literal.Flat())

	// Executing is repeatable and deterministic.
	again, err := loaded.Execute([][]runtimes.Buffer{{input}}, runtimes.ExecuteOptions{})
	require.NoError(t, err)
	againLiteral, err := again[0][0].ToLiteral()
	require.NoError(t, err)
	assert.True(t, literal.Equal(againLiteral))
}

func TestExecuteArityMismatch(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	defer client.Finalize()
	loaded := compileAndLoad(t, client, addProgram(t))
	defer loaded.Finalize()

	// No arguments for a 1-parameter program: rejected, never padded.
	_, err = loaded.Execute([][]runtimes.Buffer{{}}, runtimes.ExecuteOptions{})
	require.True(t, status.IsInvalidArgument(err), "got %v", err)

	// Two arguments: rejected, never truncated.
	input, err := client.BufferFromFlatData(0, []float32{1, 2, 3}, shapes.Make(dtypes.Float32, 3))
	require.NoError(t, err)
	_, err = loaded.Execute([][]runtimes.Buffer{{input, input}}, runtimes.ExecuteOptions{})
	require.True(t, status.IsInvalidArgument(err), "got %v", err)

	// Wrong shape.
	badInput, err := client.BufferFromFlatData(0, []float32{1, 2}, shapes.Make(dtypes.Float32, 2))
	require.NoError(t, err)
	_, err = loaded.Execute([][]runtimes.Buffer{{badInput}}, runtimes.ExecuteOptions{})
	require.True(t, status.IsInvalidArgument(err), "got %v", err)

	// No instances at all.
	_, err = loaded.Execute(nil, runtimes.ExecuteOptions{})
	require.True(t, status.IsInvalidArgument(err), "got %v", err)
}

func TestExecuteMultipleInstances(t *testing.T) {
	client, err := New("devices=2")
	require.NoError(t, err)
	defer client.Finalize()
	loaded := compileAndLoad(t, client, addProgram(t))
	defer loaded.Finalize()

	shape := shapes.Make(dtypes.Float32, 3)
	input0, err := client.BufferFromFlatData(0, []float32{1, 1, 1}, shape)
	require.NoError(t, err)
	input1, err := client.BufferFromFlatData(1, []float32{2, 2, 2}, shape)
	require.NoError(t, err)

	results, err := loaded.Execute([][]runtimes.Buffer{{input0}, {input1}}, runtimes.ExecuteOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Instances land round-robin on the two devices.
	assert.Equal(t, runtimes.DeviceNum(0), results[0][0].DeviceNum())
	assert.Equal(t, runtimes.DeviceNum(1), results[1][0].DeviceNum())

	l0, err := results[0][0].ToLiteral()
	require.NoError(t, err)
	l1, err := results[1][0].ToLiteral()
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 21, 31}, l0.Flat())
	assert.Equal(t, []float32{12, 22, 32}, l1.Flat())
}

func TestLoadConsumesExecutable(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	defer client.Finalize()

	exec, err := client.CodegenProgram(addProgram(t), runtimes.CompileOptions{})
	require.NoError(t, err)
	loaded, err := client.Load(exec, runtimes.LoadOptions{})
	require.NoError(t, err)
	defer loaded.Finalize()

	_, err = client.Load(exec, runtimes.LoadOptions{})
	require.True(t, status.IsFailedPrecondition(err), "got %v", err)
}

func TestFinalizeAfterLoadKeepsLoadedRunnable(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	defer client.Finalize()

	exec, err := client.CodegenProgram(addProgram(t), runtimes.CompileOptions{})
	require.NoError(t, err)
	loaded, err := client.Load(exec, runtimes.LoadOptions{})
	require.NoError(t, err)
	defer loaded.Finalize()

	// Load consumed the artifact, so finalizing it releases nothing owned by
	// the loaded executable.
	exec.Finalize()
	exec.Finalize()

	input, err := client.BufferFromFlatData(0, []float32{1, 2, 3}, shapes.Make(dtypes.Float32, 3))
	require.NoError(t, err)
	results, err := loaded.Execute([][]runtimes.Buffer{{input}}, runtimes.ExecuteOptions{})
	require.NoError(t, err)
	literal, err := results[0][0].ToLiteral()
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33}, literal.Flat())
}

func TestLoadRejectsForeignExecutable(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	defer client.Finalize()

	_, err = client.Load(nil, runtimes.LoadOptions{})
	require.True(t, status.IsFailedPrecondition(err), "got %v", err)
}

func TestResultsOutliveExecutableAndClient(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	loaded := compileAndLoad(t, client, addProgram(t))

	input, err := client.BufferFromFlatData(0, []float32{1, 2, 3}, shapes.Make(dtypes.Float32, 3))
	require.NoError(t, err)
	results, err := loaded.Execute([][]runtimes.Buffer{{input}}, runtimes.ExecuteOptions{})
	require.NoError(t, err)

	// Tear down in the worst order: executable first, then the client.
	loaded.Finalize()
	loaded.Finalize() // idempotent
	client.Finalize()

	literal, err := results[0][0].ToLiteral()
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33}, literal.Flat())

	// But no new executions are possible.
	_, err = loaded.Execute([][]runtimes.Buffer{{input}}, runtimes.ExecuteOptions{})
	require.True(t, status.IsFailedPrecondition(err), "got %v", err)
}

func TestExecuteFloat16(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	defer client.Finalize()

	c := ir.NewComputation("f16")
	x := c.Parameter("x", shapes.Make(dtypes.Float16, 2))
	c.Return(c.Negate(c.Multiply(x, x)))
	program := ir.NewProgram("test", c)
	require.NoError(t, program.Validate())
	loaded := compileAndLoad(t, client, program)
	defer loaded.Finalize()

	flat := []float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)}
	input, err := client.BufferFromFlatData(0, flat, shapes.Make(dtypes.Float16, 2))
	require.NoError(t, err)
	results, err := loaded.Execute([][]runtimes.Buffer{{input}}, runtimes.ExecuteOptions{})
	require.NoError(t, err)

	literal, err := results[0][0].ToLiteral()
	require.NoError(t, err)
	out := literal.Flat().([]float16.Float16)
	assert.Equal(t, float32(-2.25), out[0].Float32())
	assert.Equal(t, float32(-4), out[1].Float32())
}

func TestCodegenRejectsUnsupported(t *testing.T) {
	client, err := New("")
	require.NoError(t, err)
	defer client.Finalize()

	// Unsupported dtype.
	c := ir.NewComputation("complex")
	c.Return(c.Parameter("x", shapes.Make(dtypes.Complex64, 2)))
	_, err = client.CodegenProgram(ir.NewProgram("test", c), runtimes.CompileOptions{})
	require.True(t, status.IsUnimplemented(err), "got %v", err)

	// Compile option targeting a device outside the topology.
	_, err = client.CodegenProgram(addProgram(t), runtimes.CompileOptions{TargetDeviceIDs: []int{7}})
	require.True(t, status.IsInvalidArgument(err), "got %v", err)
}
