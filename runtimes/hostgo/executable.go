package hostgo

import (
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/runtimes"
	"github.com/streamexec/streamexec/status"
	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

// executable is the compiled-but-unbound artifact produced by
// CodegenProgram. It is single-use: Load consumes it.
type executable struct {
	name                string
	fingerprint         string
	topologyFingerprint string
	inputShapes         []shapes.Shape
	outputShapes        []shapes.Shape

	tape          []tapeOp
	constants     []*literals.Literal
	rootRegisters []int
	numRegisters  int

	consumed  atomic.Bool
	finalized atomic.Bool
}

var _ runtimes.Executable = (*executable)(nil)

// Name implements runtimes.Executable.
func (e *executable) Name() string { return e.name }

// Fingerprint implements runtimes.Executable.
func (e *executable) Fingerprint() string { return e.fingerprint }

// InputShapes implements runtimes.Executable.
func (e *executable) InputShapes() []shapes.Shape { return e.inputShapes }

// OutputShapes implements runtimes.Executable.
func (e *executable) OutputShapes() []shapes.Shape { return e.outputShapes }

// Finalize implements runtimes.Executable. Idempotent. Once Load has
// consumed the artifact the tape and constants belong to the loaded
// executable, and Finalize releases nothing.
func (e *executable) Finalize() {
	if e.finalized.Swap(true) {
		return
	}
	if e.consumed.Load() {
		return
	}
	e.tape = nil
	e.constants = nil
}

// Load implements runtimes.Client.
//
// The executable is consumed: this runtime's double-load policy is
// single-use, so a second Load of the same artifact fails with
// status.FailedPrecondition. Load also re-reads the live topology and
// refuses artifacts whose compile-time topology has drifted.
func (c *Client) Load(exec runtimes.Executable, options runtimes.LoadOptions) (runtimes.LoadedExecutable, error) {
	if c.closed.Load() {
		return nil, status.Errorf(status.FailedPrecondition, "hostgo: client %s has been finalized", c.id)
	}
	hostExec, ok := exec.(*executable)
	if !ok {
		return nil, status.Errorf(status.FailedPrecondition,
			"hostgo: executable %T was not compiled by the %q runtime", exec, RuntimeName)
	}
	if hostExec.finalized.Load() {
		return nil, status.Errorf(status.FailedPrecondition,
			"hostgo: executable %q has been finalized", hostExec.name)
	}
	if hostExec.consumed.Swap(true) {
		return nil, status.Errorf(status.FailedPrecondition,
			"hostgo: executable %q was already loaded; compiled artifacts are single-use", hostExec.name)
	}
	live, err := c.TopologyDescription()
	if err != nil {
		return nil, err
	}
	if live.Fingerprint() != hostExec.topologyFingerprint {
		return nil, status.Errorf(status.FailedPrecondition,
			"hostgo: executable %q was compiled for another topology (%s vs the live %s)",
			hostExec.name, hostExec.topologyFingerprint, live.Fingerprint())
	}
	for _, deviceNum := range options.DeviceAssignment {
		if deviceNum < 0 || int(deviceNum) >= c.numDevices {
			return nil, status.Errorf(status.InvalidArgument,
				"hostgo: load option assigns device %d, client has %d device(s)", deviceNum, c.numDevices)
		}
	}

	// Materialize the constant pool ("allocated constants" of the loaded
	// program); these flats are read-only from here on.
	constantFlats := make([]any, len(hostExec.constants))
	for ii, literal := range hostExec.constants {
		flat, err := cloneFlat(literal.Flat(), literal.Shape())
		if err != nil {
			return nil, err
		}
		constantFlats[ii] = flat
	}
	klog.V(1).Infof("hostgo: loaded %q on client %s", hostExec.name, c.id)
	return &loadedExecutable{
		executable:       hostExec,
		client:           c,
		constantFlats:    constantFlats,
		deviceAssignment: options.DeviceAssignment,
	}, nil
}

// loadedExecutable is an executable bound to a hostgo client.
type loadedExecutable struct {
	*executable
	client           *Client
	constantFlats    []any
	deviceAssignment []runtimes.DeviceNum

	released atomic.Bool
}

var _ runtimes.LoadedExecutable = (*loadedExecutable)(nil)

// Client implements runtimes.LoadedExecutable.
func (le *loadedExecutable) Client() runtimes.Client { return le.client }

// Finalize implements runtimes.LoadedExecutable: it releases the client-side
// resources of the loaded program (the constant pool). Idempotent, and safe
// to call after the client itself has been finalized; result buffers already
// returned by Execute stay valid.
func (le *loadedExecutable) Finalize() {
	if le.released.Swap(true) {
		return
	}
	le.constantFlats = nil
}

// Execute implements runtimes.LoadedExecutable.
func (le *loadedExecutable) Execute(argumentHandles [][]runtimes.Buffer, options runtimes.ExecuteOptions) ([][]runtimes.Buffer, error) {
	if le.released.Load() {
		return nil, status.Errorf(status.FailedPrecondition,
			"hostgo: executable %q has been finalized", le.name)
	}
	if le.client.closed.Load() {
		return nil, status.Errorf(status.FailedPrecondition,
			"hostgo: executable %q is bound to client %s, which has been finalized", le.name, le.client.id)
	}
	numInstances := len(argumentHandles)
	if numInstances == 0 {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: Execute requires at least one execution instance")
	}
	if max := capabilities.MaxExecutionInstances; max > 0 && numInstances > max {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: %d execution instance(s) requested, runtime supports at most %d", numInstances, max)
	}
	if len(options.Devices) > 0 && len(options.Devices) != numInstances {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: execute option gives %d device(s) for %d instance(s)", len(options.Devices), numInstances)
	}

	results := make([][]runtimes.Buffer, numInstances)
	for instance, arguments := range argumentHandles {
		deviceNum, err := le.deviceFor(instance, options)
		if err != nil {
			return nil, err
		}
		instanceResults, err := le.executeInstance(instance, arguments, deviceNum)
		if err != nil {
			return nil, err
		}
		results[instance] = instanceResults
	}
	return results, nil
}

// deviceFor picks the device of one execution instance: the explicit
// execute-time choice, else the load-time assignment, else round-robin.
func (le *loadedExecutable) deviceFor(instance int, options runtimes.ExecuteOptions) (runtimes.DeviceNum, error) {
	var deviceNum runtimes.DeviceNum
	switch {
	case len(options.Devices) > 0:
		deviceNum = options.Devices[instance]
	case len(le.deviceAssignment) > 0:
		deviceNum = le.deviceAssignment[instance%len(le.deviceAssignment)]
	default:
		deviceNum = runtimes.DeviceNum(instance % le.client.numDevices)
	}
	if deviceNum < 0 || int(deviceNum) >= le.client.numDevices {
		return 0, status.Errorf(status.InvalidArgument,
			"hostgo: instance %d assigned to device %d, client has %d device(s)",
			instance, deviceNum, le.client.numDevices)
	}
	return deviceNum, nil
}

// executeInstance runs the tape once, for one execution instance.
func (le *loadedExecutable) executeInstance(instance int, arguments []runtimes.Buffer, deviceNum runtimes.DeviceNum) ([]runtimes.Buffer, error) {
	if len(arguments) != len(le.inputShapes) {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: instance %d of %q given %d argument(s), program takes %d",
			instance, le.name, len(arguments), len(le.inputShapes))
	}
	argumentFlats := make([]any, len(arguments))
	for ii, argument := range arguments {
		buffer, err := castBuffer(argument)
		if err != nil {
			return nil, err
		}
		buffer.mu.Lock()
		flat := buffer.flat
		buffer.mu.Unlock()
		if flat == nil {
			return nil, status.Errorf(status.FailedPrecondition,
				"hostgo: instance %d of %q, argument #%d has been finalized", instance, le.name, ii)
		}
		if !buffer.shape.Equal(le.inputShapes[ii]) {
			return nil, status.Errorf(status.InvalidArgument,
				"hostgo: instance %d of %q, argument #%d has shape %s, program takes %s",
				instance, le.name, ii, buffer.shape, le.inputShapes[ii])
		}
		argumentFlats[ii] = flat
	}

	registers := make([]any, le.numRegisters)
	for _, op := range le.tape {
		flat, err := le.evalOp(op, argumentFlats, registers)
		if err != nil {
			return nil, status.WrapErrorf(err, status.Internal,
				"hostgo: instance %d of %q failed", instance, le.name)
		}
		registers[op.out] = flat
	}

	// Result buffers are independently owned: copy roots that alias an
	// argument, a constant or another root.
	results := make([]runtimes.Buffer, len(le.rootRegisters))
	emitted := make(map[int]bool, len(le.rootRegisters))
	for ii, register := range le.rootRegisters {
		shape := le.outputShapes[ii]
		flat := registers[register]
		op := le.tape[register].op
		if op == ir.OpParameter || op == ir.OpConstant || emitted[register] {
			owned, err := cloneFlat(flat, shape)
			if err != nil {
				return nil, err
			}
			flat = owned
		}
		emitted[register] = true
		results[ii] = le.client.newBuffer(deviceNum, shape, flat)
	}
	return results, nil
}
