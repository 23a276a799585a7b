// Package compiler implements the compilation entry point of StreamExec: it
// validates that a requested target topology is realizable by the runtime
// client that will execute the program, and then delegates code generation
// to that client, producing an opaque compiled executable.
package compiler

import (
	"k8s.io/klog/v2"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/runtimes"
	"github.com/streamexec/streamexec/status"
	"github.com/streamexec/streamexec/topology"
)

// Compiler compiles programs for a specific runtime client. It is stateless:
// the zero value is ready to use, and one Compiler may serve concurrent
// Compile calls.
type Compiler struct{}

// verdict is the outcome of the target-validation gate, an ordered sequence
// of guard clauses evaluated as a pure function of (client presence,
// topology equality).
type verdict int

const (
	verdictOK verdict = iota
	verdictNoClient
	verdictTopologyMismatch
)

// validateTarget evaluates the gate. live is the topology reported by the
// client and is ignored when hasClient is false.
func validateTarget(requested, live *topology.Topology, hasClient bool) verdict {
	if !hasClient {
		return verdictNoClient
	}
	if !requested.Equal(live) {
		return verdictTopologyMismatch
	}
	return verdictOK
}

// Compile compiles program for the fleet described by topo, to be executed
// through client.
//
// The client is required in practice: code generation queries live device
// state that only a bound client can supply, so a nil client fails with
// status.Unimplemented -- ahead-of-time compilation is not supported by this
// backend. The client's live topology must equal topo structurally, or
// Compile fails with status.Unimplemented: compiling for a different fleet
// than the one actually bound would produce an executable the client cannot
// load.
//
// The topology is read from the client once; if the fleet changes while the
// call runs the check is best-effort, not transactional.
//
// On success the caller owns the returned executable, which is not yet
// runnable: pass it to client.Load to bind it. Compile does not mutate
// program, topo or client.
func (Compiler) Compile(
	options runtimes.CompileOptions,
	program ir.Source,
	topo *topology.Topology,
	client runtimes.Client,
) (runtimes.Executable, error) {
	if program == nil {
		return nil, status.Errorf(status.InvalidArgument, "compiler: nil program")
	}
	if topo == nil {
		return nil, status.Errorf(status.InvalidArgument, "compiler: nil target topology")
	}

	var live *topology.Topology
	hasClient := client != nil
	if hasClient {
		var err error
		live, err = client.TopologyDescription()
		if err != nil {
			// Keep the client's classification (e.g. FailedPrecondition for a
			// finalized client); only opaque failures become Internal.
			code := status.CodeOf(err)
			if code == status.Unknown {
				code = status.Internal
			}
			return nil, status.WrapErrorf(err, code,
				"compiler: querying topology of client %q", client.Name())
		}
	}
	switch validateTarget(topo, live, hasClient) {
	case verdictNoClient:
		return nil, status.Errorf(status.Unimplemented,
			"compiler: compilation without a client is not supported, target topology %s", topo)
	case verdictTopologyMismatch:
		return nil, status.Errorf(status.Unimplemented,
			"compiler: client %q is bound to topology %s, not to the requested %s",
			client.Name(), live, topo)
	}

	codegen, ok := client.(runtimes.Codegen)
	if !ok {
		return nil, status.Errorf(status.Unimplemented,
			"compiler: runtime %q has no code-generation capability", client.Name())
	}
	prog, err := program.LowerToProgram()
	if err != nil {
		return nil, status.WrapErrorf(err, status.InvalidArgument, "compiler: lowering program")
	}
	if klog.V(1).Enabled() {
		klog.Infof("compiling %q (fingerprint %s) for %s", prog.Entry.Name, prog.Fingerprint()[:12], topo)
	}
	return codegen.CodegenProgram(prog, options)
}
