package runtimes

import (
	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/types/shapes"
)

// Executable is a compiled program not yet bound to a client. It is an
// opaque, runtime-specific artifact: it carries no meaning until passed to
// the Load of the client whose compiler produced it, and it cannot be
// executed by itself.
type Executable interface {
	// Name of the program this executable was compiled from.
	Name() string

	// Fingerprint is the structural identity of the source program.
	Fingerprint() string

	// InputShapes of the program's parameters, in order.
	InputShapes() []shapes.Shape

	// OutputShapes of the program's outputs, in order; its length is the
	// program's output arity.
	OutputShapes() []shapes.Shape

	// Finalize releases the artifact without loading it. Idempotent.
	Finalize()
}

// LoadedExecutable is an executable bound to a client, runnable any number
// of times.
type LoadedExecutable interface {
	// Client this executable is bound to. The association is non-owning:
	// finalizing the executable does not finalize the client.
	Client() Client

	// Executable metadata (name, fingerprint, shapes) of the program.
	Executable

	// Execute runs the program once per execution instance.
	//
	// argumentHandles is instance-major: argumentHandles[i][j] is the buffer
	// for parameter j of instance i. Instances with zero arguments are valid
	// and common (constant-only programs). The result has exactly
	// len(argumentHandles) entries, each with one buffer per program output.
	//
	// Execute fails with status.InvalidArgument on argument arity or shape
	// mismatch -- arguments are never truncated or padded -- and with
	// status.FailedPrecondition if the bound client has been finalized.
	Execute(argumentHandles [][]Buffer, options ExecuteOptions) ([][]Buffer, error)
}

// Codegen is the optional code-generation capability of a client. The
// Compiler delegates the actual lowering to it after the topology gate
// passes; a client without it cannot be compiled for.
type Codegen interface {
	// CodegenProgram lowers a validated program into this runtime's
	// executable artifact. options are the compile options passed through
	// Compiler.Compile unmodified.
	CodegenProgram(program *ir.Program, options CompileOptions) (Executable, error)
}
