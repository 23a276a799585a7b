// Package runtimes defines the interface a runtime client -- the live
// binding to an accelerator fleet -- must implement to load and execute
// compiled programs, plus a registry so runtimes can be selected by name.
//
// The compile/load/execute pipeline is synchronous: Load and Execute (and
// Compiler.Compile in package compiler) block until their stage completes or
// fails, returning explicit errors tagged with status codes. Independent
// clients, executables and buffers may be used concurrently.
package runtimes

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/streamexec/streamexec/topology"
	"github.com/streamexec/streamexec/types/shapes"
)

// DeviceNum addresses one device of a client's fleet: it is an index into
// the client's topology device-id set, between 0 and Client.NumDevices()-1.
type DeviceNum int

// Client is the live binding to a specific accelerator fleet. A client is a
// process-wide shared resource: many loaded executables may be bound to the
// same client concurrently.
type Client interface {
	// Name returns the short registered name of the runtime, e.g. "hostgo".
	Name() string

	// Description is a longer string that can be used to pretty-print the
	// client and its fleet.
	Description() string

	// NumDevices returns the number of devices reachable through this client.
	NumDevices() DeviceNum

	// TopologyDescription returns a snapshot of the live topology of the
	// fleet this client is bound to. Callers own the returned value.
	TopologyDescription() (*topology.Topology, error)

	// Capabilities describes what this runtime supports.
	Capabilities() Capabilities

	// Load binds a compiled executable to this client, making it runnable.
	//
	// Load consumes the executable: the artifact is single-use, and a second
	// Load of the same artifact fails with status.FailedPrecondition. It also
	// fails if the executable was compiled for a topology different from the
	// client's live topology, or if client-side resource allocation fails.
	Load(exec Executable, options LoadOptions) (LoadedExecutable, error)

	// BufferFromFlatData transfers a flat slice (of the Go type matching
	// shape.DType) to the given device, returning the device buffer handle.
	BufferFromFlatData(deviceNum DeviceNum, flat any, shape shapes.Shape) (Buffer, error)

	// Finalize releases all resources held by the client. Loaded executables
	// bound to it become unusable; buffers already materialized or owned by
	// the caller stay valid. Idempotent.
	Finalize()
}

// Constructor builds a Client from a runtime-specific configuration string
// (possibly empty).
type Constructor func(config string) (Client, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a runtime under the given name. Call it from the runtime
// package's init.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is used by New if set and the environment variable is not.
// See NewWithConfig for the format.
var DefaultConfig string

// ConfigEnvVar is the environment variable consulted by New for the runtime
// configuration, formatted as in NewWithConfig.
const ConfigEnvVar = "STREAMEXEC_RUNTIME"

// New returns a client for the default runtime configuration:
//
//  1. the environment variable STREAMEXEC_RUNTIME, if set;
//  2. the package variable DefaultConfig, if set;
//  3. the first registered runtime, with an empty configuration.
func New() (Client, error) {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig builds a client from a "<runtime_name>:<runtime_config>"
// string. The "<runtime_name>" must have been registered (e.g. "hostgo"),
// and "<runtime_config>" is passed verbatim to its constructor. An empty
// name selects the first registered runtime.
func NewWithConfig(config string) (Client, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.Errorf(
			`no registered runtimes -- import one, e.g. _ "github.com/streamexec/streamexec/runtimes/hostgo"`)
	}
	name := firstRegistered
	runtimeConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		name = config[:idx]
		runtimeConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, errors.Errorf("runtime %q not registered (configuration %q)", name, config)
	}
	return constructor(runtimeConfig)
}
