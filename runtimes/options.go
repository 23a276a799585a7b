package runtimes

// CompileOptions configures compilation. The zero value requests safe
// defaults; runtimes ignore options they don't recognize.
type CompileOptions struct {
	// TargetDeviceIDs optionally restricts compilation to a subset of the
	// topology's device ids. Empty means all devices.
	TargetDeviceIDs []int

	// DumpIR logs the canonical IR of the program being compiled (klog V(2)).
	DumpIR bool
}

// LoadOptions configures Client.Load. The zero value requests safe defaults.
type LoadOptions struct {
	// DeviceAssignment optionally pins execution instances to devices, by
	// device number. Empty means instances are assigned round-robin.
	DeviceAssignment []DeviceNum
}

// ExecuteOptions configures LoadedExecutable.Execute. The zero value
// requests safe defaults.
type ExecuteOptions struct {
	// Devices optionally picks the device for each execution instance,
	// overriding the load-time assignment. Must be empty or match the number
	// of instances.
	Devices []DeviceNum
}
