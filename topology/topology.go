// Package topology describes the shape of an accelerator fleet a compilation
// targets: which platform, which device model, and which device ids.
//
// A Topology is an immutable value object. It can be constructed standalone
// (e.g. from static test data) or obtained from a live runtime client via
// Client.TopologyDescription; the Compiler refuses to compile when the two
// disagree.
package topology

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
)

// PlatformID identifies an accelerator platform (e.g. the host-simulation
// platform, a CUDA platform). Ids are assigned by the runtime packages.
type PlatformID int

// Topology describes an accelerator fleet. Do not mutate after construction;
// use New, which copies the device-id slice.
type Topology struct {
	PlatformID   PlatformID
	PlatformName string

	// DeviceName is the marketing/model name shared by all devices of the
	// fleet, e.g. "hostgo-vcpu".
	DeviceName string

	// DeviceIDs is the ordered set of device ids reachable in the fleet.
	DeviceIDs []int
}

// New creates a Topology. The device-id slice is cloned, and must be
// non-empty with no repeated ids.
func New(platformID PlatformID, platformName, deviceName string, deviceIDs []int) *Topology {
	if len(deviceIDs) == 0 {
		exceptions.Panicf("topology.New(%q): at least one device id required", platformName)
	}
	seen := make(map[int]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		if seen[id] {
			exceptions.Panicf("topology.New(%q): repeated device id %d", platformName, id)
		}
		seen[id] = true
	}
	return &Topology{
		PlatformID:   platformID,
		PlatformName: platformName,
		DeviceName:   deviceName,
		DeviceIDs:    slices.Clone(deviceIDs),
	}
}

// NumDevices in the fleet.
func (t *Topology) NumDevices() int { return len(t.DeviceIDs) }

// Equal reports structural equality: platform id, platform name, device name
// and the ordered device-id set must all match.
func (t *Topology) Equal(other *Topology) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.PlatformID == other.PlatformID &&
		t.PlatformName == other.PlatformName &&
		t.DeviceName == other.DeviceName &&
		slices.Equal(t.DeviceIDs, other.DeviceIDs)
}

// Clone returns a deep copy.
func (t *Topology) Clone() *Topology {
	if t == nil {
		return nil
	}
	clone := *t
	clone.DeviceIDs = slices.Clone(t.DeviceIDs)
	return &clone
}

// Fingerprint is a short string identifying the topology; executables record
// it at compile time so load-time drift can be detected.
func (t *Topology) Fingerprint() string {
	return t.String()
}

// String implements fmt.Stringer.
func (t *Topology) String() string {
	if t == nil {
		return "topology(nil)"
	}
	return fmt.Sprintf("%s(#%d) %q devices=%v", t.PlatformName, t.PlatformID, t.DeviceName, t.DeviceIDs)
}
