// Package hostgo implements a pure-Go runtime client for StreamExec: a
// simulated accelerator fleet whose "devices" are host-memory evaluators.
//
// It is slow but fully portable, and it implements the complete
// compile/load/execute contract -- including code generation -- so the
// pipeline can run without any native runtime installed.
//
// Use it through the registry:
//
//	import _ "github.com/streamexec/streamexec/runtimes/hostgo"
//	client, err := runtimes.NewWithConfig("hostgo:devices=2")
package hostgo

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/streamexec/streamexec/runtimes"
	"github.com/streamexec/streamexec/status"
	"github.com/streamexec/streamexec/topology"
	"github.com/streamexec/streamexec/types/shapes"
)

// RuntimeName to be used in STREAMEXEC_RUNTIME to select this runtime.
const RuntimeName = "hostgo"

// PlatformID and platform naming reported in this runtime's topology.
const (
	PlatformID   topology.PlatformID = 1
	PlatformName                     = "hostgo"
	DeviceName                       = "hostgo-vcpu"
)

func init() {
	runtimes.Register(RuntimeName, func(config string) (runtimes.Client, error) {
		return New(config)
	})
}

// Client implements runtimes.Client over a simulated fleet of host devices.
type Client struct {
	id         string
	numDevices int

	closed         atomic.Bool
	allocatedBytes atomic.Int64
}

// Compile-time checks.
var (
	_ runtimes.Client  = (*Client)(nil)
	_ runtimes.Codegen = (*Client)(nil)
)

// New creates a hostgo client. The configuration string accepts
// comma-separated key=value entries; the only recognized key is "devices"
// (number of simulated devices, default 1).
func New(config string) (*Client, error) {
	numDevices := 1
	for _, entry := range strings.Split(config, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, value, found := strings.Cut(entry, "=")
		if !found || key != "devices" {
			return nil, errors.Errorf("hostgo: unknown configuration entry %q (only devices=N is supported)", entry)
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return nil, errors.Errorf("hostgo: invalid device count %q", value)
		}
		numDevices = n
	}
	c := &Client{id: uuid.NewString(), numDevices: numDevices}
	klog.V(1).Infof("hostgo: new client %s with %d device(s)", c.id, numDevices)
	return c, nil
}

// Name implements runtimes.Client.
func (c *Client) Name() string { return RuntimeName }

// Description implements runtimes.Client.
func (c *Client) Description() string {
	return fmt.Sprintf("%s client %s: %d simulated device(s), %s in buffers",
		RuntimeName, c.id, c.numDevices, humanize.IBytes(uint64(c.allocatedBytes.Load())))
}

// NumDevices implements runtimes.Client.
func (c *Client) NumDevices() runtimes.DeviceNum {
	return runtimes.DeviceNum(c.numDevices)
}

// TopologyDescription implements runtimes.Client: it reports the live,
// reachable device set. The caller owns the returned value.
func (c *Client) TopologyDescription() (*topology.Topology, error) {
	if c.closed.Load() {
		return nil, status.Errorf(status.FailedPrecondition, "hostgo: client %s has been finalized", c.id)
	}
	deviceIDs := make([]int, c.numDevices)
	for ii := range deviceIDs {
		deviceIDs[ii] = ii
	}
	return topology.New(PlatformID, PlatformName, DeviceName, deviceIDs), nil
}

// Capabilities implements runtimes.Client.
func (c *Client) Capabilities() runtimes.Capabilities {
	return capabilities.Clone()
}

// AllocatedBytes currently held by live buffers of this client.
func (c *Client) AllocatedBytes() int64 { return c.allocatedBytes.Load() }

// Finalize implements runtimes.Client. Idempotent; loaded executables bound
// to this client become unusable, buffers already handed to the caller stay
// readable.
func (c *Client) Finalize() {
	if c.closed.Swap(true) {
		return
	}
	klog.V(1).Infof("hostgo: client %s finalized (%s still held by caller buffers)",
		c.id, humanize.IBytes(uint64(c.allocatedBytes.Load())))
}

// BufferFromFlatData implements runtimes.Client: it simulates a host-to-device
// transfer by copying flat into a device buffer.
func (c *Client) BufferFromFlatData(deviceNum runtimes.DeviceNum, flat any, shape shapes.Shape) (runtimes.Buffer, error) {
	if c.closed.Load() {
		return nil, status.Errorf(status.FailedPrecondition, "hostgo: client %s has been finalized", c.id)
	}
	if deviceNum < 0 || int(deviceNum) >= c.numDevices {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: device %d out of range, client has %d device(s)", deviceNum, c.numDevices)
	}
	if !capabilities.DTypes[shape.DType] {
		return nil, status.Errorf(status.Unimplemented, "hostgo: dtype %s is not supported", shape.DType)
	}
	owned, err := cloneFlat(flat, shape)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("hostgo: transferred %s to device %d", humanize.IBytes(uint64(shape.Memory())), deviceNum)
	return c.newBuffer(deviceNum, shape, owned), nil
}
