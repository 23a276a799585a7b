package hostgo

import (
	"reflect"
	"sync"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/streamexec/streamexec/runtimes"
	"github.com/streamexec/streamexec/status"
	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

// Buffer is a hostgo device buffer: a flat host slice standing in for
// device-resident memory.
//
// Its lifetime is independent of the executable that produced it and of the
// client's: finalizing either leaves already-returned buffers readable, so a
// caller can still materialize results after tearing the pipeline down in
// any order.
type Buffer struct {
	shape     shapes.Shape
	deviceNum runtimes.DeviceNum

	mu     sync.Mutex
	flat   any // []T of shape.DType; nil once finalized
	client *Client
}

var _ runtimes.Buffer = (*Buffer)(nil)

func (c *Client) newBuffer(deviceNum runtimes.DeviceNum, shape shapes.Shape, flat any) *Buffer {
	c.allocatedBytes.Add(int64(shape.Memory()))
	return &Buffer{shape: shape, deviceNum: deviceNum, flat: flat, client: c}
}

// Shape implements runtimes.Buffer.
func (b *Buffer) Shape() shapes.Shape { return b.shape }

// DeviceNum implements runtimes.Buffer.
func (b *Buffer) DeviceNum() runtimes.DeviceNum { return b.deviceNum }

// ToLiteral implements runtimes.Buffer: it copies the buffer contents into a
// host literal. Idempotent; fails after Finalize.
func (b *Buffer) ToLiteral() (*literals.Literal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flat == nil {
		return nil, status.Errorf(status.FailedPrecondition, "hostgo: buffer %s already finalized", b.shape)
	}
	return literals.FromFlatAndDimensions(b.flat, b.shape.Dimensions...), nil
}

// Finalize implements runtimes.Buffer. Idempotent.
func (b *Buffer) Finalize() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flat == nil {
		return
	}
	b.flat = nil
	b.client.allocatedBytes.Add(-int64(b.shape.Memory()))
}

// castBuffer rejects buffers produced by other runtimes.
func castBuffer(buffer runtimes.Buffer) (*Buffer, error) {
	b, ok := buffer.(*Buffer)
	if !ok {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: buffer %T was not created by the %q runtime", buffer, RuntimeName)
	}
	return b, nil
}

// cloneFlat validates that flat is a []T matching shape's dtype and size,
// and returns an owned copy.
func cloneFlat(flat any, shape shapes.Shape) (any, error) {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		return nil, status.Errorf(status.InvalidArgument, "hostgo: flat data must be a slice, got %T", flat)
	}
	if dtype := dtypes.FromGoType(flatV.Type().Elem()); dtype != shape.DType {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: flat data of type %T is incompatible with shape %s", flat, shape)
	}
	if flatV.Len() != shape.Size() {
		return nil, status.Errorf(status.InvalidArgument,
			"hostgo: flat data has %d elements, shape %s requires %d", flatV.Len(), shape, shape.Size())
	}
	owned := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(owned, flatV)
	return owned.Interface(), nil
}
