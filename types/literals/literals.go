// Package literals implements Literal, an immutable host-readable value
// materialized from a device buffer.
//
// A Literal is the only form in which device-resident results cross back to
// the host; it is what verification code compares against expected values.
package literals

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/streamexec/streamexec/types/shapes"
)

// Literal is an immutable host value with a shape and flat data.
// The flat data is always a []T where T is the Go type of the shape's DType,
// in row-major order.
type Literal struct {
	shape shapes.Shape
	flat  any
}

// FromFlatAndDimensions creates a Literal from a flat slice and dimensions.
// The dtype is inferred from the slice's element type. It panics if flat is
// not a slice of a supported type, or if its length doesn't match the
// dimensions.
func FromFlatAndDimensions(flat any, dimensions ...int) *Literal {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		exceptions.Panicf("literals.FromFlatAndDimensions: flat must be a slice, got %T", flat)
	}
	dtype := dtypes.FromGoType(flatV.Type().Elem())
	if dtype == dtypes.InvalidDType {
		exceptions.Panicf("literals.FromFlatAndDimensions: unsupported element type %s", flatV.Type().Elem())
	}
	shape := shapes.Make(dtype, dimensions...)
	if flatV.Len() != shape.Size() {
		exceptions.Panicf("literals.FromFlatAndDimensions: flat has %d elements, shape %s requires %d",
			flatV.Len(), shape, shape.Size())
	}
	// Copy, so the literal doesn't alias caller-owned memory.
	owned := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(owned, flatV)
	return &Literal{shape: shape, flat: owned.Interface()}
}

// Scalar creates a rank-0 Literal holding the given value.
func Scalar[T dtypes.NumberNotComplex](value T) *Literal {
	return FromFlatAndDimensions([]T{value})
}

// Shape of the literal.
func (l *Literal) Shape() shapes.Shape { return l.shape }

// DType of the literal's elements.
func (l *Literal) DType() dtypes.DType { return l.shape.DType }

// Flat returns the underlying flat slice ([]T for the shape's DType).
// The caller must treat it as read-only.
func (l *Literal) Flat() any { return l.flat }

// Equal compares shape and contents.
func (l *Literal) Equal(other *Literal) bool {
	if l == nil || other == nil {
		return l == other
	}
	if !l.shape.Equal(other.shape) {
		return false
	}
	return reflect.DeepEqual(l.flat, other.flat)
}

// maxStringElements bounds how many elements String renders.
const maxStringElements = 16

// String implements fmt.Stringer, e.g. "(Int32): 2" or "(Float32)[3]: [1 2 3]".
func (l *Literal) String() string {
	if l == nil {
		return "(nil literal)"
	}
	flatV := reflect.ValueOf(l.flat)
	if l.shape.IsScalar() {
		return fmt.Sprintf("%s: %v", l.shape, flatV.Index(0).Interface())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: [", l.shape)
	n := min(flatV.Len(), maxStringElements)
	for ii := range n {
		if ii > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%v", flatV.Index(ii).Interface())
	}
	if flatV.Len() > n {
		sb.WriteString(" ...")
	}
	sb.WriteByte(']')
	return sb.String()
}
