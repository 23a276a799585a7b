// Package shapes defines Shape, the (dtype, dimensions) description of values
// flowing through the StreamExec pipeline: program parameters and outputs,
// device buffers and host literals.
//
// The element type (DType) enumeration comes from github.com/gomlx/gopjrt/dtypes,
// which also provides the mapping to/from Go types. Float16 is backed by
// github.com/x448/float16.
//
// A Shape is a value object: once created it is never mutated.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gopjrt/dtypes"
)

// Shape of a program value or buffer: an element DType and the dimensions of
// each axis. A rank-0 shape (no dimensions) is a scalar.
//
// Use Make to create one.
type Shape struct {
	DType      DType
	Dimensions []int
}

// Make returns a Shape with the given dtype and dimensions.
// It panics if any dimension is <= 0.
func Make(dtype DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): axes must have dimension > 0, got %v", dtype, dimensions)
		}
	}
	return s
}

// Scalar returns the rank-0 shape for the given Go type.
func Scalar[T NumberNotComplex]() Shape {
	return Shape{DType: FromGenericsType[T]()}
}

// Invalid returns the zero Shape, for which Ok() == false.
func Invalid() Shape { return Shape{DType: InvalidDType} }

// Ok returns whether this is a valid shape. The zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != InvalidDType }

// Rank is the number of axes. Scalars have rank 0.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape is a valid rank-0 shape.
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Size is the number of elements of DType held by the shape: the product of
// all dimensions, 1 for scalars.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Memory is the number of bytes needed to store a value of this shape.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares dtype and dimensions.
func (s Shape) Equal(other Shape) bool {
	return s.DType == other.DType && slices.Equal(s.Dimensions, other.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// Shape returns a shallow copy of itself, implementing the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, e.g. "(Float32)[2 3]".
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// HasShape is implemented by any value with an associated Shape.
type HasShape interface {
	Shape() Shape
}
