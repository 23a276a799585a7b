package literals

import (
	"strconv"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/streamexec/streamexec/types/shapes"
)

// FromStrings converts decimal renderings of the elements (row-major) into a
// Literal of the given shape. It is the shared numeric back end of the
// surface-syntax parsers.
func FromStrings(values []string, shape shapes.Shape) (*Literal, error) {
	if len(values) != shape.Size() {
		return nil, errors.Errorf("literal for shape %s needs %d element(s), got %d",
			shape, shape.Size(), len(values))
	}
	switch shape.DType {
	case dtypes.Int32:
		return fromIntStrings[int32](values, shape, 32)
	case dtypes.Int64:
		return fromIntStrings[int64](values, shape, 64)
	case dtypes.Float32:
		return fromFloatStrings[float32](values, shape)
	case dtypes.Float64:
		return fromFloatStrings[float64](values, shape)
	case dtypes.Float16:
		flat := make([]float16.Float16, len(values))
		for ii, value := range values {
			v, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing element %q of a %s literal", value, shape)
			}
			flat[ii] = float16.Fromfloat32(float32(v))
		}
		return FromFlatAndDimensions(flat, shape.Dimensions...), nil
	}
	return nil, errors.Errorf("literals of dtype %s are not supported", shape.DType)
}

// fromIntStrings parses with the dtype's bit size, so values outside the
// dtype's range fail instead of silently wrapping.
func fromIntStrings[T int32 | int64](values []string, shape shapes.Shape, bitSize int) (*Literal, error) {
	flat := make([]T, len(values))
	for ii, value := range values {
		v, err := strconv.ParseInt(value, 10, bitSize)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing element %q of a %s literal", value, shape)
		}
		flat[ii] = T(v)
	}
	return FromFlatAndDimensions(flat, shape.Dimensions...), nil
}

func fromFloatStrings[T float32 | float64](values []string, shape shapes.Shape) (*Literal, error) {
	flat := make([]T, len(values))
	for ii, value := range values {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing element %q of a %s literal", value, shape)
		}
		flat[ii] = T(v)
	}
	return FromFlatAndDimensions(flat, shape.Dimensions...), nil
}
