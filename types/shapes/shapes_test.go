package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 6, s.Size())
	assert.Equal(t, "(Float32)[2 3]", s.String())

	scalar := Make(dtypes.Int32)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Size())
	assert.Equal(t, "(Int32)", scalar.String())

	require.Panics(t, func() { Make(dtypes.Float32, 0) })
	require.Panics(t, func() { Make(dtypes.Float32, 2, -1) })
}

func TestScalar(t *testing.T) {
	s := Scalar[int32]()
	assert.Equal(t, dtypes.Int32, s.DType)
	assert.True(t, s.IsScalar())
}

func TestEqual(t *testing.T) {
	assert.True(t, Make(dtypes.Int32, 3).Equal(Make(dtypes.Int32, 3)))
	assert.False(t, Make(dtypes.Int32, 3).Equal(Make(dtypes.Int64, 3)))
	assert.False(t, Make(dtypes.Int32, 3).Equal(Make(dtypes.Int32, 4)))
	assert.False(t, Make(dtypes.Int32, 3).Equal(Make(dtypes.Int32)))
	assert.True(t, Scalar[float64]().Equal(Make(dtypes.Float64)))
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := Make(dtypes.Float64, 4)
	c := s.Clone()
	require.True(t, s.Equal(c))
	c.Dimensions[0] = 7
	assert.Equal(t, 4, s.Dimensions[0])
}

func TestInvalid(t *testing.T) {
	assert.False(t, Invalid().Ok())
	assert.False(t, Shape{}.Ok())
	assert.False(t, Shape{}.IsScalar())
}
