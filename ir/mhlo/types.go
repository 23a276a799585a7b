package mhlo

import (
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

var elementTypes = map[string]dtypes.DType{
	"i32": dtypes.Int32,
	"i64": dtypes.Int64,
	"f16": dtypes.Float16,
	"f32": dtypes.Float32,
	"f64": dtypes.Float64,
}

// parseTensorType handles "tensor<i32>" (scalar) and "tensor<2x3xf32>".
func (p *parser) parseTensorType(text string) (shapes.Shape, error) {
	inner, found := strings.CutPrefix(text, "tensor<")
	if !found || !strings.HasSuffix(inner, ">") {
		return shapes.Invalid(), p.errorf("malformed tensor type %q", text)
	}
	inner = strings.TrimSuffix(inner, ">")
	parts := strings.Split(inner, "x")
	dtype, found := elementTypes[parts[len(parts)-1]]
	if !found {
		return shapes.Invalid(), p.errorf("unknown element type %q in %q", parts[len(parts)-1], text)
	}
	var dims []int
	for _, dimText := range parts[:len(parts)-1] {
		dim, err := strconv.Atoi(dimText)
		if err != nil || dim <= 0 {
			return shapes.Invalid(), p.errorf("bad dimension %q in tensor type %q", dimText, text)
		}
		dims = append(dims, dim)
	}
	return shapes.Make(dtype, dims...), nil
}

// parseDense handles "dense<2>", "dense<[1, 2, 3]>" and nested
// "dense<[[1, 2], [3, 4]]>" payloads, flattened row-major. A single value
// against a non-scalar shape is a splat.
func (p *parser) parseDense(text string, shape shapes.Shape) (*literals.Literal, error) {
	inner, found := strings.CutPrefix(text, "dense<")
	if !found || !strings.HasSuffix(inner, ">") {
		return nil, p.errorf("malformed constant payload %q", text)
	}
	inner = strings.NewReplacer("[", "", "]", "").Replace(strings.TrimSuffix(inner, ">"))
	values := splitOperands(inner)
	if len(values) == 1 && shape.Size() > 1 {
		values = make([]string, shape.Size())
		for ii := range values {
			values[ii] = strings.TrimSpace(inner)
		}
	}
	literal, err := literals.FromStrings(values, shape)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	return literal, nil
}
