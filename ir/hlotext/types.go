package hlotext

import (
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

var elementTypes = map[string]dtypes.DType{
	"s32": dtypes.Int32,
	"s64": dtypes.Int64,
	"f16": dtypes.Float16,
	"f32": dtypes.Float32,
	"f64": dtypes.Float64,
}

// parseType handles "s32", "s32[]" and "f32[2,3]".
func (p *parser) parseType(text string) (shapes.Shape, error) {
	elementText := text
	var dimsText string
	if open := strings.Index(text, "["); open >= 0 {
		if !strings.HasSuffix(text, "]") {
			return shapes.Invalid(), p.errorf("malformed type %q", text)
		}
		elementText = text[:open]
		dimsText = strings.TrimSpace(text[open+1 : len(text)-1])
	}
	dtype, found := elementTypes[elementText]
	if !found {
		return shapes.Invalid(), p.errorf("unknown element type %q", elementText)
	}
	if dimsText == "" {
		return shapes.Make(dtype), nil
	}
	var dims []int
	for _, dimText := range strings.Split(dimsText, ",") {
		dim, err := strconv.Atoi(strings.TrimSpace(dimText))
		if err != nil || dim <= 0 {
			return shapes.Invalid(), p.errorf("bad dimension %q in type %q", dimText, text)
		}
		dims = append(dims, dim)
	}
	return shapes.Make(dtype, dims...), nil
}

// parseLiteral handles "2", "2.5" and (possibly nested) "{1, 2, 3}" forms;
// nested braces are flattened row-major against the declared shape.
func (p *parser) parseLiteral(text string, shape shapes.Shape) (*literals.Literal, error) {
	cleaned := strings.NewReplacer("{", "", "}", "").Replace(text)
	literal, err := literals.FromStrings(splitArgs(cleaned), shape)
	if err != nil {
		return nil, p.errorf("%v", err)
	}
	return literal, nil
}
