// Package mhlo parses the structured dialect into the internal compilation
// IR. The accepted form is a module wrapping a single entry function:
//
//	module {
//	  func.func @main(%arg0: tensor<3xf32>) -> tensor<3xf32> {
//	    %0 = mhlo.constant dense<[10.0, 20.0, 30.0]> : tensor<3xf32>
//	    %1 = mhlo.add %arg0, %0 : tensor<3xf32>
//	    return %1 : tensor<3xf32>
//	  }
//	}
//
// Tensor types are spelled tensor<i32> (scalar) or tensor<2x3xf32>; element
// types are i32, i64, f16, f32 and f64. The supported operations are
// mhlo.constant, mhlo.add, mhlo.subtract, mhlo.multiply and mhlo.negate. The
// final return may carry multiple values.
package mhlo

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/streamexec/streamexec/ir"
)

// Module is a parsed structured-dialect module. It implements ir.Source.
type Module struct {
	program *ir.Program
}

// LowerToProgram implements ir.Source.
func (m *Module) LowerToProgram() (*ir.Program, error) {
	return m.program, nil
}

// Parse a structured-dialect module.
func Parse(source string) (*Module, error) {
	p := &parser{}
	var program *ir.Program
	// The ir builder panics on malformed graphs; surface those as parse
	// errors.
	err := exceptions.TryCatch[error](func() {
		var parseErr error
		program, parseErr = p.parse(source)
		if parseErr != nil {
			panic(parseErr)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := program.Validate(); err != nil {
		return nil, err
	}
	return &Module{program: program}, nil
}

type parser struct {
	line int
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Errorf("mhlo: line %d: "+format, append([]any{p.line}, args...)...)
}

func (p *parser) parse(source string) (*ir.Program, error) {
	lines := strings.Split(source, "\n")
	next := 0
	nextLine := func() (string, bool) {
		for next < len(lines) {
			p.line = next + 1
			line := strings.TrimSpace(lines[next])
			next++
			if line != "" && !strings.HasPrefix(line, "//") {
				return line, true
			}
		}
		return "", false
	}

	header, ok := nextLine()
	if !ok {
		return nil, p.errorf("empty module")
	}
	moduleName, err := p.parseModuleHeader(header)
	if err != nil {
		return nil, err
	}

	funcLine, ok := nextLine()
	if !ok {
		return nil, p.errorf("missing func.func")
	}
	computation, values, err := p.parseFuncHeader(funcLine)
	if err != nil {
		return nil, err
	}

	var roots []*ir.Instruction
	for {
		line, ok := nextLine()
		if !ok {
			return nil, p.errorf("missing closing '}' for func.func")
		}
		if line == "}" {
			break
		}
		if rest, found := strings.CutPrefix(line, "return"); found {
			if roots != nil {
				return nil, p.errorf("multiple return statements")
			}
			roots, err = p.parseReturn(values, strings.TrimSpace(rest))
			if err != nil {
				return nil, err
			}
			continue
		}
		if roots != nil {
			return nil, p.errorf("operations after return")
		}
		if err := p.parseOperation(computation, values, line); err != nil {
			return nil, err
		}
	}
	if roots == nil {
		return nil, p.errorf("func.func %q has no return", computation.Name)
	}

	closing, ok := nextLine()
	if !ok || closing != "}" {
		return nil, p.errorf("missing closing '}' for module")
	}
	computation.Return(roots...)
	return ir.NewProgram(moduleName, computation), nil
}

// parseModuleHeader handles "module {" and "module @name {".
func (p *parser) parseModuleHeader(line string) (string, error) {
	rest, found := strings.CutPrefix(line, "module")
	if !found || !strings.HasSuffix(rest, "{") {
		return "", p.errorf("module must start with %q, got %q", "module {", line)
	}
	name := strings.TrimSpace(strings.TrimSuffix(rest, "{"))
	if name == "" {
		return "module", nil
	}
	if !strings.HasPrefix(name, "@") {
		return "", p.errorf("malformed module name %q", name)
	}
	return name[1:], nil
}

// parseFuncHeader handles "func.func @main(%arg0: tensor<3xf32>) -> tensor<3xf32> {".
func (p *parser) parseFuncHeader(line string) (*ir.Computation, map[string]*ir.Instruction, error) {
	rest, found := strings.CutPrefix(line, "func.func @")
	if !found {
		return nil, nil, p.errorf("expected %q, got %q", "func.func @<name>(...) -> <type> {", line)
	}
	if !strings.HasSuffix(rest, "{") {
		return nil, nil, p.errorf("func.func line must end with '{'")
	}
	rest = strings.TrimSpace(strings.TrimSuffix(rest, "{"))
	signature, _, found := strings.Cut(rest, "->")
	if !found {
		return nil, nil, p.errorf("func.func signature needs a '-> <type>' result")
	}
	signature = strings.TrimSpace(signature)
	open := strings.Index(signature, "(")
	if open < 0 || !strings.HasSuffix(signature, ")") {
		return nil, nil, p.errorf("malformed func.func argument list in %q", signature)
	}
	computation := ir.NewComputation(strings.TrimSpace(signature[:open]))
	values := make(map[string]*ir.Instruction)

	args := strings.TrimSpace(signature[open+1 : len(signature)-1])
	if args != "" {
		for _, arg := range splitOperands(args) {
			name, typeText, found := strings.Cut(arg, ":")
			if !found {
				return nil, nil, p.errorf("argument %q needs a ': tensor<...>' type", arg)
			}
			name = strings.TrimSpace(name)
			if !strings.HasPrefix(name, "%") {
				return nil, nil, p.errorf("argument name %q must start with '%%'", name)
			}
			shape, err := p.parseTensorType(strings.TrimSpace(typeText))
			if err != nil {
				return nil, nil, err
			}
			values[name] = computation.Parameter(name[1:], shape)
		}
	}
	return computation, values, nil
}

// parseOperation handles "%N = mhlo.<op> ..." lines.
func (p *parser) parseOperation(computation *ir.Computation, values map[string]*ir.Instruction, line string) error {
	name, rhs, found := strings.Cut(line, "=")
	if !found {
		return p.errorf("expected '%%<name> = mhlo.<op> ...', got %q", line)
	}
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "%") {
		return p.errorf("result name %q must start with '%%'", name)
	}
	rhs = strings.TrimSpace(rhs)
	opName, rest, found := strings.Cut(rhs, " ")
	if !found {
		return p.errorf("operation %q needs operands and a ': tensor<...>' type", rhs)
	}
	body, typeText, found := cutLastColon(rest)
	if !found {
		return p.errorf("operation %q needs a trailing ': tensor<...>' type", rhs)
	}
	shape, err := p.parseTensorType(typeText)
	if err != nil {
		return err
	}

	operands := func(want int) ([]*ir.Instruction, error) {
		args := splitOperands(body)
		if len(args) != want {
			return nil, p.errorf("%s takes %d operand(s), got %d", opName, want, len(args))
		}
		result := make([]*ir.Instruction, want)
		for ii, arg := range args {
			operand, found := values[arg]
			if !found {
				return nil, p.errorf("%s refers to undefined value %q", opName, arg)
			}
			result[ii] = operand
		}
		return result, nil
	}

	var inst *ir.Instruction
	switch opName {
	case "mhlo.constant":
		literal, err := p.parseDense(body, shape)
		if err != nil {
			return err
		}
		inst = computation.Constant(literal)
	case "mhlo.add", "mhlo.subtract", "mhlo.multiply":
		args, err := operands(2)
		if err != nil {
			return err
		}
		switch opName {
		case "mhlo.add":
			inst = computation.Add(args[0], args[1])
		case "mhlo.subtract":
			inst = computation.Subtract(args[0], args[1])
		default:
			inst = computation.Multiply(args[0], args[1])
		}
	case "mhlo.negate":
		args, err := operands(1)
		if err != nil {
			return err
		}
		inst = computation.Negate(args[0])
	default:
		return p.errorf("unknown operation %q", opName)
	}
	if !shape.Equal(inst.Shape) {
		return p.errorf("operation declares type %s but produces %s", typeText, inst.Shape)
	}
	values[name] = inst
	return nil
}

// parseReturn handles "%0 : tensor<i32>" and "%0, %1 : tensor<i32>, tensor<f32>".
func (p *parser) parseReturn(values map[string]*ir.Instruction, rest string) ([]*ir.Instruction, error) {
	body, typesText, found := cutLastColon(rest)
	if !found {
		return nil, p.errorf("return needs a ': tensor<...>' type list")
	}
	names := splitOperands(body)
	types := splitOperands(typesText)
	if len(names) == 0 {
		return nil, p.errorf("return without values")
	}
	if len(names) != len(types) {
		return nil, p.errorf("return has %d value(s) but %d type(s)", len(names), len(types))
	}
	roots := make([]*ir.Instruction, len(names))
	for ii, name := range names {
		inst, found := values[name]
		if !found {
			return nil, p.errorf("return refers to undefined value %q", name)
		}
		shape, err := p.parseTensorType(types[ii])
		if err != nil {
			return nil, err
		}
		if !shape.Equal(inst.Shape) {
			return nil, p.errorf("return declares type %s for %s but it has shape %s", types[ii], name, inst.Shape)
		}
		roots[ii] = inst
	}
	return roots, nil
}

// cutLastColon splits "dense<[1, 2]> : tensor<2xi32>" at the last top-level
// ':' so literal payloads containing ':' never confuse the type annotation.
func cutLastColon(text string) (before, after string, found bool) {
	idx := strings.LastIndex(text, ":")
	if idx < 0 {
		return text, "", false
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+1:]), true
}

// splitOperands splits on top-level commas, ignoring commas nested inside
// '<...>', '[...]' or '(...)'.
func splitOperands(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var parts []string
	depth := 0
	start := 0
	for ii, r := range text {
		switch r {
		case '<', '[', '(':
			depth++
		case '>', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(text[start:ii]))
				start = ii + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(text[start:]))
	return parts
}
