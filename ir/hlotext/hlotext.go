// Package hlotext parses the textual graph-IR dialect into the internal
// compilation IR.
//
// The accepted form is a module header followed by an ENTRY computation
// block:
//
//	HloModule Computation
//
//	ENTRY Computation(x: f32[3]) -> f32[3] {
//	  offset = f32[3] constant({10, 20, 30})
//	  ROOT result = f32[3] add(x, offset)
//	}
//
// Element types are spelled s32, s64, f16, f32 and f64; "s32[]" and "s32"
// both denote a scalar, "f32[2,3]" a rank-2 array. Instruction names may
// carry a leading '%'. Exactly one instruction must be marked ROOT; it is
// the computation's output.
package hlotext

import (
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/streamexec/streamexec/ir"
	"github.com/streamexec/streamexec/types/shapes"
)

// Module is a parsed textual graph-IR module. It implements ir.Source.
type Module struct {
	program *ir.Program
}

// LowerToProgram implements ir.Source.
func (m *Module) LowerToProgram() (*ir.Program, error) {
	return m.program, nil
}

// Parse a textual graph-IR module.
func Parse(source string) (*Module, error) {
	p := &parser{}
	var program *ir.Program
	// The ir builder panics on malformed graphs (e.g. operand shape
	// mismatches); surface those as parse errors.
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
	return errors.Errorf("hlotext: line %d: "+format, append([]any{p.line}, args...)...)
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
	moduleName, found := strings.CutPrefix(header, "HloModule ")
	if !found {
		return nil, p.errorf("module must start with %q, got %q", "HloModule <name>", header)
	}
	moduleName = strings.TrimSpace(strings.TrimSuffix(moduleName, ","))

	entryLine, ok := nextLine()
	if !ok {
		return nil, p.errorf("missing ENTRY computation")
	}
	entry, found := strings.CutPrefix(entryLine, "ENTRY ")
	if !found {
		return nil, p.errorf("expected %q, got %q", "ENTRY <name>(<params>) -> <type> {", entryLine)
	}
	if !strings.HasSuffix(entry, "{") {
		return nil, p.errorf("ENTRY line must end with '{'")
	}
	entry = strings.TrimSpace(strings.TrimSuffix(entry, "{"))
	signature, _, found := strings.Cut(entry, "->")
	if !found {
		return nil, p.errorf("ENTRY signature needs a '-> <type>' result")
	}
	signature = strings.TrimSpace(signature)
	open := strings.Index(signature, "(")
	if open < 0 || !strings.HasSuffix(signature, ")") {
		return nil, p.errorf("malformed ENTRY parameter list in %q", signature)
	}
	computation := ir.NewComputation(strings.TrimSpace(signature[:open]))
	instructions := make(map[string]*ir.Instruction)

	params := strings.TrimSpace(signature[open+1 : len(signature)-1])
	if params != "" {
		for _, param := range strings.Split(params, ",") {
			name, typeText, found := strings.Cut(param, ":")
			if !found {
				return nil, p.errorf("parameter %q needs a ': <type>'", strings.TrimSpace(param))
			}
			shape, err := p.parseType(strings.TrimSpace(typeText))
			if err != nil {
				return nil, err
			}
			name = canonicalName(name)
			instructions[name] = computation.Parameter(name, shape)
		}
	}

	var root *ir.Instruction
	for {
		line, ok := nextLine()
		if !ok {
			return nil, p.errorf("missing closing '}'")
		}
		if line == "}" {
			break
		}
		isRoot := false
		if rest, found := strings.CutPrefix(line, "ROOT "); found {
			isRoot = true
			line = rest
		}
		name, rhs, found := strings.Cut(line, "=")
		if !found {
			return nil, p.errorf("expected '<name> = <type> <op>(...)', got %q", line)
		}
		inst, err := p.parseInstruction(computation, instructions, strings.TrimSpace(rhs))
		if err != nil {
			return nil, err
		}
		instructions[canonicalName(name)] = inst
		if isRoot {
			if root != nil {
				return nil, p.errorf("multiple ROOT instructions")
			}
			root = inst
		}
	}
	if root == nil {
		return nil, p.errorf("computation %q has no ROOT instruction", computation.Name)
	}
	computation.Return(root)
	return ir.NewProgram(moduleName, computation), nil
}

// parseInstruction handles the right-hand side "<type> <op>(<args>)".
func (p *parser) parseInstruction(computation *ir.Computation, instructions map[string]*ir.Instruction, rhs string) (*ir.Instruction, error) {
	typeText, opText, found := strings.Cut(rhs, " ")
	if !found {
		return nil, p.errorf("expected '<type> <op>(...)', got %q", rhs)
	}
	shape, err := p.parseType(typeText)
	if err != nil {
		return nil, err
	}
	opText = strings.TrimSpace(opText)
	open := strings.Index(opText, "(")
	if open < 0 || !strings.HasSuffix(opText, ")") {
		return nil, p.errorf("malformed operation %q", opText)
	}
	opName := strings.TrimSpace(opText[:open])
	argsText := strings.TrimSpace(opText[open+1 : len(opText)-1])

	operands := func(want int) ([]*ir.Instruction, error) {
		args := splitArgs(argsText)
		if len(args) != want {
			return nil, p.errorf("%s takes %d operand(s), got %d", opName, want, len(args))
		}
		result := make([]*ir.Instruction, want)
		for ii, arg := range args {
			operand, found := instructions[canonicalName(arg)]
			if !found {
				return nil, p.errorf("%s refers to undefined value %q", opName, arg)
			}
			result[ii] = operand
		}
		return result, nil
	}

	switch opName {
	case "constant":
		literal, err := p.parseLiteral(argsText, shape)
		if err != nil {
			return nil, err
		}
		return computation.Constant(literal), nil
	case "parameter":
		// Parameters are declared in the signature; a parameter(i) line is
		// an alias for the i-th of them.
		index, err := strconv.Atoi(argsText)
		if err != nil || index < 0 || index >= len(computation.Parameters) {
			return nil, p.errorf("parameter(%s) is out of range", argsText)
		}
		return p.checkShape(shape, computation.Parameters[index])
	case "add", "subtract", "multiply":
		args, err := operands(2)
		if err != nil {
			return nil, err
		}
		return p.checkShape(shape, binary(computation, opName, args[0], args[1]))
	case "negate":
		args, err := operands(1)
		if err != nil {
			return nil, err
		}
		return p.checkShape(shape, computation.Negate(args[0]))
	}
	return nil, p.errorf("unknown operation %q", opName)
}

func binary(computation *ir.Computation, opName string, lhs, rhs *ir.Instruction) *ir.Instruction {
	switch opName {
	case "add":
		return computation.Add(lhs, rhs)
	case "subtract":
		return computation.Subtract(lhs, rhs)
	default:
		return computation.Multiply(lhs, rhs)
	}
}

func (p *parser) checkShape(declared shapes.Shape, inst *ir.Instruction) (*ir.Instruction, error) {
	if !declared.Equal(inst.Shape) {
		return nil, p.errorf("instruction declares shape %s but produces %s", declared, inst.Shape)
	}
	return inst, nil
}

// canonicalName strips the optional leading '%'.
func canonicalName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "%")
}

func splitArgs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	for ii := range parts {
		parts[ii] = strings.TrimSpace(parts[ii])
	}
	return parts
}
