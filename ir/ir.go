// Package ir defines the internal compilation IR of StreamExec: the program
// representation every surface syntax lowers to before reaching the Compiler.
//
// A Program is immutable once built, and its identity is structural: two
// programs with the same canonical rendering (see Program.Fingerprint) are
// the same program, regardless of which front end produced them. Programs are
// built through the Computation builder methods, which panic (with a stack
// trace, see github.com/gomlx/exceptions) on malformed graphs; Validate
// re-checks the same invariants returning an error, for programs assembled
// manually.
package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/streamexec/streamexec/types/literals"
	"github.com/streamexec/streamexec/types/shapes"
)

// Source is any program representation that can be lowered to the internal
// compilation IR. It is the single capability the Compiler is polymorphic
// over: both surface dialects (ir/hlotext and ir/mhlo) and *Program itself
// implement it.
type Source interface {
	LowerToProgram() (*Program, error)
}

// Program is a computation graph ready for compilation.
type Program struct {
	ModuleName string
	Entry      *Computation
}

// Computation is a named body of instructions with parameters and roots
// (outputs).
type Computation struct {
	Name         string
	Parameters   []*Instruction
	Instructions []*Instruction
	Roots        []*Instruction
}

// Instruction is one node of the graph. Operands always precede their users
// in Computation.Instructions.
type Instruction struct {
	Name     string
	Op       OpType
	Shape    shapes.Shape
	Operands []*Instruction

	// ParamIndex is the ordinal of a parameter instruction.
	ParamIndex int

	// Literal holds the value of a constant instruction.
	Literal *literals.Literal
}

// NewComputation creates an empty computation to be filled with the builder
// methods below.
func NewComputation(name string) *Computation {
	return &Computation{Name: name}
}

func (c *Computation) addInstruction(inst *Instruction) *Instruction {
	if inst.Name == "" {
		inst.Name = fmt.Sprintf("v%d", len(c.Instructions))
	}
	c.Instructions = append(c.Instructions, inst)
	return inst
}

// Parameter appends a named input of the given shape.
func (c *Computation) Parameter(name string, shape shapes.Shape) *Instruction {
	if !shape.Ok() {
		exceptions.Panicf("ir: Parameter(%q) with invalid shape", name)
	}
	inst := &Instruction{Name: name, Op: OpParameter, Shape: shape, ParamIndex: len(c.Parameters)}
	c.Parameters = append(c.Parameters, inst)
	return c.addInstruction(inst)
}

// Constant appends a constant instruction holding the given literal.
func (c *Computation) Constant(literal *literals.Literal) *Instruction {
	if literal == nil {
		exceptions.Panicf("ir: Constant with nil literal in computation %q", c.Name)
	}
	return c.addInstruction(&Instruction{Op: OpConstant, Shape: literal.Shape(), Literal: literal})
}

// Add appends an elementwise addition.
func (c *Computation) Add(lhs, rhs *Instruction) *Instruction {
	return c.binaryOp(OpAdd, lhs, rhs)
}

// Subtract appends an elementwise subtraction.
func (c *Computation) Subtract(lhs, rhs *Instruction) *Instruction {
	return c.binaryOp(OpSubtract, lhs, rhs)
}

// Multiply appends an elementwise multiplication.
func (c *Computation) Multiply(lhs, rhs *Instruction) *Instruction {
	return c.binaryOp(OpMultiply, lhs, rhs)
}

// Negate appends an elementwise negation.
func (c *Computation) Negate(operand *Instruction) *Instruction {
	if operand == nil {
		exceptions.Panicf("ir: negate with nil operand in computation %q", c.Name)
	}
	return c.addInstruction(&Instruction{Op: OpNegate, Shape: operand.Shape, Operands: []*Instruction{operand}})
}

func (c *Computation) binaryOp(op OpType, lhs, rhs *Instruction) *Instruction {
	if lhs == nil || rhs == nil {
		exceptions.Panicf("ir: %s with nil operand in computation %q", op, c.Name)
	}
	if !lhs.Shape.Equal(rhs.Shape) {
		exceptions.Panicf("ir: %s operands have different shapes %s and %s in computation %q",
			op, lhs.Shape, rhs.Shape, c.Name)
	}
	return c.addInstruction(&Instruction{Op: op, Shape: lhs.Shape, Operands: []*Instruction{lhs, rhs}})
}

// Return marks the computation's outputs, in order.
func (c *Computation) Return(roots ...*Instruction) {
	if len(roots) == 0 {
		exceptions.Panicf("ir: Return without outputs in computation %q", c.Name)
	}
	c.Roots = roots
}

// NewProgram wraps an entry computation into a Program.
func NewProgram(moduleName string, entry *Computation) *Program {
	return &Program{ModuleName: moduleName, Entry: entry}
}

// LowerToProgram implements Source: a Program lowers to itself after
// validation.
func (p *Program) LowerToProgram() (*Program, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the structural invariants of the program.
func (p *Program) Validate() error {
	if p == nil || p.Entry == nil {
		return errors.New("ir: program has no entry computation")
	}
	c := p.Entry
	if len(c.Roots) == 0 {
		return errors.Errorf("ir: computation %q has no outputs", c.Name)
	}
	seen := make(map[*Instruction]bool, len(c.Instructions))
	for ii, inst := range c.Instructions {
		if want := inst.Op.NumOperands(); want < 0 || want != len(inst.Operands) {
			return errors.Errorf("ir: computation %q, instruction #%d (%s) has %d operands, wants %d",
				c.Name, ii, inst.Op, len(inst.Operands), want)
		}
		for _, operand := range inst.Operands {
			if !seen[operand] {
				return errors.Errorf("ir: computation %q, instruction #%d (%s) uses an operand defined later or elsewhere",
					c.Name, ii, inst.Op)
			}
		}
		if !inst.Shape.Ok() {
			return errors.Errorf("ir: computation %q, instruction #%d (%s) has an invalid shape", c.Name, ii, inst.Op)
		}
		if inst.Op == OpConstant {
			if inst.Literal == nil {
				return errors.Errorf("ir: computation %q, constant #%d has no literal", c.Name, ii)
			}
			if !inst.Literal.Shape().Equal(inst.Shape) {
				return errors.Errorf("ir: computation %q, constant #%d shape %s disagrees with its literal %s",
					c.Name, ii, inst.Shape, inst.Literal.Shape())
			}
		}
		seen[inst] = true
	}
	for ii, param := range c.Parameters {
		if param.Op != OpParameter || param.ParamIndex != ii {
			return errors.Errorf("ir: computation %q, parameter #%d is out of order", c.Name, ii)
		}
	}
	for ii, root := range c.Roots {
		if !seen[root] {
			return errors.Errorf("ir: computation %q, output #%d is not an instruction of this computation", c.Name, ii)
		}
	}
	return nil
}

// InputShapes returns the shapes of the entry parameters, in order.
func (p *Program) InputShapes() []shapes.Shape {
	result := make([]shapes.Shape, len(p.Entry.Parameters))
	for ii, param := range p.Entry.Parameters {
		result[ii] = param.Shape
	}
	return result
}

// OutputShapes returns the shapes of the entry outputs, in order. Its length
// is the program's output arity.
func (p *Program) OutputShapes() []shapes.Shape {
	result := make([]shapes.Shape, len(p.Entry.Roots))
	for ii, root := range p.Entry.Roots {
		result[ii] = root.Shape
	}
	return result
}

// String renders the program for display, including module, entry and
// parameter names.
func (p *Program) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", p.ModuleName)
	fmt.Fprintf(&sb, "entry %s(", p.Entry.Name)
	for ii, param := range p.Entry.Parameters {
		if ii > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", param.Name, param.Shape)
	}
	sb.WriteString(") ")
	p.writeBody(&sb)
	return sb.String()
}

// canonical renders the encoded instructions only: no module, entry or
// parameter names. It is the program's structural identity.
func (p *Program) canonical() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for ii, param := range p.Entry.Parameters {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(param.Shape.String())
	}
	sb.WriteString(") ")
	p.writeBody(&sb)
	return sb.String()
}

func (p *Program) writeBody(sb *strings.Builder) {
	c := p.Entry
	names := make(map[*Instruction]string, len(c.Instructions))
	sb.WriteString("{\n")
	for ii, inst := range c.Instructions {
		// Canonical names depend on position only, not on surface names.
		name := fmt.Sprintf("%%%d", ii)
		names[inst] = name
		fmt.Fprintf(sb, "  %s = %s %s", name, inst.Shape, inst.Op)
		switch inst.Op {
		case OpParameter:
			fmt.Fprintf(sb, "(%d)", inst.ParamIndex)
		case OpConstant:
			fmt.Fprintf(sb, "(%s)", inst.Literal)
		default:
			sb.WriteByte('(')
			for jj, operand := range inst.Operands {
				if jj > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(names[operand])
			}
			sb.WriteByte(')')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  return ")
	for ii, root := range c.Roots {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(names[root])
	}
	sb.WriteString("\n}\n")
}

// Fingerprint returns the structural identity of the program: the hex-encoded
// SHA-256 of its canonical (name-free) rendering. Two equivalent surface
// encodings of the same computation share a fingerprint.
func (p *Program) Fingerprint() string {
	digest := sha256.Sum256([]byte(p.canonical()))
	return hex.EncodeToString(digest[:])
}
