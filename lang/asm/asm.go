// Package asm is a minimal bytecode assembler standing in for the
// external lexer/parser/compiler pipeline (out of scope for this
// module): it lets a test, or any host embedding the VM, build a
// *machine.Function by emitting opcodes and resolving jump targets
// through labels, the same label/patch/emit idiom the teacher's
// lang/compiler/asm.go textual assembler implements for its own fixed
// test programs -- minus the AST-walking and text-parsing machinery a
// real compiler front end would own.
package asm

import (
	"encoding/binary"
	"fmt"

	"github.com/nightjar-lang/nightjar/lang/machine"
)

// Builder incrementally constructs one Function's bytecode, resolving
// forward and backward jumps via named labels.
type Builder struct {
	name       string
	sourceID   string
	arity      int
	variadic   bool
	numLocals  int
	code       []byte
	constants  []machine.Value
	labels     map[string]int
	pendingFix []fixup
	lineRuns   []uint16
	firstLine  int
	curLine    int
	upvalueDescs []machine.UpvalueDesc
}

type fixup struct {
	patchAt int // offset of the 2-byte operand to patch
	label   string
	base    int // offset from which the relative jump is measured (end of operand)
}

// NewBuilder starts a new function builder. firstLine seeds
// Function.FirstLine for LineForIP.
func NewBuilder(name, sourceID string, arity int, variadic bool, numLocals int, firstLine int) *Builder {
	return &Builder{
		name:      name,
		sourceID:  sourceID,
		arity:     arity,
		variadic:  variadic,
		numLocals: numLocals,
		labels:    make(map[string]int),
		firstLine: firstLine,
		curLine:   firstLine,
	}
}

// SetUpvalueDescs records how MAKE_CLOSURE should populate each upvalue
// slot of a closure built over this function.
func (b *Builder) SetUpvalueDescs(descs []machine.UpvalueDesc) {
	b.upvalueDescs = descs
}

// SetLine marks every subsequent Emit as belonging to source line n,
// accumulating into the run-length bytes-per-line table consumed by
// Function.LineForIP.
func (b *Builder) SetLine(n int) { b.curLine = n }

// Label records the current code offset under name, to be referenced by
// a Jump/JumpIfFalse/etc. call made before or after it; every jump's
// offset is patched against the recorded labels in Finish.
func (b *Builder) Label(name string) {
	b.labels[name] = len(b.code)
}

// Constant interns value v into the function's constant pool, returning
// its index (reusing an existing slot if v is already present, via
// strict equality, matching the assembler's usual constant-folding
// behavior).
func (b *Builder) Constant(v machine.Value) int {
	for i, c := range b.constants {
		if machine.StrictEquals(c, v) {
			return i
		}
	}
	idx := len(b.constants)
	b.constants = append(b.constants, v)
	return idx
}

func (b *Builder) emitByte(by byte) {
	b.code = append(b.code, by)
	b.accountLine(1)
}

func (b *Builder) emitU16(u int) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(u))
	b.code = append(b.code, buf[:]...)
	b.accountLine(2)
}

func (b *Builder) accountLine(n int) {
	line := b.curLine - b.firstLine
	for line >= len(b.lineRuns) {
		b.lineRuns = append(b.lineRuns, 0)
	}
	b.lineRuns[line] += uint16(n)
}

// Emit appends op with no operand.
func (b *Builder) Emit(op machine.OpCode) {
	b.emitByte(byte(op))
}

// EmitU8 appends op followed by a one-byte operand.
func (b *Builder) EmitU8(op machine.OpCode, operand int) {
	b.emitByte(byte(op))
	b.code = append(b.code, byte(operand))
	b.accountLine(1)
}

// EmitU8Raw appends a single raw operand byte with no opcode of its own,
// for instructions like CALL_METHOD whose trailing flag byte follows a
// u16 operand already emitted by EmitU16.
func (b *Builder) EmitU8Raw(by byte) {
	b.code = append(b.code, by)
	b.accountLine(1)
}

// EmitU16 appends op followed by a big-endian two-byte operand.
func (b *Builder) EmitU16(op machine.OpCode, operand int) {
	b.emitByte(byte(op))
	b.emitU16(operand)
}

// EmitConstant appends OpLoadConstant for value v, interning it first.
func (b *Builder) EmitConstant(v machine.Value) {
	b.EmitU16(machine.OpLoadConstant, b.Constant(v))
}

// EmitJump appends a jump opcode with a placeholder operand, to be fixed
// up once label is defined (before or after this call).
func (b *Builder) EmitJump(op machine.OpCode, label string) {
	b.emitByte(byte(op))
	patchAt := len(b.code)
	b.emitU16(0) // placeholder
	b.pendingFix = append(b.pendingFix, fixup{patchAt: patchAt, label: label, base: patchAt + 2})
}

// Finish resolves every pending jump fixup against the final label
// positions and returns the assembled *machine.Function, registered with
// vm so the GC and CALL opcode can treat it like any other heap object.
// It is an error to reference a label that was never defined via Label.
func (b *Builder) Finish(vm *machine.VM) (*machine.Function, error) {
	for _, fx := range b.pendingFix {
		target, ok := b.labels[fx.label]
		if !ok {
			return nil, fmt.Errorf("asm: undefined label %q", fx.label)
		}
		rel := target - fx.base
		if rel < -32768 || rel > 32767 {
			return nil, fmt.Errorf("asm: jump to label %q out of 16-bit range (%d)", fx.label, rel)
		}
		binary.BigEndian.PutUint16(b.code[fx.patchAt:fx.patchAt+2], uint16(int16(rel)))
	}

	fn := &machine.Function{
		Name:         b.name,
		SourceID:     b.sourceID,
		Code:         b.code,
		Constants:    b.constants,
		Arity:        b.arity,
		IsVariadic:   b.variadic,
		NumLocals:    b.numLocals,
		FirstLine:    b.firstLine,
		BytesPerLine: b.lineRuns,
		UpvalueDescs: b.upvalueDescs,
		UpvalueCount: len(b.upvalueDescs),
	}
	return machine.NewAssembledFunction(vm, fn), nil
}
