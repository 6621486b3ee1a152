package machine

// OpCode is the bytecode instruction set emitted by an external compiler
// (or by lang/asm for tests) and consumed by the interpreter loop in
// interp.go (§4.10). Operand widths are fixed per opcode rather than
// variable-length, matching the source's one-byte-opcode-plus-fixed-
// operands encoding; a 16-bit operand is stored big-endian.
type OpCode byte

const (
	OpNop OpCode = iota

	// Stack and constants.
	OpLoadConstant   // u16 index into the current function's Constants
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpLoadI64Small   // i8 immediate, sign-extended
	OpPop
	OpPopN           // u8 count
	OpDup

	// Locals and globals.
	OpGetLocal  // u16 stack-relative slot
	OpSetLocal  // u16
	OpGetUpvalue // u8 index into the closure's Upvalues
	OpSetUpvalue // u8
	OpGetGlobal  // u16 constant index naming the global
	OpDefineGlobal
	OpSetGlobal

	// Arithmetic / comparison / logic -- each pops two values, applies the
	// Binary dispatch table of §4.7, and pushes one result.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpBitOr
	OpBitAnd
	OpBitXor
	OpShl
	OpShr
	OpEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpIn

	// Unary.
	OpNegate
	OpNot
	OpBitNot
	OpUnaryPlusOp

	// Control flow.
	OpJump           // i16 relative
	OpJumpIfFalse    // i16 relative, pops (Truthy-based)
	OpJumpIfKindaFalsey // i16 relative, peeks (IsKindaFalsey-based, no pop)
	OpLoopBack       // i16 relative backward jump

	// Calls.
	OpCall     // u8 arg count
	OpCallMethod // u16 name const index, u8 arg count, u8 public-flag
	OpReturn
	OpMakeClosure // u16 function const index, followed by UpvalueDesc operand pairs read from the Function itself

	// Containers.
	OpMakeVec    // u16 element count
	OpMakeTup    // u16 element count
	OpMakeMap    // u16 pair count
	OpMakeSet    // u16 element count
	OpGetIndex
	OpSetIndex
	OpGetField  // u16 name const index, u8 public-flag
	OpSetField  // u16 name const index

	// Classes.
	OpMakeClass    // u16 name const index
	OpInherit
	OpDefineMethod // u16 name const index, u8 public-flag
	OpDefineField  // u16 name const index, u8 public-flag
	OpDefineStaticMethod
	OpDefineStaticField

	// Iterators.
	OpGetIter // pops an iterable, pushes its Iter (calling $iter if needed)
	OpIterNext // peeks the Iter on top, pushes the next value (or the ERROR sentinel)

	// Strings.
	OpStringify
	OpConcat // string interpolation fast path: pop two, push their concatenation after stringifying both

	// Modules and imports.
	OpImportModule // u16 path const index

	// With-blocks (§4.10, §5).
	OpStartWith
	OpEndWith

	// Try/panic (§4.10, §7, §4.12).
	OpTry    // i16 relative offset to the catch target
	OpEndTry
	OpPanic  // pops a message Str and raises it as a panic

	// OpCloseUpvalue closes any open upvalue pointing at the current stack
	// top, then pops it -- emitted at the end of a block scope whose locals
	// were captured by a nested closure (§4.10). RETURN and an implicit
	// fall-off-end return close every upvalue at or above the frame's base
	// directly, without needing one of these per local.
	OpCloseUpvalue
)

// opOperandBytes gives the fixed operand width, in bytes, following each
// opcode byte, used by lang/asm's text parser to pick each plain
// mnemonic's operand encoding, and by any bytecode disassembler.
var opOperandBytes = map[OpCode]int{
	OpLoadConstant:       2,
	OpLoadI64Small:       1,
	OpPopN:                1,
	OpGetLocal:            2,
	OpSetLocal:            2,
	OpGetUpvalue:          1,
	OpSetUpvalue:          1,
	OpGetGlobal:           2,
	OpDefineGlobal:        2,
	OpSetGlobal:           2,
	OpJump:                2,
	OpJumpIfFalse:         2,
	OpJumpIfKindaFalsey:   2,
	OpLoopBack:            2,
	OpCall:                1,
	OpCallMethod:          4,
	OpMakeClosure:         2,
	OpMakeVec:             2,
	OpMakeTup:             2,
	OpMakeMap:             2,
	OpMakeSet:             2,
	OpGetField:            3,
	OpSetField:            2,
	OpMakeClass:           2,
	OpDefineMethod:        3,
	OpDefineField:         3,
	OpDefineStaticMethod:  2,
	OpDefineStaticField:   2,
	OpImportModule:        2,
	OpTry:                 2,
}

// OpOperandBytes reports the fixed operand width, in bytes, that follows
// op's opcode byte -- the exported form of opOperandBytes for assemblers
// and disassemblers living outside this package.
func OpOperandBytes(op OpCode) int {
	return opOperandBytes[op]
}
