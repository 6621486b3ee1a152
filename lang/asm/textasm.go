package asm

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nightjar-lang/nightjar/lang/machine"
)

// LoaderFor returns a machine.SourceCompiler bound to vm, suitable for
// VM.SetCompiler: it satisfies the out-of-scope compiler contract
// (source bytes, source id -> *Function) by parsing the small textual
// bytecode format Parse implements, rather than lexing/parsing a
// surface-syntax language (§6.1, §9.1, §9.4).
func LoaderFor(vm *machine.VM) machine.SourceCompiler {
	return func(path string, src []byte) (*machine.Function, error) {
		return Parse(vm, path, src)
	}
}

// Parse reads a minimal line-oriented bytecode assembly format and
// assembles it into a *Function via Builder, standing in for the
// out-of-scope compiler's surface syntax (§9.1). One function per source
// unit; nested closures, classes, and modules are built programmatically
// through Builder instead, since a text format for those would mean
// reimplementing the very AST-walking compiler §1 declares out of scope.
//
// Grammar (one directive/instruction per line; '#' starts a comment;
// blank lines ignored):
//
//	.arity <int>
//	.variadic <true|false>
//	.locals <int>
//	.line <int>              -- like the compiler's SetLine, sticky
//	<label>:                  -- defines a jump target
//	LOAD_STR <quoted string>  -- interns the string, emits LOAD_CONSTANT
//	LOAD_I64 <int>            -- emits LOAD_CONSTANT for an I64
//	LOAD_F64 <float>          -- emits LOAD_CONSTANT for an F64
//	GET_GLOBAL|DEFINE_GLOBAL|SET_GLOBAL <quoted name>
//	IMPORT_MODULE <quoted path>
//	MAKE_CLASS <quoted name>
//	GET_FIELD <quoted name> [public]
//	SET_FIELD <quoted name>
//	DEFINE_METHOD|DEFINE_FIELD <quoted name> [public]
//	DEFINE_STATIC_METHOD|DEFINE_STATIC_FIELD <quoted name>
//	CALL_METHOD <quoted name> <argc> [public]
//	<JUMP MNEMONIC> <label>   -- JUMP, JUMP_IF_FALSE, ..., TRY
//	<MNEMONIC> [int-operand]  -- any other opcode by its §4.10 name
func Parse(vm *machine.VM, sourceID string, src []byte) (*machine.Function, error) {
	p := &parser{vm: vm, b: NewBuilder("", sourceID, 0, false, 0, 1)}
	scanner := bufio.NewScanner(bytes.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", sourceID, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.b.name = baseName(sourceID)
	p.b.arity = p.arity
	p.b.variadic = p.variadic
	p.b.numLocals = p.locals
	return p.b.Finish(vm)
}

func baseName(sourceID string) string {
	if i := strings.LastIndexByte(sourceID, '/'); i >= 0 {
		sourceID = sourceID[i+1:]
	}
	return strings.TrimSuffix(sourceID, ".njasm")
}

type parser struct {
	vm       *machine.VM
	b        *Builder
	arity    int
	variadic bool
	locals   int
}

func (p *parser) parseLine(line string) error {
	if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
		p.b.Label(strings.TrimSuffix(line, ":"))
		return nil
	}

	fields, err := splitRespectingQuotes(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	mnemonic := strings.ToUpper(fields[0])
	args := fields[1:]

	switch mnemonic {
	case ".ARITY":
		p.arity, err = intArg(args, 0)
		return err
	case ".VARIADIC":
		p.variadic, err = boolArg(args, 0)
		return err
	case ".LOCALS":
		p.locals, err = intArg(args, 0)
		return err
	case ".LINE":
		n, err := intArg(args, 0)
		if err != nil {
			return err
		}
		p.b.SetLine(n)
		return nil

	case "LOAD_STR":
		s, err := strArg(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitConstant(machine.Obj(p.vm.InternString(s)))
		return nil
	case "LOAD_I64":
		n, err := int64Arg(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitConstant(machine.I64(n))
		return nil
	case "LOAD_F64":
		f, err := floatArg(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitConstant(machine.F64(f))
		return nil

	case "IMPORT_MODULE":
		s, err := strArg(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitU16(machine.OpImportModule, p.b.Constant(machine.Obj(p.vm.InternString(s))))
		return nil
	case "MAKE_CLASS":
		s, err := strArg(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitU16(machine.OpMakeClass, p.b.Constant(machine.Obj(p.vm.InternString(s))))
		return nil

	case "GET_GLOBAL", "DEFINE_GLOBAL", "SET_GLOBAL":
		s, err := strArg(args, 0)
		if err != nil {
			return err
		}
		idx := p.b.Constant(machine.Obj(p.vm.InternString(s)))
		switch mnemonic {
		case "GET_GLOBAL":
			p.b.EmitU16(machine.OpGetGlobal, idx)
		case "DEFINE_GLOBAL":
			p.b.EmitU16(machine.OpDefineGlobal, idx)
		default:
			p.b.EmitU16(machine.OpSetGlobal, idx)
		}
		return nil

	case "GET_FIELD", "SET_FIELD":
		s, err := strArg(args, 0)
		if err != nil {
			return err
		}
		idx := p.b.Constant(machine.Obj(p.vm.InternString(s)))
		if mnemonic == "SET_FIELD" {
			p.b.EmitU16(machine.OpSetField, idx)
			return nil
		}
		pub, _ := boolArg(args, 1)
		p.b.EmitU16(machine.OpGetField, idx)
		p.b.EmitU8Raw(boolByte(pub))
		return nil

	case "DEFINE_METHOD", "DEFINE_FIELD", "DEFINE_STATIC_METHOD", "DEFINE_STATIC_FIELD":
		s, err := strArg(args, 0)
		if err != nil {
			return err
		}
		idx := p.b.Constant(machine.Obj(p.vm.InternString(s)))
		pub, _ := boolArg(args, 1)
		switch mnemonic {
		case "DEFINE_METHOD":
			p.b.EmitU16(machine.OpDefineMethod, idx)
			p.b.EmitU8Raw(boolByte(pub))
		case "DEFINE_FIELD":
			p.b.EmitU16(machine.OpDefineField, idx)
			p.b.EmitU8Raw(boolByte(pub))
		case "DEFINE_STATIC_METHOD":
			p.b.EmitU16(machine.OpDefineStaticMethod, idx)
		default:
			p.b.EmitU16(machine.OpDefineStaticField, idx)
		}
		return nil

	case "CALL_METHOD":
		s, err := strArg(args, 0)
		if err != nil {
			return err
		}
		argc, err := intArg(args, 1)
		if err != nil {
			return err
		}
		pub, _ := boolArg(args, 2)
		idx := p.b.Constant(machine.Obj(p.vm.InternString(s)))
		p.b.EmitU16(machine.OpCallMethod, idx)
		p.b.EmitU8Raw(byte(argc))
		p.b.EmitU8Raw(boolByte(pub))
		return nil
	}

	return p.parseOpcodeMnemonic(mnemonic, args)
}

// jumpMnemonics names every opcode whose operand is a label rather than a
// raw integer.
var jumpMnemonics = map[string]machine.OpCode{
	"JUMP":                 machine.OpJump,
	"JUMP_IF_FALSE":        machine.OpJumpIfFalse,
	"JUMP_IF_KINDA_FALSEY": machine.OpJumpIfKindaFalsey,
	"LOOP_BACK":            machine.OpLoopBack,
	"TRY":                  machine.OpTry,
}

// plainMnemonics names every remaining opcode by its §4.10 name, keyed
// with underscores in place of the OpCode's CamelCase (e.g. OpGetLocal ->
// GET_LOCAL).
var plainMnemonics = map[string]machine.OpCode{
	"NOP": machine.OpNop, "LOAD_NULL": machine.OpLoadNull, "LOAD_TRUE": machine.OpLoadTrue,
	"LOAD_FALSE": machine.OpLoadFalse, "LOAD_I64_SMALL": machine.OpLoadI64Small,
	"POP": machine.OpPop, "POP_N": machine.OpPopN, "DUP": machine.OpDup,
	"GET_LOCAL": machine.OpGetLocal, "SET_LOCAL": machine.OpSetLocal,
	"GET_UPVALUE": machine.OpGetUpvalue, "SET_UPVALUE": machine.OpSetUpvalue,
	"ADD": machine.OpAdd, "SUB": machine.OpSub, "MUL": machine.OpMul, "DIV": machine.OpDiv,
	"FLOOR_DIV": machine.OpFloorDiv, "MOD": machine.OpMod, "POW": machine.OpPow,
	"BIT_OR": machine.OpBitOr, "BIT_AND": machine.OpBitAnd, "BIT_XOR": machine.OpBitXor,
	"SHL": machine.OpShl, "SHR": machine.OpShr,
	"EQUAL": machine.OpEqual, "LESS": machine.OpLess, "LESS_EQUAL": machine.OpLessEqual,
	"GREATER": machine.OpGreater, "GREATER_EQUAL": machine.OpGreaterEqual, "IN": machine.OpIn,
	"NEGATE": machine.OpNegate, "NOT": machine.OpNot, "BIT_NOT": machine.OpBitNot,
	"UNARY_PLUS": machine.OpUnaryPlusOp,
	"CALL":       machine.OpCall, "RETURN": machine.OpReturn,
	"MAKE_VEC": machine.OpMakeVec, "MAKE_TUP": machine.OpMakeTup,
	"MAKE_MAP": machine.OpMakeMap, "MAKE_SET": machine.OpMakeSet,
	"GET_INDEX": machine.OpGetIndex, "SET_INDEX": machine.OpSetIndex,
	"INHERIT": machine.OpInherit,
	"GET_ITER": machine.OpGetIter, "ITER_NEXT": machine.OpIterNext,
	"STRINGIFY": machine.OpStringify, "CONCAT": machine.OpConcat,
	"START_WITH": machine.OpStartWith, "END_WITH": machine.OpEndWith,
	"END_TRY": machine.OpEndTry, "PANIC": machine.OpPanic,
	"CLOSE_UPVALUE": machine.OpCloseUpvalue,
}

func (p *parser) parseOpcodeMnemonic(mnemonic string, args []string) error {
	if op, ok := jumpMnemonics[mnemonic]; ok {
		label, err := strArgRaw(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitJump(op, label)
		return nil
	}

	op, ok := plainMnemonics[mnemonic]
	if !ok {
		return fmt.Errorf("unknown instruction %q", mnemonic)
	}

	width := opOperandWidth(op)
	switch width {
	case 0:
		p.b.Emit(op)
	case 1:
		n, err := intArg(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitU8(op, n)
	case 2:
		n, err := intArg(args, 0)
		if err != nil {
			return err
		}
		p.b.EmitU16(op, n)
	default:
		return fmt.Errorf("instruction %q not supported by the text assembler", mnemonic)
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func intArg(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing integer argument")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid integer argument %q: %w", args[i], err)
	}
	return n, nil
}

func int64Arg(args []string, i int) (int64, error) {
	n, err := intArg(args, i)
	return int64(n), err
}

func floatArg(args []string, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing float argument")
	}
	f, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float argument %q: %w", args[i], err)
	}
	return f, nil
}

func boolArg(args []string, i int) (bool, error) {
	if i >= len(args) {
		return false, nil
	}
	switch strings.ToLower(args[i]) {
	case "true", "public":
		return true, nil
	case "false", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean argument %q", args[i])
}

func strArg(args []string, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing string argument")
	}
	return args[i], nil
}

func strArgRaw(args []string, i int) (string, error) {
	return strArg(args, i)
}

// splitRespectingQuotes tokenizes line on whitespace, treating a
// double-quoted span (with \" and \\ escapes) as a single field whose
// surrounding quotes are stripped.
func splitRespectingQuotes(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	escaped := false
	started := false

	flush := func() {
		if started {
			fields = append(fields, cur.String())
			cur.Reset()
			started = false
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
			started = true
		case r == '\\' && inQuotes:
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case !inQuotes && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	flush()
	return fields, nil
}

func opOperandWidth(op machine.OpCode) int {
	return machine.OpOperandBytes(op)
}
