// Package machine implements the bytecode virtual machine at the heart of
// Nightjar: instruction dispatch, the object model, the garbage collector,
// the hash-map engine, operator dispatch, the iterator protocol, call
// mechanics and the module loader. It does not implement the lexer, parser
// or compiler; those are external collaborators that must produce a
// *Function satisfying the contract that lang/asm's Builder and Parse
// also meet.
package machine

import (
	"fmt"
	"math"
)

// Value is the tagged sum manipulated by the virtual machine. It is always
// passed and stored by value, never by pointer: the only shared mutable
// state lives behind Obj.
type Value struct {
	tag  valueTag
	b    bool
	i    int64
	f    float64
	ch   rune
	obj  Object
}

type valueTag uint8

const (
	tagNull valueTag = iota
	tagTombstone
	tagBool
	tagI64
	tagF64
	tagChar
	tagObj
)

// Null is the language's null value.
var Null = Value{tag: tagNull}

// tombstoneValue is the internal map sentinel. It is never visible to user
// code; it only ever appears as a map entry's key to mark a deleted slot.
var tombstoneValue = Value{tag: tagTombstone}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{tag: tagBool, b: b} }

// I64 constructs a 64-bit signed integer Value.
func I64(i int64) Value { return Value{tag: tagI64, i: i} }

// F64 constructs an IEEE-754 double Value.
func F64(f float64) Value { return Value{tag: tagF64, f: f} }

// Char constructs a Unicode scalar value.
func Char(r rune) Value { return Value{tag: tagChar, ch: r} }

// Obj wraps a heap Object as a Value.
func Obj(o Object) Value {
	if o == nil {
		return Null
	}
	return Value{tag: tagObj, obj: o}
}

func (v Value) IsNull() bool      { return v.tag == tagNull }
func (v Value) IsTombstone() bool { return v.tag == tagTombstone }
func (v Value) IsBool() bool      { return v.tag == tagBool }
func (v Value) IsI64() bool       { return v.tag == tagI64 }
func (v Value) IsF64() bool       { return v.tag == tagF64 }
func (v Value) IsChar() bool      { return v.tag == tagChar }
func (v Value) IsObj() bool       { return v.tag == tagObj }
func (v Value) IsNumeric() bool   { return v.tag == tagI64 || v.tag == tagF64 || v.tag == tagChar }

func (v Value) AsBool() bool    { return v.b }
func (v Value) AsI64() int64    { return v.i }
func (v Value) AsF64() float64  { return v.f }
func (v Value) AsChar() rune    { return v.ch }
func (v Value) AsObj() Object   { return v.obj }

// AsNumericF64 returns the numeric value of an I64/F64/Char as a float64.
// Callers that must avoid the precision loss described in §4.7 of the
// specification should not use this for I64-vs-F64 comparisons; see
// compareNumeric in operators.go.
func (v Value) AsNumericF64() float64 {
	switch v.tag {
	case tagI64:
		return float64(v.i)
	case tagF64:
		return v.f
	case tagChar:
		return float64(v.ch)
	}
	return math.NaN()
}

// ObjType returns the heap object type tag, or 0 if v is not an Obj.
func (v Value) ObjType() ObjectType {
	if v.tag != tagObj || v.obj == nil {
		return 0
	}
	return v.obj.objectType()
}

// Truthy implements the language's notion of a value's boolean force: only
// Bool(false) and Null are falsey; every other value, including zero
// numbers and empty strings, is truthy. (Kinda-falsey, used by one
// conditional jump opcode, is a distinct, wider notion -- see IsKindaFalsey.)
func (v Value) Truthy() bool {
	switch v.tag {
	case tagNull:
		return false
	case tagBool:
		return v.b
	default:
		return true
	}
}

// IsKindaFalsey implements the "kinda-falsey" set used by
// JUMP_IF_KINDA_FALSEY: {false, null, err, 0, 0.0, ''}.
func (v Value) IsKindaFalsey() bool {
	switch v.tag {
	case tagNull:
		return true
	case tagBool:
		return !v.b
	case tagI64:
		return v.i == 0
	case tagF64:
		return v.f == 0
	case tagObj:
		switch o := v.obj.(type) {
		case *Str:
			return len(o.bytes) == 0
		case *Err:
			return true
		}
	}
	return false
}

// TypeName returns the short, stable, user-visible name of the value's
// type, as used by the $type builtin and error messages.
func (v Value) TypeName() string {
	switch v.tag {
	case tagNull:
		return "null"
	case tagTombstone:
		return "tombstone"
	case tagBool:
		return "bool"
	case tagI64:
		return "i64"
	case tagF64:
		return "f64"
	case tagChar:
		return "char"
	case tagObj:
		if v.obj == nil {
			return "null"
		}
		return v.obj.typeName()
	}
	return "unknown"
}

// DebugString renders a Value for diagnostics (panic messages, logging);
// it never calls user-defined $str methods, unlike the interpreter's
// STRINGIFY opcode which does (see operators.go stringify).
func (v Value) DebugString() string {
	switch v.tag {
	case tagNull:
		return "null"
	case tagTombstone:
		return "<tombstone>"
	case tagBool:
		if v.b {
			return "true"
		}
		return "false"
	case tagI64:
		return fmt.Sprintf("%d", v.i)
	case tagF64:
		return formatFloat(v.f)
	case tagChar:
		return string(v.ch)
	case tagObj:
		if v.obj == nil {
			return "null"
		}
		return v.obj.debugString()
	}
	return "?"
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	s := fmt.Sprintf("%g", f)
	// Ensure floats that happen to be integral still look like floats.
	hasDotOrExp := false
	for _, r := range s {
		if r == '.' || r == 'e' || r == 'E' {
			hasDotOrExp = true
			break
		}
	}
	if !hasDotOrExp {
		s += ".0"
	}
	return s
}

// StrictEquals implements strict equality (§4.1): same variant, same
// bit-pattern for scalars, same object reference for heap objects. Used
// by the constant pool during bytecode assembly.
func StrictEquals(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case tagNull, tagTombstone:
		return true
	case tagBool:
		return a.b == b.b
	case tagI64:
		return a.i == b.i
	case tagF64:
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	case tagChar:
		return a.ch == b.ch
	case tagObj:
		return a.obj == b.obj
	}
	return false
}
