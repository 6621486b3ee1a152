package machine

import (
	"fmt"
	"math"
)

// Op identifies a binary or unary operator understood by the dispatch
// table in §4.7. It is deliberately a small closed enum, not the full
// lexical token set a compiler's scanner would need (that's out of
// scope, §1).
type Op uint8

const (
	BinAdd Op = iota
	BinSub
	BinMul
	BinDiv       // /  -> always F64
	BinFloorDiv  // // -> truncated
	BinMod
	BinBitOr
	BinBitAnd
	BinBitXor
	BinPow // **
	BinShl // <<
	BinShr // >>
	BinEq
	BinLt
	BinLe
	BinGt
	BinGe
)

const (
	UnaryPlus Op = iota + 100
	UnaryMinus
	UnaryBang
	UnaryTilde
)

var binOpMethodName = map[Op]string{
	BinAdd:      "$op_binary_plus",
	BinSub:      "$op_binary_minus",
	BinMul:      "$op_binary_star",
	BinDiv:      "$op_binary_slash",
	BinFloorDiv: "$op_binary_slash_slash",
	BinMod:      "$op_binary_percent",
	BinBitOr:    "$op_binary_bar",
	BinBitAnd:   "$op_binary_amp",
	BinBitXor:   "$op_binary_caret",
	BinPow:      "$op_binary_star_star",
	BinShl:      "$op_binary_less_less",
	BinShr:      "$op_binary_greater_greater",
	BinEq:       "$op_binary_equals_equals",
	BinLt:       "$op_binary_less",
	BinLe:       "$op_binary_less_equal",
	BinGt:       "$op_binary_greater",
	BinGe:       "$op_binary_greater_equal",
}

// Binary implements the binary operator dispatch table of §4.7: numeric
// coercion, then string shortcuts, then method fallback, then panic.
func (vm *VM) Binary(op Op, x, y Value) (Value, error) {
	if x.IsNumeric() && y.IsNumeric() {
		return vm.binaryNumeric(op, x, y)
	}

	if s, ok := stringShortcut(vm, op, x, y); ok {
		return s, nil
	}

	if classOf(x) != nil {
		if m, found, _ := vm.lookupMethod(classOf(x), binOpMethodName[op], false); found {
			return vm.callValueArgs(m, []Value{x, y})
		}
	}

	return Null, fmt.Errorf("invalid operand types for %s: %s and %s", opSymbol(op), x.TypeName(), y.TypeName())
}

func stringShortcut(vm *VM, op Op, x, y Value) (Value, bool) {
	if op != BinAdd && op != BinMul {
		return Null, false
	}
	xStr, xIsStr := asStr(x)
	yStr, yIsStr := asStr(y)
	xChar, xIsChar := asChar(x)
	yChar, yIsChar := asChar(y)

	switch {
	case op == BinAdd && xIsStr && yIsStr:
		return Obj(vm.concatStrings(xStr, yStr)), true
	case op == BinAdd && xIsStr && yIsChar:
		return Obj(vm.concatStrChar(xStr, yChar)), true
	case op == BinAdd && xIsChar && yIsStr:
		return Obj(vm.concatCharStr(xChar, yStr)), true
	case op == BinAdd && xIsChar && yIsChar:
		return Obj(vm.concatCharChar(xChar, yChar)), true
	case op == BinMul && xIsStr && y.IsI64():
		return Obj(vm.repeatString(xStr, y.AsI64())), true
	case op == BinMul && xIsChar && y.IsI64():
		return Obj(vm.repeatChar(xChar, y.AsI64())), true
	}
	return Null, false
}

func asStr(v Value) (*Str, bool) {
	if v.IsObj() {
		if s, ok := v.AsObj().(*Str); ok {
			return s, true
		}
	}
	return nil, false
}

func asChar(v Value) (rune, bool) {
	if v.IsChar() {
		return v.AsChar(), true
	}
	return 0, false
}

// binaryNumeric applies the built-in arithmetic/comparison rule: integer
// arithmetic wraps on overflow, / always returns F64, // truncates, mixed
// I64/F64 coerces to F64, and comparisons use the precision-preserving
// routine of §4.7.
func (vm *VM) binaryNumeric(op Op, x, y Value) (Value, error) {
	switch op {
	case BinEq, BinLt, BinLe, BinGt, BinGe:
		return vm.compareNumeric(op, x, y)
	}

	bothInt := (x.IsI64() || x.IsChar()) && (y.IsI64() || y.IsChar())
	if bothInt {
		xi, yi := numericAsI64(x), numericAsI64(y)
		switch op {
		case BinAdd:
			return I64(xi + yi), nil
		case BinSub:
			return I64(xi - yi), nil
		case BinMul:
			return I64(xi * yi), nil
		case BinDiv:
			if yi == 0 {
				return Null, fmt.Errorf("division by zero")
			}
			return F64(float64(xi) / float64(yi)), nil
		case BinFloorDiv:
			if yi == 0 {
				return Null, fmt.Errorf("division by zero")
			}
			q := xi / yi
			if (xi%yi != 0) && ((xi < 0) != (yi < 0)) {
				q--
			}
			return I64(q), nil
		case BinMod:
			if yi == 0 {
				return Null, fmt.Errorf("division by zero")
			}
			m := xi % yi
			if m != 0 && ((m < 0) != (yi < 0)) {
				m += yi
			}
			return I64(m), nil
		case BinBitOr:
			return I64(xi | yi), nil
		case BinBitAnd:
			return I64(xi & yi), nil
		case BinBitXor:
			return I64(xi ^ yi), nil
		case BinShl:
			return I64(xi << uint64(yi)), nil
		case BinShr:
			return I64(xi >> uint64(yi)), nil
		case BinPow:
			return I64(intPow(xi, yi)), nil
		}
	}

	xf, yf := x.AsNumericF64(), y.AsNumericF64()
	switch op {
	case BinAdd:
		return F64(xf + yf), nil
	case BinSub:
		return F64(xf - yf), nil
	case BinMul:
		return F64(xf * yf), nil
	case BinDiv:
		return F64(xf / yf), nil
	case BinFloorDiv:
		return F64(math.Floor(xf / yf)), nil
	case BinMod:
		return F64(math.Mod(xf, yf)), nil
	case BinPow:
		return F64(math.Pow(xf, yf)), nil
	case BinBitOr, BinBitAnd, BinBitXor, BinShl, BinShr:
		return Null, fmt.Errorf("bitwise operators require integer operands")
	}
	return Null, fmt.Errorf("unsupported numeric operator")
}

func numericAsI64(v Value) int64 {
	if v.IsChar() {
		return int64(v.AsChar())
	}
	return v.AsI64()
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// compareNumeric implements the precision-preserving comparison of §4.7:
// never convert I64 to F64 via cast. If F64 is outside
// [I64::MIN, I64::MAX], decide from its sign; else split F64 into its
// truncated-integer part and fractional remainder, compare integer parts
// exactly, and use the fractional-remainder sign to break ties. NaN
// comparisons return false for <, <=, >, >=; NaN-equality returns false.
func (vm *VM) compareNumeric(op Op, x, y Value) (Value, error) {
	if (x.IsI64() || x.IsChar()) && (y.IsI64() || y.IsChar()) {
		xi, yi := numericAsI64(x), numericAsI64(y)
		return Bool(intCompareResult(op, cmp3(xi, yi))), nil
	}

	xIsF := x.IsF64()
	yIsF := y.IsF64()

	if xIsF && yIsF {
		xf, yf := x.AsF64(), y.AsF64()
		if math.IsNaN(xf) || math.IsNaN(yf) {
			return Bool(false), nil // every NaN comparison, including ==, is false
		}
		return Bool(intCompareResult(op, cmp3f(xf, yf))), nil
	}

	// Mixed int/float: use the precision-preserving split to avoid the
	// float64-cast precision loss past 2^53.
	var intVal int64
	var floatVal float64
	intSide := 1 // 1 => x is the int side, -1 => y is the int side
	if xIsF {
		floatVal = x.AsF64()
		intVal = numericAsI64(y)
		intSide = -1
	} else {
		intVal = numericAsI64(x)
		floatVal = y.AsF64()
		intSide = 1
	}

	if math.IsNaN(floatVal) {
		return Bool(false), nil
	}

	c := compareIntFloat(intVal, floatVal) // returns -1/0/+1 meaning int <=> float
	if intSide == -1 {
		c = -c
	}
	return Bool(intCompareResult(op, c)), nil
}

// compareIntFloat compares an int64 against a float64 without ever
// casting the int64 to float64, which would lose precision beyond 2^53.
func compareIntFloat(i int64, f float64) int {
	if f < math.MinInt64 {
		return +1 // i is always greater than an out-of-range-low float
	}
	if f > math.MaxInt64 {
		return -1
	}
	truncated := math.Trunc(f)
	frac := f - truncated
	ti := int64(truncated)
	if i != ti {
		if i < ti {
			return -1
		}
		return +1
	}
	// Integer parts equal: break the tie using the fractional remainder's
	// sign. f = ti + frac; if frac > 0 then f > i; if frac < 0 then f < i.
	if frac > 0 {
		return -1 // i < f
	}
	if frac < 0 {
		return +1 // i > f
	}
	return 0
}

func cmp3(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return +1
	default:
		return 0
	}
}

func cmp3f(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return +1
	default:
		return 0
	}
}

func intCompareResult(op Op, c int) bool {
	switch op {
	case BinEq:
		return c == 0
	case BinLt:
		return c < 0
	case BinLe:
		return c <= 0
	case BinGt:
		return c > 0
	case BinGe:
		return c >= 0
	}
	return false
}

// valuesEqual implements semantic equality (§4.1): numeric coercion
// across I64/F64/Char; interned-string reference equality; element-wise
// for tuples; method-dispatch via $op_binary_equals_equals for instances;
// otherwise reference equality.
func (vm *VM) valuesEqual(a, b Value) (bool, error) {
	if a.IsNumeric() && b.IsNumeric() {
		res, err := vm.compareNumeric(BinEq, a, b)
		if err != nil {
			return false, err
		}
		return res.AsBool(), nil
	}
	if a.tag != b.tag {
		if a.IsNull() || b.IsNull() || a.IsTombstone() || b.IsTombstone() {
			return false, nil
		}
	}
	switch a.tag {
	case tagNull:
		return b.IsNull(), nil
	case tagTombstone:
		return b.IsTombstone(), nil
	case tagBool:
		return b.IsBool() && a.b == b.b, nil
	case tagObj:
		if !b.IsObj() {
			return false, nil
		}
		return vm.objectsEqual(a.AsObj(), b.AsObj())
	}
	return false, nil
}

func (vm *VM) objectsEqual(a, b Object) (bool, error) {
	if a == b {
		return true, nil
	}
	switch ao := a.(type) {
	case *Str:
		// Interning guarantees reference equality for equal strings, but
		// compare bytes defensively in case a caller constructed a Str
		// outside the intern pool (tests, for example).
		if bo, ok := b.(*Str); ok {
			return ao.hash == bo.hash && string(ao.bytes) == string(bo.bytes), nil
		}
		return false, nil
	case *Tup:
		if bo, ok := b.(*Tup); ok {
			return vm.tupCheckEqual(ao, bo)
		}
		return false, nil
	case *Instance:
		if m, found, _ := vm.lookupMethod(ao.class, "$op_binary_equals_equals", false); found {
			res, err := vm.callValueArgs(m, []Value{Obj(ao), Obj(b)})
			if err != nil {
				return false, err
			}
			return res.Truthy(), nil
		}
		return false, nil
	}
	return false, nil
}

// Unary implements §4.7's unary operators.
func (vm *VM) Unary(op Op, x Value) (Value, error) {
	switch op {
	case UnaryPlus:
		if x.IsNumeric() {
			return x, nil
		}
	case UnaryMinus:
		switch {
		case x.IsI64():
			return I64(-x.AsI64()), nil
		case x.IsF64():
			return F64(-x.AsF64()), nil
		case x.IsChar():
			return I64(-int64(x.AsChar())), nil
		}
	case UnaryBang:
		return Bool(!x.Truthy()), nil
	case UnaryTilde:
		if x.IsI64() {
			return I64(^x.AsI64()), nil
		}
	}
	if classOf(x) != nil {
		name := map[Op]string{UnaryPlus: "$op_unary_plus", UnaryMinus: "$op_unary_minus", UnaryBang: "$op_unary_bang", UnaryTilde: "$op_unary_tilde"}[op]
		if m, found, _ := vm.lookupMethod(classOf(x), name, false); found {
			return vm.callValueArgs(m, []Value{x})
		}
	}
	return Null, fmt.Errorf("invalid operand type for unary operator: %s", x.TypeName())
}

// In implements the `in` operator (§4.7): panics if the right operand has
// no $contains method; otherwise calls it and treats a truthy result as
// membership.
func (vm *VM) In(x, y Value) (Value, error) {
	switch {
	case y.IsObj():
		switch o := y.AsObj().(type) {
		case *Map:
			return Bool(o.Contains(x)), nil
		case *Vec:
			for _, e := range o.values {
				eq, err := vm.valuesEqual(x, e)
				if err != nil {
					return Null, err
				}
				if eq {
					return Bool(true), nil
				}
			}
			return Bool(false), nil
		case *Str:
			if s, ok := asStr(x); ok {
				return Bool(containsBytes(o.bytes, s.bytes)), nil
			}
		}
	}
	if classOf(y) != nil {
		if m, found, _ := vm.lookupMethod(classOf(y), "$contains", false); found {
			res, err := vm.callValueArgs(m, []Value{y, x})
			if err != nil {
				return Null, err
			}
			return Bool(res.Truthy()), nil
		}
	}
	return Null, fmt.Errorf("%s value has no $contains method", y.TypeName())
}

func containsBytes(hay, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if string(hay[i:i+len(needle)]) == string(needle) {
			return true
		}
	}
	return false
}

func opSymbol(op Op) string {
	names := map[Op]string{
		BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/", BinFloorDiv: "//",
		BinMod: "%", BinBitOr: "|", BinBitAnd: "&", BinBitXor: "^", BinPow: "**",
		BinShl: "<<", BinShr: ">>", BinEq: "==", BinLt: "<", BinLe: "<=", BinGt: ">", BinGe: ">=",
	}
	if s, ok := names[op]; ok {
		return s
	}
	return "?"
}

// stringify implements the STRINGIFY opcode: replace top with its string
// form, calling a $str method if the value is an instance that defines
// one.
func (vm *VM) stringify(v Value) (*Str, error) {
	if v.IsObj() {
		if s, ok := v.AsObj().(*Str); ok {
			return s, nil
		}
		if inst, ok := v.AsObj().(*Instance); ok {
			if m, found, _ := vm.lookupMethod(inst.class, "$str", false); found {
				res, err := vm.callValueArgs(m, []Value{v})
				if err != nil {
					return nil, err
				}
				if s, ok := res.AsObj().(*Str); ok {
					return s, nil
				}
			}
		}
	}
	return vm.internString(v.DebugString()), nil
}
