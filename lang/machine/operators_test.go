package machine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinaryIntArithmeticWraps(t *testing.T) {
	vm := NewVM(0)

	res, err := vm.Binary(BinAdd, I64(math.MaxInt64), I64(1))
	require.NoError(t, err)
	require.Equal(t, int64(math.MinInt64), res.AsI64())
}

func TestBinaryDivAlwaysReturnsFloat(t *testing.T) {
	vm := NewVM(0)
	res, err := vm.Binary(BinDiv, I64(7), I64(2))
	require.NoError(t, err)
	require.True(t, res.IsF64())
	require.InDelta(t, 3.5, res.AsF64(), 1e-9)
}

func TestBinaryDivByZeroErrors(t *testing.T) {
	vm := NewVM(0)
	_, err := vm.Binary(BinDiv, I64(1), I64(0))
	require.Error(t, err)
}

func TestBinaryFloorDivRoundsTowardNegativeInfinity(t *testing.T) {
	vm := NewVM(0)
	res, err := vm.Binary(BinFloorDiv, I64(-7), I64(2))
	require.NoError(t, err)
	require.Equal(t, int64(-4), res.AsI64())
}

func TestBinaryModMatchesFloorDivSign(t *testing.T) {
	vm := NewVM(0)
	res, err := vm.Binary(BinMod, I64(-7), I64(2))
	require.NoError(t, err)
	require.Equal(t, int64(1), res.AsI64())
}

func TestBinaryStringConcat(t *testing.T) {
	vm := NewVM(0)
	res, err := vm.Binary(BinAdd, Obj(vm.internString("foo")), Obj(vm.internString("bar")))
	require.NoError(t, err)
	require.Equal(t, "foobar", res.AsObj().(*Str).String())
}

func TestBinaryStringRepeat(t *testing.T) {
	vm := NewVM(0)
	res, err := vm.Binary(BinMul, Obj(vm.internString("ab")), I64(3))
	require.NoError(t, err)
	require.Equal(t, "ababab", res.AsObj().(*Str).String())
}

func TestBinaryInvalidOperandsError(t *testing.T) {
	vm := NewVM(0)
	_, err := vm.Binary(BinAdd, Bool(true), I64(1))
	require.Error(t, err)
}

// TestComparePrecisionNeverCastsLargeIntToFloat checks the precision-
// preserving comparison: an int64 beyond 2^53 compared against a float64
// that would round to the same bit pattern under a naive cast must still
// compare unequal.
func TestComparePrecisionNeverCastsLargeIntToFloat(t *testing.T) {
	vm := NewVM(0)

	const big int64 = (int64(1) << 53) + 1 // not exactly representable as float64
	asFloat := float64(big)                // this rounds to 1<<53

	res, err := vm.Binary(BinEq, I64(big), F64(asFloat))
	require.NoError(t, err)
	require.False(t, res.AsBool(), "int64 (1<<53)+1 must not compare equal to the float64 it would naively cast to")

	res, err = vm.Binary(BinLt, F64(asFloat), I64(big))
	require.NoError(t, err)
	require.True(t, res.AsBool())
}

func TestCompareIntAndFloatOrdinary(t *testing.T) {
	vm := NewVM(0)
	res, err := vm.Binary(BinLt, I64(2), F64(2.5))
	require.NoError(t, err)
	require.True(t, res.AsBool())

	res, err = vm.Binary(BinGt, I64(3), F64(2.5))
	require.NoError(t, err)
	require.True(t, res.AsBool())
}

func TestCompareNaNAlwaysFalse(t *testing.T) {
	vm := NewVM(0)
	nan := F64(math.NaN())

	for _, op := range []Op{BinEq, BinLt, BinLe, BinGt, BinGe} {
		res, err := vm.Binary(op, nan, I64(1))
		require.NoError(t, err)
		require.False(t, res.AsBool(), "NaN must compare false for every relational operator")
	}
}

func TestValuesEqualCoercesAcrossNumericKinds(t *testing.T) {
	vm := NewVM(0)

	eq, err := vm.valuesEqual(I64(7), F64(7.0))
	require.NoError(t, err)
	require.True(t, eq)

	eq, err = vm.valuesEqual(I64(65), Char('A'))
	require.NoError(t, err)
	require.True(t, eq)
}

func TestValuesEqualTupleIsElementWise(t *testing.T) {
	vm := NewVM(0)
	a := vm.newTup([]Value{I64(1), I64(2)})
	b := vm.newTup([]Value{I64(1), I64(2)})
	c := vm.newTup([]Value{I64(1), I64(3)})

	eq, err := vm.valuesEqual(Obj(a), Obj(b))
	require.NoError(t, err)
	require.True(t, eq)

	eq, err = vm.valuesEqual(Obj(a), Obj(c))
	require.NoError(t, err)
	require.False(t, eq)
}

func TestUnaryMinusAndBang(t *testing.T) {
	vm := NewVM(0)

	res, err := vm.Unary(UnaryMinus, I64(5))
	require.NoError(t, err)
	require.Equal(t, int64(-5), res.AsI64())

	res, err = vm.Unary(UnaryBang, Bool(false))
	require.NoError(t, err)
	require.True(t, res.AsBool())
}

func TestInOperatorOnVecAndStr(t *testing.T) {
	vm := NewVM(0)
	v := vm.newVecFrom([]Value{I64(1), I64(2), I64(3)})

	res, err := vm.In(I64(2), Obj(v))
	require.NoError(t, err)
	require.True(t, res.AsBool())

	res, err = vm.In(I64(9), Obj(v))
	require.NoError(t, err)
	require.False(t, res.AsBool())

	res, err = vm.In(Obj(vm.internString("ell")), Obj(vm.internString("hello")))
	require.NoError(t, err)
	require.True(t, res.AsBool())
}

func TestInOperatorOnMap(t *testing.T) {
	vm := NewVM(0)
	m := vm.newMap()
	m.Set(Obj(vm.internString("key")), I64(1))

	res, err := vm.In(Obj(vm.internString("key")), Obj(m))
	require.NoError(t, err)
	require.True(t, res.AsBool())
}

func TestStringifyCallsUserStrMethod(t *testing.T) {
	vm := NewVM(0)
	class := vm.newClass("Point")
	nat := vm.newNativeFn("$str", 1, func(vm *VM, args []Value) (Value, error) {
		return Obj(vm.internString("<point>")), nil
	})
	class.DefineMethod(vm, "$str", true, Obj(nat))
	inst := vm.newInstance(class)

	s, err := vm.stringify(Obj(inst))
	require.NoError(t, err)
	require.Equal(t, "<point>", s.String())
}
