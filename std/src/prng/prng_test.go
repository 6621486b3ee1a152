package prng_test

import (
	"testing"

	"github.com/nightjar-lang/nightjar/lang/machine"
	_ "github.com/nightjar-lang/nightjar/std/src/prng"
	"github.com/stretchr/testify/require"
)

func TestSeedIsDeterministic(t *testing.T) {
	vm1 := machine.NewVM(0)
	vm2 := machine.NewVM(0)

	mod1, err := vm1.ImportModule("std::prng")
	require.NoError(t, err)
	mod2, err := vm2.ImportModule("std::prng")
	require.NoError(t, err)

	seed1, ok := vm1.Member(mod1, "seed")
	require.True(t, ok)
	seed2, ok := vm2.Member(mod2, "seed")
	require.True(t, ok)

	_, err = vm1.CallValue(seed1, []machine.Value{machine.I64(42)})
	require.NoError(t, err)
	_, err = vm2.CallValue(seed2, []machine.Value{machine.I64(42)})
	require.NoError(t, err)

	intFn1, _ := vm1.Member(mod1, "int")
	intFn2, _ := vm2.Member(mod2, "int")

	r1, err := vm1.CallValue(intFn1, []machine.Value{machine.I64(0), machine.I64(1000000)})
	require.NoError(t, err)
	r2, err := vm2.CallValue(intFn2, []machine.Value{machine.I64(0), machine.I64(1000000)})
	require.NoError(t, err)
	require.Equal(t, r1.AsI64(), r2.AsI64())
}

func TestIntRejectsEmptyRange(t *testing.T) {
	vm := machine.NewVM(0)
	mod, err := vm.ImportModule("std::prng")
	require.NoError(t, err)
	intFn, _ := vm.Member(mod, "int")

	_, err = vm.CallValue(intFn, []machine.Value{machine.I64(5), machine.I64(5)})
	require.Error(t, err)
}

func TestChoiceOnEmptyVecReturnsSentinel(t *testing.T) {
	vm := machine.NewVM(0)
	mod, err := vm.ImportModule("std::prng")
	require.NoError(t, err)
	choiceFn, _ := vm.Member(mod, "choice")

	empty := machine.Obj(vm.NewVec(nil))
	result, err := vm.CallValue(choiceFn, []machine.Value{empty})
	require.NoError(t, err)
	require.True(t, result.IsObj())
}

func TestFloatIsWithinUnitRange(t *testing.T) {
	vm := machine.NewVM(0)
	mod, err := vm.ImportModule("std::prng")
	require.NoError(t, err)
	floatFn, _ := vm.Member(mod, "float")

	result, err := vm.CallValue(floatFn, nil)
	require.NoError(t, err)
	require.True(t, result.IsF64())
	require.GreaterOrEqual(t, result.AsF64(), 0.0)
	require.Less(t, result.AsF64(), 1.0)
}
