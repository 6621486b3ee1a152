// Package prng is the one native module shipped with the embedded
// standard library (§6.4, §9.5): it exposes the VM's own bootstrap-
// seeded generator (§4.9) to user code as std::prng, rather than
// spinning up a second, divergent source of randomness.
package prng

import (
	"fmt"

	"github.com/nightjar-lang/nightjar/lang/machine"
)

func init() {
	machine.RegisterNativeModule("prng", newModule)
}

// newModule builds std::prng's member table on demand, once per VM, the
// first time a program imports it (§6.3's NightjarModInit contract,
// realized in-process instead of via plugin.Open since this module ships
// with the binary).
func newModule(vm *machine.VM) *machine.Module {
	mod := vm.NewNativeModule("std::prng")

	vm.DefineNativeFunc(mod, "seed", 1, seed)
	vm.DefineNativeFunc(mod, "int", 2, randInt)
	vm.DefineNativeFunc(mod, "float", 0, randFloat)
	vm.DefineNativeFunc(mod, "bool", 0, randBool)
	vm.DefineNativeFunc(mod, "choice", 1, choice)
	vm.DefineNativeFunc(mod, "shuffle", 1, shuffle)

	return mod
}

func seed(vm *machine.VM, args []machine.Value) (machine.Value, error) {
	if !args[0].IsI64() {
		return machine.Null, fmt.Errorf("prng.seed: expected an Int, got %s", args[0].TypeName())
	}
	vm.SeedRand(args[0].AsI64())
	return machine.Null, nil
}

// randInt returns a pseudo-random integer in [lo, hi), panicking on an
// empty or inverted range the same way an out-of-bounds index would.
func randInt(vm *machine.VM, args []machine.Value) (machine.Value, error) {
	lo, hi := args[0], args[1]
	if !lo.IsI64() || !hi.IsI64() {
		return machine.Null, fmt.Errorf("prng.int: expected two Ints, got %s and %s", lo.TypeName(), hi.TypeName())
	}
	span := hi.AsI64() - lo.AsI64()
	if span <= 0 {
		return machine.Null, fmt.Errorf("prng.int: empty range [%d, %d)", lo.AsI64(), hi.AsI64())
	}
	return machine.I64(lo.AsI64() + vm.Rand().Int63n(span)), nil
}

func randFloat(vm *machine.VM, args []machine.Value) (machine.Value, error) {
	return machine.F64(vm.Rand().Float64()), nil
}

func randBool(vm *machine.VM, args []machine.Value) (machine.Value, error) {
	return machine.Bool(vm.Rand().Intn(2) == 0), nil
}

// choice picks a uniformly random element from a Vec, returning the
// sentinel ERROR value for an empty one (§3's "not found" convention).
func choice(vm *machine.VM, args []machine.Value) (machine.Value, error) {
	vec, ok := args[0].AsObj().(*machine.Vec)
	if !ok || !args[0].IsObj() {
		return machine.Null, fmt.Errorf("prng.choice: expected a Vec, got %s", args[0].TypeName())
	}
	if vec.Len() == 0 {
		return vm.ErrorSentinel(), nil
	}
	elem, _ := vec.Get(vm.Rand().Intn(vec.Len()))
	return elem, nil
}

// shuffle permutes vec in place (Fisher-Yates) and returns it, mirroring
// the teacher's convention of mutating-methods returning their receiver
// for chaining.
func shuffle(vm *machine.VM, args []machine.Value) (machine.Value, error) {
	vec, ok := args[0].AsObj().(*machine.Vec)
	if !ok || !args[0].IsObj() {
		return machine.Null, fmt.Errorf("prng.shuffle: expected a Vec, got %s", args[0].TypeName())
	}
	vm.Rand().Shuffle(vec.Len(), func(i, j int) {
		vi, _ := vec.Get(i)
		vj, _ := vec.Get(j)
		vec.Set(i, vj)
		vec.Set(j, vi)
	})
	return args[0], nil
}
