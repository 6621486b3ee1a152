package machine

import (
	"testing"

	"github.com/nightjar-lang/nightjar/lang/asm"
	"github.com/stretchr/testify/require"
)

func TestCallClosureAddsTwoLocals(t *testing.T) {
	vm := NewVM(0)

	b := asm.NewBuilder("add", "test", 2, false, 2, 1)
	b.EmitU16(OpGetLocal, 0)
	b.EmitU16(OpGetLocal, 1)
	b.Emit(OpAdd)
	b.Emit(OpReturn)
	fn, err := b.Finish(vm)
	require.NoError(t, err)

	mod := vm.newModule("main")
	closure := vm.newClosure(fn, mod)

	result, err := vm.CallValue(Obj(closure), []Value{I64(3), I64(4)})
	require.NoError(t, err)
	require.True(t, result.IsI64())
	require.Equal(t, int64(7), result.AsI64())
}

func TestCallClosureVariadicTailBindsFirstFixed(t *testing.T) {
	vm := NewVM(0)

	// fn first(a, *rest) { return a }
	b := asm.NewBuilder("first", "test", 2, true, 2, 1)
	b.EmitU16(OpGetLocal, 0)
	b.Emit(OpReturn)
	fn, err := b.Finish(vm)
	require.NoError(t, err)

	mod := vm.newModule("main")
	closure := vm.newClosure(fn, mod)

	result, err := vm.CallValue(Obj(closure), []Value{I64(1), I64(2), I64(3)})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.AsI64())
}

func TestCallClosureArityMismatchErrors(t *testing.T) {
	vm := NewVM(0)

	b := asm.NewBuilder("needsTwo", "test", 2, false, 2, 1)
	b.EmitU16(OpGetLocal, 0)
	b.Emit(OpReturn)
	fn, err := b.Finish(vm)
	require.NoError(t, err)

	mod := vm.newModule("main")
	closure := vm.newClosure(fn, mod)

	_, err = vm.CallValue(Obj(closure), []Value{I64(1)})
	require.Error(t, err)
}

func TestCallNativeFn(t *testing.T) {
	vm := NewVM(0)
	n := vm.newNativeFn("double", 1, func(vm *VM, args []Value) (Value, error) {
		return I64(args[0].AsI64() * 2), nil
	})

	result, err := vm.CallValue(Obj(n), []Value{I64(21)})
	require.NoError(t, err)
	require.Equal(t, int64(42), result.AsI64())
}

func TestCallBoundMethod(t *testing.T) {
	vm := NewVM(0)

	// fn greet(self) { return self }  -- identity receiver check.
	b := asm.NewBuilder("greet", "test", 1, false, 1, 1)
	b.EmitU16(OpGetLocal, 0)
	b.Emit(OpReturn)
	fn, err := b.Finish(vm)
	require.NoError(t, err)

	mod := vm.newModule("main")
	closure := vm.newClosure(fn, mod)

	receiver := I64(9)
	bound := vm.newBoundMethod(receiver, closure)

	result, err := vm.CallValue(Obj(bound), nil)
	require.NoError(t, err)
	require.Equal(t, int64(9), result.AsI64())
}
