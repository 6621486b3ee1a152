package asm_test

import (
	"testing"

	"github.com/nightjar-lang/nightjar/lang/asm"
	"github.com/nightjar-lang/nightjar/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestBuilderAssemblesArithmeticFunction(t *testing.T) {
	vm := machine.NewVM(0)

	b := asm.NewBuilder("addOne", "test.nj", 1, false, 1, 10)
	b.SetLine(10)
	b.EmitU16(machine.OpGetLocal, 0)
	b.EmitConstant(machine.I64(1))
	b.Emit(machine.OpAdd)
	b.Emit(machine.OpReturn)

	fn, err := b.Finish(vm)
	require.NoError(t, err)
	require.Equal(t, "addOne", fn.Name)
	require.Equal(t, "test.nj", fn.SourceID)
	require.Equal(t, 1, fn.Arity)
	require.False(t, fn.IsVariadic)
	require.Len(t, fn.Constants, 1)
	require.True(t, machine.StrictEquals(fn.Constants[0], machine.I64(1)))
	require.Equal(t, 10, fn.LineForIP(0))
}

func TestBuilderConstantDeduplicates(t *testing.T) {
	vm := machine.NewVM(0)

	b := asm.NewBuilder("dup", "test.nj", 0, false, 0, 1)
	first := b.Constant(machine.I64(42))
	second := b.Constant(machine.I64(42))
	require.Equal(t, first, second)

	third := b.Constant(machine.F64(42))
	require.NotEqual(t, first, third, "an F64 constant must not collide with an I64 of the same magnitude")

	b.Emit(machine.OpReturn)
	_, err := b.Finish(vm)
	require.NoError(t, err)
}

func TestBuilderForwardAndBackwardJumps(t *testing.T) {
	vm := machine.NewVM(0)

	// fn countdown(n) {
	//   loop:
	//     if n <= 0 jump done
	//     n = n - 1
	//     loop back to loop
	//   done:
	//     return n
	// }
	b := asm.NewBuilder("countdown", "test.nj", 1, false, 1, 1)
	b.Label("loop")
	b.EmitU16(machine.OpGetLocal, 0)
	b.EmitConstant(machine.I64(0))
	b.Emit(machine.OpLessEqual)
	b.EmitJump(machine.OpJumpIfFalse, "body")
	b.EmitJump(machine.OpJump, "done")
	b.Label("body")
	b.EmitU16(machine.OpGetLocal, 0)
	b.EmitConstant(machine.I64(1))
	b.Emit(machine.OpSub)
	b.EmitU16(machine.OpSetLocal, 0)
	b.Emit(machine.OpPop)
	b.EmitJump(machine.OpLoopBack, "loop")
	b.Label("done")
	b.EmitU16(machine.OpGetLocal, 0)
	b.Emit(machine.OpReturn)

	fn, err := b.Finish(vm)
	require.NoError(t, err)
	require.NotEmpty(t, fn.Code)
}

func TestBuilderFinishErrorsOnUndefinedLabel(t *testing.T) {
	vm := machine.NewVM(0)

	b := asm.NewBuilder("broken", "test.nj", 0, false, 0, 1)
	b.EmitJump(machine.OpJump, "nowhere")

	_, err := b.Finish(vm)
	require.Error(t, err)
}

func TestBuilderVariadicAndUpvalueMetadata(t *testing.T) {
	vm := machine.NewVM(0)

	b := asm.NewBuilder("variadic", "test.nj", 2, true, 2, 1)
	b.SetUpvalueDescs([]machine.UpvalueDesc{{IsLocal: true, Index: 0}})
	b.EmitU16(machine.OpGetLocal, 0)
	b.Emit(machine.OpReturn)

	fn, err := b.Finish(vm)
	require.NoError(t, err)
	require.True(t, fn.IsVariadic)
	require.Equal(t, 1, fn.UpvalueCount)
	require.Len(t, fn.UpvalueDescs, 1)
	require.True(t, fn.UpvalueDescs[0].IsLocal)
}
