package asm_test

import (
	"testing"

	"github.com/nightjar-lang/nightjar/lang/asm"
	"github.com/nightjar-lang/nightjar/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestParseArithmeticProgram(t *testing.T) {
	vm := machine.NewVM(0)
	src := []byte(`
.arity 0
.locals 0
LOAD_I64 19
LOAD_I64 23
ADD
RETURN
`)
	fn, err := asm.Parse(vm, "arith.njasm", src)
	require.NoError(t, err)
	require.Equal(t, 0, fn.Arity)
	require.False(t, fn.IsVariadic)
}

func TestLoaderForWiresIntoExecCode(t *testing.T) {
	vm := machine.NewVM(0)
	vm.SetCompiler(asm.LoaderFor(vm))

	src := []byte(`
.arity 0
.locals 0
LOAD_I64 40
LOAD_I64 2
ADD
RETURN
`)
	result, err := vm.ExecCode(src, "sum.njasm")
	require.NoError(t, err)
	require.True(t, result.IsI64())
	require.Equal(t, int64(42), result.AsI64())
}

func TestLoaderForHandlesJumpsAndLocals(t *testing.T) {
	vm := machine.NewVM(0)
	vm.SetCompiler(asm.LoaderFor(vm))

	// Counts down from 5 to zero in a local, accumulating the number of
	// iterations taken in a second local, then returns that count.
	src := []byte(`
.arity 0
.locals 2
LOAD_I64 5
SET_LOCAL 0
LOAD_I64 0
SET_LOCAL 1
loop:
GET_LOCAL 0
LOAD_I64 0
EQUAL
JUMP_IF_FALSE body
GET_LOCAL 1
RETURN
body:
GET_LOCAL 0
LOAD_I64 1
SUB
SET_LOCAL 0
GET_LOCAL 1
LOAD_I64 1
ADD
SET_LOCAL 1
LOOP_BACK loop
`)
	result, err := vm.ExecCode(src, "count.njasm")
	require.NoError(t, err)
	require.Equal(t, int64(5), result.AsI64())
}

func TestParseStringAndGlobals(t *testing.T) {
	vm := machine.NewVM(0)
	vm.SetCompiler(asm.LoaderFor(vm))

	src := []byte(`
.arity 0
.locals 0
LOAD_STR "hello"
DEFINE_GLOBAL "greeting"
GET_GLOBAL "greeting"
RETURN
`)
	result, err := vm.ExecCode(src, "globals.njasm")
	require.NoError(t, err)
	require.True(t, result.IsObj())
}

func TestParseRejectsUndefinedLabel(t *testing.T) {
	vm := machine.NewVM(0)
	src := []byte(`
.arity 0
JUMP nowhere
`)
	_, err := asm.Parse(vm, "bad.njasm", src)
	require.Error(t, err)
}

func TestParseRejectsUnknownMnemonic(t *testing.T) {
	vm := machine.NewVM(0)
	src := []byte(`
.arity 0
FROBNICATE
`)
	_, err := asm.Parse(vm, "bad.njasm", src)
	require.Error(t, err)
}

func TestParseHandlesQuotedEscapes(t *testing.T) {
	vm := machine.NewVM(0)
	src := []byte(`
.arity 0
.locals 0
LOAD_STR "a \"quoted\" word"
RETURN
`)
	fn, err := asm.Parse(vm, "quotes.njasm", src)
	require.NoError(t, err)
	require.NotEmpty(t, fn.Constants)
}

func TestParseCommentsAndBlankLinesIgnored(t *testing.T) {
	vm := machine.NewVM(0)
	src := []byte(`
# a full-line comment
.arity 0

.locals 0
LOAD_I64 1
RETURN
`)
	_, err := asm.Parse(vm, "comment.njasm", src)
	require.NoError(t, err)
}
