package machine

import (
	"fmt"
	"math/rand"
)

// ExecCode compiles source (via the configured SourceCompiler) under
// sourceID and runs it as a top-level program in a fresh anonymous
// module, returning the value its implicit top-level return yields
// (Null if it falls off the end) (§6.2).
func (vm *VM) ExecCode(source []byte, sourceID string) (Value, error) {
	if vm.compiler == nil {
		return Null, fmt.Errorf("cannot execute %q: no source compiler configured", sourceID)
	}
	fn, err := vm.compiler(sourceID, source)
	if err != nil {
		return Null, fmt.Errorf("compiling %q: %w", sourceID, err)
	}
	mod := vm.newModule(sourceID)
	vm.modules[sourceID] = mod
	closure := vm.newClosure(fn, mod)
	result, err := vm.callClosure(closure, nil)
	if err != nil {
		delete(vm.modules, sourceID)
		return Null, err
	}
	mod.loaded = true
	return result, nil
}

// ExecFile reads path from disk and runs it via ExecCode, using path
// itself as the source id (§6.2).
func (vm *VM) ExecFile(path string) (Value, error) {
	src, err := vm.readFile(path)
	if err != nil {
		return Null, fmt.Errorf("reading %q: %w", path, err)
	}
	return vm.ExecCode(src, path)
}

// ExecPath runs path like ExecFile, but if path cannot be read directly
// (e.g. a bare module name rather than a filesystem path) it is also
// searched for on the configured import roots, mirroring the search
// ImportModule performs for a "use" statement (§4.11, §6.2). This is
// what cmd/nightjar's single `run` verb calls.
func (vm *VM) ExecPath(path string) (Value, error) {
	if src, err := vm.readFile(path); err == nil {
		return vm.ExecCode(src, path)
	}
	src, resolved, err := vm.resolveSource(path)
	if err != nil {
		return Null, fmt.Errorf("%q not found directly or on any import root: %w", path, err)
	}
	return vm.ExecCode(src, resolved)
}

// SetMaxMemory reconfigures the accountant's byte cap; <= 0 means
// unlimited (§4.2, §6.2).
func (vm *VM) SetMaxMemory(maxBytes int64) {
	vm.accountant.maxBytes = maxBytes
}

// SetStdio replaces the VM's stdin/stdout/stderr streams with already-
// wrapped *File values (§6.2). Passing nil for any stream leaves that
// stream untouched.
func (vm *VM) SetStdio(stdin, stdout, stderr *File) {
	if stdin != nil {
		vm.Stdin = stdin
	}
	if stdout != nil {
		vm.Stdout = stdout
	}
	if stderr != nil {
		vm.Stderr = stderr
	}
}

// SetREPLMode toggles the flag that relaxes top-level statement rules for
// an interactive read-eval-print loop host (§6.2); the rules themselves
// belong to the out-of-scope compiler, so this is just the flag the VM
// exposes for it to consult.
func (vm *VM) SetREPLMode(on bool) { vm.ReplMode = on }

// SetArgs stores the program's argument vector, typically os.Args[1:]
// from the host CLI, in vm.Args (§6.2). No $args superglobal is defined
// from it; running code cannot read it.
func (vm *VM) SetArgs(args []string) { vm.Args = args }

// NewNativeModule creates an empty *Module under path, for a std/
// package's NativeModule constructor to populate with DefineNativeFunc
// before returning it to the registry (§6.4, §9.5).
func (vm *VM) NewNativeModule(path string) *Module {
	return vm.newModule(path)
}

// DefineNativeFunc installs a Go function as a public member of mod under
// name, wrapped as a NativeFn of the given fixed arity -- the mechanism
// every std/ native module uses in place of bytecode-compiled globals
// (§6.4, §9.5).
func (vm *VM) DefineNativeFunc(mod *Module, name string, arity int, fn func(vm *VM, args []Value) (Value, error)) {
	nf := vm.newNativeFn(name, arity, fn)
	vm.defineMember(mod, name, true, Obj(nf))
}

// DefineModuleValue installs value as a public member of mod under name,
// for std/ modules exposing constants alongside functions (§6.4, §9.5).
func (vm *VM) DefineModuleValue(mod *Module, name string, value Value) {
	vm.defineMember(mod, name, true, value)
}

// ErrorSentinel returns the VM's shared "not found / exhausted" ERROR
// value (§4.8, §7), the value a native function should return in place
// of an error for the same not-found conditions an exhausted Iter or a
// missing Map key would signal.
func (vm *VM) ErrorSentinel() Value {
	return vm.sentinelError()
}

// Rand returns the VM's single bootstrap-seeded *rand.Rand, the same
// source a running program's builtin random-dependent operations would
// draw from, so std/prng can expose it to user code without keeping a
// second, divergent generator (§4.9 "seed the PRNG" at bootstrap).
func (vm *VM) Rand() *rand.Rand {
	return vm.rng
}

// SeedRand reseeds the VM's PRNG, the effect of a user program's
// std::prng.seed(n) call.
func (vm *VM) SeedRand(seed int64) {
	vm.rng = rand.New(rand.NewSource(seed))
}

// InternString returns vm's canonical *Str for s, interning it if this is
// the first time the VM has seen this exact byte sequence. Exported so a
// SourceCompiler (lang/asm's text-format loader, or any other host-
// supplied compiler) can produce string constants the same way the
// interpreter's own OpLoadConstant path does, keeping Str equality a
// pointer comparison (§4.6).
func (vm *VM) InternString(s string) *Str {
	return vm.internString(s)
}

// Reset clears per-execution state (the value stack, call frames, open
// upvalues, with-stack, panic/exit flags, and the loaded-module cache)
// while keeping the heap, intern pool, superglobals, and builtin classes
// intact, so a REPL host can run another top-level program in the same
// VM without re-bootstrapping it (§6.2).
func (vm *VM) Reset() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
	vm.withStack = vm.withStack[:0]
	vm.modules = make(map[string]*Module)
	vm.panicFlag = false
	vm.exitFlag = false
	vm.haltFlag = false
	vm.exitCode = 0
	vm.panicValue = Null
	vm.panicSrcID = ""
	vm.panicLine = 0
	vm.tryDepth = 0
}
