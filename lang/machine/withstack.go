package machine

// startWith pushes obj onto the VM-wide with-stack (§4.10 START_WITH).
// The with-stack is a single flat LIFO shared by every frame; each
// CallFrame remembers its withBase so RETURN (and panic unwinding) know
// exactly how many entries belong to the frame being torn down.
func (vm *VM) startWith(obj Value) {
	vm.withStack = append(vm.withStack, obj)
}

// endWith pops the top of the with-stack and calls its $end_with method,
// if it has one, discarding the result (§4.10 END_WITH, §5's LIFO
// unwind-on-scope-exit rule). Calling $end_with on a value that defines
// none is not an error: the with-statement's compile-time check (outside
// this package's scope) is expected to have required the method already.
func (vm *VM) endWith() error {
	if len(vm.withStack) == 0 {
		return nil
	}
	n := len(vm.withStack) - 1
	obj := vm.withStack[n]
	vm.withStack = vm.withStack[:n]

	class := vm.classFor(obj)
	if class == nil {
		return nil
	}
	if m, found, _ := vm.lookupMethod(class, "$end_with", false); found {
		_, err := vm.callValueArgs(m, []Value{obj})
		return err
	}
	return nil
}

// unwindWithTo pops and closes every with-block pushed since the frame
// whose with-stack depth was base, in LIFO order. Used both by a normal
// RETURN and by panic unwinding (§4.10's note that $end_with runs even
// when the enclosing scope exits via panic, not just normal fallthrough
// -- the interaction the design notes flag between $end_with and a panic
// inside try, resolved in DESIGN.md: $end_with itself runs unconditionally
// during unwind, but if $end_with's own call panics, that second panic
// replaces the first).
func (vm *VM) unwindWithTo(base int) error {
	var first error
	for len(vm.withStack) > base {
		if err := vm.endWith(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
