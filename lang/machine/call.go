package machine

import "fmt"

// CallValue implements the full call-mechanics dispatch of §4.9: a
// Closure pushes a new CallFrame and runs until it returns; a NativeFn
// calls straight into Go; a BoundMethod prepends its receiver and
// recurses on the underlying method; a Class is instantiated and its
// $init (if any) invoked, returning the new Instance; anything else
// falls back to a single $call method lookup.
func (vm *VM) CallValue(callee Value, args []Value) (Value, error) {
	if !callee.IsObj() {
		return Null, fmt.Errorf("value of type %s is not callable", callee.TypeName())
	}

	switch fn := callee.AsObj().(type) {
	case *Closure:
		return vm.callClosure(fn, args)

	case *NativeFn:
		if err := checkArity(fn.Name, fn.Arity, len(args)); err != nil {
			return Null, err
		}
		return vm.callNative(fn, args)

	case *BoundMethod:
		full := make([]Value, 0, len(args)+1)
		full = append(full, fn.Receiver)
		full = append(full, args...)
		return vm.callMethodObject(fn.Method, full)

	case *Class:
		inst := vm.newInstance(fn)
		if !fn.InitMethod.IsNull() {
			callArgs := make([]Value, 0, len(args)+1)
			callArgs = append(callArgs, Obj(inst))
			callArgs = append(callArgs, args...)
			if _, err := vm.callMethodObject(fn.InitMethod.AsObj(), callArgs); err != nil {
				return Null, err
			}
		}
		return Obj(inst), nil

	case *Instance:
		if m, found, _ := vm.lookupMethod(fn.class, "$call", false); found {
			full := make([]Value, 0, len(args)+1)
			full = append(full, callee)
			full = append(full, args...)
			return vm.callValueArgs(m, full)
		}
		return Null, fmt.Errorf("instance of %s is not callable", fn.typeName())
	}

	return Null, fmt.Errorf("value of type %s is not callable", callee.TypeName())
}

// callValueArgs is the entry point used by hash.go/operators.go/iter.go
// for a re-entrant method call made from Go code rather than from the
// bytecode CALL opcode: it is exactly CallValue, named separately so
// call sites that only ever see a bare callable (never a receiver/name
// pair) read clearly.
func (vm *VM) callValueArgs(callee Value, args []Value) (Value, error) {
	return vm.CallValue(callee, args)
}

// callMethodObject dispatches to a raw method Object (a *Closure or
// *NativeFn pulled out of a class's method map) without needing a Value
// wrapper round-trip.
func (vm *VM) callMethodObject(method Object, args []Value) (Value, error) {
	switch m := method.(type) {
	case *Closure:
		return vm.callClosure(m, args)
	case *NativeFn:
		if err := checkArity(m.Name, m.Arity, len(args)); err != nil {
			return Null, err
		}
		return vm.callNative(m, args)
	}
	return Null, fmt.Errorf("method value of type %s is not callable", method.typeName())
}

// callNative pushes a bookkeeping-only CallFrame for the duration of a
// Go-native call, so the GC root-walk keeps fn reachable even if nothing
// on the value stack references it (e.g. a host calling vm.CallValue
// directly), and so a panic raised from inside fn via vm.Panic resolves
// to a sensible (if sourceless) frame instead of whatever bytecode frame
// happened to be on top (§4.9, §4.12).
func (vm *VM) callNative(fn *NativeFn, args []Value) (Value, error) {
	vm.frames = append(vm.frames, CallFrame{native: fn, catchIP: -1})
	defer func() { vm.frames = vm.frames[:len(vm.frames)-1] }()
	return fn.Fn(vm, args)
}

// callMethod looks up name on receiver's class (public-only if public is
// true) and calls it with receiver prepended to args (§4.9's method-call
// path, used by the dot-call opcode and by native code needing to invoke
// a user-overridable hook like $next or $str).
func (vm *VM) callMethod(receiver Value, name string, public bool, args []Value) (Value, error) {
	class := vm.classFor(receiver)
	if class == nil {
		return Null, fmt.Errorf("value of type %s has no method %s", receiver.TypeName(), name)
	}
	m, found, isPrivate := vm.lookupMethod(class, name, public)
	if !found {
		if isPrivate {
			return Null, fmt.Errorf("method %s is private", name)
		}
		return Null, fmt.Errorf("value of type %s has no method %s", receiver.TypeName(), name)
	}
	full := make([]Value, 0, len(args)+1)
	full = append(full, receiver)
	full = append(full, args...)
	return vm.callValueArgs(m, full)
}

// checkArity enforces the declared arity for a native function; -1 means
// variadic (any argument count is accepted).
func checkArity(name string, arity, got int) error {
	if arity < 0 {
		return nil
	}
	if got != arity {
		return fmt.Errorf("%s() expects %d argument(s), got %d", name, arity, got)
	}
	return nil
}

// callClosure binds args against fn's declared parameters (arity,
// variadic tail, default values per §4.9), pushes a new CallFrame whose
// stackBase is the current top of the shared value stack, and runs the
// interpreter loop until that frame returns, yielding its single return
// value.
func (vm *VM) callClosure(fn *Closure, args []Value) (Value, error) {
	bound, err := vm.bindArgs(fn, args)
	if err != nil {
		return Null, err
	}

	base := len(vm.stack)
	vm.stack = append(vm.stack, bound...)
	// Reserve room for the function's locals beyond its parameters.
	if extra := fn.Fn.NumLocals - len(bound); extra > 0 {
		for i := 0; i < extra; i++ {
			vm.stack = append(vm.stack, Null)
		}
	}

	vm.frames = append(vm.frames, CallFrame{
		closure:   fn,
		stackBase: base,
		withBase:  len(vm.withStack),
		catchIP:   -1,
	})

	returnDepth := len(vm.frames) - 1
	result, err := vm.run(returnDepth)
	if err != nil {
		return Null, err
	}
	return result, nil
}

// bindArgs implements §4.9's parameter-binding rule: fixed parameters
// first, a variadic tail collects any remaining positional arguments into
// a Vec, and missing trailing parameters are filled from DefaultValues.
// A function may not be both variadic and carry default values (an Open
// Question resolved in DESIGN.md); callers are expected to reject that
// combination at assembly time, not here.
func (vm *VM) bindArgs(fn *Closure, args []Value) ([]Value, error) {
	arity := fn.Fn.Arity
	nDefaults := len(fn.DefaultValues)
	minArity := arity - nDefaults

	if fn.Fn.IsVariadic {
		if len(args) < arity-1 {
			return nil, fmt.Errorf("%s() expects at least %d argument(s), got %d", fn.Fn.Name, arity-1, len(args))
		}
		bound := make([]Value, arity)
		copy(bound, args[:arity-1])
		tail := vm.newVecFrom(append([]Value(nil), args[arity-1:]...))
		bound[arity-1] = Obj(tail)
		return bound, nil
	}

	if len(args) < minArity || len(args) > arity {
		return nil, fmt.Errorf("%s() expects %d to %d argument(s), got %d", fn.Fn.Name, minArity, arity, len(args))
	}

	bound := make([]Value, arity)
	copy(bound, args)
	for i := len(args); i < arity; i++ {
		bound[i] = fn.DefaultValues[i-minArity]
	}
	return bound, nil
}
