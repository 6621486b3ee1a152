package machine

import "fmt"

// bootstrapNatives installs the stdlib seam functions of §9: $print,
// $len, $type and $hash, the four superglobal natives every Nightjar
// program can call without an import, mirroring the handful of globally
// visible builtins the source registers directly on the root VM rather
// than through a module.
func (vm *VM) bootstrapNatives() {
	vm.defineNative("$print", -1, nativePrint)
	vm.defineNative("$len", 1, nativeLen)
	vm.defineNative("$type", 1, nativeType)
	vm.defineNative("$hash", 1, nativeHash)
}

func (vm *VM) defineNative(name string, arity int, fn func(vm *VM, args []Value) (Value, error)) {
	n := vm.newNativeFn(name, arity, fn)
	vm.superglobals.set(Obj(vm.internString(name)), Obj(n))
}

func nativePrint(vm *VM, args []Value) (Value, error) {
	var out []byte
	for i, a := range args {
		s, err := vm.stringify(a)
		if err != nil {
			return Null, err
		}
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, s.bytes...)
	}
	_, werr := vm.Stdout.f.Write(append(out, '\n'))
	if werr != nil {
		return Null, werr
	}
	return Null, nil
}

func nativeLen(vm *VM, args []Value) (Value, error) {
	v := args[0]
	if v.IsObj() {
		switch o := v.AsObj().(type) {
		case *Str:
			return I64(int64(len([]rune(string(o.bytes))))), nil
		case *Vec:
			return I64(int64(len(o.values))), nil
		case *Tup:
			return I64(int64(len(o.values))), nil
		case *Buf:
			return I64(int64(len(o.bytes))), nil
		case *Map:
			return I64(int64(o.Count())), nil
		case *Queue:
			return I64(int64(o.count)), nil
		case *Instance:
			if m, found, _ := vm.lookupMethod(o.class, "$len", false); found {
				return vm.callValueArgs(m, []Value{v})
			}
		}
	}
	return Null, fmt.Errorf("value of type %s has no length", v.TypeName())
}

func nativeType(vm *VM, args []Value) (Value, error) {
	return Obj(vm.internString(args[0].TypeName())), nil
}

func nativeHash(vm *VM, args []Value) (Value, error) {
	h, err := vm.hashValue(args[0])
	if err != nil {
		return Null, err
	}
	return I64(int64(h)), nil
}
