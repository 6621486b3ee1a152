package machine

import "fmt"

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek(distanceFromTop int) Value {
	return vm.stack[len(vm.stack)-1-distanceFromTop]
}

func readU8(code []byte, ip int) int { return int(code[ip]) }

func readU16(code []byte, ip int) int {
	return int(code[ip])<<8 | int(code[ip+1])
}

func readI16(code []byte, ip int) int {
	u := readU16(code, ip)
	return int(int16(u))
}

// run is the bytecode interpreter loop (§4.10). It executes opcodes
// belonging to the top frame until the frame stack depth returns to
// returnDepth (the frame that was current when run was invoked has been
// popped by a RETURN), or until an uncaught panic/exit halts execution.
// A nested bytecode CALL simply pushes another frame and the same loop
// keeps going; only native calls and re-entrant calls made from Go code
// (hash.go, operators.go, iter.go, withstack.go) recurse into a fresh
// invocation of run.
func (vm *VM) run(returnDepth int) (Value, error) {
	for {
		if vm.haltFlag {
			if vm.tryRecover(returnDepth) {
				continue
			}
			return Null, vm.finalError()
		}

		fr := &vm.frames[len(vm.frames)-1]
		code := fr.closure.Fn.Code

		if fr.ip >= len(code) {
			// Implicit "return null" for a function that falls off the end
			// of its bytecode without an explicit RETURN.
			if err := vm.unwindWithTo(fr.withBase); err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.closeUpvaluesFrom(fr.stackBase)
			vm.stack = vm.stack[:fr.stackBase]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == returnDepth {
				return Null, nil
			}
			vm.push(Null)
			continue
		}

		op := OpCode(code[fr.ip])
		fr.ip++

		switch op {
		case OpNop:
			// nothing

		case OpLoadConstant:
			idx := readU16(code, fr.ip)
			fr.ip += 2
			vm.push(fr.closure.Fn.Constants[idx])

		case OpLoadNull:
			vm.push(Null)
		case OpLoadTrue:
			vm.push(Bool(true))
		case OpLoadFalse:
			vm.push(Bool(false))
		case OpLoadI64Small:
			n := int8(code[fr.ip])
			fr.ip++
			vm.push(I64(int64(n)))

		case OpPop:
			vm.pop()
		case OpPopN:
			n := readU8(code, fr.ip)
			fr.ip++
			vm.stack = vm.stack[:len(vm.stack)-n]
		case OpDup:
			vm.push(vm.peek(0))

		case OpGetLocal:
			slot := readU16(code, fr.ip)
			fr.ip += 2
			vm.push(vm.stack[fr.stackBase+slot])
		case OpSetLocal:
			slot := readU16(code, fr.ip)
			fr.ip += 2
			vm.stack[fr.stackBase+slot] = vm.peek(0)

		case OpGetUpvalue:
			idx := readU8(code, fr.ip)
			fr.ip++
			u := fr.closure.Upvalues[idx]
			vm.push(vm.upvalueGet(u, vm.stack))
		case OpSetUpvalue:
			idx := readU8(code, fr.ip)
			fr.ip++
			u := fr.closure.Upvalues[idx]
			vm.upvalueSet(u, vm.stack, vm.peek(0))

		case OpGetGlobal:
			idx := readU16(code, fr.ip)
			fr.ip += 2
			name := fr.closure.Fn.Constants[idx]
			v, found := vm.lookupGlobal(fr.closure.Module, name)
			if !found {
				vm.Panic("undefined global: %s", name.DebugString())
				continue
			}
			vm.push(v)
		case OpDefineGlobal:
			idx := readU16(code, fr.ip)
			fr.ip += 2
			name := fr.closure.Fn.Constants[idx]
			vm.defineGlobal(fr.closure.Module, name, vm.pop())
		case OpSetGlobal:
			idx := readU16(code, fr.ip)
			fr.ip += 2
			name := fr.closure.Fn.Constants[idx]
			if !vm.setGlobal(fr.closure.Module, name, vm.peek(0)) {
				vm.Panic("undefined global: %s", name.DebugString())
			}

		case OpAdd, OpSub, OpMul, OpDiv, OpFloorDiv, OpMod, OpPow,
			OpBitOr, OpBitAnd, OpBitXor, OpShl, OpShr,
			OpEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
			b := vm.pop()
			a := vm.pop()
			res, err := vm.Binary(binaryOpFor(op), a, b)
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(res)

		case OpIn:
			b := vm.pop()
			a := vm.pop()
			res, err := vm.In(a, b)
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(res)

		case OpNegate:
			v, err := vm.Unary(UnaryMinus, vm.pop())
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(v)
		case OpNot:
			v, err := vm.Unary(UnaryBang, vm.pop())
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(v)
		case OpBitNot:
			v, err := vm.Unary(UnaryTilde, vm.pop())
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(v)
		case OpUnaryPlusOp:
			v, err := vm.Unary(UnaryPlus, vm.pop())
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(v)

		case OpJump:
			off := readI16(code, fr.ip)
			fr.ip += 2
			fr.ip += off
		case OpJumpIfFalse:
			off := readI16(code, fr.ip)
			fr.ip += 2
			if !vm.pop().Truthy() {
				fr.ip += off
			}
		case OpJumpIfKindaFalsey:
			off := readI16(code, fr.ip)
			fr.ip += 2
			if vm.peek(0).IsKindaFalsey() {
				fr.ip += off
			}
		case OpLoopBack:
			off := readI16(code, fr.ip)
			fr.ip += 2
			fr.ip += off

		case OpCall:
			argc := readU8(code, fr.ip)
			fr.ip++
			if err := vm.dispatchCall(argc); err != nil {
				vm.raiseFromGoError(err)
			}

		case OpCallMethod:
			nameIdx := readU16(code, fr.ip)
			argc := readU8(code, fr.ip+2)
			public := readU8(code, fr.ip+3) != 0
			fr.ip += 4
			name := fr.closure.Fn.Constants[nameIdx]
			args := append([]Value(nil), vm.stack[len(vm.stack)-argc:]...)
			vm.stack = vm.stack[:len(vm.stack)-argc]
			recv := vm.pop()
			nameStr, _ := name.AsObj().(*Str)
			res, err := vm.callMethod(recv, nameStr.String(), public, args)
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(res)

		case OpReturn:
			ret := vm.pop()
			if err := vm.unwindWithTo(fr.withBase); err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.closeUpvaluesFrom(fr.stackBase)
			vm.stack = vm.stack[:fr.stackBase]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == returnDepth {
				return ret, nil
			}
			vm.push(ret)

		case OpCloseUpvalue:
			vm.closeUpvaluesFrom(len(vm.stack) - 1)
			vm.pop()

		case OpMakeClosure:
			idx := readU16(code, fr.ip)
			fr.ip += 2
			fnVal := fr.closure.Fn.Constants[idx]
			innerFn := fnVal.AsObj().(*Function)
			cl := vm.newClosure(innerFn, fr.closure.Module)
			for i, d := range innerFn.UpvalueDescs {
				if d.IsLocal {
					cl.Upvalues[i] = vm.captureUpvalue(fr.stackBase + d.Index)
				} else {
					cl.Upvalues[i] = fr.closure.Upvalues[d.Index]
				}
			}
			vm.push(Obj(cl))

		case OpMakeVec:
			n := readU16(code, fr.ip)
			fr.ip += 2
			elems := append([]Value(nil), vm.stack[len(vm.stack)-n:]...)
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(Obj(vm.newVecFrom(elems)))

		case OpMakeTup:
			n := readU16(code, fr.ip)
			fr.ip += 2
			elems := append([]Value(nil), vm.stack[len(vm.stack)-n:]...)
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(Obj(vm.newTup(elems)))

		case OpMakeMap:
			n := readU16(code, fr.ip)
			fr.ip += 2
			pairs := vm.stack[len(vm.stack)-2*n:]
			m := vm.newMap()
			for i := 0; i < n; i++ {
				m.Set(pairs[2*i], pairs[2*i+1])
			}
			vm.stack = vm.stack[:len(vm.stack)-2*n]
			vm.push(Obj(m))

		case OpMakeSet:
			n := readU16(code, fr.ip)
			fr.ip += 2
			elems := vm.stack[len(vm.stack)-n:]
			s := vm.newSet()
			for _, e := range elems {
				s.Set(e, Null)
			}
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(Obj(s))

		case OpGetIndex:
			idx := vm.pop()
			recv := vm.pop()
			v, err := vm.getIndex(recv, idx)
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(v)
		case OpSetIndex:
			val := vm.pop()
			idx := vm.pop()
			recv := vm.pop()
			if err := vm.setIndex(recv, idx, val); err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(val)

		case OpGetField:
			nameIdx := readU16(code, fr.ip)
			public := readU8(code, fr.ip+2) != 0
			fr.ip += 3
			name := fr.closure.Fn.Constants[nameIdx].AsObj().(*Str)
			recv := vm.pop()
			v, err := vm.getField(recv, name.String(), public)
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(v)
		case OpSetField:
			nameIdx := readU16(code, fr.ip)
			fr.ip += 2
			name := fr.closure.Fn.Constants[nameIdx].AsObj().(*Str)
			val := vm.pop()
			recv := vm.pop()
			if err := vm.setField(recv, name.String(), val); err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(val)

		case OpMakeClass:
			nameIdx := readU16(code, fr.ip)
			fr.ip += 2
			name := fr.closure.Fn.Constants[nameIdx].AsObj().(*Str)
			vm.push(Obj(vm.newClass(name.String())))

		case OpInherit:
			super := vm.pop()
			sub := vm.peek(0)
			if err := vm.inherit(sub.AsObj().(*Class), super.AsObj().(*Class)); err != nil {
				vm.raiseFromGoError(err)
			}

		case OpDefineMethod:
			nameIdx := readU16(code, fr.ip)
			public := readU8(code, fr.ip+2) != 0
			fr.ip += 3
			name := fr.closure.Fn.Constants[nameIdx].AsObj().(*Str)
			fn := vm.pop()
			class := vm.peek(0).AsObj().(*Class)
			class.DefineMethod(vm, name.String(), public, fn)

		case OpDefineField:
			nameIdx := readU16(code, fr.ip)
			public := readU8(code, fr.ip+2) != 0
			fr.ip += 3
			name := fr.closure.Fn.Constants[nameIdx].AsObj().(*Str)
			defVal := vm.pop()
			class := vm.peek(0).AsObj().(*Class)
			class.DefineField(vm, name.String(), public, defVal)

		case OpDefineStaticMethod:
			nameIdx := readU16(code, fr.ip)
			fr.ip += 2
			name := fr.closure.Fn.Constants[nameIdx].AsObj().(*Str)
			fn := vm.pop()
			class := vm.peek(0).AsObj().(*Class)
			class.DefineStaticMethod(vm, name.String(), fn)

		case OpDefineStaticField:
			nameIdx := readU16(code, fr.ip)
			fr.ip += 2
			name := fr.closure.Fn.Constants[nameIdx].AsObj().(*Str)
			val := vm.pop()
			class := vm.peek(0).AsObj().(*Class)
			class.DefineStaticField(vm, name.String(), val)

		case OpGetIter:
			v := vm.pop()
			it, err := vm.getIterator(v)
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(Obj(it))
		case OpIterNext:
			itVal := vm.peek(0)
			it, ok := itVal.AsObj().(*Iter)
			if !ok {
				vm.raiseFromGoError(fmt.Errorf("value of type %s is not an iterator", itVal.TypeName()))
				continue
			}
			v, err := vm.iterNext(it)
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(v)

		case OpStringify:
			s, err := vm.stringify(vm.pop())
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(Obj(s))

		case OpConcat:
			b, err1 := vm.stringify(vm.pop())
			a, err2 := vm.stringify(vm.pop())
			if err1 != nil {
				vm.raiseFromGoError(err1)
				continue
			}
			if err2 != nil {
				vm.raiseFromGoError(err2)
				continue
			}
			vm.push(Obj(vm.concatStrings(a, b)))

		case OpImportModule:
			idx := readU16(code, fr.ip)
			fr.ip += 2
			path := fr.closure.Fn.Constants[idx].AsObj().(*Str)
			mod, err := vm.ImportModule(path.String())
			if err != nil {
				vm.raiseFromGoError(err)
				continue
			}
			vm.push(Obj(mod))

		case OpStartWith:
			vm.startWith(vm.peek(0))
		case OpEndWith:
			if err := vm.endWith(); err != nil {
				vm.raiseFromGoError(err)
			}

		case OpTry:
			off := readI16(code, fr.ip)
			fr.ip += 2
			fr.catchIP = fr.ip + off
			fr.isTryFrame = true
			vm.tryDepth++
		case OpEndTry:
			fr.isTryFrame = false
			fr.catchIP = -1
			vm.tryDepth--

		case OpPanic:
			msg := vm.pop()
			vm.Panic("%s", msg.DebugString())

		default:
			vm.raiseFromGoError(fmt.Errorf("unimplemented opcode %d", op))
		}
	}
}

// tryRecover unwinds frames looking for the nearest enclosing TRY frame
// at or above returnDepth. If found, it truncates the stack/with-stack
// back to that frame's call-time depth, clears the panic flag, pushes the
// panic payload as the TRY expression's result, and resumes execution at
// the catch target. Returns false if no TRY frame catches it (an exit
// never does, per §4.12).
func (vm *VM) tryRecover(returnDepth int) bool {
	if vm.exitFlag {
		return false
	}
	for len(vm.frames) > returnDepth {
		fr := &vm.frames[len(vm.frames)-1]
		if fr.isTryFrame {
			_ = vm.unwindWithTo(fr.withBase)
			vm.closeUpvaluesFrom(fr.stackBase)
			vm.stack = vm.stack[:fr.stackBase]
			payload := vm.panicValue
			vm.ClearPanic()
			vm.push(payload)
			fr.ip = fr.catchIP
			fr.isTryFrame = false
			fr.catchIP = -1
			vm.tryDepth--
			return true
		}
		vm.frames = vm.frames[:len(vm.frames)-1]
	}
	return false
}

// dispatchCall implements the OpCall opcode: a bytecode Closure call
// pushes a new frame onto the same run loop (no Go recursion); every
// other callable kind goes through the general CallValue path.
func (vm *VM) dispatchCall(argc int) error {
	args := append([]Value(nil), vm.stack[len(vm.stack)-argc:]...)
	callee := vm.stack[len(vm.stack)-argc-1]
	vm.stack = vm.stack[:len(vm.stack)-argc-1]

	if cl, ok := callee.AsObj().(*Closure); ok {
		bound, err := vm.bindArgs(cl, args)
		if err != nil {
			return err
		}
		base := len(vm.stack)
		vm.stack = append(vm.stack, bound...)
		if extra := cl.Fn.NumLocals - len(bound); extra > 0 {
			for i := 0; i < extra; i++ {
				vm.stack = append(vm.stack, Null)
			}
		}
		vm.frames = append(vm.frames, CallFrame{
			closure:   cl,
			stackBase: base,
			withBase:  len(vm.withStack),
			catchIP:   -1,
		})
		return nil
	}

	res, err := vm.CallValue(callee, args)
	if err != nil {
		return err
	}
	vm.push(res)
	return nil
}

// captureUpvalue finds or creates an open Upvalue for the given absolute
// stack slot, inserting it into the VM's open-upvalue list in descending-
// slot order (§3.4).
func (vm *VM) captureUpvalue(stackSlot int) *Upvalue {
	var prev *Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.stackSlot > stackSlot {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.stackSlot == stackSlot {
		return cur
	}
	u := vm.newUpvalue(stackSlot)
	u.next = cur
	if prev == nil {
		vm.openUpvalues = u
	} else {
		prev.next = u
	}
	return u
}

// closeUpvaluesFrom closes every open upvalue at or above stackSlot,
// copying each one's current stack value into its own storage, called
// when a block or function scope whose locals they reference exits
// (§3.4).
func (vm *VM) closeUpvaluesFrom(stackSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.stackSlot >= stackSlot {
		u := vm.openUpvalues
		vm.closeUpvalue(u, vm.stack[u.stackSlot])
		vm.openUpvalues = u.next
	}
}

func binaryOpFor(op OpCode) Op {
	switch op {
	case OpAdd:
		return BinAdd
	case OpSub:
		return BinSub
	case OpMul:
		return BinMul
	case OpDiv:
		return BinDiv
	case OpFloorDiv:
		return BinFloorDiv
	case OpMod:
		return BinMod
	case OpPow:
		return BinPow
	case OpBitOr:
		return BinBitOr
	case OpBitAnd:
		return BinBitAnd
	case OpBitXor:
		return BinBitXor
	case OpShl:
		return BinShl
	case OpShr:
		return BinShr
	case OpEqual:
		return BinEq
	case OpLess:
		return BinLt
	case OpLessEqual:
		return BinLe
	case OpGreater:
		return BinGt
	case OpGreaterEqual:
		return BinGe
	}
	panic("unreachable binaryOpFor")
}
