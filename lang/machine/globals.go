package machine

// lookupGlobal resolves a GET_GLOBAL opcode's name constant: first against
// the running module's own members (§4.11's module-is-a-namespace model),
// then against the VM's superglobals (builtin classes and the stdlib seam
// functions of §9).
func (vm *VM) lookupGlobal(mod *Module, name Value) (Value, bool) {
	nameStr, ok := name.AsObj().(*Str)
	if !ok {
		return Null, false
	}
	if mod != nil {
		if v, found := vm.getMember(mod, nameStr.String(), false); found {
			return v, true
		}
	}
	return vm.superglobals.get(name)
}

// defineGlobal implements DEFINE_GLOBAL: always defines into the running
// module's own member table, never into superglobals (those are fixed at
// bootstrap).
func (vm *VM) defineGlobal(mod *Module, name Value, value Value) {
	nameStr, ok := name.AsObj().(*Str)
	if !ok || mod == nil {
		return
	}
	vm.defineMember(mod, nameStr.String(), true, value)
}

// setGlobal implements SET_GLOBAL: a plain assignment to an existing
// global must already exist as a module member; it is never allowed to
// shadow or mutate a superglobal.
func (vm *VM) setGlobal(mod *Module, name Value, value Value) bool {
	nameStr, ok := name.AsObj().(*Str)
	if !ok || mod == nil {
		return false
	}
	key := Obj(vm.internString(nameStr.String()))
	idxV, found := mod.AllMemberIndex.Get(key)
	if !found {
		return false
	}
	mod.Members[idxV.AsI64()] = value
	return true
}
