package machine

import "fmt"

// getField implements GET_FIELD (§4.5, §4.9's dot-call path): for an
// Instance, a field hit wins over a method hit; for a Module, a member
// lookup; otherwise a method lookup against the value's builtin class,
// producing a BoundMethod.
func (vm *VM) getField(recv Value, name string, public bool) (Value, error) {
	if recv.IsObj() {
		if mod, ok := recv.AsObj().(*Module); ok {
			if v, found := vm.getMember(mod, name, public); found {
				return v, nil
			}
			return Null, fmt.Errorf("module %s has no member %s", mod.Path, name)
		}
		if inst, ok := recv.AsObj().(*Instance); ok {
			if idx, found, isPrivate := vm.fieldIndex(inst.class, name, public); found {
				return inst.Fields[idx], nil
			} else if isPrivate {
				return Null, fmt.Errorf("field %s is private", name)
			}
		}
	}

	class := vm.classFor(recv)
	if class == nil {
		return Null, fmt.Errorf("value of type %s has no field or method %s", recv.TypeName(), name)
	}
	m, found, isPrivate := vm.lookupMethod(class, name, public)
	if !found {
		if isPrivate {
			return Null, fmt.Errorf("method %s is private", name)
		}
		return Null, fmt.Errorf("value of type %s has no field or method %s", recv.TypeName(), name)
	}
	return Obj(vm.newBoundMethod(recv, m.AsObj())), nil
}

// setField implements SET_FIELD: only an Instance's own fields are
// assignable; everything else panics.
func (vm *VM) setField(recv Value, name string, val Value) error {
	inst, ok := recv.AsObj().(*Instance)
	if !ok {
		return fmt.Errorf("value of type %s has no assignable field %s", recv.TypeName(), name)
	}
	idx, found, isPrivate := vm.fieldIndex(inst.class, name, false)
	if !found {
		if isPrivate {
			return fmt.Errorf("field %s is private", name)
		}
		return fmt.Errorf("instance of %s has no field %s", inst.typeName(), name)
	}
	inst.Fields[idx] = val
	return nil
}
