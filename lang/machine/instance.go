package machine

import "fmt"

// Instance is a class pointer plus a flexible trailing array of field
// values whose length equals the class's default-field-values count
// (§3.2, §3.3). Go has no flexible array members, so the fields slice is
// a regular owned slice sized once at construction -- the re-architecture
// called for in the design notes (§9 of the distilled spec).
type Instance struct {
	objHeader
	Fields []Value
}

// newInstance allocates an Instance with its field-values array sized
// from class's DefaultFieldValues and memcpy'd in, exactly as
// PyroInstance_new does.
func (vm *VM) newInstance(class *Class) *Instance {
	inst := &Instance{Fields: append([]Value(nil), class.DefaultFieldValues...)}
	inst.objType = ObjInstance
	inst.class = class
	vm.registerObject(inst)
	return inst
}

func (i *Instance) typeName() string {
	if i.class != nil {
		return i.class.Name
	}
	return "instance"
}
func (i *Instance) debugString() string { return fmt.Sprintf("instance(%s)", i.typeName()) }

func (i *Instance) blacken(gc *collector) {
	for _, v := range i.Fields {
		gc.markValue(v)
	}
}

// fieldIndex looks up name in the instance's class field-index maps.
func (vm *VM) fieldIndex(class *Class, name string, public bool) (int, bool, bool) {
	key := Obj(vm.internString(name))
	idxV, found := class.AllFieldIndexes.Get(key)
	if !found {
		return 0, false, false
	}
	if public {
		pidxV, pfound := class.PubFieldIndexes.Get(key)
		if !pfound {
			return 0, false, true
		}
		return int(pidxV.AsI64()), true, false
	}
	return int(idxV.AsI64()), true, false
}
