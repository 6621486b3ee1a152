package machine

import "fmt"

// Vec is a growable array of values; also used as a Stack (§3.2).
type Vec struct {
	objHeader
	values []Value
}

func (vm *VM) newVec() *Vec {
	v := &Vec{}
	v.objType = ObjVec
	vm.registerObject(v)
	return v
}

// NewVec builds a Vec holding values, registered with vm's heap like any
// other allocation, for a host or std/ package to pass into user code.
func (vm *VM) NewVec(values []Value) *Vec {
	return vm.newVecFrom(append([]Value(nil), values...))
}

func (vm *VM) newVecFrom(values []Value) *Vec {
	v := &Vec{values: values}
	v.objType = ObjVec
	vm.registerObject(v)
	return v
}

func (v *Vec) typeName() string    { return "vec" }
func (v *Vec) debugString() string { return fmt.Sprintf("vec(%d)", len(v.values)) }
func (v *Vec) Len() int            { return len(v.values) }

func (v *Vec) blacken(gc *collector) {
	for _, e := range v.values {
		gc.markValue(e)
	}
}

func (v *Vec) Append(x Value)         { v.values = append(v.values, x) }
func (v *Vec) Get(i int) (Value, bool) {
	if i < 0 || i >= len(v.values) {
		return Null, false
	}
	return v.values[i], true
}
func (v *Vec) Set(i int, x Value) bool {
	if i < 0 || i >= len(v.values) {
		return false
	}
	v.values[i] = x
	return true
}

// Pop removes and returns the last element (Stack usage); ok is false if
// empty.
func (v *Vec) Pop() (Value, bool) {
	if len(v.values) == 0 {
		return Null, false
	}
	n := len(v.values) - 1
	x := v.values[n]
	v.values = v.values[:n]
	return x, true
}
