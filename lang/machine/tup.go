package machine

import "fmt"

// Tup is a fixed-size, immutable array of values (§3.2).
type Tup struct {
	objHeader
	values []Value
}

func (vm *VM) newTup(values []Value) *Tup {
	t := &Tup{values: values}
	t.objType = ObjTup
	vm.registerObject(t)
	return t
}

func (t *Tup) typeName() string    { return "tup" }
func (t *Tup) debugString() string { return fmt.Sprintf("tup(%d)", len(t.values)) }
func (t *Tup) Len() int            { return len(t.values) }
func (t *Tup) At(i int) Value      { return t.values[i] }

func (t *Tup) blacken(gc *collector) {
	for _, v := range t.values {
		gc.markValue(v)
	}
}

// tupCheckEqual implements element-wise tuple equality (§4.1).
func (vm *VM) tupCheckEqual(a, b *Tup) (bool, error) {
	if len(a.values) != len(b.values) {
		return false, nil
	}
	for i := range a.values {
		eq, err := vm.valuesEqual(a.values[i], b.values[i])
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}
