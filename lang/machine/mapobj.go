package machine

import "fmt"

// Map is an open-addressed hash map (§3.2); the same struct serves three
// roles distinguished by flags, exactly as the source does with a shared
// PyroMap struct and separate object-type tags:
//   - a plain Map (key -> value)
//   - a Set (isSet: every value slot holds Null, and a Set hashes as the
//     XOR of its key hashes per §4.1)
//   - a WeakRef (isWeakRef: its entries are not scanned by the GC). The
//     intern pool is not one of these: it is a raw *table that gc.go's
//     sweepInternPool prunes.
type Map struct {
	objHeader
	table     *table
	isSet     bool
	isWeakRef bool
}

func (vm *VM) newMap() *Map {
	m := &Map{table: newTable(vm)}
	m.objType = ObjMap
	vm.registerObject(m)
	return m
}

func (vm *VM) newSet() *Map {
	m := vm.newMap()
	m.isSet = true
	return m
}

func (vm *VM) newWeakRefMap() *Map {
	m := &Map{table: newTable(vm)}
	m.objType = ObjMap
	m.isWeakRef = true
	vm.registerObject(m)
	return m
}

func (m *Map) typeName() string {
	if m.isSet {
		return "set"
	}
	return "map"
}
func (m *Map) debugString() string { return fmt.Sprintf("%s(%d)", m.typeName(), m.table.count()) }

func (m *Map) blacken(gc *collector) {
	if m.isWeakRef {
		// A WeakRef map blackens nothing: its keys and values are kept
		// alive only by references from elsewhere (§4.6).
		return
	}
	for i := 0; i < m.table.entryCount; i++ {
		e := &m.table.entries[i]
		if e.key.IsTombstone() {
			continue
		}
		gc.markValue(e.key)
		if !m.isSet {
			gc.markValue(e.value)
		}
	}
}

func (m *Map) Get(key Value) (Value, bool)    { return m.table.get(key) }
func (m *Map) Set(key, value Value) int       { return m.table.set(key, value) }
func (m *Map) Contains(key Value) bool        { return m.table.contains(key) }
func (m *Map) Remove(key Value) bool          { return m.table.remove(key) }
func (m *Map) Count() int                     { return m.table.count() }

func (vm *VM) copyMap(src *Map) *Map {
	dst := vm.newMap()
	dst.isSet = src.isSet
	dst.table = src.table.clone()
	return dst
}
