package machine

import "fmt"

// Module holds a submodules map, a members vector, and two name-to-index
// maps (all members, public members) used by GET_MEMBER and the import
// opcodes (§3.2, §4.11).
type Module struct {
	objHeader

	Path string // fully-qualified dotted path, "" for the main module

	Submodules      *Map // name (Str) -> *Module
	Members         []Value
	AllMemberIndex  *Map // name (Str) -> I64 index into Members
	PubMemberIndex  *Map

	loaded bool // true once the module's init code has run without panicking
}

func (vm *VM) newModule(path string) *Module {
	m := &Module{Path: path}
	m.objType = ObjModule
	vm.registerObject(m)
	m.Submodules = vm.newMap()
	m.AllMemberIndex = vm.newMap()
	m.PubMemberIndex = vm.newMap()
	return m
}

func (m *Module) typeName() string    { return "module" }
func (m *Module) debugString() string { return fmt.Sprintf("module(%s)", m.Path) }

func (m *Module) blacken(gc *collector) {
	gc.markObject(m.Submodules)
	gc.markObject(m.AllMemberIndex)
	gc.markObject(m.PubMemberIndex)
	for _, v := range m.Members {
		gc.markValue(v)
	}
}

// defineMember appends value to Members and records its index under name,
// optionally as public. Redefining an existing name updates the slot in
// place rather than appending (DEFINE_PRI_GLOBAL/DEFINE_PUB_GLOBAL are
// idempotent under recompilation of the same module).
func (vm *VM) defineMember(m *Module, name string, public bool, value Value) {
	key := Obj(vm.internString(name))
	if idxV, found := m.AllMemberIndex.Get(key); found {
		m.Members[idxV.AsI64()] = value
		if public {
			m.PubMemberIndex.Set(key, idxV)
		}
		return
	}
	idx := int64(len(m.Members))
	m.Members = append(m.Members, value)
	m.AllMemberIndex.Set(key, I64(idx))
	if public {
		m.PubMemberIndex.Set(key, I64(idx))
	}
}

// Member looks up name among m's public members, the same resolution a
// `module.name` expression performs from outside the module (§4.11). It
// is the exported counterpart of getMember, for hosts and std/ packages
// that only have the public surface available.
func (vm *VM) Member(m *Module, name string) (Value, bool) {
	return vm.getMember(m, name, true)
}

func (vm *VM) getMember(m *Module, name string, publicOnly bool) (Value, bool) {
	key := Obj(vm.internString(name))
	idx := m.AllMemberIndex
	if publicOnly {
		idx = m.PubMemberIndex
	}
	idxV, found := idx.Get(key)
	if !found {
		return Null, false
	}
	return m.Members[idxV.AsI64()], true
}
