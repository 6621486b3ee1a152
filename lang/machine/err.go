package machine

import "fmt"

// Err is a message string plus a details map (§3.2). It is the sentinel
// ERROR value returned by exhausted iterators, by map-get on a missing
// key, and by TRY on a caught panic (§7).
type Err struct {
	objHeader
	Message string
	Details *Map
}

func (vm *VM) newErr(message string) *Err {
	e := &Err{Message: message, Details: vm.newMap()}
	e.objType = ObjErr
	vm.registerObject(e)
	return e
}

func (e *Err) typeName() string    { return "err" }
func (e *Err) debugString() string { return fmt.Sprintf("err(%q)", e.Message) }

func (e *Err) blacken(gc *collector) {
	gc.markObject(e.Details)
}

// sentinelError is the canned shared "not found / exhausted" ERROR value
// created once during bootstrap and reused everywhere the spec calls for
// the sentinel ERROR value (§4.8, §7), distinguishing it from ordinary
// Err values constructed from a panic.
func (vm *VM) sentinelError() Value { return Obj(vm.errSentinel) }
