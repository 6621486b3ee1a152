package machine

// ResourcePointer wraps an opaque pointer with an on-free callback (§3.2),
// used by native modules (e.g. an open database handle, a loaded plugin)
// that need GC-driven cleanup without becoming a first-class object kind
// of their own.
type ResourcePointer struct {
	objHeader
	Ptr    any
	OnFree func(any)
	freed  bool
}

func (vm *VM) newResourcePointer(ptr any, onFree func(any)) *ResourcePointer {
	r := &ResourcePointer{Ptr: ptr, OnFree: onFree}
	r.objType = ObjResourcePointer
	vm.registerObject(r)
	return r
}

func (r *ResourcePointer) typeName() string    { return "resource_pointer" }
func (r *ResourcePointer) debugString() string { return "resource_pointer" }
func (r *ResourcePointer) blacken(gc *collector) {}

func (r *ResourcePointer) free() {
	if r.freed {
		return
	}
	r.freed = true
	if r.OnFree != nil {
		r.OnFree(r.Ptr)
	}
}
