package machine

// collector runs a tri-color mark-sweep pass over the VM's object graph
// (§4.6). Objects are not individually colored; instead the usual
// grey-stack formulation is used directly: markObject moves an object
// from white (unmarked) to grey by setting its mark bit and pushing it
// onto the grey stack, and the main loop pops greys and calls blacken
// until the stack is empty (every reachable object is now black, i.e.
// marked).
type collector struct {
	vm   *VM
	grey []Object
}

// Collect runs one full mark-sweep cycle: mark every root (§4.6's root
// set), drain the grey stack, sweep the intern pool's weak entries for
// strings that didn't get marked by anything other than the pool itself,
// then sweep the main object list. It is a no-op while gcDisallows > 0
// (set during a constructor that must not be interrupted mid-allocation).
func (vm *VM) Collect() {
	if vm.gcDisallows > 0 {
		return
	}

	before := vm.accountant.bytesInUse
	vm.logger.Debug("gc start", "bytes_in_use", before)

	gc := &collector{vm: vm}
	vm.markRoots(gc)
	gc.drain()

	vm.sweepInternPool()
	vm.sweep()

	vm.logger.Debug("gc end", "bytes_collected", before-vm.accountant.bytesInUse, "bytes_in_use", vm.accountant.bytesInUse)
}

// markRoots enumerates every GC root (§4.6): the value stack, every call
// frame's closure, the open-upvalue list, the with-stack, loaded modules,
// superglobals, builtin classes, the panic payload, and the error
// sentinel.
func (vm *VM) markRoots(gc *collector) {
	for _, v := range vm.stack {
		gc.markValue(v)
	}
	for i := range vm.frames {
		f := &vm.frames[i]
		if f.closure != nil {
			gc.markObject(f.closure)
		}
		if f.native != nil {
			gc.markObject(f.native)
		}
	}
	for u := vm.openUpvalues; u != nil; u = u.next {
		gc.markObject(u)
	}
	for _, v := range vm.withStack {
		gc.markValue(v)
	}
	for _, m := range vm.modules {
		gc.markObject(m)
	}
	gc.markValue(vm.panicValue)
	if vm.errSentinel != nil {
		gc.markObject(vm.errSentinel)
	}
	for _, c := range []*Class{
		vm.classStr, vm.classMap, vm.classVec, vm.classTup, vm.classBuf,
		vm.classFile, vm.classIter, vm.classStack, vm.classSet, vm.classQueue,
		vm.classErr, vm.classModule, vm.classChar,
	} {
		if c != nil {
			gc.markObject(c)
		}
	}
	gc.markSuperglobals(vm.superglobals)
}

func (gc *collector) markSuperglobals(t *table) {
	if t == nil {
		return
	}
	for i := 0; i < t.entryCount; i++ {
		e := &t.entries[i]
		if e.key.IsTombstone() {
			continue
		}
		gc.markValue(e.key)
		gc.markValue(e.value)
	}
}

// markValue marks the object a Value refers to, if any; scalars are
// no-ops.
func (gc *collector) markValue(v Value) {
	if v.IsObj() && v.AsObj() != nil {
		gc.markObject(v.AsObj())
	}
}

// markObject sets an object's mark bit (if not already set) and pushes
// it onto the grey stack for later blackening. This is the "white to
// grey" transition of the classic tri-color formulation.
func (gc *collector) markObject(o Object) {
	if o == nil {
		return
	}
	h := o.header()
	if h.marked {
		return
	}
	h.marked = true
	gc.grey = append(gc.grey, o)
}

// drain pops the grey stack, calling blacken on each object until no grey
// objects remain (every reachable object is now black/marked).
func (gc *collector) drain() {
	for len(gc.grey) > 0 {
		n := len(gc.grey) - 1
		o := gc.grey[n]
		gc.grey = gc.grey[:n]
		o.blacken(gc)
	}
}

// sweepInternPool drops any interned Str whose only reference was the
// pool's own weak entry (i.e. it never got marked by anything reachable
// from a root), implementing §4.6's design-notes fix for the weakref
// sweep-ordering fragility: the pool is swept before the main object
// list so a about-to-be-freed Str is evicted from the pool in the same
// cycle it is collected, rather than leaving a dangling lookup hit for
// one extra cycle. The old pool's reserved bytes are released back to the
// accountant before the rebuilt table (which reserves its own growth as
// it is populated) replaces it.
func (vm *VM) sweepInternPool() {
	kept := newTable(vm)
	for i := 0; i < vm.internPool.entryCount; i++ {
		e := &vm.internPool.entries[i]
		if e.key.IsTombstone() {
			continue
		}
		if s, ok := e.key.AsObj().(*Str); ok && s.marked {
			kept.set(e.key, e.value)
		}
	}
	vm.accountant.Release(vm.internPool.reservedBytes())
	vm.internPool = kept
}

// sweep walks the intrusive object list, freeing (unlinking) every
// unmarked object and clearing the mark bit on every survivor so the next
// cycle starts white again. A freed *Map gives back the bytes its table
// had reserved on growth, so accountant.bytesInUse actually drops when a
// collection reclaims something instead of only ever climbing.
func (vm *VM) sweep() {
	var prev Object
	cur := vm.objects
	for cur != nil {
		h := cur.header()
		next := h.next
		if h.marked {
			h.marked = false
			prev = cur
		} else {
			if m, ok := cur.(*Map); ok {
				vm.accountant.Release(m.table.reservedBytes())
			}
			if rp, ok := cur.(*ResourcePointer); ok {
				rp.free()
			}
			if f, ok := cur.(*File); ok {
				_ = f.Close()
			}
			if prev == nil {
				vm.objects = next
			} else {
				prev.header().next = next
			}
		}
		cur = next
	}
}
