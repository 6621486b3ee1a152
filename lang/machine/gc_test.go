package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func countLiveObjects(vm *VM) int {
	n := 0
	for o := vm.objects; o != nil; o = o.header().next {
		n++
	}
	return n
}

func TestCollectFreesUnreachableObject(t *testing.T) {
	vm := NewVM(0)

	reachable := vm.newVecFrom([]Value{I64(1)})
	vm.push(Obj(reachable))

	_ = vm.newVecFrom([]Value{I64(2)}) // unreachable: never stored anywhere

	before := countLiveObjects(vm)
	vm.Collect()
	after := countLiveObjects(vm)

	require.Less(t, after, before)
	require.False(t, reachable.header().marked, "survivors must be unmarked again after sweep")

	vm.pop()
}

func TestCollectKeepsObjectsReachableFromStack(t *testing.T) {
	vm := NewVM(0)

	v := vm.newVecFrom([]Value{I64(1), I64(2)})
	vm.push(Obj(v))

	vm.Collect()

	found := false
	for o := vm.objects; o != nil; o = o.header().next {
		if o == Object(v) {
			found = true
			break
		}
	}
	require.True(t, found)
	vm.pop()
}

func TestCollectKeepsObjectsReachableThroughNestedContainer(t *testing.T) {
	vm := NewVM(0)

	inner := vm.newVecFrom([]Value{I64(99)})
	outer := vm.newVecFrom([]Value{Obj(inner)})
	vm.push(Obj(outer))

	vm.Collect()

	found := false
	for o := vm.objects; o != nil; o = o.header().next {
		if o == Object(inner) {
			found = true
			break
		}
	}
	require.True(t, found, "an object reachable only via a container element must survive")
	vm.pop()
}

func TestCollectIsNoOpWhileDisallowed(t *testing.T) {
	vm := NewVM(0)
	_ = vm.newVecFrom([]Value{I64(1)}) // unreachable

	vm.gcDisallows++
	before := countLiveObjects(vm)
	vm.Collect()
	after := countLiveObjects(vm)
	require.Equal(t, before, after)
	vm.gcDisallows--
}

func TestCollectEvictsInternedStringNoLongerReferenced(t *testing.T) {
	vm := NewVM(0)

	s := vm.internString("ephemeral")
	require.NotNil(t, vm.internPool.findStringByBytes([]byte("ephemeral"), s.hash))

	vm.Collect()

	require.Nil(t, vm.internPool.findStringByBytes([]byte("ephemeral"), s.hash),
		"a string with no root reference must be evicted from the intern pool on the same cycle it is collected")
}
