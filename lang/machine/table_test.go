package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableSetGetRoundTrip(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)

	require.Equal(t, 1, tb.set(I64(1), Obj(vm.internString("one"))))
	require.Equal(t, 1, tb.set(I64(2), Obj(vm.internString("two"))))

	v, ok := tb.get(I64(1))
	require.True(t, ok)
	require.Equal(t, "one", v.AsObj().(*Str).String())

	require.Equal(t, 2, tb.count())
}

func TestTableSetUpdatesExistingKey(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)

	require.Equal(t, 1, tb.set(I64(1), I64(100)))
	require.Equal(t, 2, tb.set(I64(1), I64(200)))

	v, ok := tb.get(I64(1))
	require.True(t, ok)
	require.Equal(t, int64(200), v.AsI64())
	require.Equal(t, 1, tb.count())
}

func TestTableRemoveTombstonesAndSelfHeals(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)

	tb.set(I64(1), I64(1))
	tb.set(I64(2), I64(2))
	require.True(t, tb.remove(I64(1)))
	require.False(t, tb.contains(I64(1)))
	require.Equal(t, 1, tb.count())

	// Re-inserting a different key should be able to reuse the tombstoned
	// slot rather than growing unnecessarily.
	require.Equal(t, 1, tb.set(I64(3), I64(3)))
	require.Equal(t, 2, tb.count())
	v, ok := tb.get(I64(2))
	require.True(t, ok)
	require.Equal(t, int64(2), v.AsI64())
}

func TestTableRemoveAbsentKeyReturnsFalse(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)
	require.False(t, tb.remove(I64(1)))
}

func TestTableGrowsAndPreservesAllEntries(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)

	const n = 200
	for i := 0; i < n; i++ {
		require.Equal(t, 1, tb.set(I64(int64(i)), I64(int64(i*i))))
	}
	require.Equal(t, n, tb.count())
	for i := 0; i < n; i++ {
		v, ok := tb.get(I64(int64(i)))
		require.True(t, ok)
		require.Equal(t, int64(i*i), v.AsI64())
	}
}

func TestTableCloneIsIndependent(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)
	tb.set(I64(1), I64(1))

	clone := tb.clone()
	clone.set(I64(2), I64(2))

	require.False(t, tb.contains(I64(2)))
	require.True(t, clone.contains(I64(2)))
}

func TestTableCopyEntriesIntoSkipsTombstones(t *testing.T) {
	vm := NewVM(0)
	src := newTable(vm)
	src.set(I64(1), I64(1))
	src.set(I64(2), I64(2))
	src.remove(I64(1))

	dst := newTable(vm)
	require.True(t, src.copyEntriesInto(dst))
	require.Equal(t, 1, dst.count())
	require.False(t, dst.contains(I64(1)))
	require.True(t, dst.contains(I64(2)))
}

func TestTableEachVisitsLiveEntriesInInsertionOrder(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)
	tb.set(I64(1), Null)
	tb.set(I64(2), Null)
	tb.set(I64(3), Null)
	tb.remove(I64(2))

	var seen []int64
	tb.each(func(k, v Value) bool {
		seen = append(seen, k.AsI64())
		return true
	})
	require.Equal(t, []int64{1, 3}, seen)
}

func TestTableFindStringByBytes(t *testing.T) {
	vm := NewVM(0)
	tb := newTable(vm)
	s := vm.internString("hello")
	tb.set(Obj(s), Null)

	found := tb.findStringByBytes([]byte("hello"), s.hash)
	require.NotNil(t, found)
	require.Equal(t, s, found)

	require.Nil(t, tb.findStringByBytes([]byte("nope"), s.hash+1))
}
