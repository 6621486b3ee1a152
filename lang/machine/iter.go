package machine

import (
	"bytes"
	"unicode/utf8"
)

// iterKind discriminates the concrete state an Iter carries (§4.8).
type iterKind uint8

const (
	iterEmpty iterKind = iota
	iterVec
	iterTup
	iterStrBytes
	iterStrChars
	iterStrLines
	iterMapKeys
	iterMapValues
	iterMapEntries
	iterQueue
	iterRange
	iterMap     // wraps a source iterator through a callback
	iterFilter  // wraps a source iterator through a predicate
	iterEnumerate
	iterFileLines
	iterGeneric // delegates to a user object's $next method
)

// Iter is the uniform iterator object exposed to bytecode (§3.2, §4.8).
// Every iterable is accessed by first obtaining an Iter, either the
// object itself if it already is one, or the result of calling its $iter
// method.
type Iter struct {
	objHeader
	kind iterKind

	vecSrc  *Vec
	tupSrc  *Tup
	strSrc  *Str
	nextIdx int // shared "next index" cursor for Vec/Tup/Str/Map iterators

	queueNode *queueNode

	rangeNext, rangeStop, rangeStep int64

	srcIter  *Iter
	callback Value // for Map
	pred     Value // for Filter
	enumIdx  int64 // for Enumerate

	file *File

	generic Value // for Generic: the user object with a $next method

	mapSrcVal *Map // for MapKeys/MapValues/MapEntries
}

func (vm *VM) newIter(kind iterKind) *Iter {
	it := &Iter{kind: kind}
	it.objType = ObjIter
	vm.registerObject(it)
	return it
}

func (it *Iter) typeName() string    { return "iter" }
func (it *Iter) debugString() string { return "iter" }

func (it *Iter) blacken(gc *collector) {
	if it.vecSrc != nil {
		gc.markObject(it.vecSrc)
	}
	if it.tupSrc != nil {
		gc.markObject(it.tupSrc)
	}
	if it.strSrc != nil {
		gc.markObject(it.strSrc)
	}
	if it.srcIter != nil {
		gc.markObject(it.srcIter)
	}
	gc.markValue(it.callback)
	gc.markValue(it.pred)
	gc.markValue(it.generic)
	if it.file != nil {
		gc.markObject(it.file)
	}
	if it.mapSrcVal != nil {
		gc.markObject(it.mapSrcVal)
	}
}

// iterNext implements Iter.$next: returns (value, nil) for the next
// element, (ERROR-sentinel, nil) on exhaustion, or a non-nil error if
// producing the element failed (§4.8).
func (vm *VM) iterNext(it *Iter) (Value, error) {
	switch it.kind {
	case iterEmpty:
		return vm.sentinelError(), nil

	case iterVec:
		if it.nextIdx >= len(it.vecSrc.values) {
			return vm.sentinelError(), nil
		}
		v := it.vecSrc.values[it.nextIdx]
		it.nextIdx++
		return v, nil

	case iterTup:
		if it.nextIdx >= len(it.tupSrc.values) {
			return vm.sentinelError(), nil
		}
		v := it.tupSrc.values[it.nextIdx]
		it.nextIdx++
		return v, nil

	case iterStrBytes:
		if it.nextIdx >= len(it.strSrc.bytes) {
			return vm.sentinelError(), nil
		}
		b := it.strSrc.bytes[it.nextIdx]
		it.nextIdx++
		return Obj(vm.internTake([]byte{b})), nil

	case iterStrChars:
		if it.nextIdx >= len(it.strSrc.bytes) {
			return vm.sentinelError(), nil
		}
		r, size := utf8.DecodeRune(it.strSrc.bytes[it.nextIdx:])
		it.nextIdx += size
		return Char(r), nil

	case iterStrLines:
		if it.nextIdx >= len(it.strSrc.bytes) {
			return vm.sentinelError(), nil
		}
		rest := it.strSrc.bytes[it.nextIdx:]
		nl := bytes.IndexByte(rest, '\n')
		var line []byte
		if nl < 0 {
			line = rest
			it.nextIdx = len(it.strSrc.bytes)
		} else {
			line = rest[:nl]
			it.nextIdx += nl + 1
		}
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		return Obj(vm.internCopy(line)), nil

	case iterMapKeys, iterMapValues, iterMapEntries:
		return vm.mapIterNext(it)

	case iterQueue:
		if it.queueNode == nil {
			return vm.sentinelError(), nil
		}
		v := it.queueNode.value
		it.queueNode = it.queueNode.next
		return v, nil

	case iterRange:
		if it.rangeStep > 0 {
			if it.rangeNext >= it.rangeStop {
				return vm.sentinelError(), nil
			}
		} else {
			if it.rangeNext <= it.rangeStop {
				return vm.sentinelError(), nil
			}
		}
		v := I64(it.rangeNext)
		it.rangeNext += it.rangeStep
		return v, nil

	case iterMap:
		src, err := vm.iterNext(it.srcIter)
		if err != nil {
			return Null, err
		}
		if isErrorSentinel(vm, src) {
			return src, nil
		}
		return vm.callValueArgs(it.callback, []Value{src})

	case iterFilter:
		for {
			src, err := vm.iterNext(it.srcIter)
			if err != nil {
				return Null, err
			}
			if isErrorSentinel(vm, src) {
				return src, nil
			}
			keep, err := vm.callValueArgs(it.pred, []Value{src})
			if err != nil {
				return Null, err
			}
			if keep.Truthy() {
				return src, nil
			}
		}

	case iterEnumerate:
		src, err := vm.iterNext(it.srcIter)
		if err != nil {
			return Null, err
		}
		if isErrorSentinel(vm, src) {
			return src, nil
		}
		v := vm.newTup([]Value{I64(it.enumIdx), src})
		it.enumIdx++
		return Obj(v), nil

	case iterFileLines:
		if it.file == nil {
			return vm.sentinelError(), nil
		}
		line, err := it.file.ReadLine()
		if err != nil {
			it.file = nil
			return vm.sentinelError(), nil
		}
		return Obj(vm.internString(line)), nil

	case iterGeneric:
		return vm.callMethod(it.generic, "$next", false, nil)
	}
	return vm.sentinelError(), nil
}

func (vm *VM) mapIterNext(it *Iter) (Value, error) {
	for it.nextIdx < it.tupSrcMapLen() {
		e := &it.mapSrc().table.entries[it.nextIdx]
		it.nextIdx++
		if e.key.IsTombstone() {
			continue
		}
		switch it.kind {
		case iterMapKeys:
			return e.key, nil
		case iterMapValues:
			return e.value, nil
		default:
			return Obj(vm.newTup([]Value{e.key, e.value})), nil
		}
	}
	return vm.sentinelError(), nil
}

// mapSrc/tupSrcMapLen are tiny helpers so mapIterNext can share the nextIdx
// cursor field with the other kinds without a dedicated field.
func (it *Iter) mapSrc() *Map { return it.mapSrcVal }
func (it *Iter) tupSrcMapLen() int {
	if it.mapSrcVal == nil {
		return 0
	}
	return it.mapSrcVal.table.entryCount
}

func isErrorSentinel(vm *VM, v Value) bool {
	return v.IsObj() && v.AsObj() == Object(vm.errSentinel)
}

// join builds a string by stringifying each value from it, separated by
// sep (§4.8's Iter.join).
func (vm *VM) iterJoin(it *Iter, sep string) (*Str, error) {
	var parts []byte
	first := true
	for {
		v, err := vm.iterNext(it)
		if err != nil {
			return nil, err
		}
		if isErrorSentinel(vm, v) {
			break
		}
		if !first {
			parts = append(parts, sep...)
		}
		first = false
		s, err := vm.stringify(v)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s.bytes...)
	}
	return vm.internTake(parts), nil
}
