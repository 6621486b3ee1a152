package machine

import "fmt"

// getIterator implements GET_ITERATOR (§4.8): an Iter is returned as-is;
// the builtin containers get a fresh Iter of the appropriate kind over
// their default traversal (Map/Set default to MapKeys, matching the
// source's for-in-over-a-map-yields-keys convention); anything else must
// define $iter.
func (vm *VM) getIterator(v Value) (*Iter, error) {
	if it, ok := v.AsObj().(*Iter); ok {
		return it, nil
	}
	if v.IsObj() {
		switch o := v.AsObj().(type) {
		case *Vec:
			it := vm.newIter(iterVec)
			it.vecSrc = o
			return it, nil
		case *Tup:
			it := vm.newIter(iterTup)
			it.tupSrc = o
			return it, nil
		case *Str:
			it := vm.newIter(iterStrChars)
			it.strSrc = o
			return it, nil
		case *Map:
			it := vm.newIter(iterMapKeys)
			it.mapSrcVal = o
			return it, nil
		case *Queue:
			it := vm.newIter(iterQueue)
			it.queueNode = o.head
			return it, nil
		case *File:
			it := vm.newIter(iterFileLines)
			it.file = o
			return it, nil
		case *Instance:
			if m, found, _ := vm.lookupMethod(o.class, "$iter", false); found {
				res, err := vm.callValueArgs(m, []Value{v})
				if err != nil {
					return nil, err
				}
				if innerIt, ok := res.AsObj().(*Iter); ok {
					return innerIt, nil
				}
				gi := vm.newIter(iterGeneric)
				gi.generic = res
				return gi, nil
			}
		}
	}
	return nil, fmt.Errorf("value of type %s is not iterable", v.TypeName())
}

// newRangeIter builds an Iter over start, start+step, ... up to stop
// (§4.8); no range builtin is registered that calls it.
func (vm *VM) newRangeIter(start, stop, step int64) *Iter {
	it := vm.newIter(iterRange)
	it.rangeNext = start
	it.rangeStop = stop
	it.rangeStep = step
	return it
}

// newMapValuesIter / newMapEntriesIter build Iters over a Map's values and
// its entries; no Map method is registered that calls them.
func (vm *VM) newMapValuesIter(m *Map) *Iter {
	it := vm.newIter(iterMapValues)
	it.mapSrcVal = m
	return it
}

func (vm *VM) newMapEntriesIter(m *Map) *Iter {
	it := vm.newIter(iterMapEntries)
	it.mapSrcVal = m
	return it
}

// newMapIter / newFilterIter / newEnumerateIter wrap a source iterator,
// backing Iter.map(fn), Iter.filter(pred) and Iter.enumerate() (§4.8).
func (vm *VM) newMapIter(src *Iter, callback Value) *Iter {
	it := vm.newIter(iterMap)
	it.srcIter = src
	it.callback = callback
	return it
}

func (vm *VM) newFilterIter(src *Iter, pred Value) *Iter {
	it := vm.newIter(iterFilter)
	it.srcIter = src
	it.pred = pred
	return it
}

func (vm *VM) newEnumerateIter(src *Iter) *Iter {
	it := vm.newIter(iterEnumerate)
	it.srcIter = src
	return it
}
