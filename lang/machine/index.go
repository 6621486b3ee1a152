package machine

import "fmt"

// getIndex implements GET_INDEX (§4.7's indexing rule): Vec/Tup/Str by
// integer offset (negative counts from the end), Map/Set by key, or a
// $get_index method fallback on an Instance.
func (vm *VM) getIndex(recv, idx Value) (Value, error) {
	if recv.IsObj() {
		switch o := recv.AsObj().(type) {
		case *Vec:
			i, err := normalizeIndex(idx, len(o.values))
			if err != nil {
				return Null, err
			}
			return o.values[i], nil
		case *Tup:
			i, err := normalizeIndex(idx, len(o.values))
			if err != nil {
				return Null, err
			}
			return o.values[i], nil
		case *Str:
			runes := []rune(string(o.bytes))
			i, err := normalizeIndex(idx, len(runes))
			if err != nil {
				return Null, err
			}
			return Char(runes[i]), nil
		case *Map:
			v, found := o.Get(idx)
			if !found {
				return vm.sentinelError(), nil
			}
			return v, nil
		case *Instance:
			if m, found, _ := vm.lookupMethod(o.class, "$get_index", false); found {
				return vm.callValueArgs(m, []Value{recv, idx})
			}
		}
	}
	return Null, fmt.Errorf("value of type %s does not support indexing", recv.TypeName())
}

// setIndex implements SET_INDEX.
func (vm *VM) setIndex(recv, idx, val Value) error {
	if recv.IsObj() {
		switch o := recv.AsObj().(type) {
		case *Vec:
			i, err := normalizeIndex(idx, len(o.values))
			if err != nil {
				return err
			}
			o.values[i] = val
			return nil
		case *Map:
			o.Set(idx, val)
			return nil
		case *Instance:
			if m, found, _ := vm.lookupMethod(o.class, "$set_index", false); found {
				_, err := vm.callValueArgs(m, []Value{recv, idx, val})
				return err
			}
		}
	}
	return fmt.Errorf("value of type %s does not support index assignment", recv.TypeName())
}

// normalizeIndex converts a possibly-negative integer index into a
// bounds-checked positive offset, per §4.7's "negative indices count from
// the end" rule.
func normalizeIndex(idx Value, length int) (int, error) {
	if !idx.IsI64() {
		return 0, fmt.Errorf("index must be an integer, got %s", idx.TypeName())
	}
	i := idx.AsI64()
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, fmt.Errorf("index %d out of range (length %d)", idx.AsI64(), length)
	}
	return int(i), nil
}
