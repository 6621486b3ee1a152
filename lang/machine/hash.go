package machine

import (
	"math"
)

// infHash is the fixed constant both +Inf and -Inf hash to (§4.1).
const infHash uint64 = 0x7ff0000000000000

// hashValue implements the hashing rule of §4.1: values that compare
// semantically-equal must hash equal. In particular I64(7), F64(7.0) and
// Char(7) all hash identically, NaN hashes to 0, and ±Inf hash to a fixed
// constant. Instances with a $hash method delegate to it via the VM.
func (vm *VM) hashValue(v Value) (uint64, error) {
	switch {
	case v.IsNull():
		return 0, nil
	case v.IsTombstone():
		return 0, nil
	case v.IsBool():
		if v.AsBool() {
			return 1, nil
		}
		return 0, nil
	case v.IsI64():
		return hashInt64(v.AsI64()), nil
	case v.IsChar():
		return hashInt64(int64(v.AsChar())), nil
	case v.IsF64():
		f := v.AsF64()
		if math.IsNaN(f) {
			return 0, nil
		}
		if math.IsInf(f, 0) {
			return infHash, nil
		}
		if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
			return hashInt64(int64(f)), nil
		}
		return math.Float64bits(f), nil
	case v.IsObj():
		return vm.hashObject(v.AsObj())
	}
	return 0, nil
}

func (vm *VM) hashObject(o Object) (uint64, error) {
	switch o := o.(type) {
	case *Str:
		return o.hash, nil
	case *Tup:
		var h uint64
		for _, e := range o.values {
			eh, err := vm.hashValue(e)
			if err != nil {
				return 0, err
			}
			h ^= eh
		}
		return h, nil
	case *Instance:
		if m, ok, _ := vm.lookupMethod(o.class, "$hash", false); ok {
			res, err := vm.callValueArgs(m, []Value{Obj(o)})
			if err != nil {
				return 0, err
			}
			return vm.hashValue(res)
		}
		return hashPointer(o), nil
	default:
		if m, ok := o.(*Map); ok && m.isSet {
			var h uint64
			for i := range m.table.entries {
				e := &m.table.entries[i]
				if e.key.IsTombstone() {
					continue
				}
				kh, err := vm.hashValue(e.key)
				if err != nil {
					return 0, err
				}
				h ^= kh
			}
			return h, nil
		}
		return hashPointer(o), nil
	}
}

// hashInt64 is a 64-bit integer mixing function (splitmix64 finalizer),
// used so small integers don't cluster at low table indices.
func hashInt64(i int64) uint64 {
	u := uint64(i)
	u ^= u >> 33
	u *= 0xff51afd7ed558ccd
	u ^= u >> 33
	u *= 0xc4ceb9fe1a85ec53
	u ^= u >> 33
	return u
}

// hashPointer hashes an object by identity, used for reference-equality
// types that don't define $hash. Every object is assigned its identity
// hash once, at registerObject time (vm.go), so this is just a field
// read.
func hashPointer(o Object) uint64 {
	return o.header().identityHash
}
