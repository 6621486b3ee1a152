package machine

import "fmt"

// accountant enforces a byte cap across every allocation made by the
// runtime and records the current bytes-in-use, mirroring the source's
// single realloc-shim (§4.2): "(vm, old_ptr, old_size, new_size) ->
// new_ptr_or_null". Go does not expose raw reallocation, so the
// accountant tracks the *size* side-effect of an allocation/growth/
// shrink instead of the pointer itself. Only the hash table's entry and
// index arrays call Reserve/Release (on growth, compaction and sweep);
// object constructors and Vec/Buf/Tup growth are not accounted.
type accountant struct {
	bytesInUse  int64
	maxBytes    int64 // <= 0 means unlimited
	memFailed   bool
}

func newAccountant(maxBytes int64) *accountant {
	return &accountant{maxBytes: maxBytes}
}

// Reserve attempts to account for a net change of delta bytes (may be
// negative). It returns false and sets the memory-failure flag if the cap
// would be exceeded, exactly as the shim's "new_total > max_bytes" check
// does.
func (a *accountant) Reserve(delta int64) bool {
	newTotal := a.bytesInUse + delta
	if a.maxBytes > 0 && newTotal > a.maxBytes {
		a.memFailed = true
		return false
	}
	if newTotal < 0 {
		newTotal = 0
	}
	a.bytesInUse = newTotal
	return true
}

// Release accounts for freeing byteCount bytes.
func (a *accountant) Release(byteCount int64) {
	a.bytesInUse -= byteCount
	if a.bytesInUse < 0 {
		a.bytesInUse = 0
	}
}

func (a *accountant) MemoryFailed() bool { return a.memFailed }
func (a *accountant) ClearMemoryFailed() { a.memFailed = false }

// oomError is the stable out-of-memory message prefix referenced by §4.12.
var oomError = fmt.Errorf("out of memory")
