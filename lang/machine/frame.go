package machine

// CallFrame tracks one activation: the running closure, its instruction
// pointer, the base index into the VM's shared value stack, and the
// with-stack depth at call time so RETURN/unwind knows how many with-
// blocks this call pushed and must pop (§4.9, §4.10, §5).
type CallFrame struct {
	closure      *Closure
	native       *NativeFn // set instead of closure for a native call frame used only for panic bookkeeping
	ip           int
	stackBase    int
	withBase     int // len(vm.withStack) at call time
	catchIP      int // instruction offset of the matching TRY's catch target, or -1
	isTryFrame   bool
}

func (f *CallFrame) sourceID() string {
	if f.closure != nil {
		return f.closure.Fn.SourceID
	}
	return ""
}

func (f *CallFrame) currentLine() int {
	if f.closure != nil {
		return f.closure.Fn.LineForIP(f.ip)
	}
	return 0
}
