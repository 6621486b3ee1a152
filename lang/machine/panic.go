package machine

// RuntimeError is returned by the interpreter loop for a halt condition
// that was never caught by any TRY frame: either a panic that unwound
// every frame, or a terminal exit (§4.12). The host embedding the VM
// (cmd/nightjar) turns this into a process exit code and a printed
// message.
type RuntimeError struct {
	Panic   bool
	Exit    bool
	Code    int
	Message string
	SourceID string
	Line    int
}

func (e *RuntimeError) Error() string {
	if e.Exit {
		return "exit"
	}
	return e.Message
}

// raiseFromGoError converts a plain Go error surfaced by an opcode
// handler (division by zero, a failed method lookup, a bad argument
// count) into the VM's catchable panic protocol, exactly as the source
// converts a libc/runtime failure into pyro_panic before returning to the
// bytecode loop (§4.12).
func (vm *VM) raiseFromGoError(err error) {
	if err == nil {
		return
	}
	vm.Panic("%s", err.Error())
}

// convertMemoryFailure turns an accountant allocation failure into a
// panic with the stable out-of-memory message, then clears the
// accountant's sticky flag so a caught panic doesn't leave the VM wedged
// (§4.2, §4.12).
func (vm *VM) convertMemoryFailure() {
	if vm.accountant.MemoryFailed() {
		vm.Panic("%s", oomError.Error())
		vm.accountant.ClearMemoryFailed()
	}
}

// finalError builds the RuntimeError the top-level run loop returns once
// haltFlag is set and no enclosing TRY frame remains to catch it.
func (vm *VM) finalError() *RuntimeError {
	if vm.exitFlag {
		return &RuntimeError{Exit: true, Code: vm.exitCode}
	}
	msg := vm.panicValue.DebugString()
	if e, ok := vm.panicValue.AsObj().(*Err); ok {
		msg = e.Message
	}
	vm.logger.Warn("uncaught panic", "source_id", vm.panicSrcID, "line", vm.panicLine, "message", msg)
	return &RuntimeError{
		Panic:    true,
		Message:  msg,
		SourceID: vm.panicSrcID,
		Line:     vm.panicLine,
	}
}
