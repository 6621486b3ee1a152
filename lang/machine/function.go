package machine

import "fmt"

// Function holds bytecode, its constant pool, and the metadata the
// compiler contract (§6.1) must supply: arity, variadic flag, upvalue
// count, name, source id, and a run-length bytes-per-line index used to
// recover line numbers for panics (§4.12).
type Function struct {
	objHeader

	Name        string
	SourceID    string
	Code        []byte
	Constants   []Value
	Arity       int
	IsVariadic  bool
	UpvalueCount int
	NumLocals   int

	// UpvalueDescs describes how MAKE_CLOSURE should populate each of the
	// resulting Closure's upvalue slots: IsLocal true means "capture the
	// enclosing frame's local at Index", false means "copy the enclosing
	// closure's upvalue at Index".
	UpvalueDescs []UpvalueDesc

	// BytesPerLine is a run-length table indexed by (line - FirstLine),
	// giving the number of bytecode bytes emitted on that line (§6.1).
	FirstLine    int
	BytesPerLine []uint16
}

// UpvalueDesc is the (is_local, index) pair read by MAKE_CLOSURE (§4.10).
type UpvalueDesc struct {
	IsLocal bool
	Index   int
}

func (vm *VM) newFunction() *Function {
	f := &Function{}
	f.objType = ObjFunction
	vm.registerObject(f)
	return f
}

// NewAssembledFunction registers a *Function built outside this package
// (by lang/asm, or any other external compiler satisfying the same
// contract) with the VM's object list, setting its object-type tag. The
// caller fills in every other field before calling this.
func NewAssembledFunction(vm *VM, f *Function) *Function {
	f.objType = ObjFunction
	vm.registerObject(f)
	return f
}

func (f *Function) typeName() string    { return "function" }
func (f *Function) debugString() string { return fmt.Sprintf("function(%s)", f.Name) }

func (f *Function) blacken(gc *collector) {
	for _, c := range f.Constants {
		gc.markValue(c)
	}
}

// LineForIP walks the run-length bytes-per-line index to find the source
// line corresponding to byte offset ip (§4.12).
func (f *Function) LineForIP(ip int) int {
	line := f.FirstLine
	remaining := ip
	for _, n := range f.BytesPerLine {
		if remaining < int(n) {
			return line
		}
		remaining -= int(n)
		line++
	}
	return line
}

// Closure is a Function plus its capturing Module, default-argument
// values, and upvalue array (§3.2).
type Closure struct {
	objHeader
	Fn            *Function
	Module        *Module
	DefaultValues []Value
	Upvalues      []*Upvalue
}

func (vm *VM) newClosure(fn *Function, mod *Module) *Closure {
	c := &Closure{Fn: fn, Module: mod}
	c.objType = ObjClosure
	if fn.UpvalueCount > 0 {
		c.Upvalues = make([]*Upvalue, fn.UpvalueCount)
	}
	vm.registerObject(c)
	return c
}

func (c *Closure) typeName() string    { return "closure" }
func (c *Closure) debugString() string { return fmt.Sprintf("closure(%s)", c.Fn.Name) }

func (c *Closure) blacken(gc *collector) {
	gc.markObject(c.Fn)
	if c.Module != nil {
		gc.markObject(c.Module)
	}
	for _, v := range c.DefaultValues {
		gc.markValue(v)
	}
	for _, u := range c.Upvalues {
		if u != nil {
			gc.markObject(u)
		}
	}
}

// NativeFn wraps a host function pointer with a name and declared arity
// (-1 means variadic) (§3.2).
type NativeFn struct {
	objHeader
	Name  string
	Arity int // -1 = variadic
	Fn    func(vm *VM, args []Value) (Value, error)
}

func (vm *VM) newNativeFn(name string, arity int, fn func(vm *VM, args []Value) (Value, error)) *NativeFn {
	n := &NativeFn{Name: name, Arity: arity, Fn: fn}
	n.objType = ObjNativeFn
	vm.registerObject(n)
	return n
}

func (n *NativeFn) typeName() string    { return "native_fn" }
func (n *NativeFn) debugString() string { return fmt.Sprintf("native_fn(%s)", n.Name) }
func (n *NativeFn) blacken(gc *collector) {}

// BoundMethod pairs a receiver value with a callable object (§3.2).
type BoundMethod struct {
	objHeader
	Receiver Value
	Method   Object // *Closure or *NativeFn
}

func (vm *VM) newBoundMethod(receiver Value, method Object) *BoundMethod {
	b := &BoundMethod{Receiver: receiver, Method: method}
	b.objType = ObjBoundMethod
	vm.registerObject(b)
	return b
}

func (b *BoundMethod) typeName() string    { return "bound_method" }
func (b *BoundMethod) debugString() string { return "bound_method" }

func (b *BoundMethod) blacken(gc *collector) {
	gc.markValue(b.Receiver)
	gc.markObject(b.Method)
}
