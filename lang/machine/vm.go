package machine

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
)

// readFile reads source bytes for a resolved import path. Factored out as
// a VM method (rather than a bare os.ReadFile call in loader.go) so
// package tests can swap it for an in-memory fake without touching disk.
func (vm *VM) readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// VM owns every piece of interpreter state: the heap object list, the
// value stack and call frames, the open-upvalue list, the module
// registry, the superglobal table, the intern pool, the panic/exit
// protocol flags, and the with-stack (§3.1, §4.6, §4.10, §4.12).
//
// A VM is not safe for concurrent use from multiple goroutines; the
// spec's concurrency story (§1 Non-goals) leaves parallelism to the host
// embedding multiple VMs, exactly as the source's PyroVM does.
type VM struct {
	accountant *accountant

	objects Object // head of the GC's intrusive linked list of every live object

	internPool *table // raw table, not a *Map: never swept for liveness via the normal path (§4.4)

	errSentinel *Err // the shared exhausted/not-found ERROR value (§4.8, §7)

	stack  []Value
	frames []CallFrame

	openUpvalues *Upvalue // VM-wide open-upvalue list, ordered by descending stackSlot

	withStack []Value // LIFO stack of with-block objects with a $end_with method (§4.10, §5)

	modules      map[string]*Module // canonical path -> loaded module, the import cache (§4.11)
	importRoots  []string
	compiler     SourceCompiler

	superglobals *table // global builtin names: classes, $print, $len, etc.

	// Builtin classes, pre-registered at bootstrap (§4.13) so every core
	// object carries a usable class pointer for method/field dispatch.
	classStr      *Class
	classMap      *Class
	classVec      *Class
	classTup      *Class
	classBuf      *Class
	classFile     *Class
	classIter     *Class
	classStack    *Class
	classSet      *Class
	classQueue    *Class
	classErr      *Class
	classModule   *Class
	classChar     *Class

	// Panic/exit protocol state (§4.12): two independent flags, a shared
	// halt flag, and the payload of the most recent panic.
	panicFlag   bool
	exitFlag    bool
	haltFlag    bool
	exitCode    int
	panicValue  Value
	panicSrcID  string
	panicLine   int
	tryDepth    int

	gcDisallows int // >0 means the collector must not run (mid-allocation reentrancy guard)

	rng *rand.Rand

	Stdin  *File
	Stdout *File
	Stderr *File

	ReplMode bool
	Args     []string

	identitySeed uint64

	// logger receives GC/module-load/panic diagnostics (§9.2). Never nil:
	// NewVM defaults it to slog.New(slog.NewTextHandler(io.Discard, nil))
	// so every call site can log unconditionally.
	logger *slog.Logger
}

// NewVM constructs a fully bootstrapped VM: the memory accountant, the
// intern pool, the error sentinel, stdio files, and every builtin class
// named in §4.13, ready to load and run a *Function produced by an
// external compiler (or by lang/asm in tests).
func NewVM(maxBytes int64) *VM {
	vm := &VM{
		modules:      make(map[string]*Module),
		superglobals: nil,
	}
	vm.accountant = newAccountant(maxBytes)
	vm.rng = rand.New(rand.NewSource(1))
	vm.superglobals = newTable(vm)
	vm.internPool = newTable(vm)

	vm.errSentinel = &Err{Message: "not found"}
	vm.errSentinel.objType = ObjErr
	vm.errSentinel.Details = vm.newMap()
	vm.registerObject(vm.errSentinel)

	vm.Stdin = vm.newStdioFile(os.Stdin)
	vm.Stdout = vm.newStdioFile(os.Stdout)
	vm.Stderr = vm.newStdioFile(os.Stderr)

	vm.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	vm.bootstrapClasses()
	vm.bootstrapNatives()

	return vm
}

// SetLogger replaces the VM's diagnostic logger (§9.2). Passing nil
// restores the discarding default rather than leaving logger nil, so
// every log call site stays unconditional.
func (vm *VM) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	vm.logger = l
}

// registerObject links a freshly allocated object onto the VM's object
// list and assigns it a monotonic identity hash, mirroring
// pyro_realloc's bump of vm->object_count and the identity-hash counter
// described in §4.1's identity-hash fallback.
func (vm *VM) registerObject(o Object) {
	h := o.header()
	h.next = vm.objects
	vm.objects = o
	vm.identitySeed++
	h.identityHash = vm.identitySeed * identityHashMultiplier
}

// bootstrapClasses pre-registers the thirteen builtin classes of §4.13. The
// classes carry no constructor or field layout of their own -- every
// builtin object type is identified by its Go concrete type, not by one
// of these classes' DefaultFieldValues -- but methods can still be
// attached to them (e.g. $iter, $len) for the dot-call path in call.go.
func (vm *VM) bootstrapClasses() {
	vm.classStr = vm.newClass("Str")
	vm.classMap = vm.newClass("Map")
	vm.classVec = vm.newClass("Vec")
	vm.classTup = vm.newClass("Tup")
	vm.classBuf = vm.newClass("Buf")
	vm.classFile = vm.newClass("File")
	vm.classIter = vm.newClass("Iter")
	vm.classStack = vm.newClass("Stack")
	vm.classSet = vm.newClass("Set")
	vm.classQueue = vm.newClass("Queue")
	vm.classErr = vm.newClass("Err")
	vm.classModule = vm.newClass("Module")
	vm.classChar = vm.newClass("Char")

	for _, c := range []*Class{
		vm.classStr, vm.classMap, vm.classVec, vm.classTup, vm.classBuf,
		vm.classFile, vm.classIter, vm.classStack, vm.classSet, vm.classQueue,
		vm.classErr, vm.classModule, vm.classChar,
	} {
		vm.superglobals.set(Obj(vm.internString(c.Name)), Obj(c))
	}
}

// classFor returns the class backing v's dot-call dispatch: v's own class
// if it carries one (an Instance), otherwise the builtin class for its
// type, or nil if it has none (scalars other than Char).
func (vm *VM) classFor(v Value) *Class {
	if c := classOf(v); c != nil {
		return c
	}
	if v.IsChar() {
		return vm.classChar
	}
	if !v.IsObj() || v.obj == nil {
		return nil
	}
	switch v.obj.(type) {
	case *Str:
		return vm.classStr
	case *Map:
		if v.obj.(*Map).isSet {
			return vm.classSet
		}
		return vm.classMap
	case *Vec:
		return vm.classVec
	case *Tup:
		return vm.classTup
	case *Buf:
		return vm.classBuf
	case *File:
		return vm.classFile
	case *Iter:
		return vm.classIter
	case *Queue:
		return vm.classQueue
	case *Err:
		return vm.classErr
	case *Module:
		return vm.classModule
	}
	return nil
}

// identityHashMultiplier spreads the monotonic identity counter across
// the 64-bit space (Fibonacci hashing) so identity hashes mix well when
// folded into a table index.
const identityHashMultiplier = 0x9E3779B97F4A7C15

// Panic records a catchable runtime panic: sets the panic flag, the halt
// flag, and the panic payload/source/line, mirroring pyro_panic's effect
// on the VM struct (§4.12). The interpreter loop checks haltFlag after
// every opcode and unwinds to the nearest TRY frame, if any.
func (vm *VM) Panic(format string, args ...any) {
	vm.panicFlag = true
	vm.haltFlag = true
	msg := fmt.Sprintf(format, args...)
	vm.panicValue = Obj(vm.newErr(msg))
	if len(vm.frames) > 0 {
		fr := &vm.frames[len(vm.frames)-1]
		vm.panicSrcID = fr.sourceID()
		vm.panicLine = fr.currentLine()
	}
}

// Exit records a terminal exit: unlike a panic, no try block can catch
// it (§4.12).
func (vm *VM) Exit(code int) {
	vm.exitFlag = true
	vm.haltFlag = true
	vm.exitCode = code
}

// ClearPanic resets the panic flag and halt flag after a TRY opcode
// catches a panic, leaving exitFlag untouched (an exit is never
// catchable).
func (vm *VM) ClearPanic() {
	vm.panicFlag = false
	if !vm.exitFlag {
		vm.haltFlag = false
	}
	vm.panicValue = Null
}
