package machine

import "fmt"

// Buf is a growable, mutable byte builder (§3.2, §4.4). The CONCAT opcode
// does not use it; concatStrings builds its result directly.
type Buf struct {
	objHeader
	bytes []byte
}

func (vm *VM) newBuf() *Buf {
	b := &Buf{}
	b.objType = ObjBuf
	vm.registerObject(b)
	return b
}

func (b *Buf) typeName() string    { return "buf" }
func (b *Buf) debugString() string { return fmt.Sprintf("buf(%d bytes)", len(b.bytes)) }
func (b *Buf) blacken(gc *collector) {}

func (b *Buf) WriteByte(c byte) { b.bytes = append(b.bytes, c) }
func (b *Buf) WriteString(s string) { b.bytes = append(b.bytes, s...) }
func (b *Buf) WriteBytes(p []byte)  { b.bytes = append(b.bytes, p...) }
func (b *Buf) Len() int             { return len(b.bytes) }

// bufToStr transfers the buf's bytes into a new interned Str and resets the
// buf to empty, per §4.4: "buf.to_str() transfers its bytes into a new Str
// ... and resets the buf to empty."
func (vm *VM) bufToStr(b *Buf) *Str {
	out := b.bytes
	b.bytes = nil
	return vm.internTake(out)
}
