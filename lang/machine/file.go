package machine

import (
	"bufio"
	"fmt"
	"os"
)

// File owns an OS file stream and an optional path (§3.2). Closing is
// deferred to GC except for stdio, which is only flushed (§5).
type File struct {
	objHeader
	Path    string
	f       *os.File
	reader  *bufio.Reader
	isStdio bool
	closed  bool
}

func (vm *VM) newFile(path string, f *os.File) *File {
	file := &File{Path: path, f: f, reader: bufio.NewReader(f)}
	file.objType = ObjFile
	vm.registerObject(file)
	return file
}

// NewFile wraps an already-open *os.File as a machine File value, for a
// host's SetStdio call or any native module (std/ or otherwise) that
// needs to hand user code a file opened outside the VM.
func (vm *VM) NewFile(path string, f *os.File) *File {
	return vm.newFile(path, f)
}

func (vm *VM) newStdioFile(f *os.File) *File {
	file := vm.newFile("", f)
	file.isStdio = true
	return file
}

func (f *File) typeName() string    { return "file" }
func (f *File) debugString() string { return fmt.Sprintf("file(%s)", f.Path) }
func (f *File) blacken(gc *collector) {}

func (f *File) Close() error {
	if f.closed || f.isStdio {
		return nil
	}
	f.closed = true
	return f.f.Close()
}

func (f *File) ReadLine() (string, error) {
	line, err := f.reader.ReadString('\n')
	if len(line) > 0 {
		return trimLineEnding(line), nil
	}
	return "", err
}

func trimLineEnding(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
		if n := len(s); n > 0 && s[n-1] == '\r' {
			s = s[:n-1]
		}
	}
	return s
}
