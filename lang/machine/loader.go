package machine

import "fmt"

// SourceCompiler turns source bytes at path into an assembled *Function.
// The lexer/parser/compiler pipeline that would normally implement this
// is an external collaborator (out of scope, §1); a host embedding the
// VM can still wire one in (or hand the VM bytecode produced offline by
// lang/asm) by calling SetCompiler before importing any module whose
// path isn't satisfied by a NativeModule registration.
type SourceCompiler func(path string, src []byte) (*Function, error)

// NativeModule builds a *Module backed entirely by Go code (no bytecode
// involved), the mechanism std/ uses to expose modules such as prng
// without needing a compiler (§9).
type NativeModule func(vm *VM) *Module

// nativeModules is the process-wide registry std/ packages populate via
// RegisterNativeModule during their init(), mirroring the plugin-style
// registration idiom the pack's other example services use for drivers.
var nativeModules = map[string]NativeModule{}

// RegisterNativeModule installs a NativeModule constructor under name,
// made available to every VM's "std::name" imports.
func RegisterNativeModule(name string, ctor NativeModule) {
	nativeModules[name] = ctor
}

// SetCompiler and SetImportRoots configure module resolution (§4.11):
// the compiler turns source bytes into a Function for any import path
// not served by a native module; the source bytes themselves are read
// from <root>/<path> on the first import root where that file exists.
func (vm *VM) SetCompiler(c SourceCompiler) { vm.compiler = c }

// SetImportRoots replaces the ordered list of directories searched for a
// module's source file.
func (vm *VM) SetImportRoots(roots []string) { vm.importRoots = roots }

// ImportModule resolves path (§4.11): a "std::" prefix dispatches to the
// native module registry; otherwise the module cache is checked, then a
// fresh module is built by compiling source found on one of the import
// roots. A path currently mid-import (a cycle) panics rather than
// recursing forever. A partially-initialized module is discarded (never
// cached) if its init code panics, so a later retry starts clean.
func (vm *VM) ImportModule(path string) (*Module, error) {
	vm.logger.Info("module import", "path", path)

	if existing, ok := vm.modules[path]; ok {
		if existing.loaded {
			vm.logger.Debug("module cache hit", "path", path)
			return existing, nil
		}
		return nil, fmt.Errorf("cyclic import of module %q", path)
	}

	if ctor, ok := nativeModules[stdModuleName(path)]; ok {
		mod := ctor(vm)
		mod.Path = path
		mod.loaded = true
		vm.modules[path] = mod
		return mod, nil
	}

	if vm.compiler == nil {
		return nil, fmt.Errorf("module %q not found: no source compiler configured", path)
	}

	src, resolvedPath, err := vm.resolveSource(path)
	if err != nil {
		return nil, err
	}

	mod := vm.newModule(path)
	vm.modules[path] = mod // cache before running init code, to catch cycles

	fn, err := vm.compiler(resolvedPath, src)
	if err != nil {
		delete(vm.modules, path)
		return nil, fmt.Errorf("compiling module %q: %w", path, err)
	}

	closure := vm.newClosure(fn, mod)
	if _, err := vm.callClosure(closure, nil); err != nil {
		delete(vm.modules, path) // partial-install rollback on panic (§4.11)
		return nil, err
	}

	mod.loaded = true
	return mod, nil
}

// stdModuleName strips a leading "std::" prefix, or returns "" (which
// never matches a registered name) if path isn't a std import.
func stdModuleName(path string) string {
	const prefix = "std::"
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix):]
	}
	return ""
}

// resolveSource reads source bytes for path from the first matching
// import root. Actual filesystem access is deliberately the only part of
// module resolution that isn't exercised in package tests (they register
// native modules or inject vm.compiler directly).
func (vm *VM) resolveSource(path string) ([]byte, string, error) {
	for _, root := range vm.importRoots {
		full := root + "/" + path
		if src, err := vm.readFile(full); err == nil {
			return src, full, nil
		}
	}
	return nil, "", fmt.Errorf("module %q not found on any import root", path)
}
