//go:build cgo

package vm

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <stdint.h>

uint64_t regvm_call_library(void *fn, int num_params, const uint64_t *args);

static void *regvm_dlopen(const char *path) {
	return dlopen(path, RTLD_LAZY | RTLD_LOCAL);
}
static const char *regvm_dlerror(void) {
	return dlerror();
}
static void *regvm_dlsym(void *handle, const char *name) {
	dlerror();
	return dlsym(handle, name);
}
static int regvm_dlclose(void *handle) {
	return dlclose(handle);
}
*/
import "C"

import (
	"path/filepath"
	"runtime"
	"unsafe"
)

// libraryHandle wraps a dlopen'd shared object, grounded on the caching
// dlopen/dlsym/dlclose pattern in ffi.go.
type libraryHandle struct {
	path string
	ptr  unsafe.Pointer
}

type librarySymbol struct {
	name string
	ptr  unsafe.Pointer
}

const librarySupported = true

// libraryCache keeps at most one dlopen'd handle per path, matching the
// "cache the library, cache the function" strategy in
// interpreter::create_library_call_unsafe.
type libraryCache struct {
	byPath map[string]libraryHandle
}

func newLibraryCache() *libraryCache {
	return &libraryCache{byPath: map[string]libraryHandle{}}
}

// open dlopens path, trying it verbatim first and then, if it isn't
// absolute and doesn't resolve on its own, joined with each of
// searchPaths in order (the same resolution WithLibrarySearchPaths
// documents).
func (c *libraryCache) open(path string, searchPaths []string) (libraryHandle, error) {
	if h, ok := c.byPath[path]; ok {
		return h, nil
	}
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		for _, dir := range searchPaths {
			candidates = append(candidates, filepath.Join(dir, path))
		}
	}
	var lastErr error
	for _, candidate := range candidates {
		cpath := C.CString(candidate)
		ptr := C.regvm_dlopen(cpath)
		C.free(unsafe.Pointer(cpath))
		if ptr != nil {
			h := libraryHandle{path: path, ptr: ptr}
			c.byPath[path] = h
			return h, nil
		}
		lastErr = wrapError(KindBuild, ErrLibraryLoad, "dlopen(%q): %s", candidate, dlerrorString())
	}
	return libraryHandle{}, lastErr
}

func dlerrorString() string {
	e := C.regvm_dlerror()
	if e == nil {
		return "unknown error"
	}
	return C.GoString(e)
}

func (c *libraryCache) symbol(h libraryHandle, name string) (librarySymbol, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	ptr := C.regvm_dlsym(h.ptr, cname)
	if ptr == nil {
		return librarySymbol{}, wrapError(KindBuild, ErrSymbolLoad, "dlsym(%q, %q): %s", h.path, name, dlerrorString())
	}
	return librarySymbol{name: name, ptr: ptr}, nil
}

func (c *libraryCache) close() {
	for path, h := range c.byPath {
		C.regvm_dlclose(h.ptr)
		delete(c.byPath, path)
	}
}

// callLibrary invokes fn.ptr as a C function taking numParams uint64_t
// arguments, drawn from args, returning its uint64_t result. It is the Go
// side of the arity-dispatch trampoline in library_shim.c, itself a port of
// do_library_call_unsafe.cc.
func callLibrary(fn librarySymbol, numParams int, args []uint64) (uint64, error) {
	if numParams < 0 || numParams > 62 {
		return 0, wrapError(KindRuntime, ErrArityTooLarge, "library function %q declared with %d parameters", fn.name, numParams)
	}
	var buf [62]C.uint64_t
	for i := 0; i < numParams && i < len(args); i++ {
		buf[i] = C.uint64_t(args[i])
	}
	var argp *C.uint64_t
	if numParams > 0 {
		argp = &buf[0]
	}
	result := C.regvm_call_library(fn.ptr, C.int(numParams), argp)
	runtime.KeepAlive(fn)
	return uint64(result), nil
}
