// Package vm implements a small register-based bytecode interpreter: an
// instruction builder, an execution loop, a flat memory arena, and support
// for calling out to native Go functions and symbols in dynamically loaded
// shared libraries.
package vm

import (
	"unsafe"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("regvm")

const defaultMaxMemory = 1 << 20 // 1 MiB, matching the original's default max_memory

// Interpreter holds one program's bytecode, its function table, its memory
// arena, and (while running) its register file and call stack.
type Interpreter struct {
	bytecode []byte

	functions *functionTable
	mem       *memory
	libs      *libraryCache

	currentFunction int

	registers [NumRegisters]uint64
	ip        Ptr
	stackBase Ptr

	maxMemory          int
	librarySearchPaths []string
	colorDisasm        bool
	lastErr            error
}

// Option configures an Interpreter at construction time.
type Option func(*Interpreter)

// WithMaxMemory sets the size in bytes of the unified memory arena. The
// default is 1 MiB.
func WithMaxMemory(bytes int) Option {
	return func(i *Interpreter) { i.maxMemory = bytes }
}

// WithLibrarySearchPaths adds directories that CreateLibraryCallUnsafe
// tries, in order, when the requested library path isn't absolute and
// doesn't resolve on its own (mirroring a dynamic linker's search list).
func WithLibrarySearchPaths(dirs ...string) Option {
	return func(i *Interpreter) { i.librarySearchPaths = append(i.librarySearchPaths, dirs...) }
}

// WithColorDisassembly toggles ANSI color in Disassemble's output. Enabled
// by default.
func WithColorDisassembly(enabled bool) Option {
	return func(i *Interpreter) { i.colorDisasm = enabled }
}

// New creates an interpreter with a single declared function, __entry__, at
// bytecode offset 1, and pushes the sentinel invalid opcode ahead of it at
// offset 0 so that a jump to offset 0 always faults.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		functions:   newFunctionTable(),
		libs:        newLibraryCache(),
		maxMemory:   defaultMaxMemory,
		colorDisasm: true,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.mem = newMemory(i.maxMemory)
	i.bytecode = append(i.bytecode, byte(OpInvalid))
	i.currentFunction = 0
	i.functions.slots[0] = function{name: entryFunctionName, kind: funcBytecode, addr: Ptr(len(i.bytecode))}
	return i
}

// Close releases any dynamically loaded libraries. Safe to call even if no
// library was ever linked.
func (i *Interpreter) Close() {
	i.libs.close()
}

// LastError returns the most recent error raised by Run, or nil.
func (i *Interpreter) LastError() error {
	return i.lastErr
}

// Defun registers name as a native Go callback, resolving any forward
// reference created by an earlier CreateCall to the same name.
func (i *Interpreter) Defun(name string, fn NativeFunc) error {
	_, err := i.functions.defineNative(name, fn)
	if err != nil {
		return err
	}
	log.Debugf("defined native function %q", name)
	return nil
}

// Arg reads the value of the (index)'th argument register, where argument 0
// is register 2 (arguments occupy r2..r63).
func (i *Interpreter) Arg(index int, sz Size) (uint64, error) {
	slot := index + 2
	if slot < 2 || slot >= NumRegisters {
		return 0, wrapError(KindRuntime, ErrInvalidRegister, "argument index %d is out of bounds", index)
	}
	return i.readRegister(Reg(slot).Sized(sz)), nil
}

// SetReturnValue sets r1, the register the caller reads a native or
// bytecode function's result from.
func (i *Interpreter) SetReturnValue(v uint64) {
	i.registers[RegReturn] = v
}

// Reg reads a register at its own tagged width.
func (i *Interpreter) Reg(r Reg) uint64 {
	return i.readRegister(r)
}

// SetReg writes a register at its own tagged width, preserving the
// untouched high-order bits of the underlying 64-bit slot.
func (i *Interpreter) SetReg(r Reg, v uint64) {
	i.setRegister(r, v)
}

// LoadMem reads sz bytes at pointer p.
func (i *Interpreter) LoadMem(p Ptr, sz Size) (uint64, error) {
	return i.mem.load(p, sz)
}

// StoreMem writes the low sz bytes of v at pointer p.
func (i *Interpreter) StoreMem(p Ptr, sz Size, v uint64) error {
	return i.mem.store(p, sz, v)
}

// NativeLoad and NativeStore read and write raw host process memory at an
// unsafe.Pointer, rather than an offset into the arena. They exist for
// callers bridging to native code (e.g. reading a buffer a library
// function wrote into), matching the "native load/store" operation group
// on the C-style handle API. The caller is responsible for p remaining
// valid and correctly sized for the duration of the call.
func (i *Interpreter) NativeLoad(p unsafe.Pointer, sz Size) uint64 {
	n := sz.Bytes()
	var v uint64
	for k := n - 1; k >= 0; k-- {
		v = v<<8 | uint64(*(*byte)(unsafe.Add(p, k)))
	}
	return v
}

func (i *Interpreter) NativeStore(p unsafe.Pointer, sz Size, v uint64) {
	n := sz.Bytes()
	for k := 0; k < n; k++ {
		*(*byte)(unsafe.Add(p, k)) = byte(v)
		v >>= 8
	}
}

// Push and Pop operate on the interpreter's own call stack in memory, using
// the same 8-byte word width the execution loop uses to save return
// addresses and frame pointers.
func (i *Interpreter) Push(v uint64) error {
	if i.mem.sp == i.mem.max() {
		return wrapError(KindRuntime, ErrStackOverflow, "stack overflow")
	}
	if err := i.mem.store(i.mem.sp, Size64, v); err != nil {
		return err
	}
	i.mem.sp += 8
	return nil
}

func (i *Interpreter) Pop() (uint64, error) {
	if i.mem.sp <= i.mem.gp {
		return 0, wrapError(KindRuntime, ErrStackUnderflow, "stack underflow")
	}
	i.mem.sp -= 8
	return i.mem.load(i.mem.sp, Size64)
}

func (i *Interpreter) readRegister(r Reg) uint64 {
	return r.Size().mask() & i.registers[r.Index()]
}

func (i *Interpreter) setRegister(r Reg, v uint64) {
	sz := r.Size()
	idx := r.Index()
	if sz == Size64 {
		i.registers[idx] = v
		return
	}
	mask := sz.mask()
	i.registers[idx] = (i.registers[idx] &^ mask) | (v & mask)
}
