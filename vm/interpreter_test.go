package vm

import (
	"testing"
	"unsafe"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestNewReservesEntryFunction(t *testing.T) {
	i := New()
	f, err := i.functions.get(0)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, f.name == entryFunctionName, "expected slot 0 to be %q, got %q", entryFunctionName, f.name)
	assert(t, f.kind == funcBytecode, "expected entry function to be bytecode, got %v", f.kind)
	assert(t, len(i.bytecode) == 1 && i.bytecode[0] == byte(OpInvalid), "expected a single invalid sentinel byte at offset 0")
}

func TestRegisterReadWritePreservesWidth(t *testing.T) {
	i := New()
	i.SetReg(R(4), 0xdeadbeefcafebabe)
	assert(t, i.Reg(R(4)) == 0xdeadbeefcafebabe, "64-bit round trip failed")

	i.SetReg(R(4).Sized(Size8), 0xff)
	got := i.Reg(R(4))
	assert(t, got&0xff == 0xff, "low byte should be 0xff, got %#x", got&0xff)
	assert(t, (got>>8)&0xffffffffffffff == 0xdeadbeefcafeba, "high bits should be preserved, got %#x", got>>8)
}

func TestPushPopRoundTrip(t *testing.T) {
	i := New()
	i.mem.sp = i.mem.gp
	err := i.Push(42)
	assert(t, err == nil, "push failed: %v", err)
	v, err := i.Pop()
	assert(t, err == nil, "pop failed: %v", err)
	assert(t, v == 42, "expected 42, got %d", v)

	_, err = i.Pop()
	assert(t, err != nil, "expected stack underflow popping an empty stack")
}

func TestGlobalAndAllocaOffsets(t *testing.T) {
	i := New()
	g1, err := i.Global(8)
	assert(t, err == nil, "global alloc failed: %v", err)
	g2, err := i.Global(8)
	assert(t, err == nil, "global alloc failed: %v", err)
	assert(t, g2 == g1+8, "expected sequential global offsets, got %d then %d", g1, g2)

	l1 := i.Alloca(8)
	l2 := i.Alloca(8)
	assert(t, l2 == l1+8, "expected sequential local offsets, got %d then %d", l1, l2)
}

func TestNativeLoadStoreRoundTrip(t *testing.T) {
	i := New()
	var buf [8]byte
	i.NativeStore(unsafe.Pointer(&buf[0]), Size32, 0xcafef00d)
	assert(t, i.NativeLoad(unsafe.Pointer(&buf[0]), Size32) == 0xcafef00d, "native load/store round trip failed")
	assert(t, buf[4] == 0, "expected the write to stay within the requested width")
}

func TestDefunRejectsRedefinition(t *testing.T) {
	i := New()
	assert(t, i.Defun("f", func(*Interpreter) error { return nil }) == nil, "first Defun should succeed")
	err := i.Defun("f", func(*Interpreter) error { return nil })
	assert(t, err != nil, "expected redefinition of %q to fail", "f")
}
