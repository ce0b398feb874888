package vm

import (
	"strings"
	"testing"
)

func TestDisassembleRendersFunctionBannerAndMnemonics(t *testing.T) {
	i := New()
	assert(t, i.CreateMove(R(2), Immediate(2)) == nil, "mov failed")
	assert(t, i.CreateAdd(R(1), R(2), Immediate(3)) == nil, "add failed")
	i.CreateReturn()
	assert(t, i.CreateFunction("helper") == nil, "create function failed")
	i.CreateReturn()

	out := i.Disassemble()
	assert(t, strings.Contains(out, "__entry__"), "expected the entry function banner, got:\n%s", out)
	assert(t, strings.Contains(out, "helper"), "expected the helper function banner, got:\n%s", out)
	assert(t, strings.Contains(out, "add"), "expected an add mnemonic, got:\n%s", out)
	assert(t, strings.Contains(out, "ret"), "expected a ret mnemonic, got:\n%s", out)
}

func TestDisassembleAnnotatesNativeCalls(t *testing.T) {
	i := New()
	assert(t, i.Defun("greet", func(vm *Interpreter) error { return nil }) == nil, "defun failed")
	i.CreateCall("greet")
	i.CreateReturn()

	out := i.Disassemble()
	assert(t, strings.Contains(out, "greet"), "expected the callee name, got:\n%s", out)
	assert(t, strings.Contains(out, "@ native"), "expected a native-call annotation, got:\n%s", out)
}
