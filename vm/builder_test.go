package vm

import "testing"

func compileAndCheck(t *testing.T, build func(i *Interpreter), want uint64) *Interpreter {
	t.Helper()
	i := New()
	build(i)
	i.CreateReturn()
	got, err := i.Run()
	assert(t, err == nil, "run failed: %v", err)
	assert(t, got == want, "expected r1 = %d, got %d", want, got)
	return i
}

func TestArithmeticChain(t *testing.T) {
	compileAndCheck(t, func(i *Interpreter) {
		assert(t, i.CreateMove(R(2), Immediate(2)) == nil, "mov failed")
		assert(t, i.CreateMove(R(3), Immediate(3)) == nil, "mov failed")
		assert(t, i.CreateAdd(R(2), R(2), R(3)) == nil, "add failed")
		assert(t, i.CreateMulI(R(2), R(2), Immediate(4)) == nil, "muli failed")
		assert(t, i.CreateSub(R(1), R(2), Immediate(5)) == nil, "sub failed")
	}, 15) // (2+3)*4-5
}

func TestArithmeticImmediateRegisterOrderIsPreserved(t *testing.T) {
	compileAndCheck(t, func(i *Interpreter) {
		assert(t, i.CreateMove(R(2), Immediate(4)) == nil, "mov failed")
		assert(t, i.CreateSub(R(1), Immediate(10), R(2)) == nil, "sub failed")
	}, 6) // 10-4, not 4-10
}

func TestDivideByZeroFaults(t *testing.T) {
	i := New()
	assert(t, i.CreateMove(R(2), Immediate(0)) == nil, "mov failed")
	assert(t, i.CreateDivI(R(1), Immediate(10), R(2)) == nil, "build failed")
	i.CreateReturn()
	_, err := i.Run()
	assert(t, err != nil, "expected division by zero to fault")
}

func TestXchgSwapsAndTruncates(t *testing.T) {
	i := New()
	assert(t, i.CreateMove(R(4), Immediate(0x1122)) == nil, "mov failed")
	assert(t, i.CreateMove(R(5), Immediate(0x33)) == nil, "mov failed")
	assert(t, i.CreateXchg(R(4).Sized(Size8), R(5).Sized(Size8)) == nil, "xchg failed")
	assert(t, i.CreateMove(R(1), R(4)) == nil, "mov failed")
	i.CreateReturn()
	got, err := i.Run()
	assert(t, err == nil, "run failed: %v", err)
	assert(t, got == 0x1133, "expected the low byte of r4 to become 0x33, got %#x", got)
}

func TestGlobalStoreLoadRoundTrip(t *testing.T) {
	i := New()
	slot, err := i.Global(8)
	assert(t, err == nil, "global failed: %v", err)
	assert(t, i.CreateMove(R(4), Immediate(99)) == nil, "mov failed")
	assert(t, i.CreateStore(slot, R(4)) == nil, "store failed")
	assert(t, i.CreateLoad(R(1), slot) == nil, "load failed")
	i.CreateReturn()
	got, err := i.Run()
	assert(t, err == nil, "run failed: %v", err)
	assert(t, got == 99, "expected 99 from the global, got %d", got)
}

func TestCountingLoopCallsNativeEachIteration(t *testing.T) {
	i := New()
	var seen []uint64
	assert(t, i.Defun("count", func(vm *Interpreter) error {
		v, err := vm.Arg(0, Size64)
		if err != nil {
			return err
		}
		seen = append(seen, v)
		return nil
	}) == nil, "defun failed")

	assert(t, i.CreateMove(R(2), Immediate(3)) == nil, "mov failed")
	loopStart := i.CurrentAddr()
	i.CreateCall("count")
	assert(t, i.CreateSub(R(2), R(2), Immediate(1)) == nil, "sub failed")
	i.CreateBranchIfNz(R(2), loopStart)
	assert(t, i.CreateMove(R(1), R(2)) == nil, "mov failed")
	i.CreateReturn()

	got, err := i.Run()
	assert(t, err == nil, "run failed: %v", err)
	assert(t, got == 0, "expected the loop to end with r1 = 0, got %d", got)
	assert(t, len(seen) == 3, "expected 3 calls to the native counter, got %d", len(seen))
	assert(t, seen[0] == 3 && seen[1] == 2 && seen[2] == 1, "expected counts 3,2,1, got %v", seen)
}

func TestNestedCallSquare(t *testing.T) {
	i := New()
	assert(t, i.CreateMove(R(2), Immediate(6)) == nil, "mov failed")
	i.CreateCall("square")
	assert(t, i.CreateMove(R(1), R(1)) == nil, "mov failed")
	i.CreateReturn()

	assert(t, i.CreateFunction("square") == nil, "create function failed")
	assert(t, i.CreateMulI(R(1), R(2), R(2)) == nil, "muli failed")
	i.CreateReturn()

	got, err := i.Run()
	assert(t, err == nil, "run failed: %v", err)
	assert(t, got == 36, "expected square(6) = 36, got %d", got)
}

func TestLibraryCallUnsafeRejectsExcessiveArity(t *testing.T) {
	i := New()
	err := i.CreateLibraryCallUnsafe("libm.so.6", "labs", 63)
	assert(t, err != nil, "expected arity 63 to fail at build time")
}

func TestUnboundForwardCallFaults(t *testing.T) {
	i := New()
	i.CreateCall("neverDefined")
	i.CreateReturn()
	_, err := i.Run()
	assert(t, err != nil, "expected a call to an undefined function to fault")
}
