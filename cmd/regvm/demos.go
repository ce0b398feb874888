package main

import "regvm/vm"

// buildDemo constructs one of the four sample programs — each modelled on
// one of the concrete end-to-end scenarios — and returns its interpreter,
// ready for Run or Disassemble. opts is forwarded to vm.New unchanged.
func buildDemo(name string, opts ...vm.Option) (*vm.Interpreter, error) {
	switch name {
	case "counting-loop":
		return buildCountingLoop(opts...)
	case "arithmetic-chain":
		return buildArithmeticChain(opts...)
	case "nested-call":
		return buildNestedCall(opts...)
	case "memory-roundtrip":
		return buildMemoryRoundtrip(opts...)
	default:
		return nil, unknownDemoError(name)
	}
}

func unknownDemoError(name string) error {
	return &demoError{name}
}

type demoError struct{ name string }

func (e *demoError) Error() string { return "unknown demo: " + e.name }

// buildCountingLoop counts down from 5 to 1, printing each value through a
// native callback, then returns 0.
func buildCountingLoop(opts ...vm.Option) (*vm.Interpreter, error) {
	i := vm.New(opts...)
	if err := i.Defun("print", vm.NativeConsolePrintWord); err != nil {
		return nil, err
	}
	if err := i.CreateMove(vm.R(2), vm.Immediate(5)); err != nil {
		return nil, err
	}
	loopStart := i.CurrentAddr()
	i.CreateCall("print")
	if err := i.CreateSub(vm.R(2), vm.R(2), vm.Immediate(1)); err != nil {
		return nil, err
	}
	i.CreateBranchIfNz(vm.R(2), loopStart)
	if err := i.CreateMove(vm.R(1), vm.R(2)); err != nil {
		return nil, err
	}
	i.CreateReturn()
	return i, nil
}

// buildArithmeticChain computes (7 + 8) * 2 - 5 and returns the result.
func buildArithmeticChain(opts ...vm.Option) (*vm.Interpreter, error) {
	i := vm.New(opts...)
	if err := i.CreateMove(vm.R(2), vm.Immediate(7)); err != nil {
		return nil, err
	}
	if err := i.CreateMove(vm.R(3), vm.Immediate(8)); err != nil {
		return nil, err
	}
	if err := i.CreateAdd(vm.R(2), vm.R(2), vm.R(3)); err != nil {
		return nil, err
	}
	if err := i.CreateMulI(vm.R(2), vm.R(2), vm.Immediate(2)); err != nil {
		return nil, err
	}
	if err := i.CreateSub(vm.R(1), vm.R(2), vm.Immediate(5)); err != nil {
		return nil, err
	}
	i.CreateReturn()
	return i, nil
}

// buildNestedCall computes square(9) via a bytecode function call.
func buildNestedCall(opts ...vm.Option) (*vm.Interpreter, error) {
	i := vm.New(opts...)
	if err := i.CreateMove(vm.R(2), vm.Immediate(9)); err != nil {
		return nil, err
	}
	i.CreateCall("square")
	i.CreateReturn()

	if err := i.CreateFunction("square"); err != nil {
		return nil, err
	}
	if err := i.CreateMulI(vm.R(1), vm.R(2), vm.R(2)); err != nil {
		return nil, err
	}
	i.CreateReturn()
	return i, nil
}

// buildMemoryRoundtrip stores 34 through a global pointer and 35 through a
// frame-relative alloca slot, reading each back into a different register.
func buildMemoryRoundtrip(opts ...vm.Option) (*vm.Interpreter, error) {
	i := vm.New(opts...)
	global, err := i.Global(8)
	if err != nil {
		return nil, err
	}
	local := i.Alloca(8)

	if err := i.CreateMove(vm.R(4), vm.Immediate(34)); err != nil {
		return nil, err
	}
	if err := i.CreateStore(global, vm.R(4)); err != nil {
		return nil, err
	}
	if err := i.CreateLoad(vm.R(5), global); err != nil {
		return nil, err
	}

	if err := i.CreateMove(vm.R(4), vm.Immediate(35)); err != nil {
		return nil, err
	}
	if err := i.CreateStoreIndirect(vm.R(0), uint64(local), vm.R(4)); err != nil {
		return nil, err
	}
	if err := i.CreateLoadIndirect(vm.R(6), vm.R(0), uint64(local)); err != nil {
		return nil, err
	}

	if err := i.CreateAdd(vm.R(1), vm.R(5), vm.R(6)); err != nil {
		return nil, err
	}
	i.CreateReturn()
	return i, nil
}
