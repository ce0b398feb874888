package vm

// Operand is either a Reg or an Immediate, mirroring the three overloads
// the original builder exposed per arithmetic instruction (reg/reg,
// reg/imm, imm/reg) as a single Go method taking two Operands.
type Operand interface {
	isOperand()
}

// Immediate is a literal word value used as one side of an arithmetic
// instruction or as the value moved into a register.
type Immediate uint64

func (Immediate) isOperand() {}
func (Reg) isOperand()       {}

func checkNotImmediateMarker(r Reg) error {
	if r.isImmediateMarker() {
		return newError(KindBuild, "register operand cannot be r0 (reserved as the immediate marker / frame base)")
	}
	return nil
}

// CreateReturn emits ret.
func (i *Interpreter) CreateReturn() {
	i.bytecode = append(i.bytecode, byte(OpRet))
}

// CreateMove emits mov dest, src where src is either a register or an
// immediate.
func (i *Interpreter) CreateMove(dest Reg, src Operand) error {
	i.bytecode = append(i.bytecode, byte(OpMov), byte(dest))
	switch s := src.(type) {
	case Reg:
		if err := checkNotImmediateMarker(s); err != nil {
			return err
		}
		i.bytecode = append(i.bytecode, byte(s))
	case Immediate:
		marker := Reg(sizeMaskBits(immediateWidth(uint64(s))))
		i.bytecode = append(i.bytecode, byte(marker))
		i.bytecode = writeWord(i.bytecode, uint64(s))
	default:
		return newError(KindBuild, "unsupported move source operand")
	}
	return nil
}

// arithmetic encodes one of the eleven three-operand arithmetic
// instructions, dispatching on the concrete Operand types the same way the
// three C++ encode_arithmetic overloads did.
func (i *Interpreter) arithmetic(op Opcode, dest Reg, a, b Operand) error {
	ra, aIsReg := a.(Reg)
	rb, bIsReg := b.(Reg)
	switch {
	case aIsReg && bIsReg:
		if err := checkNotImmediateMarker(ra); err != nil {
			return err
		}
		if err := checkNotImmediateMarker(rb); err != nil {
			return err
		}
		i.bytecode = append(i.bytecode, byte(op), byte(dest), byte(ra), byte(rb))
	case aIsReg:
		imm, ok := b.(Immediate)
		if !ok {
			return newError(KindBuild, "unsupported arithmetic operand combination")
		}
		if err := checkNotImmediateMarker(ra); err != nil {
			return err
		}
		marker := Reg(sizeMaskBits(immediateWidth(uint64(imm))))
		i.bytecode = append(i.bytecode, byte(op), byte(dest), byte(ra), byte(marker))
		i.bytecode = writeWord(i.bytecode, uint64(imm))
	case bIsReg:
		imm, ok := a.(Immediate)
		if !ok {
			return newError(KindBuild, "unsupported arithmetic operand combination")
		}
		if err := checkNotImmediateMarker(rb); err != nil {
			return err
		}
		marker := Reg(sizeMaskBits(immediateWidth(uint64(imm))))
		i.bytecode = append(i.bytecode, byte(op), byte(dest), byte(marker), byte(rb))
		i.bytecode = writeWord(i.bytecode, uint64(imm))
	default:
		return newError(KindBuild, "arithmetic instructions need at least one register operand")
	}
	return nil
}

func (i *Interpreter) CreateAdd(dest Reg, a, b Operand) error  { return i.arithmetic(OpAdd, dest, a, b) }
func (i *Interpreter) CreateSub(dest Reg, a, b Operand) error  { return i.arithmetic(OpSub, dest, a, b) }
func (i *Interpreter) CreateMulI(dest Reg, a, b Operand) error { return i.arithmetic(OpMulI, dest, a, b) }
func (i *Interpreter) CreateMulU(dest Reg, a, b Operand) error { return i.arithmetic(OpMulU, dest, a, b) }
func (i *Interpreter) CreateDivI(dest Reg, a, b Operand) error { return i.arithmetic(OpDivI, dest, a, b) }
func (i *Interpreter) CreateDivU(dest Reg, a, b Operand) error { return i.arithmetic(OpDivU, dest, a, b) }
func (i *Interpreter) CreateRemI(dest Reg, a, b Operand) error { return i.arithmetic(OpRemI, dest, a, b) }
func (i *Interpreter) CreateRemU(dest Reg, a, b Operand) error { return i.arithmetic(OpRemU, dest, a, b) }
func (i *Interpreter) CreateShl(dest Reg, a, b Operand) error  { return i.arithmetic(OpShl, dest, a, b) }
func (i *Interpreter) CreateSar(dest Reg, a, b Operand) error  { return i.arithmetic(OpSar, dest, a, b) }
func (i *Interpreter) CreateShr(dest Reg, a, b Operand) error  { return i.arithmetic(OpShr, dest, a, b) }

// CreateXchg swaps the values of two registers in place. Each register is
// written at its own width, so when the widths differ the narrower side
// receives the truncated value; exchanging a register with a narrower view
// of itself truncates it to that width.
func (i *Interpreter) CreateXchg(a, b Reg) error {
	if err := checkNotImmediateMarker(a); err != nil {
		return err
	}
	if err := checkNotImmediateMarker(b); err != nil {
		return err
	}
	i.bytecode = append(i.bytecode, byte(OpXchg), byte(a), byte(b))
	return nil
}

// createCallInternal emits a call to an already-resolved function slot.
func (i *Interpreter) createCallInternal(index int) {
	op := addressOpcodeFamily(uint64(index), OpCall8, OpCall16, OpCall32, OpCall64)
	i.bytecode = append(i.bytecode, byte(op))
	i.bytecode = writeWord(i.bytecode, uint64(index))
}

// CreateCall emits a call to name, declaring a forward reference if name
// hasn't been defined yet.
func (i *Interpreter) CreateCall(name string) {
	idx := i.functions.declare(name)
	i.createCallInternal(idx)
}

// CreateBranch emits an unconditional jump to target.
func (i *Interpreter) CreateBranch(target Ptr) {
	op := addressOpcodeFamily(uint64(target), OpJmp8, OpJmp16, OpJmp32, OpJmp64)
	i.bytecode = append(i.bytecode, byte(op))
	i.bytecode = writeWord(i.bytecode, uint64(target))
}

// CreateBranchIfNz emits a jump to target taken when cond is nonzero.
func (i *Interpreter) CreateBranchIfNz(cond Reg, target Ptr) {
	op := addressOpcodeFamily(uint64(target), OpJnz8, OpJnz16, OpJnz32, OpJnz64)
	i.bytecode = append(i.bytecode, byte(op), byte(cond))
	i.bytecode = writeWord(i.bytecode, uint64(target))
}

// CreateFunction opens (or reopens a forward-declared) function named name
// at the current bytecode offset, and makes it the target of subsequent
// Alloca calls.
func (i *Interpreter) CreateFunction(name string) error {
	idx, err := i.functions.defineBytecode(name, Ptr(len(i.bytecode)), 0)
	if err != nil {
		return err
	}
	i.currentFunction = idx
	return nil
}

// CurrentAddr returns the bytecode offset that the next emitted instruction
// will occupy.
func (i *Interpreter) CurrentAddr() Ptr {
	return Ptr(len(i.bytecode))
}

// Alloca reserves size bytes (minimum one word) in the current function's
// stack frame and returns their frame-relative offset.
func (i *Interpreter) Alloca(size int) Ptr {
	if size < 8 {
		size = 8
	}
	f := &i.functions.slots[i.currentFunction]
	p := Ptr(f.localsSize)
	f.localsSize += size
	return p
}

// Global reserves size bytes (minimum one word) in the global region and
// returns their absolute offset.
func (i *Interpreter) Global(size int) (Ptr, error) {
	if size < 8 {
		size = 8
	}
	return i.mem.global(size)
}

// CreateLoad emits an absolute load: dest = *src.
func (i *Interpreter) CreateLoad(dest Reg, src Ptr) error {
	if src == nullPtr || src >= i.mem.max() {
		return wrapError(KindBuild, ErrInvalidPointer, "invalid pointer %#x", uint64(src))
	}
	op := addressOpcodeFamily(uint64(src), OpLoad8, OpLoad16, OpLoad32, OpLoad64)
	i.bytecode = append(i.bytecode, byte(op), byte(dest))
	i.bytecode = writeWord(i.bytecode, uint64(src))
	return nil
}

// CreateLoadIndirect emits a register-relative load: dest = *(src + offset).
// If src is r0, the offset is relative to the callee's frame base.
func (i *Interpreter) CreateLoadIndirect(dest, src Reg, offset uint64) error {
	op := addressOpcodeFamily(offset, OpLoadRel8, OpLoadRel16, OpLoadRel32, OpLoadRel64)
	i.bytecode = append(i.bytecode, byte(op), byte(dest), byte(src))
	i.bytecode = writeWord(i.bytecode, offset)
	return nil
}

// CreateStore emits an absolute store: *dest = src.
func (i *Interpreter) CreateStore(dest Ptr, src Reg) error {
	if dest == nullPtr || dest >= i.mem.max() {
		return wrapError(KindBuild, ErrInvalidPointer, "invalid pointer %#x", uint64(dest))
	}
	op := addressOpcodeFamily(uint64(dest), OpStore8, OpStore16, OpStore32, OpStore64)
	i.bytecode = append(i.bytecode, byte(op), byte(src))
	i.bytecode = writeWord(i.bytecode, uint64(dest))
	return nil
}

// CreateStoreIndirect emits a register-relative store: *(dest + offset) = src.
func (i *Interpreter) CreateStoreIndirect(dest Reg, offset uint64, src Reg) error {
	op := addressOpcodeFamily(offset, OpStoreRel8, OpStoreRel16, OpStoreRel32, OpStoreRel64)
	i.bytecode = append(i.bytecode, byte(op), byte(dest), byte(src))
	i.bytecode = writeWord(i.bytecode, offset)
	return nil
}

// CreateLibraryCallUnsafe loads (or reuses) libraryPath via dlopen, resolves
// functionName, and emits a call to it. numParams must not exceed 62; the
// call marshals argument registers r2.. through the arity-dispatch
// trampoline in library_shim.c.
func (i *Interpreter) CreateLibraryCallUnsafe(libraryPath, functionName string, numParams int) error {
	if numParams > 62 {
		return wrapError(KindBuild, ErrArityTooLarge, "library function %q declared with %d parameters", functionName, numParams)
	}
	if !librarySupported {
		return wrapError(KindBuild, ErrLibraryLoad, "library linkage requires a cgo build (wanted %q from %q)", functionName, libraryPath)
	}
	if idx, ok := i.functions.lookup(functionName); ok {
		f := &i.functions.slots[idx]
		if f.kind == funcLibrary {
			i.createCallInternal(idx)
			return nil
		}
	}
	handle, err := i.libs.open(libraryPath, i.librarySearchPaths)
	if err != nil {
		return err
	}
	sym, err := i.libs.symbol(handle, functionName)
	if err != nil {
		return err
	}
	idx, err := i.functions.defineLibrary(functionName, handle, sym, numParams)
	if err != nil {
		return err
	}
	log.Debugf("linked %q from %q (%d params)", functionName, libraryPath, numParams)
	i.createCallInternal(idx)
	return nil
}
