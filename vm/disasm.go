package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/termenv"
)

var disasmProfile = termenv.ColorProfile()

// styled renders s in color, unless the interpreter was built with
// WithColorDisassembly(false) (or a config file's [disasm].colorize is
// off), in which case it's returned unchanged.
func (i *Interpreter) styled(s string, color string) string {
	if !i.colorDisasm {
		return s
	}
	return termenv.String(s).Foreground(disasmProfile.Color(color)).String()
}

const (
	colorMnemonic = "#7DBDA2"
	colorRegister = "#E06C75"
	colorAddress  = "#F59762"
	colorPunct    = "#ABB2BF"
)

// Disassemble renders every bytecode instruction as one line: its offset,
// raw bytes, and mnemonic, grouped under banners naming the function each
// address falls inside. It mirrors interp::interpreter::disassemble, though
// it emits ANSI color via termenv rather than fmt::color.
func (i *Interpreter) Disassemble() string {
	var b strings.Builder

	type namedFunc struct {
		name string
		addr Ptr
	}
	var funcs []namedFunc
	for _, f := range i.functions.slots {
		if f.kind == funcBytecode {
			funcs = append(funcs, namedFunc{f.name, f.addr})
		}
	}
	sort.Slice(funcs, func(a, c int) bool { return funcs[a].addr < funcs[c].addr })

	nextBanner := 0
	for at := Ptr(1); int(at) < len(i.bytecode); {
		for nextBanner < len(funcs) && funcs[nextBanner].addr == at {
			fmt.Fprintf(&b, "\n%s:\n", i.styled(funcs[nextBanner].name, colorMnemonic))
			nextBanner++
		}
		line, n := i.disassembleOne(at)
		end := int(at) + n
		if end > len(i.bytecode) {
			end = len(i.bytecode)
		}
		var raw strings.Builder
		for _, c := range i.bytecode[at:end] {
			fmt.Fprintf(&raw, "%02x ", c)
		}
		fmt.Fprintf(&b, "  %s  %-36s %s\n", i.styled(fmt.Sprintf("%04x", at), colorAddress), raw.String(), line)
		at += Ptr(n)
	}
	return b.String()
}

// disassembleOne decodes the instruction at offset at without mutating
// interpreter state, and returns its rendered text plus its length in bytes.
func (i *Interpreter) disassembleOne(at Ptr) (string, int) {
	code := i.bytecode
	if int(at) >= len(code) {
		return i.styled("<eof>", colorPunct), 1
	}
	op := Opcode(code[at])
	pos := int(at) + 1

	regStr := func(r Reg) string { return i.styled(r.String(), colorRegister) }
	mnemonic := i.styled(op.String(), colorMnemonic)

	switch op {
	case OpInvalid:
		return i.styled(".invalid", colorPunct), 1
	case OpNop, OpRet:
		return mnemonic, 1
	case OpMov:
		dest := Reg(code[pos])
		src := Reg(code[pos+1])
		pos += 2
		if src.isImmediateMarker() {
			n := src.Size().Bytes()
			imm := readWord(code, Ptr(pos), n)
			pos += n
			return fmt.Sprintf("%s %s, %s", mnemonic, regStr(dest), i.styled(fmt.Sprintf("%#x", imm), colorAddress)), pos - int(at)
		}
		return fmt.Sprintf("%s %s, %s", mnemonic, regStr(dest), regStr(src)), pos - int(at)

	case OpAdd, OpSub, OpMulI, OpMulU, OpDivI, OpDivU, OpRemI, OpRemU, OpShl, OpSar, OpShr:
		dest := Reg(code[pos])
		rs1 := Reg(code[pos+1])
		rs2 := Reg(code[pos+2])
		pos += 3
		operand := func(r Reg) string {
			if r.isImmediateMarker() {
				n := r.Size().Bytes()
				imm := readWord(code, Ptr(pos), n)
				pos += n
				return i.styled(fmt.Sprintf("%#x", imm), colorAddress)
			}
			return regStr(r)
		}
		s1 := operand(rs1)
		s2 := operand(rs2)
		return fmt.Sprintf("%s %s, %s, %s", mnemonic, regStr(dest), s1, s2), pos - int(at)

	case OpXchg:
		a := Reg(code[pos])
		bReg := Reg(code[pos+1])
		pos += 2
		return fmt.Sprintf("%s %s, %s", mnemonic, regStr(a), regStr(bReg)), pos - int(at)

	case OpLoad8, OpLoad16, OpLoad32, OpLoad64:
		dest := Reg(code[pos])
		pos++
		n := addressOperandSize(op)
		p := readWord(code, Ptr(pos), n)
		pos += n
		return fmt.Sprintf("%s %s, [%s]", mnemonic, regStr(dest), i.styled(fmt.Sprintf("%#x", p), colorAddress)), pos - int(at)

	case OpLoadRel8, OpLoadRel16, OpLoadRel32, OpLoadRel64:
		dest := Reg(code[pos])
		src := Reg(code[pos+1])
		pos += 2
		n := addressOperandSize(op)
		off := readWord(code, Ptr(pos), n)
		pos += n
		return fmt.Sprintf("%s %s, [%s+%s]", mnemonic, regStr(dest), regStr(src), i.styled(fmt.Sprintf("%#x", off), colorAddress)), pos - int(at)

	case OpStore8, OpStore16, OpStore32, OpStore64:
		src := Reg(code[pos])
		pos++
		n := addressOperandSize(op)
		p := readWord(code, Ptr(pos), n)
		pos += n
		return fmt.Sprintf("%s [%s], %s", mnemonic, i.styled(fmt.Sprintf("%#x", p), colorAddress), regStr(src)), pos - int(at)

	case OpStoreRel8, OpStoreRel16, OpStoreRel32, OpStoreRel64:
		dest := Reg(code[pos])
		src := Reg(code[pos+1])
		pos += 2
		n := addressOperandSize(op)
		off := readWord(code, Ptr(pos), n)
		pos += n
		return fmt.Sprintf("%s [%s+%s], %s", mnemonic, regStr(dest), i.styled(fmt.Sprintf("%#x", off), colorAddress), regStr(src)), pos - int(at)

	case OpCall8, OpCall16, OpCall32, OpCall64:
		n := addressOperandSize(op)
		idx := readWord(code, Ptr(pos), n)
		pos += n
		name := fmt.Sprintf("#%d", idx)
		annotation := ""
		if f, err := i.functions.get(int(idx)); err == nil {
			if f.name != "" {
				name = f.name
			}
			switch f.kind {
			case funcNative:
				annotation = " " + i.styled("@ native", colorPunct)
			case funcLibrary:
				annotation = " " + i.styled("@ library", colorPunct)
			}
		}
		return fmt.Sprintf("%s %s%s", mnemonic, i.styled(name, colorAddress), annotation), pos - int(at)

	case OpJmp8, OpJmp16, OpJmp32, OpJmp64:
		n := addressOperandSize(op)
		target := readWord(code, Ptr(pos), n)
		pos += n
		return fmt.Sprintf("%s %s", mnemonic, i.styled(fmt.Sprintf("%#x", target), colorAddress)), pos - int(at)

	case OpJnz8, OpJnz16, OpJnz32, OpJnz64:
		cond := Reg(code[pos])
		pos++
		n := addressOperandSize(op)
		target := readWord(code, Ptr(pos), n)
		pos += n
		return fmt.Sprintf("%s %s, %s", mnemonic, regStr(cond), i.styled(fmt.Sprintf("%#x", target), colorAddress)), pos - int(at)

	default:
		return i.styled(fmt.Sprintf("db %#02x", byte(op)), colorPunct), 1
	}
}
