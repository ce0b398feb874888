package vm

// memory is the unified flat arena: globals occupy [1, gp), the stack
// occupies [gp, sp), and [sp, len) is unallocated. Offset 0 is reserved as
// the null pointer sentinel.
type memory struct {
	bytes []byte
	gp    Ptr // first free global offset; grows upward as globals are declared
	sp    Ptr // current stack pointer; grows upward on push/alloca, downward on pop/return
}

func newMemory(max int) *memory {
	return &memory{
		bytes: make([]byte, max),
		gp:    1,
		sp:    1,
	}
}

func (m *memory) max() Ptr { return Ptr(len(m.bytes)) }

// global reserves n bytes in the global region and returns their offset.
// Globals are declared before any stack activity begins, so bumping gp is
// enough; it also nudges sp forward if the stack hasn't started yet.
func (m *memory) global(n int) (Ptr, error) {
	if n < 0 {
		return 0, wrapError(KindBuild, ErrInvalidSize, "global size %d is negative", n)
	}
	p := m.gp
	end := p + Ptr(n)
	if end > m.max() {
		return 0, wrapError(KindBuild, ErrStackOverflow, "global allocation of %d bytes exceeds memory size %d", n, len(m.bytes))
	}
	m.gp = end
	if m.sp < m.gp {
		m.sp = m.gp
	}
	return p, nil
}

// checkBounds validates that a read/write of sz bytes at p stays within the
// arena and never touches the null sentinel.
func (m *memory) checkBounds(p Ptr, sz int) error {
	if p == nullPtr {
		return wrapError(KindRuntime, ErrInvalidPointer, "dereference of null pointer")
	}
	if sz < 0 || p+Ptr(sz) > m.max() || p+Ptr(sz) < p {
		return wrapError(KindRuntime, ErrInvalidPointer, "access of %d bytes at offset %d is out of bounds (memory size %d)", sz, p, len(m.bytes))
	}
	return nil
}

// load reads sz bytes at p as a little-endian unsigned integer, zero-extended
// to 64 bits.
func (m *memory) load(p Ptr, sz Size) (uint64, error) {
	n := sz.Bytes()
	if err := m.checkBounds(p, n); err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(m.bytes[int(p)+i])
	}
	return v, nil
}

// store writes the low sz bytes of v at p, little-endian.
func (m *memory) store(p Ptr, sz Size, v uint64) error {
	n := sz.Bytes()
	if err := m.checkBounds(p, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		m.bytes[int(p)+i] = byte(v)
		v >>= 8
	}
	return nil
}
