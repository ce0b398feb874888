//go:build cgo

package vm

import "testing"

// TestLibraryCallUnsafeInvokesLibm links against libm's labs(3), a stable
// one-argument function present on every Linux system, to exercise the
// dlopen/dlsym/arity-trampoline path end to end.
func TestLibraryCallUnsafeInvokesLibm(t *testing.T) {
	i := New()
	defer i.Close()

	assert(t, i.CreateMove(R(2), Immediate(0xffffffffffffff9c)) == nil, "mov failed") // -100 as two's complement
	err := i.CreateLibraryCallUnsafe("libm.so.6", "labs", 1)
	if err != nil {
		t.Skipf("libm.so.6 unavailable in this environment: %v", err)
	}
	i.CreateReturn()

	got, err := i.Run()
	assert(t, err == nil, "run failed: %v", err)
	assert(t, got == 100, "expected labs(-100) == 100, got %d", got)
}
