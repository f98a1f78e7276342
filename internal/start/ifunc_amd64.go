package start

import "github.com/zboralski/xelf/internal/addr"

// callIFunc invokes the function at fn with no arguments and returns its
// uint64 result. Implemented in ifunc_amd64.s: unlike trampoline, this
// call returns normally (R_X86_64_IRELATIVE resolvers are ordinary
// functions with signature () -> Addr, not a one-way transfer of control).
//
//go:noescape
func callIFunc(fn uintptr) uintptr

// IFunc resolves an R_X86_64_IRELATIVE target by calling the resolver
// function at target and returning its result.
func IFunc(target addr.Addr) addr.Addr {
	return addr.Addr(callIFunc(uintptr(target)))
}
