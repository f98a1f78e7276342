package start

import (
	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/mmapio"
)

// trampoline switches RSP to stackTop and jumps to entry without ever
// returning. Implemented in trampoline_amd64.s: it must not read its own
// caller's frame once SP has moved, which rules out writing it in Go.
//
//go:noescape
func trampoline(stackTop uintptr, entry uintptr)

// Jump copies words onto a freshly allocated stack region (so the
// trampoline's stack pointer points at memory the guest, not the Go
// runtime, owns) and transfers control to entry. It never returns.
func Jump(entry addr.Addr, words []uint64) {
	size := uint64(len(words)) * 8
	m, err := mmapio.ReserveAnon(size)
	if err != nil {
		panic("start: allocate guest stack: " + err.Error())
	}
	base := addr.Addr(uint64(m.Addr))
	for i, w := range words {
		base.Add(uint64(i) * 8).WriteUint64(w)
	}
	trampoline(uintptr(base), uintptr(entry))
	panic("unreachable: trampoline returned")
}
