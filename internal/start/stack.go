// Package start builds the System V AMD64 initial process stack, acquires
// and filters the host auxiliary vector, installs the thread-control-block
// base into %fs, and trampolines to the guest entry point. The trampoline
// itself is hand-written assembly (trampoline_amd64.s): it is the one
// place in the loader where a Go abstraction would be actively wrong,
// since the jump must not leave any Go frame on the new stack.
package start

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/mmapio"
)

// Auxiliary vector type constants this loader forwards from the host
// process. AT_BASE, AT_ENTRY, AT_EXECFN, and AT_PHDR/PHENT/PHNUM describe
// the *loader's own* process, not the guest image, and are forwarded
// verbatim; this is a known conformance limitation (see DESIGN.md), not a
// bug to silently "fix".
const (
	atNull         = 0
	atExecfd       = 2
	atPhdr         = 3
	atPhent        = 4
	atPhnum        = 5
	atPagesz       = 6
	atBase         = 7
	atFlags        = 8
	atEntry        = 9
	atNotelf       = 10
	atUID          = 11
	atEUID         = 12
	atGID          = 13
	atEGID         = 14
	atPlatform     = 15
	atHwcap        = 16
	atClktck       = 17
	atSecure       = 23
	atBasePlatform = 24
	atRandom       = 25
	atHwcap2       = 26
	atExecfn       = 31
	atSysinfo      = 32
	atSysinfoEhdr  = 33
)

// recognizedAuxTypes is the exact set spec'd for forwarding, in no
// particular order (the stack layout sorts by the order here, which is
// stable but otherwise arbitrary — nothing in the ABI requires auxv pairs
// to appear in a specific order, only that they're terminated by AT_NULL).
var recognizedAuxTypes = []uint64{
	atExecfd, atPhdr, atPhent, atPhnum, atPagesz, atBase, atFlags, atEntry,
	atNotelf, atUID, atEUID, atGID, atEGID, atPlatform, atHwcap, atClktck,
	atSecure, atBasePlatform, atRandom, atHwcap2, atExecfn, atSysinfo,
	atSysinfoEhdr,
}

// HostAuxv reads /proc/self/auxv and returns the recognized (type, value)
// pairs with nonzero values, in recognizedAuxTypes order.
func HostAuxv() ([][2]uint64, error) {
	raw, err := os.ReadFile("/proc/self/auxv")
	if err != nil {
		return nil, err
	}
	all := make(map[uint64]uint64)
	for i := 0; i+16 <= len(raw); i += 16 {
		typ := binary.LittleEndian.Uint64(raw[i:])
		val := binary.LittleEndian.Uint64(raw[i+8:])
		if typ == atNull {
			break
		}
		all[typ] = val
	}

	var out [][2]uint64
	for _, t := range recognizedAuxTypes {
		if v, ok := all[t]; ok && v != 0 {
			out = append(out, [2]uint64{t, v})
		}
	}
	return out, nil
}

// Strings allocates a private anonymous mapping large enough to hold every
// string in ss as a NUL-terminated C string, writes them, and returns their
// addresses in order. The mapping is intentionally never unmapped: argv/
// envp pointers handed to the guest must stay valid for its entire run.
func Strings(ss []string) ([]addr.Addr, error) {
	total := uint64(0)
	for _, s := range ss {
		total += uint64(len(s)) + 1
	}
	if total == 0 {
		return nil, nil
	}
	m, err := mmapio.ReserveAnon(total)
	if err != nil {
		return nil, err
	}
	base := addr.Addr(uint64(m.Addr))
	addrs := make([]addr.Addr, len(ss))
	var off uint64
	for i, s := range ss {
		a := base.Add(off)
		a.WriteBytes([]byte(s))
		a.Add(uint64(len(s))).WriteBytes([]byte{0})
		addrs[i] = a
		off += uint64(len(s)) + 1
	}
	return addrs, nil
}

// BuildStack assembles the initial stack word buffer in the order the
// guest will read it from low to high addresses: argc, argv pointers + NUL,
// envp pointers + NUL, auxv (type,value) pairs + (AT_NULL,0), and a zero
// pad word if needed to land on a 16-byte boundary.
func BuildStack(argv, envp []addr.Addr, auxv [][2]uint64) []uint64 {
	words := make([]uint64, 0, 1+len(argv)+1+len(envp)+1+2*(len(auxv)+1)+1)

	words = append(words, uint64(len(argv)))
	for _, a := range argv {
		words = append(words, uint64(a))
	}
	words = append(words, 0)

	for _, a := range envp {
		words = append(words, uint64(a))
	}
	words = append(words, 0)

	for _, pair := range auxv {
		words = append(words, pair[0], pair[1])
	}
	words = append(words, atNull, 0)

	if len(words)%2 != 0 {
		words = append(words, 0)
	}
	return words
}

// archSetFS is ARCH_SET_FS from <asm/prctl.h>, not exposed by
// golang.org/x/sys/unix as a named constant on all platforms.
const archSetFS = 0x1002

// InstallTCB sets the %fs segment base to tcb via arch_prctl(2).
func InstallTCB(tcb addr.Addr) error {
	_, _, errno := unix.Syscall(unix.SYS_ARCH_PRCTL, archSetFS, uintptr(tcb), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
