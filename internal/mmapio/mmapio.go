// Package mmapio wraps the raw mmap/mprotect primitives the loader needs,
// over golang.org/x/sys/unix rather than hand-rolled syscall numbers. The
// x/sys/unix high-level Mmap helper does not expose MAP_FIXED placement at
// a caller-chosen address, so this package drives the raw syscalls
// directly (matching how unix.Mmap itself is implemented internally).
package mmapio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a single anonymous or file-backed mapping the loader owns.
// The loader never calls Munmap on a Mapping once segments are placed in
// it: unmapping after relocation would invalidate pointers already handed
// to the guest program, so every Mapping in this loader is intentionally
// leaked for the process's lifetime.
type Mapping struct {
	Addr uintptr
	Len  uintptr
}

// ReserveAnon reserves a read/write anonymous mapping of size bytes. The
// kernel chooses the address; the returned Mapping.Addr is that choice.
// This is used to reserve the convex-hull placeholder for one object's
// load segments before any PT_LOAD segment is placed within it.
func ReserveAnon(size uint64) (*Mapping, error) {
	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP, 0, uintptr(size),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_PRIVATE|unix.MAP_ANONYMOUS),
		^uintptr(0), 0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("mmap anon(%d): %w", size, errno)
	}
	return &Mapping{Addr: addr, Len: uintptr(size)}, nil
}

// MapFileFixed maps [offset, offset+size) of f at the fixed address addr,
// read/write/execute, overwriting whatever reservation already occupies
// that range (the convex-hull reservation made by ReserveAnon). Final
// protections are applied later, in the protection phase.
func MapFileFixed(f *os.File, addr uintptr, size uint64, offset int64) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP, addr, uintptr(size),
		uintptr(unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC),
		uintptr(unix.MAP_PRIVATE|unix.MAP_FIXED),
		uintptr(f.Fd()), uintptr(offset),
	)
	if errno != 0 {
		return fmt.Errorf("mmap file fixed at 0x%x: %w", addr, errno)
	}
	return nil
}

// MapAnonFixed maps an anonymous, zero-filled, read/write/execute region of
// size bytes at the fixed address addr, overwriting whatever reservation
// already occupies that range. Used for the whole-page tail of a PT_LOAD
// segment's bss that lies beyond any file-backed page, so those pages never
// touch the backing file (and can't run past EOF into SIGBUS).
func MapAnonFixed(addr uintptr, size uint64) error {
	if size == 0 {
		return nil
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP, addr, uintptr(size),
		uintptr(unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC),
		uintptr(unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_FIXED),
		^uintptr(0), 0,
	)
	if errno != 0 {
		return fmt.Errorf("mmap anon fixed at 0x%x: %w", addr, errno)
	}
	return nil
}

// ZeroFill writes n zero bytes starting at the raw address addr. Used to
// clear the bss tail [filesz, memsz) of a segment after it is mapped.
func ZeroFill(addr uintptr, n uint64) {
	if n == 0 {
		return
	}
	buf := unsafeSlice(addr, n)
	for i := range buf {
		buf[i] = 0
	}
}

// Protect applies the given POSIX protection bits to [addr, addr+size).
func Protect(addr uintptr, size uint64, prot int) error {
	if err := unix.Mprotect(unsafeSlice(addr, size), prot); err != nil {
		return fmt.Errorf("mprotect 0x%x/%d: %w", addr, size, err)
	}
	return nil
}

// ProtectionBits converts ELF-style R/W/X booleans into a POSIX
// PROT_* bitset.
func ProtectionBits(read, write, exec bool) int {
	var p int
	if read {
		p |= unix.PROT_READ
	}
	if write {
		p |= unix.PROT_WRITE
	}
	if exec {
		p |= unix.PROT_EXEC
	}
	return p
}
