// Package addr provides the Addr type: a newtype over a 64-bit virtual
// address used throughout the loader for segment bounds, symbol values,
// and relocation targets. All arithmetic stays in uint64 space; the
// unsafe-pointer projections are the only place the loader reaches outside
// Go's memory-safety guarantees, and only into mappings it holds itself.
package addr

import "unsafe"

// Addr is a virtual address inside the loader's own address space, either
// because it names a location in a file we parsed or because it names a
// location we ourselves mmap'd.
type Addr uint64

// Add returns a+off.
func (a Addr) Add(off uint64) Addr {
	return a + Addr(off)
}

// AddSigned returns a+off for a signed addend (relocation addends are
// signed; negative addends are legal).
func (a Addr) AddSigned(off int64) Addr {
	return Addr(int64(a) + off)
}

// Sub returns the distance from b to a (a-b).
func (a Addr) Sub(b Addr) uint64 {
	return uint64(a - b)
}

// SubUint returns a-off.
func (a Addr) SubUint(off uint64) Addr {
	return a - Addr(off)
}

// AlignDown rounds a down to the given power-of-two alignment.
func (a Addr) AlignDown(align uint64) Addr {
	return Addr(uint64(a) &^ (align - 1))
}

// AlignUp rounds a up to the given power-of-two alignment.
func (a Addr) AlignUp(align uint64) Addr {
	return Addr((uint64(a) + align - 1) &^ (align - 1))
}

// Pointer reinterprets the address as a raw pointer into the loader's own
// address space. The caller must ensure a lies inside a mapping the loader
// currently holds; this function performs no validation.
func (a Addr) Pointer() unsafe.Pointer {
	return unsafe.Pointer(uintptr(a))
}

// Slice projects a read/write byte slice of length n starting at a. The
// caller must ensure [a, a+n) lies inside a mapping the loader holds.
func (a Addr) Slice(n int) []byte {
	return unsafe.Slice((*byte)(a.Pointer()), n)
}

// ReadUint64 reads a little-endian uint64 at a.
func (a Addr) ReadUint64() uint64 {
	return *(*uint64)(a.Pointer())
}

// WriteUint64 writes a little-endian uint64 at a.
func (a Addr) WriteUint64(v uint64) {
	*(*uint64)(a.Pointer()) = v
}

// WriteBytes copies b into memory starting at a.
func (a Addr) WriteBytes(b []byte) {
	copy(a.Slice(len(b)), b)
}
